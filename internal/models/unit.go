package models

// Unit is one inventory item (a car) eligible for presentation. Units are
// owned by the external inventory source and never mutated here.
type Unit struct {
	SKU          string `json:"sku"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Variant      string `json:"variant,omitempty"`
	Year         string `json:"year,omitempty"`
	BodyType     string `json:"body_type,omitempty"`
	Transmission string `json:"transmission,omitempty"`

	// Prices in pesos; 0 means the source value was not parsable.
	SRP      int64 `json:"srp,omitempty"`
	AllIn    int64 `json:"all_in,omitempty"`
	Monthly2 int64 `json:"monthly_2,omitempty"`
	Monthly3 int64 `json:"monthly_3,omitempty"`
	Monthly4 int64 `json:"monthly_4,omitempty"`

	PriceStatus string `json:"price_status,omitempty"`

	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Address  string `json:"address,omitempty"`

	Mileage int64 `json:"mileage,omitempty"` // km; 0 means unknown

	Images []string `json:"images,omitempty"` // up to 10 URLs
}

// MonthlyForTerm returns the monthly amortization for a 2/3/4 year term, or
// 0 if the term is unknown or the source had no figure.
func (u Unit) MonthlyForTerm(years int) int64 {
	switch years {
	case 2:
		return u.Monthly2
	case 3:
		return u.Monthly3
	case 4:
		return u.Monthly4
	default:
		return 0
	}
}
