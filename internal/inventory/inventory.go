// Package inventory fetches the current unit list from the
// spreadsheet-backed inventory API and caches it in-process.
//
// The source is read-only: units are fetched on demand, cached for a short
// window, and never mutated. Fetch failures propagate as hard errors so the
// turn handler can surface a "try again" reply instead of operating on
// stale or empty data.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Source defines the fetch-current-inventory capability consumed by the flow.
type Source interface {
	FetchAll(ctx context.Context) ([]models.Unit, error)
}

// Opts holds configuration for the HTTP client.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option configures the HTTP client constructor.
type Option func(*Opts)

// WithBaseURL sets the inventory API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// unitRow is the wire shape of one spreadsheet row. Prices arrive as
// free-text strings (peso signs, commas) and are parsed locally.
type unitRow struct {
	SKU          string `json:"sku"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Variant      string `json:"variant"`
	Year         string `json:"year"`
	BodyType     string `json:"body_type"`
	Transmission string `json:"transmission"`
	SRP          string `json:"srp"`
	AllIn        string `json:"all_in"`
	Monthly2     string `json:"monthly_2yr"`
	Monthly3     string `json:"monthly_3yr"`
	Monthly4     string `json:"monthly_4yr"`
	PriceStatus  string `json:"price_status"`
	City         string `json:"city"`
	Province     string `json:"province"`
	Address      string `json:"complete_address"`
	Mileage      string `json:"mileage"`
	Image1       string `json:"image_1"`
	Image2       string `json:"image_2"`
	Image3       string `json:"image_3"`
	Image4       string `json:"image_4"`
	Image5       string `json:"image_5"`
	Image6       string `json:"image_6"`
	Image7       string `json:"image_7"`
	Image8       string `json:"image_8"`
	Image9       string `json:"image_9"`
	Image10      string `json:"image_10"`
}

// Client fetches units from the spreadsheet API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an inventory API client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("inventory base URL not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: cfg.BaseURL, http: httpClient}, nil
}

// FetchAll retrieves and parses the full unit list.
func (c *Client) FetchAll(ctx context.Context) ([]models.Unit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory request build failed: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Inventory fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrInventory, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Inventory fetch returned non-OK status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", models.ErrInventory, resp.StatusCode)
	}

	var rows []unitRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		slog.Error("Inventory decode failed", "error", err)
		return nil, fmt.Errorf("%w: decode: %v", models.ErrInventory, err)
	}

	units := make([]models.Unit, 0, len(rows))
	for _, row := range rows {
		units = append(units, row.toUnit())
	}
	slog.Debug("Inventory fetch succeeded", "count", len(units))
	return units, nil
}

func (r unitRow) toUnit() models.Unit {
	u := models.Unit{
		SKU:          r.SKU,
		Brand:        r.Brand,
		Model:        r.Model,
		Variant:      r.Variant,
		Year:         r.Year,
		BodyType:     r.BodyType,
		Transmission: r.Transmission,
		SRP:          ParsePeso(r.SRP),
		AllIn:        ParsePeso(r.AllIn),
		Monthly2:     ParsePeso(r.Monthly2),
		Monthly3:     ParsePeso(r.Monthly3),
		Monthly4:     ParsePeso(r.Monthly4),
		PriceStatus:  r.PriceStatus,
		City:         r.City,
		Province:     r.Province,
		Address:      r.Address,
		Mileage:      ParsePeso(r.Mileage),
	}
	for _, img := range []string{r.Image1, r.Image2, r.Image3, r.Image4, r.Image5, r.Image6, r.Image7, r.Image8, r.Image9, r.Image10} {
		if strings.TrimSpace(img) != "" {
			u.Images = append(u.Images, strings.TrimSpace(img))
		}
	}
	return u
}

var pesoDigits = regexp.MustCompile(`\d[\d,]*`)

// ParsePeso extracts an integer peso amount from a free-text price field.
// Returns 0 when no amount is parsable.
func ParsePeso(raw string) int64 {
	m := pesoDigits.FindString(raw)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
