package extract

import (
	"testing"

	"github.com/kotsebot/kotsebot/internal/models"
)

func TestParseRestartShortCircuits(t *testing.T) {
	r := Parse("  ReStArT  ")
	if !r.Restart {
		t.Fatal("expected restart flag")
	}
	if r.Plan != "" || r.Budget != 0 || r.Location != "" {
		t.Error("restart must suppress all other extraction")
	}
	if Parse("please restart the convo").Restart {
		t.Error("restart must be an exact match, not a substring")
	}
}

func TestParsePlan(t *testing.T) {
	if got := Parse("spot cash po").Plan; got != models.PlanCash {
		t.Errorf("expected cash, got %q", got)
	}
	if got := Parse("pwede hulog?").Plan; got != models.PlanFinancing {
		t.Errorf("expected financing, got %q", got)
	}
	if got := Parse("all-in promo").Plan; got != models.PlanFinancing {
		t.Errorf("expected financing for all-in, got %q", got)
	}
	// Financing wins when both classes match because its check runs last.
	if got := Parse("cash or financing?").Plan; got != models.PlanFinancing {
		t.Errorf("expected financing to overwrite cash, got %q", got)
	}
	if got := Parse("magandang araw").Plan; got != "" {
		t.Errorf("expected no plan, got %q", got)
	}
}

func TestParseTransmissionLastRuleWins(t *testing.T) {
	if got := Parse("automatic sana").Transmission; got != models.TransmissionAutomatic {
		t.Errorf("expected automatic, got %q", got)
	}
	if got := Parse("m/t ok").Transmission; got != models.TransmissionManual {
		t.Errorf("expected manual, got %q", got)
	}
	// Later rules in table order overwrite earlier matches.
	if got := Parse("auto or manual").Transmission; got != models.TransmissionManual {
		t.Errorf("expected manual to overwrite automatic, got %q", got)
	}
	if got := Parse("auto manual any").Transmission; got != models.TransmissionAny {
		t.Errorf("expected any to overwrite both, got %q", got)
	}
	if got := Parse("anything goes").Transmission; got != "" {
		t.Errorf("expected no transmission from 'anything', got %q", got)
	}
}

func TestParseBodyTypeFirstMatchWins(t *testing.T) {
	if got := Parse("sedan o suv").BodyType; got != "sedan" {
		t.Errorf("expected sedan (first in table order), got %q", got)
	}
	if got := Parse("suv sedan").BodyType; got != "sedan" {
		t.Errorf("table order, not utterance order, decides: got %q", got)
	}
	if got := Parse("hatch po").BodyType; got != "hatchback" {
		t.Errorf("expected hatch alias to map to hatchback, got %q", got)
	}
	if got := Parse("pick up truck").BodyType; got != "pickup" {
		t.Errorf("expected pickup, got %q", got)
	}
}

func TestParseBodyTypeRelaxation(t *testing.T) {
	for _, text := range []string{"kahit anong body type", "kahit ano ok lang", "any body type po"} {
		if got := Parse(text).BodyType; got != models.BodyTypeAny {
			t.Errorf("Parse(%q).BodyType = %q, want the wildcard", text, got)
		}
	}
	// A named body type in the same utterance still wins.
	if got := Parse("kahit anong klase basta sedan").BodyType; got != "sedan" {
		t.Errorf("expected sedan over the wildcard, got %q", got)
	}
}

func TestParseLocation(t *testing.T) {
	if got := Parse("taga qc ako").Location; got != "qc" {
		t.Errorf("expected qc, got %q", got)
	}
	if got := Parse("nasa cavite kami").Location; got != "cavite" {
		t.Errorf("expected cavite, got %q", got)
	}
	if got := Parse("mandaluyong area").Location; got != "mandaluyong" {
		t.Errorf("expected mandaluyong, got %q", got)
	}
	if got := Parse("walang lugar dito").Location; got != "" {
		t.Errorf("expected no location, got %q", got)
	}
}

func TestParseBudget(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"500k budget", 500000},
		{"₱450,000", 450000},
		{"php 350000", 350000},
		{"budget ko 600 k", 600000},
		{"max 1200000", 1200000},
		{"tens 99 only", 0},   // below 3 digits
		{"12345678", 0},       // above 7 digits
		{"walang numero", 0},
	}
	for _, c := range cases {
		if got := Parse(c.in).Budget; got != c.want {
			t.Errorf("Parse(%q).Budget = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseYear(t *testing.T) {
	if got := Parse("2019 model sana").Year; got != "2019" {
		t.Errorf("expected 2019, got %q", got)
	}
	if got := Parse("year 1899 po").Year; got != "" {
		t.Errorf("expected out-of-range year rejected, got %q", got)
	}
	if got := Parse("2150 units available").Year; got != "" {
		t.Errorf("expected 2150 rejected, got %q", got)
	}
}

func TestParseBrandAndModel(t *testing.T) {
	r := Parse("toyota vios automatic")
	if r.Brand != "toyota" {
		t.Errorf("expected toyota, got %q", r.Brand)
	}
	if r.Model != "vios" {
		t.Errorf("expected vios, got %q", r.Model)
	}
	if got := Parse("smg sound").Brand; got != "" {
		t.Errorf("brand must match whole words only, got %q", got)
	}
}

func TestParseScenarioOneShot(t *testing.T) {
	// All five qualifying slots fill from a single utterance.
	r := Parse("cash 500k qc sedan automatic")
	if r.Plan != models.PlanCash {
		t.Errorf("plan = %q, want cash", r.Plan)
	}
	if r.Budget != 500000 {
		t.Errorf("budget = %d, want 500000", r.Budget)
	}
	if r.Location != "qc" {
		t.Errorf("location = %q, want qc", r.Location)
	}
	if r.BodyType != "sedan" {
		t.Errorf("bodyType = %q, want sedan", r.BodyType)
	}
	if r.Transmission != models.TransmissionAutomatic {
		t.Errorf("transmission = %q, want automatic", r.Transmission)
	}
}
