// Package extract parses free-text Taglish utterances into partial slot
// sets using ordered keyword and regex rule tables.
//
// Extraction is stateless and purely heuristic. Rules are independent and
// several may fire on one utterance; within a rule class the defined table
// order decides which match wins, and that ordering is part of the contract.
package extract

import (
	"regexp"
	"strings"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Result is a partial slot set extracted from one utterance. Zero values
// mean "not detected".
type Result struct {
	Restart      bool
	Plan         models.Plan
	Budget       int64
	Location     string
	BodyType     string
	Transmission models.Transmission
	Brand        string
	Model        string
	Year         string
}

// keywordRule maps a set of trigger substrings to a slot value.
type keywordRule struct {
	keywords []string
	value    string
}

// planCashKeywords and planFinancingKeywords are checked in that order;
// a financing match overwrites an earlier cash match.
var (
	planCashKeywords      = []string{"spot cash", "full payment", "straight", "cash"}
	planFinancingKeywords = []string{"financ", "all-in", "all in", "hulog"}
)

// transmissionRules are evaluated in order; the last matching rule
// overwrites earlier ones, so "any" beats "manual" beats "automatic".
var transmissionRules = []struct {
	re    *regexp.Regexp
	value models.Transmission
}{
	{regexp.MustCompile(`\bautomatic\b|\ba/t\b|\bauto\b`), models.TransmissionAutomatic},
	{regexp.MustCompile(`\bmanual\b|\bm/t\b|\bstick\b`), models.TransmissionManual},
	{regexp.MustCompile(`\bany\b`), models.TransmissionAny},
}

// bodyTypeRules is scanned in order and the scan stops at the first match.
var bodyTypeRules = []keywordRule{
	{[]string{"sedan"}, "sedan"},
	{[]string{"suv"}, "suv"},
	{[]string{"mpv"}, "mpv"},
	{[]string{"van"}, "van"},
	{[]string{"pickup", "pick-up", "pick up"}, "pickup"},
	{[]string{"auv"}, "auv"},
	{[]string{"hatchback", "hatch"}, "hatchback"},
	{[]string{"crossover"}, "crossover"},
	// The relaxation phrases come last so a named body type in the same
	// utterance wins.
	{[]string{"kahit anong body", "kahit anong klase", "kahit ano", "any body type"}, models.BodyTypeAny},
}

// locationGazetteer is a fixed list of PH cities, provinces and region
// names; the first match in order wins.
var locationGazetteer = []string{
	"quezon city", "qc", "caloocan", "las pinas", "las piñas", "makati",
	"malabon", "mandaluyong", "manila", "marikina", "muntinlupa", "navotas",
	"paranaque", "parañaque", "pasay", "pasig", "pateros", "san juan",
	"taguig", "bgc", "valenzuela", "antipolo", "metro manila", "ncr",
	"cavite", "laguna", "batangas", "rizal", "bulacan", "pampanga",
	"bataan", "zambales", "tarlac", "nueva ecija", "pangasinan", "baguio",
	"cebu", "davao", "iloilo", "bacolod", "cagayan de oro", "zamboanga",
	"general santos", "naga", "legazpi", "tacloban",
}

// brandGazetteer and modelGazetteer capture stated brand/model preferences;
// first match in order wins.
var brandGazetteer = []string{
	"toyota", "mitsubishi", "honda", "nissan", "suzuki", "hyundai", "kia",
	"ford", "isuzu", "mazda", "chevrolet", "subaru", "mg", "geely",
}

var modelGazetteer = []string{
	"vios", "wigo", "innova", "fortuner", "hilux", "avanza", "raize", "rush",
	"mirage", "montero", "xpander", "strada", "city", "civic", "brv", "br-v",
	"crv", "cr-v", "almera", "navara", "terra", "ertiga", "celerio", "accent",
	"tucson", "rio", "picanto", "sportage", "ranger", "everest", "territory",
	"mu-x", "mux", "d-max", "dmax",
}

var (
	budgetRegex = regexp.MustCompile(`(?:php|₱|p)?\s*(\d[\d,]*)\s*(k\b)?`)
	yearRegex   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
)

// Parse extracts all detectable slots from one raw utterance.
//
// The restart command short-circuits every other rule. All other rules are
// applied independently in the order documented on their tables.
func Parse(text string) Result {
	var r Result
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return r
	}
	if lowered == "restart" {
		r.Restart = true
		return r
	}

	r.Plan = parsePlan(lowered)
	r.Transmission = parseTransmission(lowered)
	r.BodyType = firstKeyword(lowered, bodyTypeRules)
	r.Location = firstInGazetteer(lowered, locationGazetteer)
	r.Budget = parseBudget(lowered)
	r.Year = parseYear(lowered)
	r.Brand = firstInGazetteer(lowered, brandGazetteer)
	r.Model = firstInGazetteer(lowered, modelGazetteer)
	return r
}

// parsePlan checks cash keywords first, then financing; financing wins when
// both appear because its check runs last.
func parsePlan(text string) models.Plan {
	var plan models.Plan
	for _, kw := range planCashKeywords {
		if strings.Contains(text, kw) {
			plan = models.PlanCash
			break
		}
	}
	for _, kw := range planFinancingKeywords {
		if strings.Contains(text, kw) {
			plan = models.PlanFinancing
			break
		}
	}
	return plan
}

func parseTransmission(text string) models.Transmission {
	var tr models.Transmission
	for _, rule := range transmissionRules {
		if rule.re.MatchString(text) {
			tr = rule.value
		}
	}
	return tr
}

func firstKeyword(text string, rules []keywordRule) string {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.value
			}
		}
	}
	return ""
}

func firstInGazetteer(text string, gazetteer []string) string {
	for _, entry := range gazetteer {
		if containsWord(text, entry) {
			return entry
		}
	}
	return ""
}

// containsWord matches entry as a whole word so "naga" does not fire inside
// "managa" and "mg" does not fire inside "kmg".
func containsWord(text, entry string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], entry)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(entry)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// parseBudget finds the first 3-7 digit number after stripping currency
// symbols and thousand separators; a trailing k multiplies by 1000.
func parseBudget(text string) int64 {
	for _, m := range budgetRegex.FindAllStringSubmatch(text, -1) {
		digits := strings.ReplaceAll(m[1], ",", "")
		if !digitsOnly.MatchString(digits) {
			continue
		}
		if len(digits) < 3 || len(digits) > 7 {
			continue
		}
		var n int64
		for _, c := range digits {
			n = n*10 + int64(c-'0')
		}
		if m[2] != "" {
			n *= 1000
		}
		return n
	}
	return 0
}

// parseYear returns the first 4-digit token in the 1900-2099 range.
func parseYear(text string) string {
	if m := yearRegex.FindString(text); m != "" {
		return m
	}
	return ""
}
