package flow

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Matching constants. The coarse filter intentionally over-admits
// (budgetHeadroom) so the scorer, not the filter, makes the fine
// distinctions; this avoids zero-result dead ends when a budget sits near a
// pricing boundary.
const (
	budgetHeadroom   = 200_000
	budgetFitWindow  = 50_000
	maxCandidates    = 4
	shownCount       = 2
	lowMileageCutoff = 30_000
)

var (
	autoTransRegex   = regexp.MustCompile(`(?i)auto`)
	manualTransRegex = regexp.MustCompile(`(?i)manual|m/t`)
)

// BuildCandidates filters and scores inventory against completed slots and
// returns the ranked list, bounded to maxCandidates. The sort is stable:
// equally scored units keep their input order, which decides who lands in
// "shown" versus "backup".
func BuildCandidates(units []models.Unit, slots models.Slots) []models.Unit {
	var kept []models.Unit
	for _, u := range units {
		if coarseMatch(u, slots) {
			kept = append(kept, u)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return scoreUnit(kept[i], slots) > scoreUnit(kept[j], slots)
	})

	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}
	slog.Debug("Candidates built", "considered", len(units), "kept", len(kept))
	return kept
}

// PartitionPicks splits a ranked candidate list into the session's picks
// record: list of ids, shown prefix, backup suffix, plus unit snapshots.
func PartitionPicks(candidates []models.Unit) models.Picks {
	picks := models.Picks{Units: candidates}
	for _, u := range candidates {
		picks.List = append(picks.List, u.SKU)
	}
	n := len(picks.List)
	if n > shownCount {
		picks.Shown = picks.List[:shownCount]
		picks.Backup = picks.List[shownCount:]
	} else {
		picks.Shown = picks.List
	}
	return picks
}

// coarseMatch is the wide gate: budget with headroom, exact body type,
// regex transmission. Units with no parsable price are dropped.
func coarseMatch(u models.Unit, slots models.Slots) bool {
	price := u.SRP
	if slots.Plan == models.PlanFinancing {
		price = u.AllIn
	}
	if price == 0 {
		return false
	}
	if slots.Budget > 0 && price > slots.Budget+budgetHeadroom {
		return false
	}
	if bodyTypePinned(slots) && !strings.EqualFold(u.BodyType, slots.BodyType) {
		return false
	}
	return transmissionMatches(u, slots.Transmission)
}

// bodyTypePinned reports whether the body type slot names a concrete type,
// as opposed to unset or the relaxation wildcard.
func bodyTypePinned(slots models.Slots) bool {
	return slots.BodyType != "" && slots.BodyType != models.BodyTypeAny
}

func transmissionMatches(u models.Unit, pref models.Transmission) bool {
	switch pref {
	case models.TransmissionAutomatic:
		return autoTransRegex.MatchString(u.Transmission)
	case models.TransmissionManual:
		return manualTransRegex.MatchString(u.Transmission)
	default:
		// "any" or unset passes everything.
		return true
	}
}

// scoreUnit computes the additive rank score; higher is better. Priority
// status is a flat bonus, not a hard tier.
func scoreUnit(u models.Unit, slots models.Slots) int {
	score := 0
	if strings.Contains(strings.ToLower(u.PriceStatus), "priority") {
		score += 10
	}
	if budgetFits(u, slots) {
		score += 4
	}
	if bodyTypePinned(slots) && strings.EqualFold(u.BodyType, slots.BodyType) {
		score += 4
	}
	if slots.Transmission != "" && slots.Transmission != models.TransmissionAny && transmissionMatches(u, slots.Transmission) {
		score += 2
	}
	if slots.ModelPref != "" && strings.Contains(strings.ToLower(u.Model), strings.ToLower(slots.ModelPref)) {
		score += 3
	}
	if slots.BrandPref != "" && strings.Contains(strings.ToLower(u.Brand), strings.ToLower(slots.BrandPref)) {
		score += 2
	}
	if slots.YearPref != "" && slots.YearPref == u.Year {
		score += 1
	}
	if u.Mileage > 0 && u.Mileage < lowMileageCutoff {
		score += 1
	}
	return score
}

// budgetFits is the fine fit check: cash wants SRP within ±budgetFitWindow
// of the budget, financing wants the all-in within budget+budgetFitWindow.
func budgetFits(u models.Unit, slots models.Slots) bool {
	if slots.Budget == 0 {
		return false
	}
	if slots.Plan == models.PlanFinancing {
		return u.AllIn > 0 && u.AllIn <= slots.Budget+budgetFitWindow
	}
	diff := u.SRP - slots.Budget
	if diff < 0 {
		diff = -diff
	}
	return u.SRP > 0 && diff <= budgetFitWindow
}
