package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Offer presents ranked candidates and binds the user's selection.
type Offer struct {
	gen TextGenerator
}

// NewOffer creates an Offer presenter. gen may be nil.
func NewOffer(gen TextGenerator) *Offer {
	return &Offer{gen: gen}
}

// Start computes candidates from inventory, stores them on the session and
// presents the first two. With zero candidates the session stays in the
// offer phase and the user is prompted to widen.
func (o *Offer) Start(ctx context.Context, s *models.Session, units []models.Unit) []models.Action {
	candidates := BuildCandidates(units, s.Slots)
	s.Picks = PartitionPicks(candidates)
	s.Phase = models.PhaseOfferPick

	if len(candidates) == 0 {
		slog.Info("No candidates for session", "user_id", s.ID)
		return []models.Action{models.TextAction(copyNoMatches)}
	}

	actions := []models.Action{models.TextAction(copyOffersIntro)}
	shown := len(s.Picks.Shown)
	actions = append(actions, o.presentUnits(ctx, s, 0, shown)...)
	actions = append(actions, models.TextAction(copyOffersChoices))
	return actions
}

// HandlePick processes a reply while offers are on the table: a numeric
// pick binds the unit, "others" presents the backup pair, "widen" asks
// which constraint to relax, anything else re-prompts.
func (o *Offer) HandlePick(ctx context.Context, s *models.Session, text string) (actions []models.Action, picked bool) {
	input := strings.ToLower(strings.TrimSpace(text))

	switch {
	case input == "others" || input == "iba pa" || input == "iba":
		if len(s.Picks.Backup) == 0 {
			return []models.Action{models.TextAction(copyNoBackup)}, false
		}
		actions = append(actions, o.presentUnits(ctx, s, len(s.Picks.Shown), len(s.Picks.List))...)
		s.Picks.Shown = s.Picks.List
		s.Picks.Backup = nil
		actions = append(actions, models.TextAction(copyPickReprompt))
		return actions, false

	case input == "widen":
		// The relaxation itself happens on the user's follow-up message.
		return []models.Action{models.TextAction(copyWidenAsk)}, false
	}

	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(s.Picks.List) {
		unit := s.Picks.Units[idx-1]
		s.Chosen = &models.Chosen{UnitID: unit.SKU, Unit: unit}
		if s.Slots.Plan == models.PlanFinancing {
			s.Phase = models.PhaseFinancing
		} else {
			s.Phase = models.PhaseCash
		}
		slog.Info("Unit chosen", "user_id", s.ID, "sku", unit.SKU, "phase", s.Phase)

		// Full gallery for the chosen unit.
		for _, img := range unit.Images {
			actions = append(actions, models.ImageAction(img))
		}
		return actions, true
	}

	return []models.Action{models.TextAction(copyPickReprompt)}, false
}

// presentUnits renders candidates [from, to) as image + text blocks, with
// an optional generated soft-sell hook line per unit.
func (o *Offer) presentUnits(ctx context.Context, s *models.Session, from, to int) []models.Action {
	var actions []models.Action
	for i := from; i < to && i < len(s.Picks.Units); i++ {
		u := s.Picks.Units[i]
		if len(u.Images) > 0 {
			actions = append(actions, models.ImageAction(u.Images[0]))
		}
		block := unitTitle(i+1, u)
		if details := unitDetails(u, s.Slots.Plan); details != "" {
			block += "\n" + details
		}
		if hook := o.hookLine(ctx, u); hook != "" {
			block += "\n" + hook
		}
		actions = append(actions, models.TextAction(block))
	}
	return actions
}

// hookLine asks the generator for one soft-sell sentence; empty on any
// failure so presentation never blocks on generation.
func (o *Offer) hookLine(ctx context.Context, u models.Unit) string {
	prompt := strings.TrimSpace(u.Year + " " + u.Brand + " " + u.Model + " " + u.Variant)
	return generateOrEmpty(ctx, o.gen,
		"You are a Filipino used-car sales agent. Write one short Taglish soft-sell line for this unit. No price claims, no pressure, max 12 words.",
		prompt, 0.9)
}
