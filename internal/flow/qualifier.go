package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/kotsebot/kotsebot/internal/extract"
	"github.com/kotsebot/kotsebot/internal/models"
)

// Required slot names, in fixed priority order. Budget is required only for
// cash buyers; a financing budget is deferred to the financing sub-flow.
const (
	slotPlan         = "plan"
	slotBudget       = "budget"
	slotLocation     = "location"
	slotBodyType     = "bodyType"
	slotTransmission = "transmission"
)

// DebounceWindow suppresses a duplicate prompt for the same slot within
// this interval. It is a narrow anti-duplicate guard, not a turn cooldown.
const DebounceWindow = 1500 * time.Millisecond

// nextMissing returns the first unmet required slot in the fixed order
// plan → budget (cash only) → location → bodyType → transmission, or ""
// when qualification is complete.
func nextMissing(slots models.Slots) string {
	if slots.Plan == "" {
		return slotPlan
	}
	if slots.Plan == models.PlanCash && slots.Budget == 0 {
		return slotBudget
	}
	if slots.Location == "" {
		return slotLocation
	}
	if slots.BodyType == "" {
		return slotBodyType
	}
	if slots.Transmission == "" {
		return slotTransmission
	}
	return ""
}

// mergeSlots applies one extraction onto the session slots. Merging is
// last-write-wins per field and only a non-zero extraction overwrites;
// a slot is never cleared implicitly.
func mergeSlots(slots *models.Slots, in extract.Result) {
	if in.Plan != "" {
		slots.Plan = in.Plan
	}
	if in.Budget > 0 {
		slots.Budget = in.Budget
	}
	if in.Location != "" {
		slots.Location = in.Location
	}
	if in.BodyType != "" {
		slots.BodyType = in.BodyType
	}
	if in.Transmission != "" {
		slots.Transmission = in.Transmission
	}
	if in.Brand != "" {
		slots.BrandPref = in.Brand
	}
	if in.Model != "" {
		slots.ModelPref = in.Model
	}
	if in.Year != "" {
		slots.YearPref = in.Year
	}
}

// shouldDebounce reports whether the prompt for slotName should be
// suppressed, and otherwise records the (slotName, now) pair on the session.
func shouldDebounce(s *models.Session, slotName string, now time.Time) bool {
	if s.LastAsked == slotName && now.Sub(s.LastPromptAt) < DebounceWindow {
		slog.Debug("Qualifier debounced duplicate prompt", "user_id", s.ID, "slot", slotName)
		return true
	}
	s.LastAsked = slotName
	s.LastPromptAt = now
	return false
}

// Qualifier runs the slot-collection stage of the conversation.
type Qualifier struct {
	gen TextGenerator
	now func() time.Time
}

// NewQualifier creates a Qualifier. gen may be nil.
func NewQualifier(gen TextGenerator) *Qualifier {
	return &Qualifier{gen: gen, now: time.Now}
}

// Turn processes one qualifying turn: merge extracted slots, greet on first
// contact, then either ask the next missing slot (debounced) or emit the
// summary and advance the session to the offer-pending phase.
func (q *Qualifier) Turn(ctx context.Context, s *models.Session, in extract.Result) (actions []models.Action, done bool) {
	mergeSlots(&s.Slots, in)

	if !s.IsWelcomed {
		actions = append(actions, models.TextAction(q.greeting(ctx, s)))
		s.IsWelcomed = true
	}

	missing := nextMissing(s.Slots)
	if missing != "" {
		if shouldDebounce(s, missing, q.now()) {
			return actions, false
		}
		actions = append(actions, models.TextAction(slotQuestions[missing]))
		return actions, false
	}

	actions = append(actions, models.TextAction(slotSummary(s.Slots)))
	s.Phase = models.PhaseOfferPending
	s.LastAsked = ""
	slog.Info("Qualification complete", "user_id", s.ID, "plan", s.Slots.Plan, "budget", s.Slots.Budget)
	return actions, true
}

// greeting picks the welcome line, optionally rephrased by the generator.
func (q *Qualifier) greeting(ctx context.Context, s *models.Session) string {
	fallback := copyGreetingNew
	if s.IsReturning {
		fallback = copyGreetingReturning
	}
	generated := generateOrEmpty(ctx, q.gen,
		"You are a friendly Filipino used-car sales assistant. Rephrase the greeting in warm Taglish, one short sentence, keep any emoji.",
		fallback, 0.8)
	if generated == "" {
		return fallback
	}
	return generated
}
