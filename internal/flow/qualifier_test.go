package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kotsebot/kotsebot/internal/extract"
	"github.com/kotsebot/kotsebot/internal/models"
)

func TestNextMissingOrder(t *testing.T) {
	tests := []struct {
		name  string
		slots models.Slots
		want  string
	}{
		{"empty", models.Slots{}, slotPlan},
		{"cash needs budget", models.Slots{Plan: models.PlanCash}, slotBudget},
		{"financing skips budget", models.Slots{Plan: models.PlanFinancing}, slotLocation},
		{
			"budget then location",
			models.Slots{Plan: models.PlanCash, Budget: 500_000},
			slotLocation,
		},
		{
			"location then body type",
			models.Slots{Plan: models.PlanCash, Budget: 500_000, Location: "qc"},
			slotBodyType,
		},
		{
			"body type then transmission",
			models.Slots{Plan: models.PlanCash, Budget: 500_000, Location: "qc", BodyType: "sedan"},
			slotTransmission,
		},
		{
			"complete",
			models.Slots{Plan: models.PlanCash, Budget: 500_000, Location: "qc", BodyType: "sedan", Transmission: models.TransmissionAutomatic},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextMissing(tt.slots); got != tt.want {
				t.Errorf("nextMissing() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeSlotsNeverClears(t *testing.T) {
	slots := models.Slots{
		Plan:     models.PlanCash,
		Budget:   500_000,
		Location: "qc",
	}
	mergeSlots(&slots, extract.Result{BodyType: "sedan"})

	if slots.Plan != models.PlanCash || slots.Budget != 500_000 || slots.Location != "qc" {
		t.Errorf("existing slots were cleared: %+v", slots)
	}
	if slots.BodyType != "sedan" {
		t.Errorf("BodyType = %q, want sedan", slots.BodyType)
	}
}

func TestMergeSlotsOverwrites(t *testing.T) {
	slots := models.Slots{Plan: models.PlanCash, Budget: 400_000}
	mergeSlots(&slots, extract.Result{Plan: models.PlanFinancing, Budget: 600_000})

	if slots.Plan != models.PlanFinancing {
		t.Errorf("Plan = %q, want financing", slots.Plan)
	}
	if slots.Budget != 600_000 {
		t.Errorf("Budget = %d, want 600000", slots.Budget)
	}
}

func TestShouldDebounce(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := models.NewSession("u1", base)

	if shouldDebounce(s, slotBudget, base) {
		t.Fatal("first prompt must not debounce")
	}
	if !shouldDebounce(s, slotBudget, base.Add(500*time.Millisecond)) {
		t.Error("same slot within window must debounce")
	}
	if shouldDebounce(s, slotBudget, base.Add(2*time.Second)) {
		t.Error("same slot after window must not debounce")
	}
	if shouldDebounce(s, slotLocation, base.Add(2100*time.Millisecond)) {
		t.Error("different slot must not debounce")
	}
}

func TestQualifierTurnAsksNextSlot(t *testing.T) {
	q := NewQualifier(nil)
	s := models.NewSession("u1", time.Now())

	actions, done := q.Turn(context.Background(), s, extract.Parse("financing po sana"))
	if done {
		t.Fatal("turn must not complete with missing slots")
	}
	// Greeting plus the location question (financing skips budget).
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2: %+v", len(actions), actions)
	}
	if actions[1].Body != copyAskLocation {
		t.Errorf("asked %q, want location question", actions[1].Body)
	}
	if !s.IsWelcomed {
		t.Error("session not marked welcomed")
	}
}

func TestQualifierGreetsOnlyOnce(t *testing.T) {
	q := NewQualifier(nil)
	s := models.NewSession("u1", time.Now())

	q.Turn(context.Background(), s, extract.Result{})
	actions, _ := q.Turn(context.Background(), s, extract.Parse("cash"))
	for _, a := range actions {
		if a.Body == copyGreetingNew {
			t.Error("greeting repeated on second turn")
		}
	}
}

func TestQualifierSingleUtteranceCompletes(t *testing.T) {
	q := NewQualifier(nil)
	s := models.NewSession("u1", time.Now())

	actions, done := q.Turn(context.Background(), s, extract.Parse("cash 500k qc sedan automatic"))
	if !done {
		t.Fatalf("qualification not complete; slots: %+v", s.Slots)
	}
	if s.Phase != models.PhaseOfferPending {
		t.Errorf("phase = %q, want %q", s.Phase, models.PhaseOfferPending)
	}
	last := actions[len(actions)-1].Body
	if !strings.Contains(last, "₱500,000") {
		t.Errorf("summary missing budget: %q", last)
	}
}

func TestQualifierReturningGreeting(t *testing.T) {
	q := NewQualifier(nil)
	s := models.NewSession("u1", time.Now())
	s.IsReturning = true

	actions, _ := q.Turn(context.Background(), s, extract.Result{})
	if actions[0].Body != copyGreetingReturning {
		t.Errorf("greeting = %q, want returning variant", actions[0].Body)
	}
}
