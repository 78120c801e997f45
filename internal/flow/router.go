package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kotsebot/kotsebot/internal/extract"
	"github.com/kotsebot/kotsebot/internal/inventory"
	"github.com/kotsebot/kotsebot/internal/messaging"
	"github.com/kotsebot/kotsebot/internal/models"
	"github.com/kotsebot/kotsebot/internal/session"
)

// Router drives one conversation turn end to end: lock the user's session,
// run extraction, dispatch by phase, send the resulting actions and persist
// the mutated session.
type Router struct {
	sessions  *session.Manager
	inventory inventory.Source
	msg       messaging.Service

	qualifier *Qualifier
	offer     *Offer
	postsale  *PostSale
	interrupt *Interrupt
}

// NewRouter wires the per-phase handlers together. gen and sms may be nil;
// generation and SMS reminders degrade to static behavior.
func NewRouter(sessions *session.Manager, inv inventory.Source, msg messaging.Service, gen TextGenerator, sms SMSSender) *Router {
	return &Router{
		sessions:  sessions,
		inventory: inv,
		msg:       msg,
		qualifier: NewQualifier(gen),
		offer:     NewOffer(gen),
		postsale:  NewPostSale(sms),
		interrupt: NewInterrupt(gen),
	}
}

// HandleEvent processes one inbound event. Turns for the same user are
// serialized; the session is persisted only after the turn's actions are
// dispatched, so a crashed turn replays cleanly.
func (r *Router) HandleEvent(ctx context.Context, ev models.Event) error {
	unlock := r.sessions.Lock(ev.UserID)
	defer unlock()

	s, err := r.sessions.Load(ctx, ev.UserID)
	if err != nil {
		r.send(ctx, ev.UserID, []models.Action{models.TextAction(copyGenericRetry)})
		return fmt.Errorf("turn for %s: %w", ev.UserID, err)
	}

	actions, err := r.turn(ctx, s, ev)
	if err != nil {
		r.send(ctx, ev.UserID, []models.Action{models.TextAction(copyInventoryDown)})
		return err
	}

	r.send(ctx, ev.UserID, actions)

	if err := r.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("turn for %s: %w", ev.UserID, err)
	}
	return nil
}

// turn computes the actions for one event without side effects beyond the
// session itself.
func (r *Router) turn(ctx context.Context, s *models.Session, ev models.Event) ([]models.Action, error) {
	result := extract.Parse(ev.Text)

	if result.Restart {
		slog.Info("Session restart requested", "user_id", s.ID, "phase", s.Phase)
		now := ev.Time
		if now.IsZero() {
			now = time.Now()
		}
		s.Reset(now)
		s.IsWelcomed = true
		actions := []models.Action{models.TextAction(copyRestartAck)}
		qActions, _ := r.qualifier.Turn(ctx, s, extract.Result{})
		return append(actions, qActions...), nil
	}

	if actions, handled := r.interrupt.Handle(ctx, s, ev.Text); handled {
		return actions, nil
	}

	switch s.Phase {
	case models.PhaseQualify:
		actions, done := r.qualifier.Turn(ctx, s, result)
		if !done {
			return actions, nil
		}
		// Offers follow the summary in the same turn.
		units, err := r.fetchUnits(ctx)
		if err != nil {
			return nil, err
		}
		return append(actions, r.offer.Start(ctx, s, units)...), nil

	case models.PhaseOfferPending:
		// Re-qualification input (e.g. after "widen") merges before the
		// candidate set is rebuilt.
		mergeSlots(&s.Slots, result)
		units, err := r.fetchUnits(ctx)
		if err != nil {
			return nil, err
		}
		return r.offer.Start(ctx, s, units), nil

	case models.PhaseOfferPick:
		mergeSlots(&s.Slots, result)
		if slotChanged(result) {
			// A widened constraint restarts the offer round.
			units, err := r.fetchUnits(ctx)
			if err != nil {
				return nil, err
			}
			return r.offer.Start(ctx, s, units), nil
		}
		actions, picked := r.offer.HandlePick(ctx, s, ev.Text)
		if picked {
			// Ask the first post-selection question in the same turn.
			follow := r.postsale.Advance(ctx, s, models.Event{UserID: ev.UserID, Time: ev.Time})
			actions = append(actions, follow...)
		}
		return actions, nil

	case models.PhaseCash, models.PhaseFinancing:
		return r.postsale.Advance(ctx, s, ev), nil

	case models.PhaseDoneCash, models.PhaseDoneFinancing:
		return []models.Action{models.TextAction(copyDone)}, nil
	}

	slog.Error("Session in unknown phase", "user_id", s.ID, "phase", s.Phase)
	return []models.Action{models.TextAction(copyGenericRetry)}, nil
}

// slotChanged reports whether the extraction carries any qualifying slot,
// which during offer selection signals a constraint change.
func slotChanged(result extract.Result) bool {
	return result.Plan != "" || result.Budget > 0 || result.Location != "" ||
		result.BodyType != "" || result.Transmission != ""
}

func (r *Router) fetchUnits(ctx context.Context) ([]models.Unit, error) {
	units, err := r.inventory.FetchAll(ctx)
	if err != nil {
		slog.Error("Inventory fetch failed", "error", err)
		return nil, fmt.Errorf("inventory fetch: %w", err)
	}
	return units, nil
}

// send dispatches actions in order with the typing indicator around them.
// Delivery failures are logged and never fail the turn.
func (r *Router) send(ctx context.Context, userID string, actions []models.Action) {
	if len(actions) == 0 {
		return
	}
	if err := r.msg.SendTyping(ctx, userID, true); err != nil {
		slog.Warn("Typing indicator failed", "user_id", userID, "error", err)
	}
	for _, a := range actions {
		var err error
		switch a.Kind {
		case models.ActionText:
			err = r.msg.SendText(ctx, userID, a.Body)
		case models.ActionImage:
			err = r.msg.SendImage(ctx, userID, a.ImageURL)
		case models.ActionTyping:
			err = r.msg.SendTyping(ctx, userID, a.TypingOn)
		}
		if err != nil {
			slog.Error("Send failed", "user_id", userID, "kind", a.Kind, "error", err)
		}
	}
	if err := r.msg.SendTyping(ctx, userID, false); err != nil {
		slog.Warn("Typing indicator failed", "user_id", userID, "error", err)
	}
}
