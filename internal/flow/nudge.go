package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
	"github.com/kotsebot/kotsebot/internal/session"
)

const (
	// NudgeInterval is the minimum idle time before a re-engagement message
	// is sent, and the spacing between consecutive nudges.
	NudgeInterval = 15 * time.Minute
	// NudgeCap is the maximum number of nudges per session.
	NudgeCap = 3

	quietHoursStart = 21 // 21:00 Manila
	quietHoursEnd   = 9  // until 08:59 Manila
)

// TextSender is the outbound surface the nudge sweep needs.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Nudger re-engages idle sessions. Sweep is invoked on a schedule; each run
// scans all stored sessions and sends at most one nudge per eligible user.
type Nudger struct {
	sessions *session.Manager
	sender   TextSender
	now      func() time.Time
	loc      *time.Location
}

// NewNudger creates the idle re-engagement sweeper.
func NewNudger(sessions *session.Manager, sender TextSender) *Nudger {
	return &Nudger{
		sessions: sessions,
		sender:   sender,
		now:      time.Now,
		loc:      manilaLocation(),
	}
}

// SetClock overrides the time source, for tests.
func (n *Nudger) SetClock(now func() time.Time) {
	n.now = now
}

// Sweep scans all sessions and nudges the eligible ones. Send failures are
// logged and skip the bookkeeping write, so the attempt is retried on the
// next run.
func (n *Nudger) Sweep(ctx context.Context) error {
	sessions, err := n.sessions.List(ctx)
	if err != nil {
		slog.Error("Nudger failed to list sessions", "error", err)
		return err
	}

	now := n.now()
	if inQuietHours(now.In(n.loc)) {
		slog.Debug("Nudger skipping sweep during quiet hours")
		return nil
	}

	for _, candidate := range sessions {
		if !n.eligible(candidate, now) {
			continue
		}
		n.nudgeLocked(ctx, candidate.ID, now)
	}
	return nil
}

// nudgeLocked takes the per-user turn lock and re-loads the session before
// nudging. The listing snapshot is stale by the time the lock is held: a
// turn that completed in between must not be rolled back by the
// bookkeeping write, and may have made the user ineligible.
func (n *Nudger) nudgeLocked(ctx context.Context, userID string, now time.Time) {
	unlock := n.sessions.Lock(userID)
	defer unlock()

	s, err := n.sessions.Load(ctx, userID)
	if err != nil {
		slog.Error("Nudger reload failed", "user_id", userID, "error", err)
		return
	}
	if !n.eligible(s, now) {
		return
	}
	n.nudge(ctx, s, now)
}

// eligible reports whether a session is due a nudge at the given instant.
func (n *Nudger) eligible(s *models.Session, now time.Time) bool {
	switch s.Phase {
	case models.PhaseQualify, models.PhaseCash, models.PhaseFinancing:
	default:
		return false
	}
	if s.Nudge.Count >= NudgeCap {
		return false
	}
	// Measure idleness from the later of the last user activity and the
	// last nudge, so nudges space out instead of firing back to back.
	last := s.UpdatedAt
	if s.Nudge.LastTS.After(last) {
		last = s.Nudge.LastTS
	}
	return now.Sub(last) >= NudgeInterval
}

func (n *Nudger) nudge(ctx context.Context, s *models.Session, now time.Time) {
	lines := nudgesByPhase[s.Phase]
	if len(lines) == 0 {
		return
	}
	body := lines[s.Nudge.Count%len(lines)]

	if err := n.sender.SendText(ctx, s.ID, body); err != nil {
		slog.Error("Nudger send failed", "user_id", s.ID, "error", err)
		return
	}

	s.Nudge.Count++
	s.Nudge.LastTS = now
	// Quiet save: a nudge must not reset the user's idle clock.
	if err := n.sessions.SaveQuiet(ctx, s); err != nil {
		slog.Error("Nudger bookkeeping save failed", "user_id", s.ID, "error", err)
		return
	}
	slog.Debug("Nudger sent", "user_id", s.ID, "phase", s.Phase, "count", s.Nudge.Count)
}

// inQuietHours reports whether local Manila time falls in the 21:00-08:59
// no-send window.
func inQuietHours(local time.Time) bool {
	h := local.Hour()
	return h >= quietHoursStart || h < quietHoursEnd
}
