package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()

	got, err := st.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("expected no error for missing session, got %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing session")
	}

	sess := models.NewSession("user1", time.Now())
	sess.Slots.Location = "qc"
	if err := st.Set(ctx, sess); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err = st.Get(ctx, "user1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Slots.Location != "qc" {
		t.Fatalf("expected stored session back, got %+v", got)
	}

	// Mutating the returned copy must not affect the stored record.
	got.Slots.Location = "makati"
	again, _ := st.Get(ctx, "user1")
	if again.Slots.Location != "qc" {
		t.Error("store must hand out copies, not shared state")
	}

	if err := st.Delete(ctx, "user1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, _ = st.Get(ctx, "user1")
	if got != nil {
		t.Error("expected session gone after delete")
	}
}

func TestInMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		if err := st.Set(ctx, models.NewSession(id, now)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	all, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 sessions, got %d", len(all))
	}
}

func TestManagerLoadCreatesFreshSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())

	sess, err := m.Load(ctx, "newuser")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.ID != "newuser" || sess.Phase != models.PhaseQualify {
		t.Errorf("expected fresh p1 session, got %+v", sess)
	}
	if sess.IsReturning {
		t.Error("brand new session must not be flagged returning")
	}
}

func TestManagerLoadDiscardsExpiredSession(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	m := NewManager(st)

	base := time.Now()
	old := models.NewSession("user1", base)
	old.Phase = models.PhaseOfferPick
	old.UpdatedAt = base
	if err := st.Set(ctx, old); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	m.SetClock(func() time.Time { return base.Add(8 * 24 * time.Hour) })

	sess, err := m.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Phase != models.PhaseQualify {
		t.Errorf("expected expired session replaced by fresh p1, got %s", sess.Phase)
	}
	if !sess.IsReturning {
		t.Error("expected replacement session flagged returning")
	}

	stored, _ := st.Get(ctx, "user1")
	if stored != nil {
		t.Error("expected expired record deleted from the store")
	}
}

func TestManagerLoadDiscardsUnknownPhase(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	m := NewManager(st)

	bad := models.NewSession("user1", time.Now())
	bad.Phase = "p9_legacy"
	if err := st.Set(ctx, bad); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	sess, err := m.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Phase != models.PhaseQualify {
		t.Errorf("expected unroutable session replaced by fresh p1, got %s", sess.Phase)
	}
	if !sess.IsReturning {
		t.Error("expected replacement session flagged returning")
	}
	stored, _ := st.Get(ctx, "user1")
	if stored != nil {
		t.Error("expected unroutable record deleted from the store")
	}
}

// failingStore errors on every operation, standing in for a backend outage.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, userID string) (*models.Session, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(ctx context.Context, s *models.Session) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(ctx context.Context, userID string) error {
	return errors.New("connection refused")
}

func (failingStore) List(ctx context.Context) ([]*models.Session, error) {
	return nil, errors.New("connection refused")
}

func TestManagerWrapsStoreFailures(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{})

	if _, err := m.Load(ctx, "user1"); !errors.Is(err, models.ErrSessionStore) {
		t.Errorf("Load error %v should identify the store as the cause", err)
	}
	sess := models.NewSession("user1", time.Now())
	if err := m.Save(ctx, sess); !errors.Is(err, models.ErrSessionStore) {
		t.Errorf("Save error %v should identify the store as the cause", err)
	}
	if err := m.SaveQuiet(ctx, sess); !errors.Is(err, models.ErrSessionStore) {
		t.Errorf("SaveQuiet error %v should identify the store as the cause", err)
	}
}

func TestManagerLoadKeepsLiveSession(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	m := NewManager(st)

	base := time.Now()
	live := models.NewSession("user1", base)
	live.Phase = models.PhaseCash
	if err := st.Set(ctx, live); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	m.SetClock(func() time.Time { return base.Add(6 * 24 * time.Hour) })

	sess, err := m.Load(ctx, "user1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Phase != models.PhaseCash {
		t.Errorf("expected live session preserved, got %s", sess.Phase)
	}
}

func TestManagerSaveStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore())
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return stamp })

	sess := models.NewSession("user1", stamp.Add(-time.Hour))
	if err := m.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !sess.UpdatedAt.Equal(stamp) {
		t.Errorf("expected UpdatedAt stamped to %v, got %v", stamp, sess.UpdatedAt)
	}
}

func TestManagerLockSerializesPerUser(t *testing.T) {
	m := NewManager(NewInMemoryStore())

	unlock := m.Lock("user1")
	acquired := make(chan struct{})
	go func() {
		u := m.Lock("user1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second turn for the same user must wait for the first")
	case <-time.After(50 * time.Millisecond):
	}

	// A different user is not blocked.
	done := make(chan struct{})
	go func() {
		u := m.Lock("user2")
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different users must not block each other")
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released to the waiting turn")
	}
}
