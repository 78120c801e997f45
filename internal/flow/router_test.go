package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
	"github.com/kotsebot/kotsebot/internal/session"
)

type fakeMessenger struct {
	texts  []string
	images []string
}

func (f *fakeMessenger) SendText(ctx context.Context, userID, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendImage(ctx context.Context, userID, imageURL string) error {
	f.images = append(f.images, imageURL)
	return nil
}

func (f *fakeMessenger) SendTyping(ctx context.Context, userID string, on bool) error {
	return nil
}

type fakeInventory struct {
	units []models.Unit
	err   error
}

func (f *fakeInventory) FetchAll(ctx context.Context) ([]models.Unit, error) {
	return f.units, f.err
}

func newTestRouter(units []models.Unit) (*Router, *session.Manager, *fakeMessenger) {
	mgr := session.NewManager(session.NewInMemoryStore())
	msg := &fakeMessenger{}
	r := NewRouter(mgr, &fakeInventory{units: units}, msg, nil, nil)
	return r, mgr, msg
}

func userSays(t *testing.T, r *Router, text string) {
	t.Helper()
	if err := r.HandleEvent(context.Background(), models.Event{UserID: "u1", Text: text, Time: time.Now()}); err != nil {
		t.Fatalf("HandleEvent(%q): %v", text, err)
	}
}

func TestRouterQualifiesThenOffers(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	userSays(t, r, "cash 500k qc sedan automatic")

	// One turn: greeting, summary, offer intro, 2 unit blocks, choices.
	joined := strings.Join(msg.texts, "\n")
	if !strings.Contains(joined, copyOffersIntro) {
		t.Errorf("offers not presented in the completing turn: %v", msg.texts)
	}
	if len(msg.images) != 2 {
		t.Errorf("got %d lead images, want 2", len(msg.images))
	}

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase != models.PhaseOfferPick {
		t.Errorf("persisted phase = %q, want %q", s.Phase, models.PhaseOfferPick)
	}
}

func TestRouterPickLeadsToSchedule(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	userSays(t, r, "cash 500k qc sedan automatic")
	userSays(t, r, "1")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase != models.PhaseCash {
		t.Fatalf("phase = %q, want %q", s.Phase, models.PhaseCash)
	}
	if s.Chosen == nil {
		t.Fatal("no unit bound")
	}
	// The pick turn ends with the schedule question.
	last := msg.texts[len(msg.texts)-1]
	if last != copyAskScheduleSameDay && last != copyAskScheduleNextDay {
		t.Errorf("last message %q, want the schedule question", last)
	}
}

func TestRouterRestartMidFlow(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	userSays(t, r, "financing qc sedan automatic")
	userSays(t, r, "1")
	userSays(t, r, "restart")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase != models.PhaseQualify {
		t.Errorf("phase after restart = %q, want %q", s.Phase, models.PhaseQualify)
	}
	if s.Slots.Plan != "" || s.Chosen != nil {
		t.Errorf("state not cleared: slots=%+v chosen=%v", s.Slots, s.Chosen)
	}

	joined := strings.Join(msg.texts, "\n")
	if !strings.Contains(joined, copyRestartAck) {
		t.Error("restart not acknowledged")
	}
	// The restart turn re-asks the first slot.
	if msg.texts[len(msg.texts)-1] != copyAskPlan {
		t.Errorf("last message %q, want the plan question", msg.texts[len(msg.texts)-1])
	}
}

func TestRouterInterruptPreservesPhase(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	userSays(t, r, "cash 500k qc sedan automatic")
	before := len(msg.texts)
	userSays(t, r, "legit ba kayo?")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase != models.PhaseOfferPick {
		t.Errorf("interrupt moved phase to %q", s.Phase)
	}
	if len(msg.texts) == before {
		t.Error("interrupt produced no answer")
	}
}

func TestRouterIncomeAnswerReachesFinancingFlow(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	userSays(t, r, "financing qc sedan automatic")
	userSays(t, r, "1")
	userSays(t, r, "sabado 10am")
	userSays(t, r, "09171234567")
	userSays(t, r, "Juan Dela Cruz")
	userSays(t, r, "negosyo po")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Financing == nil || s.Financing.IncomeSource != models.IncomeBusiness {
		t.Fatalf("income not captured from 'negosyo po': %+v", s.Financing)
	}
	// The same turn moves on to the term question.
	last := msg.texts[len(msg.texts)-1]
	if !strings.Contains(last, "2, 3, o 4") {
		t.Errorf("last message %q, want the term question", last)
	}
}

func TestRouterInventoryFailure(t *testing.T) {
	mgr := session.NewManager(session.NewInMemoryStore())
	msg := &fakeMessenger{}
	r := NewRouter(mgr, &fakeInventory{err: errors.New("sheet unreachable")}, msg, nil, nil)

	err := r.HandleEvent(context.Background(), models.Event{UserID: "u1", Text: "cash 500k qc sedan automatic", Time: time.Now()})
	if err == nil {
		t.Fatal("expected turn error on inventory failure")
	}
	if len(msg.texts) == 0 || msg.texts[len(msg.texts)-1] != copyInventoryDown {
		t.Errorf("user not told inventory is down: %v", msg.texts)
	}
}

func TestRouterTerminalPhaseShortReply(t *testing.T) {
	r, mgr, msg := newTestRouter(offerInventory())

	s := models.NewSession("u1", time.Now())
	s.Phase = models.PhaseDoneCash
	if err := mgr.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	userSays(t, r, "hello?")
	if msg.texts[len(msg.texts)-1] != copyDone {
		t.Errorf("got %q, want the done line", msg.texts[len(msg.texts)-1])
	}
}

func TestRouterWidenRebuildsOffers(t *testing.T) {
	units := offerInventory()
	suv := models.Unit{
		SKU: "SUV1", Brand: "Toyota", Model: "Fortuner", BodyType: "suv",
		Transmission: "Automatic", SRP: 650_000,
		Images: []string{"https://img.test/SUV1-1.jpg"},
	}
	r, mgr, _ := newTestRouter(append(units, suv))

	userSays(t, r, "cash 700k qc suv automatic")
	// Only one SUV: a new constraint during picking rebuilds the round.
	userSays(t, r, "sedan na lang")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Slots.BodyType != "sedan" {
		t.Fatalf("body type = %q, want sedan", s.Slots.BodyType)
	}
	if len(s.Picks.List) == 0 || s.Picks.List[0] == "SUV1" {
		t.Errorf("picks not rebuilt: %v", s.Picks.List)
	}
}

func TestRouterBodyTypeRelaxationRebuildsOffers(t *testing.T) {
	units := offerInventory()
	suv := models.Unit{
		SKU: "SUV1", Brand: "Toyota", Model: "Fortuner", BodyType: "suv",
		Transmission: "Automatic", SRP: 650_000,
		Images: []string{"https://img.test/SUV1-1.jpg"},
	}
	r, mgr, _ := newTestRouter(append(units, suv))

	userSays(t, r, "cash 700k qc suv automatic")
	// The widen suggestion phrasing must round-trip through extraction.
	userSays(t, r, "kahit anong body type")

	s, err := mgr.Load(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Slots.BodyType != models.BodyTypeAny {
		t.Fatalf("body type = %q, want the wildcard", s.Slots.BodyType)
	}
	if len(s.Picks.List) != maxCandidates {
		t.Fatalf("picks = %v, want %d candidates across body types", s.Picks.List, maxCandidates)
	}
	var gotSUV, gotSedan bool
	for _, sku := range s.Picks.List {
		if sku == "SUV1" {
			gotSUV = true
		} else {
			gotSedan = true
		}
	}
	if !gotSUV || !gotSedan {
		t.Errorf("picks %v should mix body types after relaxing", s.Picks.List)
	}
}
