package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Ask markers recorded in Session.LastAsked while the post-selection flow
// waits for an answer.
const (
	askSchedule = "schedule"
	askMobile   = "mobile"
	askName     = "name"
	askIncome   = "income"
	askTerm     = "term"
	askDocs     = "docs"
)

// Same-day viewing is not offered at or after this hour, nor before
// earlyHourCutoff, local Manila time.
const (
	lateHourCutoff  = 15
	earlyHourCutoff = 6
)

// financingSpread is added on top of the rounded all-in bracket quoted to
// financing buyers.
const (
	financingSpread  = 20_000
	bracketRounding  = 5_000
)

// incomeRules classifies a free-text income reply; first match wins and an
// unmatched reply is re-asked rather than defaulted.
var incomeRules = []struct {
	keywords []string
	source   models.IncomeSource
}{
	{[]string{"employed", "empleyado", "trabaho", "work", "sahod", "sweldo", "office", "job"}, models.IncomeEmployed},
	{[]string{"business", "negosyo", "self-employed", "self employed", "tindahan"}, models.IncomeBusiness},
	{[]string{"ofw", "seaman", "seafarer", "abroad", "overseas"}, models.IncomeOFW},
	{[]string{"pension", "pensyon", "retired", "retirado"}, models.IncomePension},
	{[]string{"other", "iba", "wala"}, models.IncomeOther},
}

// SMSSender is the optional SMS notification capability used for viewing
// reminders; nil disables it.
type SMSSender interface {
	Send(to, body string) error
}

// PostSale runs the shared gating sequence after a unit is chosen:
// schedule capture, contact capture, one-time address reveal, and for
// financing buyers the income, term and document sub-flow.
type PostSale struct {
	sms SMSSender
	now func() time.Time
	loc *time.Location
}

// NewPostSale creates the post-selection flow. sms may be nil.
func NewPostSale(sms SMSSender) *PostSale {
	return &PostSale{sms: sms, now: time.Now, loc: manilaLocation()}
}

// SetClock overrides the time source, for tests.
func (p *PostSale) SetClock(now func() time.Time) {
	p.now = now
}

func manilaLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		// PHT has no DST; a fixed offset is equivalent.
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}

// Advance runs as many gating steps as the turn's input satisfies and
// returns the actions for the next pending ask. Input that does not satisfy
// the current step re-prompts without advancing.
func (p *PostSale) Advance(ctx context.Context, s *models.Session, ev models.Event) []models.Action {
	text := strings.TrimSpace(ev.Text)

	// Step 1: viewing schedule, captured verbatim.
	if s.Schedule.When == "" {
		if s.LastAsked == askSchedule && text != "" {
			s.Schedule.When = text
			s.Schedule.Confirmed = true
			slog.Debug("Schedule captured", "user_id", s.ID)
		} else {
			return p.ask(s, askSchedule, p.scheduleQuestion())
		}
	}

	// Step 2: mobile number, normalized to +63 form.
	if s.Contact.Mobile == "" {
		if s.LastAsked == askMobile && text != "" {
			mobile, err := models.NormalizePHMobile(text)
			if err != nil {
				return []models.Action{models.TextAction(copyAskMobileRetry)}
			}
			s.Contact.Mobile = mobile
		} else {
			return p.ask(s, askMobile, copyAskMobile)
		}
	}

	// Step 3: full name.
	if s.Contact.FullName == "" {
		if s.LastAsked == askName && text != "" {
			if err := models.ValidateFullName(text); err != nil {
				return []models.Action{models.TextAction(copyAskFullNameRetry)}
			}
			s.Contact.FullName = strings.TrimSpace(text)
		} else {
			return p.ask(s, askName, copyAskFullName)
		}
	}

	// Step 4: address reveal, exactly once, only behind the full gate.
	var actions []models.Action
	if !s.AddressShown {
		actions = append(actions, models.TextAction(p.addressReveal(s)))
		s.AddressShown = true
		p.sendViewingSMS(s)

		if s.Slots.Plan != models.PlanFinancing {
			s.Phase = models.PhaseDoneCash
			s.LastAsked = ""
			actions = append(actions, models.TextAction(copyDoneCash))
			slog.Info("Cash flow complete", "user_id", s.ID)
			return actions
		}
	}

	return append(actions, p.advanceFinancing(s, ev, text)...)
}

// advanceFinancing runs the financing-only steps: income source, preferred
// term, then document collection.
func (p *PostSale) advanceFinancing(s *models.Session, ev models.Event, text string) []models.Action {
	if s.Financing == nil {
		s.Financing = &models.Financing{}
	}
	fin := s.Financing

	if fin.IncomeSource == "" {
		if s.LastAsked == askIncome && text != "" {
			src := classifyIncome(text)
			if src == "" {
				return []models.Action{models.TextAction(copyAskIncomeRetry)}
			}
			fin.IncomeSource = src
		} else {
			return p.ask(s, askIncome, copyAskIncome)
		}
	}

	if fin.Term == 0 {
		if s.LastAsked == askTerm && text != "" {
			term := parseTerm(text)
			if term == 0 {
				return []models.Action{models.TextAction(copyAskTermRetry)}
			}
			fin.Term = term
		} else {
			return p.ask(s, askTerm, financingLine(s.Chosen.Unit))
		}
	}

	if models.HasDocAttachment(ev.Attachments) {
		now := p.now()
		fin.DocsReceivedAt = &now
		fin.DocsAwaiting = false
		s.Phase = models.PhaseDoneFinancing
		s.LastAsked = ""
		slog.Info("Financing docs received", "user_id", s.ID, "income", fin.IncomeSource, "term", fin.Term)
		return []models.Action{models.TextAction(copyDocsReceived), models.TextAction(copyDone)}
	}

	if s.LastAsked == askDocs {
		return []models.Action{models.TextAction(copyDocsReprompt)}
	}
	fin.DocsAwaiting = true
	return p.ask(s, askDocs, docsCopyByIncome[fin.IncomeSource])
}

// ask records the pending question marker (debounced) and returns it as the
// turn's single action.
func (p *PostSale) ask(s *models.Session, marker, question string) []models.Action {
	if shouldDebounce(s, marker, p.now()) {
		return nil
	}
	return []models.Action{models.TextAction(question)}
}

// scheduleQuestion frames same-day viewing only during selling hours,
// Manila time.
func (p *PostSale) scheduleQuestion() string {
	hour := p.now().In(p.loc).Hour()
	if hour >= lateHourCutoff || hour < earlyHourCutoff {
		return copyAskScheduleNextDay
	}
	return copyAskScheduleSameDay
}

func (p *PostSale) addressReveal(s *models.Session) string {
	u := s.Chosen.Unit
	return fmt.Sprintf("Sige po %s, kita-kits po sa %s! 📍\n\nAddress: %s\n\nDala lang po ng valid ID. Hanapin niyo lang po ang unit na %s.",
		firstName(s.Contact.FullName), s.Schedule.When, u.Address, strings.TrimSpace(u.Brand+" "+u.Model))
}

// sendViewingSMS fires a best-effort SMS reminder; failures are logged and
// never affect the turn.
func (p *PostSale) sendViewingSMS(s *models.Session) {
	if p.sms == nil {
		return
	}
	u := s.Chosen.Unit
	body := fmt.Sprintf("Kotsebot viewing reminder: %s %s %s, sched %q. Address: %s",
		u.Year, u.Brand, u.Model, s.Schedule.When, u.Address)
	if err := p.sms.Send(s.Contact.Mobile, body); err != nil {
		slog.Warn("Viewing reminder SMS failed", "error", err, "user_id", s.ID)
	}
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "boss"
	}
	return fields[0]
}

// classifyIncome returns the first matching income source, or "" when
// nothing matches.
func classifyIncome(text string) models.IncomeSource {
	lowered := strings.ToLower(text)
	for _, rule := range incomeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.source
			}
		}
	}
	return ""
}

// parseTerm accepts only an exact 2, 3 or 4 reply.
func parseTerm(text string) int {
	switch strings.TrimSpace(text) {
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	default:
		return 0
	}
}

// financingLine renders the computed all-in bracket (rounded up to the
// nearest 5,000 plus the fixed spread) with whatever monthly terms the
// source provided, then asks for the preferred term.
func financingLine(u models.Unit) string {
	bracket := (u.AllIn+bracketRounding-1)/bracketRounding*bracketRounding + financingSpread

	var b strings.Builder
	b.WriteString("Para po sa unit na ito, mga " + formatPeso(bracket) + " po ang ihahandang all-in cash out.\n")
	for _, term := range []int{2, 3, 4} {
		if m := u.MonthlyForTerm(term); m > 0 {
			b.WriteString(fmt.Sprintf("• %d years: %s/month\n", term, formatPeso(m)))
		}
	}
	b.WriteString("Anong term po ang gusto niyo — 2, 3, o 4 years?")
	return b.String()
}
