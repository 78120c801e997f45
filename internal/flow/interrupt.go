package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kotsebot/kotsebot/internal/models"
)

// faqRule answers a recurring question or objection without moving the
// conversation phase. Matching is by substring over the lowered utterance.
type faqRule struct {
	topic    string
	keywords []string
	answer   string
}

// faqRules are scanned in order; the first match wins. The address topic is
// special-cased against the contact gate.
var faqRules = []faqRule{
	{
		topic:    "address",
		keywords: []string{"address", "saan kayo", "saan po kayo", "asan kayo", "where are you located", "saan office", "saan shop", "exact location"},
		answer:   "", // resolved by the gate below
	},
	{
		topic:    "negotiation",
		keywords: []string{"last price", "tawad", "nego", "discount", "pwede pa ba baba"},
		answer:   "Medyo makatwiran na po ang presyo ng units namin, pero pag-usapan po natin sa viewing — mas madali po makapag-bigay kapag nakita niyo na ang unit. 🙂",
	},
	{
		topic:    "legit",
		keywords: []string{"legit", "scam", "totoo ba", "paano ako sisiguro"},
		answer:   "Legit po kami — registered dealer po at pwede kayong mag-viewing sa mismong lote bago magbayad ng kahit ano. Walang advance payment na hinihingi online.",
	},
	{
		topic:    "warranty",
		keywords: []string{"warranty", "garantiya", "aftersales"},
		answer:   "May kasama pong dealer warranty ang bawat unit at complete orig papers. Sasabihin po ng agent ang detalye per unit sa viewing.",
	},
	{
		topic:    "papers",
		keywords: []string{"papers", "orcr", "or/cr", "rehistro", "registration"},
		answer:   "Kumpleto po ang OR/CR at updated ang rehistro ng lahat ng units namin. Dala-dala po namin sa viewing para ma-check niyo.",
	},
	{
		topic:    "trade-in",
		keywords: []string{"trade in", "trade-in", "palit", "swap"},
		answer:   "Tumatanggap po kami ng trade-in depende sa unit. Dalhin niyo lang po sa viewing para ma-appraise agad.",
	},
	{
		topic:    "requirements",
		keywords: []string{"requirements", "ano kailangan", "mga kelangan"},
		answer:   "Para po sa financing: 2 valid IDs at proof of income. Para po sa cash: valid ID lang. Gagabayan ko naman po kayo step by step.",
	},
}

// Interrupt intercepts FAQ and objection keywords at any non-terminal phase
// and answers them without mutating the phase state.
type Interrupt struct {
	gen TextGenerator
}

// NewInterrupt creates the interrupt handler. gen may be nil.
func NewInterrupt(gen TextGenerator) *Interrupt {
	return &Interrupt{gen: gen}
}

// Handle checks the utterance against the FAQ table. When it matches, it
// returns the answer plus a resume bridge reflecting the pending ask, and
// the turn's phase-specific processing is skipped. Terminal phases never
// interrupt.
func (i *Interrupt) Handle(ctx context.Context, s *models.Session, text string) ([]models.Action, bool) {
	if s.Phase.IsTerminal() {
		return nil, false
	}
	lowered := strings.ToLower(text)

	for _, rule := range faqRules {
		if !matchesAny(lowered, rule.keywords) {
			continue
		}
		slog.Debug("Interrupt matched", "user_id", s.ID, "topic", rule.topic, "phase", s.Phase)

		answer := rule.answer
		if rule.topic == "address" {
			// The address is gated: deflect until schedule and contact are
			// both captured, and never resend once shown.
			if !s.Contact.Complete() || s.Schedule.When == "" {
				answer = copyAddressDeflect
			} else if s.AddressShown {
				answer = "Na-send ko na po ang address sa taas. Kita-kits po sa " + s.Schedule.When + "!"
			} else {
				// Complete gate but not yet revealed: let the phase flow
				// reveal it in order.
				answer = copyAddressDeflect
			}
		} else if generated := i.rephrase(ctx, answer); generated != "" {
			answer = generated
		}

		actions := []models.Action{models.TextAction(answer)}
		if bridge := resumeBridge(s); bridge != "" {
			actions = append(actions, models.TextAction(bridge))
		}
		return actions, true
	}
	return nil, false
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if containsPhrase(text, kw) {
			return true
		}
	}
	return false
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
// Short keywords must not fire inside longer words: "nego" is negotiation,
// "negosyo" is an income answer.
func containsPhrase(text, phrase string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(phrase)
		if (start == 0 || !isPhraseByte(text[start-1])) && (end == len(text) || !isPhraseByte(text[end])) {
			return true
		}
		from = start + 1
	}
}

func isPhraseByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// resumeBridge reminds the user of the pending ask so the interrupt does
// not strand the flow.
func resumeBridge(s *models.Session) string {
	question, ok := pendingQuestion(s)
	if !ok {
		return ""
	}
	return "Balik po tayo — " + question
}

// pendingQuestion maps the recorded LastAsked marker back to its prompt.
func pendingQuestion(s *models.Session) (string, bool) {
	if q, ok := slotQuestions[s.LastAsked]; ok {
		return q, true
	}
	switch s.LastAsked {
	case askSchedule:
		return "kailan po kayo available mag-viewing?", true
	case askMobile:
		return copyAskMobile, true
	case askName:
		return copyAskFullName, true
	case askIncome:
		return copyAskIncome, true
	case askTerm:
		return copyAskTermRetry, true
	case askDocs:
		return copyDocsReprompt, true
	}
	return "", false
}

// rephrase asks the generator to restate a canned answer; empty keeps the
// original.
func (i *Interrupt) rephrase(ctx context.Context, answer string) string {
	return generateOrEmpty(ctx, i.gen,
		"You are a Filipino used-car sales assistant. Restate the following answer in natural Taglish, same meaning, max 2 sentences.",
		answer, 0.7)
}
