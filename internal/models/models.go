// Package models defines the core data structures for Kotsebot.
//
// It includes the per-user conversation session, inventory units, inbound
// webhook events and outbound actions, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Phase identifies the current stage of a user's conversation.
type Phase string

const (
	// PhaseQualify collects the required qualification slots.
	PhaseQualify Phase = "p1"
	// PhaseOfferPending means qualification is complete and offers have not been presented yet.
	PhaseOfferPending Phase = "p2_pending"
	// PhaseOfferPick means offers were presented and a selection is awaited.
	PhaseOfferPick Phase = "p2_pick"
	// PhaseCash runs the cash post-selection flow (schedule, contact, address).
	PhaseCash Phase = "p3_cash"
	// PhaseFinancing runs the financing post-selection flow (schedule, contact, address, income, term, docs).
	PhaseFinancing Phase = "p3_fin"
	// PhaseDoneCash is the terminal state of the cash flow.
	PhaseDoneCash Phase = "done_cash"
	// PhaseDoneFinancing is the terminal state of the financing flow.
	PhaseDoneFinancing Phase = "done_fin"
)

// IsTerminal reports whether the phase is an end state.
func (p Phase) IsTerminal() bool {
	return p == PhaseDoneCash || p == PhaseDoneFinancing
}

// IsValidPhase checks if the given phase is a known state.
func IsValidPhase(p Phase) bool {
	switch p {
	case PhaseQualify, PhaseOfferPending, PhaseOfferPick, PhaseCash, PhaseFinancing, PhaseDoneCash, PhaseDoneFinancing:
		return true
	default:
		return false
	}
}

// Plan is the payment plan slot value.
type Plan string

const (
	PlanCash      Plan = "cash"
	PlanFinancing Plan = "financing"
)

// Transmission is the transmission preference slot value.
type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
	TransmissionAny       Transmission = "any"
)

// BodyTypeAny is the wildcard body type slot value: the user relaxed the
// constraint and every body type matches.
const BodyTypeAny = "any"

// IncomeSource classifies a financing buyer's declared income.
type IncomeSource string

const (
	IncomeEmployed IncomeSource = "employed"
	IncomeBusiness IncomeSource = "business"
	IncomeOFW      IncomeSource = "ofw"
	IncomePension  IncomeSource = "pension"
	IncomeOther    IncomeSource = "other"
)

// SessionTTL is how long a session survives without activity before it is
// discarded and recreated.
const SessionTTL = 7 * 24 * time.Hour

// Error variables for better error handling and testability
var (
	ErrInvalidMobile = errors.New("mobile number does not match a Philippine mobile pattern")
	ErrInvalidName   = errors.New("full name requires at least two words and five characters")
	ErrSessionStore  = errors.New("session store unavailable")
	ErrInventory     = errors.New("inventory source unavailable")
)

// Slots holds the structured intent extracted during qualification.
// Zero values mean "not captured yet". Slots are append-only: a field is
// overwritten only by a new non-zero extraction of the same field.
type Slots struct {
	Plan         Plan         `json:"plan,omitempty"`
	Budget       int64        `json:"budget,omitempty"` // pesos, no minor units
	Location     string       `json:"location,omitempty"`
	BodyType     string       `json:"body_type,omitempty"`
	Transmission Transmission `json:"transmission,omitempty"`
	BrandPref    string       `json:"brand_pref,omitempty"`
	ModelPref    string       `json:"model_pref,omitempty"`
	YearPref     string       `json:"year_pref,omitempty"`
	VariantPref  string       `json:"variant_pref,omitempty"`
}

// Contact holds captured buyer contact details. Mobile is stored normalized
// to +63 international form.
type Contact struct {
	Mobile   string `json:"mobile,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Complete reports whether both contact fields have been captured.
func (c Contact) Complete() bool {
	return c.Mobile != "" && c.FullName != ""
}

// Schedule holds the viewing slot, captured verbatim with no date parsing.
type Schedule struct {
	When      string `json:"when,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// Picks is the ranked candidate set computed once per qualification
// completion. List has at most 4 entries; Shown is the prefix already
// presented; Backup is the suffix after the first 2. Units carries the unit
// snapshots matching List so a later pick survives inventory churn.
type Picks struct {
	List   []string `json:"list,omitempty"`
	Shown  []string `json:"shown,omitempty"`
	Backup []string `json:"backup,omitempty"`
	Units  []Unit   `json:"units,omitempty"`
}

// Chosen records the unit selected by the user, with a snapshot taken at
// selection time.
type Chosen struct {
	UnitID string `json:"unit_id"`
	Unit   Unit   `json:"unit"`
}

// Financing holds the financing sub-flow state; present only when
// Slots.Plan is PlanFinancing.
type Financing struct {
	IncomeSource   IncomeSource `json:"income_source,omitempty"`
	Term           int          `json:"term,omitempty"` // years: 2, 3 or 4
	DocsAwaiting   bool         `json:"docs_awaiting,omitempty"`
	DocsReceivedAt *time.Time   `json:"docs_received_at,omitempty"`
}

// Nudge tracks idle re-engagement bookkeeping.
type Nudge struct {
	LastTS time.Time `json:"last_ts,omitempty"`
	Count  int       `json:"count,omitempty"`
}

// Session is the per-user conversation record.
type Session struct {
	ID        string `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Phase    Phase    `json:"phase"`
	Slots    Slots    `json:"slots"`
	Contact  Contact  `json:"contact"`
	Schedule Schedule `json:"schedule"`
	Picks    Picks    `json:"picks"`
	Chosen   *Chosen  `json:"chosen,omitempty"`

	Financing *Financing `json:"financing,omitempty"`

	// Debounce bookkeeping: the last field prompted and when.
	LastAsked    string    `json:"last_asked,omitempty"`
	LastPromptAt time.Time `json:"last_prompt_at,omitempty"`

	Nudge Nudge `json:"nudge"`

	IsWelcomed   bool `json:"is_welcomed,omitempty"`
	IsReturning  bool `json:"is_returning,omitempty"`
	AddressShown bool `json:"address_shown,omitempty"`
}

// NewSession creates a fresh qualifying session for the given user id.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Phase:     PhaseQualify,
	}
}

// Expired reports whether the session has passed its idle TTL.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > SessionTTL
}

// Reset returns the session to its initial qualifying state, discarding all
// slots, contact, schedule and picks. Identity and creation time are kept.
func (s *Session) Reset(now time.Time) {
	*s = Session{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   now,
		Phase:       PhaseQualify,
		IsReturning: true,
	}
}

// Attachment is an inbound message attachment. Only the type matters to the
// core flow (image and file drive the financing docs step).
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// HasDocAttachment reports whether any attachment is an image or file.
func HasDocAttachment(atts []Attachment) bool {
	for _, a := range atts {
		if a.Type == "image" || a.Type == "file" {
			return true
		}
	}
	return false
}

// Event is one inbound messaging event consumed by the router.
type Event struct {
	UserID      string       `json:"user_id"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Time        time.Time    `json:"time,omitempty"`
}

// ActionKind discriminates outbound actions.
type ActionKind string

const (
	ActionText   ActionKind = "text"
	ActionImage  ActionKind = "image"
	ActionTyping ActionKind = "typing"
)

// Action is one outbound effect produced by a turn: a text message, an
// image, or a typing indicator toggle.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Body     string     `json:"body,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
	TypingOn bool       `json:"typing_on,omitempty"`
}

// TextAction builds a text action.
func TextAction(body string) Action {
	return Action{Kind: ActionText, Body: body}
}

// ImageAction builds an image action.
func ImageAction(url string) Action {
	return Action{Kind: ActionImage, ImageURL: url}
}
