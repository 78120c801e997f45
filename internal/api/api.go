// Package api exposes the HTTP surface: the Messenger webhook (verification
// handshake and event delivery) plus a health endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kotsebot/kotsebot/internal/models"
)

// ErrVerifyTokenNotSet indicates the server was built without the webhook
// verification token.
var ErrVerifyTokenNotSet = errors.New("webhook verify token is not set")

// maxWebhookBody bounds the accepted webhook payload size.
const maxWebhookBody = 1 << 20

// EventHandler consumes one inbound messaging event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.Event) error
}

// Opts holds server configuration.
type Opts struct {
	Addr        string
	VerifyToken string
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// Server is the webhook HTTP server.
type Server struct {
	handler EventHandler
	opts    Opts
	httpSrv *http.Server
}

// NewServer builds the server around an event handler.
func NewServer(handler EventHandler, opts ...Option) (*Server, error) {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.VerifyToken == "" {
		return nil, ErrVerifyTokenNotSet
	}

	s := &Server{handler: handler, opts: o}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", healthHandler)
	s.httpSrv = &http.Server{
		Addr:         o.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Run() error {
	slog.Info("API server listening", "addr", s.opts.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		slog.Error("Health response write failed", "error", err)
	}
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyHandler(w, r)
	case http.MethodPost:
		s.receiveHandler(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyHandler implements the Messenger webhook verification handshake:
// echo hub.challenge when the mode and token match.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != s.opts.VerifyToken {
		slog.Warn("Webhook verification rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	slog.Info("Webhook verified")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Challenge write failed", "error", err)
	}
}

// webhookPayload mirrors the Messenger webhook envelope, reduced to the
// fields the flow consumes.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"` // milliseconds
			Message   struct {
				Text        string `json:"text"`
				IsEcho      bool   `json:"is_echo"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// receiveHandler accepts event delivery. The platform retries non-200
// responses aggressively, so delivery is acknowledged regardless of
// per-event outcomes; failures are logged under a request id.
func (s *Server) receiveHandler(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("Webhook body read failed", "request_id", reqID, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Error("Webhook payload unmarshal failed", "request_id", reqID, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	if payload.Object != "page" {
		slog.Debug("Ignoring non-page webhook", "request_id", reqID, "object", payload.Object)
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, ev := range eventsFromPayload(payload) {
		if err := s.handler.HandleEvent(r.Context(), ev); err != nil {
			slog.Error("Event handling failed", "request_id", reqID, "user_id", ev.UserID, "error", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// eventsFromPayload flattens the webhook envelope into flow events,
// dropping echoes of our own sends and entries with no sender.
func eventsFromPayload(payload webhookPayload) []models.Event {
	var events []models.Event
	for _, entry := range payload.Entry {
		for _, m := range entry.Messaging {
			if m.Sender.ID == "" || m.Message.IsEcho {
				continue
			}
			ev := models.Event{
				UserID: m.Sender.ID,
				Text:   m.Message.Text,
			}
			if m.Timestamp > 0 {
				ev.Time = time.UnixMilli(m.Timestamp)
			}
			for _, a := range m.Message.Attachments {
				ev.Attachments = append(ev.Attachments, models.Attachment{
					Type: a.Type,
					URL:  a.Payload.URL,
				})
			}
			events = append(events, ev)
		}
	}
	return events
}
