package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultGraphBaseURL is the Messenger Send API host.
const DefaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// Opts holds configuration for the Messenger service.
type Opts struct {
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client
}

// Option configures the Messenger service constructor.
type Option func(*Opts)

// WithAccessToken sets the page access token.
func WithAccessToken(token string) Option {
	return func(o *Opts) { o.AccessToken = token }
}

// WithBaseURL overrides the Graph API base URL, for tests.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// MessengerService implements Service against the Facebook Messenger Send API.
type MessengerService struct {
	accessToken string
	baseURL     string
	http        *http.Client
}

// NewMessengerService creates a Messenger Send API client.
func NewMessengerService(opts ...Option) (*MessengerService, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("page access token must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MessengerService{
		accessToken: cfg.AccessToken,
		baseURL:     cfg.BaseURL,
		http:        cfg.HTTPClient,
	}, nil
}

type recipientPayload struct {
	ID string `json:"id"`
}

type sendPayload struct {
	Recipient    recipientPayload `json:"recipient"`
	Message      any              `json:"message,omitempty"`
	SenderAction string           `json:"sender_action,omitempty"`
}

func (s *MessengerService) SendText(ctx context.Context, userID, text string) error {
	payload := sendPayload{
		Recipient: recipientPayload{ID: userID},
		Message:   map[string]string{"text": text},
	}
	return s.post(ctx, payload)
}

func (s *MessengerService) SendImage(ctx context.Context, userID, imageURL string) error {
	payload := sendPayload{
		Recipient: recipientPayload{ID: userID},
		Message: map[string]any{
			"attachment": map[string]any{
				"type":    "image",
				"payload": map[string]any{"url": imageURL, "is_reusable": true},
			},
		},
	}
	return s.post(ctx, payload)
}

func (s *MessengerService) SendTyping(ctx context.Context, userID string, on bool) error {
	action := "typing_off"
	if on {
		action = "typing_on"
	}
	payload := sendPayload{
		Recipient:    recipientPayload{ID: userID},
		SenderAction: action,
	}
	return s.post(ctx, payload)
}

func (s *MessengerService) post(ctx context.Context, payload sendPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode send payload: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", s.baseURL, s.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Error("Messenger send failed", "error", err, "user_id", payload.Recipient.ID)
		return fmt.Errorf("failed to send to %s: %w", payload.Recipient.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("Messenger send returned non-OK status", "status", resp.StatusCode, "user_id", payload.Recipient.ID, "detail", string(detail))
		return fmt.Errorf("send to %s returned status %d", payload.Recipient.ID, resp.StatusCode)
	}
	slog.Debug("Messenger send succeeded", "user_id", payload.Recipient.ID)
	return nil
}
