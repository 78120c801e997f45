package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*MessengerService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewMessengerService(WithAccessToken("token123"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewMessengerService failed: %v", err)
	}
	return svc, srv
}

func TestNewMessengerServiceRequiresToken(t *testing.T) {
	if _, err := NewMessengerService(); err == nil {
		t.Error("expected error without access token")
	}
}

func TestSendTextPayload(t *testing.T) {
	var got map[string]any
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "token123" {
			t.Error("missing access token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.SendText(context.Background(), "psid-1", "kumusta!"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	recipient := got["recipient"].(map[string]any)
	if recipient["id"] != "psid-1" {
		t.Errorf("recipient = %v", recipient)
	}
	message := got["message"].(map[string]any)
	if message["text"] != "kumusta!" {
		t.Errorf("message = %v", message)
	}
}

func TestSendImagePayload(t *testing.T) {
	var got map[string]any
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.SendImage(context.Background(), "psid-1", "https://img.example/a.jpg"); err != nil {
		t.Fatalf("SendImage failed: %v", err)
	}
	message := got["message"].(map[string]any)
	attachment := message["attachment"].(map[string]any)
	if attachment["type"] != "image" {
		t.Errorf("attachment = %v", attachment)
	}
	payload := attachment["payload"].(map[string]any)
	if payload["url"] != "https://img.example/a.jpg" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSendTypingPayload(t *testing.T) {
	var got map[string]any
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.SendTyping(context.Background(), "psid-1", true); err != nil {
		t.Fatalf("SendTyping failed: %v", err)
	}
	if got["sender_action"] != "typing_on" {
		t.Errorf("sender_action = %v", got["sender_action"])
	}

	if err := svc.SendTyping(context.Background(), "psid-1", false); err != nil {
		t.Fatalf("SendTyping failed: %v", err)
	}
	if got["sender_action"] != "typing_off" {
		t.Errorf("sender_action = %v", got["sender_action"])
	}
}

func TestSendErrorOnBadStatus(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if err := svc.SendText(context.Background(), "psid-1", "hi"); err == nil {
		t.Error("expected error on non-OK status")
	}
}
