package messaging

import (
	"errors"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type mockSMSAPI struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (m *mockSMSAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestSMSNotifierSend(t *testing.T) {
	mock := &mockSMSAPI{}
	n := &SMSNotifier{api: mock, from: "+15550001111"}

	if err := n.Send("+639171234567", "viewing reminder"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if mock.params == nil {
		t.Fatal("no message created")
	}
	if got := *mock.params.To; got != "+639171234567" {
		t.Errorf("to = %q", got)
	}
	if got := *mock.params.From; got != "+15550001111" {
		t.Errorf("from = %q", got)
	}
	if got := *mock.params.Body; got != "viewing reminder" {
		t.Errorf("body = %q", got)
	}
}

func TestSMSNotifierSendError(t *testing.T) {
	mock := &mockSMSAPI{err: errors.New("twilio 401")}
	n := &SMSNotifier{api: mock, from: "+15550001111"}

	if err := n.Send("+639171234567", "x"); err == nil {
		t.Error("expected error from API failure")
	}
}

func TestNewSMSNotifierRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewSMSNotifier(); err == nil {
		t.Error("expected error with no credentials")
	}
}
