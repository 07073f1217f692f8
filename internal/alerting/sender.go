// Package alerting dispatches SMS notifications for high-risk
// screenings via an external SMS provider.
package alerting

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"pulseecho/backend/internal/config"
)

// Delivery is the provider's acknowledgment of one SMS.
type Delivery struct {
	// MessageID is the provider-assigned message identifier.
	MessageID string
	// To is the contact the message was delivered to.
	To string
}

// Sender sends one SMS. Implementations are stateless per call.
type Sender interface {
	Send(ctx context.Context, to, body string) (*Delivery, error)
}

// SenderForConfig returns the Twilio sender when credentials are
// configured and the mock sender otherwise, mirroring how the service
// runs in demo environments without provider accounts.
func SenderForConfig(cfg config.TwilioConfig) Sender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		log.Println("alerting: Twilio credentials not configured, using mock SMS sender")
		return NewMockSender()
	}
	return NewTwilioSender(cfg)
}

// TwilioSender sends SMS through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender builds a sender from provider credentials.
func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: cfg.FromNumber}
}

// Send delivers one SMS via Twilio.
func (t *TwilioSender) Send(_ context.Context, to, body string) (*Delivery, error) {
	if to == "" {
		return nil, fmt.Errorf("no destination phone number")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio send failed: %w", err)
	}

	messageID := ""
	if msg.Sid != nil {
		messageID = *msg.Sid
	}
	return &Delivery{MessageID: messageID, To: to}, nil
}

// MockSender logs the message instead of sending it. Used in tests and
// in deployments without Twilio credentials.
type MockSender struct {
	// Err, when set, simulates a provider failure.
	Err error
	// Sent records every delivered message for test assertions.
	Sent []MockMessage
}

// MockMessage is one message captured by the mock sender.
type MockMessage struct {
	To   string
	Body string
}

// NewMockSender returns a sender that records messages.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send records the message and returns a synthetic delivery.
func (m *MockSender) Send(_ context.Context, to, body string) (*Delivery, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Sent = append(m.Sent, MockMessage{To: to, Body: body})
	log.Printf("[MOCK SMS] to %s: %.80s", to, body)
	return &Delivery{MessageID: fmt.Sprintf("mock_%d", len(m.Sent)), To: to}, nil
}
