package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tbourn/quote-broadcaster/internal/config"
)

// SendResult is what the provider reports for an accepted message.
type SendResult struct {
	ProviderID string
}

// Sender delivers one message through the outbound channel.
type Sender interface {
	Send(ctx context.Context, m Message) (SendResult, error)
}

// DeliveryError is a provider response with status >= 400.
type DeliveryError struct {
	StatusCode int
	Reason     string
}

// Error implements error.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("provider rejected message: status %d: %s", e.StatusCode, e.Reason)
}

// TwilioSender posts form-encoded messages to the Twilio Messages API.
type TwilioSender struct {
	endpoint   string
	accountSID string
	authToken  string
	hc         *http.Client
}

// NewTwilioSender builds a sender from provider settings. A nil hc uses a
// fresh http.Client; per-message timeouts come from the caller's context.
func NewTwilioSender(cfg config.ProviderConfig, hc *http.Client) *TwilioSender {
	if hc == nil {
		hc = &http.Client{}
	}
	return &TwilioSender{
		endpoint:   cfg.Endpoint,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		hc:         hc,
	}
}

// Send posts m with basic auth and returns the provider message SID.
// Transport failures are wrapped; a status >= 400 becomes a
// *DeliveryError carrying the provider message, or the raw body.
func (s *TwilioSender) Send(ctx context.Context, m Message) (SendResult, error) {
	form := url.Values{}
	form.Set("From", m.From)
	form.Set("To", m.To)
	form.Set("Body", m.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.hc.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))

	var payload struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	parsed := json.Unmarshal(body, &payload) == nil

	if resp.StatusCode >= http.StatusBadRequest {
		reason := strings.TrimSpace(string(body))
		if parsed && payload.Message != "" {
			reason = payload.Message
		}
		return SendResult{}, &DeliveryError{StatusCode: resp.StatusCode, Reason: reason}
	}
	return SendResult{ProviderID: payload.SID}, nil
}
