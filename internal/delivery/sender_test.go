package delivery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/quote-broadcaster/internal/config"
)

func newTwilio(t *testing.T, h http.HandlerFunc) *TwilioSender {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewTwilioSender(config.ProviderConfig{
		AccountSID: "AC123",
		AuthToken:  "tok",
		Endpoint:   srv.URL + "/2010-04-01/Accounts/AC123/Messages.json",
	}, srv.Client())
}

func TestTwilioSender_PostsFormWithBasicAuth(t *testing.T) {
	s := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "tok", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
		assert.Equal(t, "12025550101", r.PostForm.Get("To"))
		assert.Equal(t, "Stay curious. - Anon", r.PostForm.Get("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	res, err := s.Send(context.Background(), msg("12025550101"))
	require.NoError(t, err)
	assert.Equal(t, "SM1", res.ProviderID)
}

func TestTwilioSender_FailureReasonFromJSON(t *testing.T) {
	s := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	})

	_, err := s.Send(context.Background(), msg("1"))
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadRequest, de.StatusCode)
	assert.Equal(t, "The 'To' number is not a valid phone number.", de.Reason)
}

func TestTwilioSender_FailureReasonRawText(t *testing.T) {
	s := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := s.Send(context.Background(), msg("12025550101"))
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusServiceUnavailable, de.StatusCode)
	assert.Equal(t, "upstream down", de.Reason)
}

func TestTwilioSender_TimeoutIsError(t *testing.T) {
	release := make(chan struct{})
	s := newTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Send(ctx, msg("12025550101"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
