package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/storefront-api/internal/config"
)

func TestSignatureVerifier(t *testing.T) {
	v := NewSignatureVerifier("secret")
	sig := v.Sign("order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, v.Verify("order_1", "pay_1", sig))
	assert.False(t, v.Verify("order_1", "pay_1", strings.ToUpper(sig)), "регистр не нормализуется")
	assert.False(t, v.Verify("order_1", "pay_1", " "+sig), "пробелы не обрезаются")
	assert.False(t, v.Verify("order_1", "pay_1", sig+"\n"))
	assert.False(t, v.Verify("order_1", "pay_2", sig))
	assert.False(t, v.Verify("order_1", "pay_1", ""))
	assert.False(t, NewSignatureVerifier("other").Verify("order_1", "pay_1", sig))
	assert.False(t, NewSignatureVerifier("").Verify("order_1", "pay_1", sig))
	assert.False(t, NewSignatureVerifier("").Configured())
}

func newRazorpayTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var req razorpayOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRazorpayGateway_CreateIntent(t *testing.T) {
	srv := newRazorpayTestServer(t, http.StatusOK,
		`{"id":"order_abc","amount":472,"currency":"INR","receipt":"rcpt_1","status":"created"}`)
	gw := NewRazorpayGateway(config.PaymentConfig{KeyID: "rzp_key", KeySecret: "rzp_secret", BaseURL: srv.URL})

	intent, err := gw.CreateIntent(context.Background(), 472, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", intent.ID)
	assert.Equal(t, int64(472), intent.Amount)
	assert.Equal(t, "rzp_key", gw.KeyID())
}

func TestRazorpayGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"bad request", http.StatusBadRequest, ErrInvalidAmount},
		{"unauthorized", http.StatusUnauthorized, ErrGatewayUnavailable},
		{"server error", http.StatusBadGateway, ErrGatewayUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRazorpayTestServer(t, tt.status, `{"error":{"code":"X","description":"nope"}}`)
			gw := NewRazorpayGateway(config.PaymentConfig{KeyID: "rzp_key", KeySecret: "rzp_secret", BaseURL: srv.URL})

			_, err := gw.CreateIntent(context.Background(), 472, "INR", "rcpt_1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRazorpayGateway_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	gw := NewRazorpayGateway(config.PaymentConfig{
		KeyID: "rzp_key", KeySecret: "rzp_secret", BaseURL: srv.URL, Timeout: 20 * time.Millisecond,
	})

	_, err := gw.CreateIntent(context.Background(), 472, "INR", "rcpt_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestRazorpayGateway_RequiresCredentials(t *testing.T) {
	gw := NewRazorpayGateway(config.PaymentConfig{})
	_, err := gw.CreateIntent(context.Background(), 472, "INR", "rcpt_1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestSandboxGateway(t *testing.T) {
	gw := NewSandboxGateway("")
	intent, err := gw.CreateIntent(context.Background(), 472, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.ID, "order_"))
	assert.Equal(t, int64(472), intent.Amount)
	assert.Equal(t, "sandbox", gw.KeyID())

	_, err = gw.CreateIntent(context.Background(), 0, "INR", "rcpt_1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
