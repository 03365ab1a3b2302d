package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		APIKey:  "test-api-key",
	}, zap.NewNop())
	return client, srv
}

func TestLoginForwardsCredentialsAndAPIKey(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sessionToken":"tok123","requiresMFA":true}`))
	}))

	result, err := client.Login(context.Background(), "admin@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok123", result.SessionToken)
	assert.True(t, result.RequiresMFA)
	assert.Empty(t, result.Token)
}

func TestMeForwardsBearerToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com","role":"ADMIN"}`))
	}))

	user, err := client.Me(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", user.Role)
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"nested error object", `{"error":{"message":"Invalid code"}}`, "Invalid code"},
		{"top-level message", `{"message":"Please wait 30 seconds"}`, "Please wait 30 seconds"},
		{"data envelope", `{"data":{"message":"Order not found"}}`, "Order not found"},
		{"nested beats top-level", `{"error":{"message":"inner"},"message":"outer"}`, "inner"},
		{"empty body", ``, fallbackErrorMessage},
		{"non-json body", `<html>Bad Gateway</html>`, fallbackErrorMessage},
		{"unrelated json", `{"status":"error"}`, fallbackErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractErrorMessage([]byte(tc.body)))
		})
	}
}

func TestRejectedRequestCarriesUpstreamMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"message":"Listing already rented"}}`))
	}))

	_, err := client.Checkout(context.Background(), "tok", "hold-1")
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UPSTREAM_REJECTED", domainErr.Code)
	assert.Equal(t, "Listing already rented", domainErr.Message)
}

func TestNotFoundMapsToNotFoundCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Order not found"}`))
	}))

	_, err := client.GetOrder(context.Background(), "tok", "missing")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUnreachableUpstream(t *testing.T) {
	client := NewClient(config.UpstreamConfig{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Timeout: 200 * time.Millisecond,
	}, zap.NewNop())

	_, err := client.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, shared.ErrUpstreamUnreachable)
}

func TestWithdrawalSendsDecimalAmount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lister/wallet/withdrawals", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "120.5", body["amount"])
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.RequestWithdrawal(context.Background(), "tok", decimal.RequireFromString("120.50"))
	require.NoError(t, err)
}

func TestProductsQueryEscaping(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "silk dress", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"id":"l1","title":"Silk Dress","dailyPrice":"45.00"}]`))
	}))

	listings, err := client.Products(context.Background(), "silk dress")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "45", listings[0].DailyPrice.String())
}

func TestIsRateLimitMessage(t *testing.T) {
	assert.True(t, IsRateLimitMessage("Please wait 30 seconds before requesting another code"))
	assert.False(t, IsRateLimitMessage("Invalid verification code"))
}

func TestCooldownProseMapsToRateLimited(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Cooldown rejection delivered as a plain 400, not a 429.
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Please wait 30 seconds before requesting another code"}`))
	}))

	err := client.SendMFACode(context.Background(), "sess-tok", "123456")
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "RATE_LIMITED", domainErr.Code)
	assert.Contains(t, domainErr.Message, "wait")
}
