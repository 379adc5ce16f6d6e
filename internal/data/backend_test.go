package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CreditPulse/internal/conf"
	pkgerrors "CreditPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, handler http.Handler) *BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewBackendClient(&conf.Backend{
		BaseURL:       srv.URL,
		DefaultLocale: "en",
		Timeout:       2 * time.Second,
	}, log.DefaultLogger)
}

func TestBackendClient_Login(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/en/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "layla@example.com", body["email"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "tok-abc",
			"profile": map[string]interface{}{
				"user_id": 42,
				"name":    "Layla Hassan",
				"locale":  "en",
				"balance": 50,
			},
		})
	}))

	token, profile, err := client.Login(context.Background(), "en", "layla@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.Equal(t, int64(42), profile.UserID)
	assert.Equal(t, 50.0, profile.Balance)
}

func TestBackendClient_Login_MissingToken(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"profile": map[string]interface{}{}})
	}))

	_, _, err := client.Login(context.Background(), "en", "a@b.com", "x")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))
}

func TestBackendClient_FetchCreditNotifications(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ar/user/notifications/credits", r.URL.Path)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))

		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 9, "type": "credit_approved", "request_id": "req-1", "amount": 20},
		})
	}))

	events, err := client.FetchCreditNotifications(context.Background(), "ar", "tok-abc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(9), events[0].ID)
	assert.Equal(t, "credit_approved", events[0].Type)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, 20.0, events[0].Amount)
}

func TestBackendClient_FetchCreditNotifications_NonArrayBody(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "maintenance"})
	}))

	_, err := client.FetchCreditNotifications(context.Background(), "en", "tok-abc")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))
}

func TestBackendClient_FetchCreditNotifications_ServerError(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.FetchCreditNotifications(context.Background(), "en", "tok-abc")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))
}

func TestBackendClient_FetchCreditNotifications_Unauthorized(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))

	_, err := client.FetchCreditNotifications(context.Background(), "en", "tok-old")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnauthorized(err))
	assert.False(t, pkgerrors.IsTransient(err))
}

func TestBackendClient_FetchCreditNotifications_Timeout(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchCreditNotifications(ctx, "en", "tok-abc")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))
}

func TestBackendClient_AcknowledgeNotification(t *testing.T) {
	var gotPath string
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.AcknowledgeNotification(context.Background(), "en", "tok-abc", 9)
	require.NoError(t, err)
	assert.Equal(t, "/en/user/notifications/9/acknowledge", gotPath)
}

func TestBackendClient_SubmitTopUp(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/en/user/credits/topup", r.URL.Path)

		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 20.0, body["amount"])

		_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-1", "status": "pending"})
	}))

	requestID, err := client.SubmitTopUp(context.Background(), "en", "tok-abc", 20)
	require.NoError(t, err)
	assert.Equal(t, "req-1", requestID)
}

func TestBackendClient_ListOrders(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/en/user/orders", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 7, "number": "ORD-7", "status": "delivered", "total": 120.5, "currency": "SAR"},
		})
	}))

	orders, err := client.ListOrders(context.Background(), "en", "tok-abc")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-7", orders[0].Number)
	assert.Equal(t, 120.5, orders[0].Total)
}

func TestBackendClient_ListPayments(t *testing.T) {
	client := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/en/user/payments", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 3, "order_id": 7, "method": "card", "status": "captured", "amount": 120.5, "currency": "SAR"},
		})
	}))

	payments, err := client.ListPayments(context.Background(), "en", "tok-abc")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "captured", payments[0].Status)
}
