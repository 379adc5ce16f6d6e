package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"CreditPulse/internal/biz"
	"CreditPulse/internal/conf"
	"CreditPulse/internal/data"
	"CreditPulse/internal/model"
	"CreditPulse/internal/server/middleware"
	pkglog "CreditPulse/pkg/log"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storefront is a scriptable fake commerce backend.
type storefront struct {
	mu      sync.Mutex
	profile model.Profile
	events  []model.NotificationEvent
}

func (f *storefront) setEvents(events []model.NotificationEvent) {
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
}

func (f *storefront) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		profile := f.profile
		events := append([]model.NotificationEvent(nil), f.events...)
		f.mu.Unlock()

		switch r.URL.Path {
		case "/en/auth/login", "/ar/auth/login":
			var creds struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"token":   "tok-valid",
				"profile": profile,
			})
		case "/en/user/profile", "/ar/user/profile":
			if r.Header.Get("Authorization") != "Bearer tok-valid" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(profile)
		case "/en/user/notifications/credits":
			_ = json.NewEncoder(w).Encode(events)
		case "/en/user/credits/topup":
			_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-20", "status": "pending"})
		case "/en/user/orders":
			_ = json.NewEncoder(w).Encode([]model.Order{{ID: 1, Total: 99.5, Status: "delivered"}})
		case "/en/user/payments":
			_ = json.NewEncoder(w).Encode([]model.Payment{{ID: 5, Amount: 99.5, Method: "credits"}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

type portalFixture struct {
	url      string
	sessions *biz.SessionUsecase
	front    *storefront
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()

	front := &storefront{
		profile: model.Profile{UserID: 42, Name: "Aisha", Email: "aisha@example.com", Balance: 100},
	}
	backendSrv := httptest.NewServer(front.handler())
	t.Cleanup(backendSrv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := log.NewStdLogger(io.Discard)
	cache := data.NewSessionCache(rdb)
	backend := data.NewBackendClient(&conf.Backend{BaseURL: backendSrv.URL, DefaultLocale: "en"}, logger)
	d, cleanup, err := data.NewData(nil, logger, rdb, cache, backend)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	bc := &conf.Bootstrap{
		Backend: &conf.Backend{BaseURL: backendSrv.URL, DefaultLocale: "en", Timeout: 2 * time.Second},
		Poller:  &conf.Poller{Interval: time.Second, Timeout: 2 * time.Second, InitialDelay: 0},
	}

	sessions := biz.NewSessionUsecase(d, bc, logger)
	t.Cleanup(sessions.Shutdown)
	portal := NewPortalService(sessions, logger)

	logHelper := pkglog.NewLogHelper(logger)
	srv := khttp.NewServer(
		khttp.Filter(
			middleware.Logging(logHelper),
			middleware.Auth(logHelper),
		),
	)
	portal.RegisterRoutes(srv)

	portalSrv := httptest.NewServer(srv)
	t.Cleanup(portalSrv.Close)

	return &portalFixture{url: portalSrv.URL, sessions: sessions, front: front}
}

func (f *portalFixture) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, f.url+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *portalFixture) login(t *testing.T) string {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "aisha@example.com", "password": "secret", "locale": "en",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var reply struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	require.NotEmpty(t, reply.Token)

	// Stop the background poller so tests drive cycles via poke
	sess, err := f.sessions.Resolve(context.Background(), reply.Token)
	require.NoError(t, err)
	sess.Poller.Stop()
	return reply.Token
}

// poke drives one poller cycle synchronously instead of waiting for the tick.
func (f *portalFixture) poke(t *testing.T, token string) {
	t.Helper()
	sess, err := f.sessions.Resolve(context.Background(), token)
	require.NoError(t, err)
	sess.Poller.Poll(context.Background())
}

func TestPortal_Login(t *testing.T) {
	f := newPortalFixture(t)

	token := f.login(t)
	assert.Equal(t, "tok-valid", token)
	assert.Equal(t, 1, f.sessions.SessionCount())
}

func TestPortal_LoginValidation(t *testing.T) {
	f := newPortalFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "aisha@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "aisha@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPortal_BalanceRequiresSession(t *testing.T) {
	f := newPortalFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/wallet/balance", "tok-bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPortal_TopUpApprovalFlow(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	// Submit a $20 top-up
	resp, raw := f.do(t, http.MethodPost, "/api/v1/wallet/topup", token, map[string]float64{"amount": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var topup struct {
		RequestID        string  `json:"request_id"`
		ProjectedBalance float64 `json:"projected_balance"`
	}
	require.NoError(t, json.Unmarshal(raw, &topup))
	assert.Equal(t, "req-20", topup.RequestID)
	assert.Equal(t, 120.0, topup.ProjectedBalance)

	// The backend approves; two poll cycles must apply it exactly once
	f.front.setEvents([]model.NotificationEvent{
		{ID: 1, Type: model.EventCreditApproved, RequestID: "req-20", Amount: 20},
	})
	f.poke(t, token)
	f.poke(t, token)

	resp, raw = f.do(t, http.MethodGet, "/api/v1/wallet/balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance struct {
		Balance          float64                  `json:"balance"`
		ProjectedBalance float64                  `json:"projected_balance"`
		Pending          []map[string]interface{} `json:"pending_requests"`
	}
	require.NoError(t, json.Unmarshal(raw, &balance))
	assert.Equal(t, 120.0, balance.Balance)
	assert.Equal(t, 120.0, balance.ProjectedBalance)
	assert.Empty(t, balance.Pending)

	// The approval produced a localized notification
	resp, raw = f.do(t, http.MethodGet, "/api/v1/wallet/notifications", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []model.Notification
	require.NoError(t, json.Unmarshal(raw, &items))
	require.NotEmpty(t, items)
	assert.Equal(t, "Credit Request Approved", items[0].Title)
	assert.Equal(t, 20.0, items[0].Amount)
}

func TestPortal_TopUpRejectionFlow(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/wallet/topup", token, map[string]float64{"amount": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f.front.setEvents([]model.NotificationEvent{
		{ID: 2, Type: model.EventCreditRejected, RequestID: "req-20"},
	})
	f.poke(t, token)

	resp, raw := f.do(t, http.MethodGet, "/api/v1/wallet/balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance struct {
		Balance          float64 `json:"balance"`
		ProjectedBalance float64 `json:"projected_balance"`
	}
	require.NoError(t, json.Unmarshal(raw, &balance))
	assert.Equal(t, 100.0, balance.Balance)
	assert.Equal(t, 100.0, balance.ProjectedBalance)
}

func TestPortal_TopUpValidation(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/wallet/topup", token, map[string]float64{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/wallet/topup", token, map[string]float64{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPortal_Deduct(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	resp, raw := f.do(t, http.MethodPost, "/api/v1/wallet/deduct", token, map[string]float64{"amount": 30})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply deductReply
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, 70.0, reply.Balance)

	// Over the confirmed balance: payment required
	resp, _ = f.do(t, http.MethodPost, "/api/v1/wallet/deduct", token, map[string]float64{"amount": 500})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestPortal_SyncProfile(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	// Local drift, then the server value wins
	sess, err := f.sessions.Resolve(context.Background(), token)
	require.NoError(t, err)
	sess.Balance.UpdateBalance(-40)

	resp, raw := f.do(t, http.MethodPost, "/api/v1/profile/sync", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply struct {
		Profile model.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, 100.0, reply.Profile.Balance)
	assert.Equal(t, 100.0, sess.Balance.Balance())
}

func TestPortal_OrdersAndPayments(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	resp, raw := f.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(raw, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "delivered", orders[0].Status)

	resp, raw = f.do(t, http.MethodGet, "/api/v1/payments", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payments []model.Payment
	require.NoError(t, json.Unmarshal(raw, &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "credits", payments[0].Method)
}

func TestPortal_Logout(t *testing.T) {
	f := newPortalFixture(t)
	token := f.login(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.sessions.SessionCount())
}

func TestPortal_Attach(t *testing.T) {
	f := newPortalFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/api/v1/auth/attach", "", map[string]string{
		"token": "tok-valid", "locale": "en",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var reply sessionReply
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, int64(42), reply.Profile.UserID)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/attach", "", map[string]string{"token": "tok-bad"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
