package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"CreditPulse/internal/conf"
	"CreditPulse/internal/model"
	pkgerrors "CreditPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// BackendClient wraps the remote commerce backend REST API. All endpoints are
// locale-scoped ({base}/{locale}/...) and, except login, authorized with the
// session bearer token.
//
// The client carries no global timeout: callers own the deadline via ctx
// (the poller uses its own 10s/15s budget, the portal endpoints use
// Backend.Timeout).
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Helper
}

// loginResponse is the backend login payload.
type loginResponse struct {
	Token   string         `json:"token"`
	Profile *model.Profile `json:"profile"`
}

// topUpResponse is the backend top-up submission payload.
type topUpResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// NewBackendClient creates a client for the remote commerce backend.
func NewBackendClient(c *conf.Backend, logger log.Logger) *BackendClient {
	return &BackendClient{
		httpClient: &http.Client{},
		baseURL:    c.BaseURL,
		logger:     log.NewHelper(logger),
	}
}

// Login exchanges credentials for a bearer token and the customer profile.
func (b *BackendClient) Login(ctx context.Context, locale, email, password string) (string, *model.Profile, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := b.do(ctx, http.MethodPost, locale, "auth/login", "", body, false, &resp); err != nil {
		return "", nil, err
	}

	if resp.Token == "" || resp.Profile == nil {
		return "", nil, pkgerrors.NewMalformedError(nil, "login response missing token or profile")
	}

	return resp.Token, resp.Profile, nil
}

// FetchProfile retrieves the authoritative customer profile (including the
// confirmed credit balance) for the given bearer token.
func (b *BackendClient) FetchProfile(ctx context.Context, locale, token string) (*model.Profile, error) {
	var profile model.Profile
	if err := b.do(ctx, http.MethodGet, locale, "user/profile", token, nil, false, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FetchCreditNotifications retrieves pending credit notification events.
// The request carries no-cache headers; a non-array body is classified as a
// malformed payload error.
func (b *BackendClient) FetchCreditNotifications(ctx context.Context, locale, token string) ([]model.NotificationEvent, error) {
	raw := json.RawMessage{}
	if err := b.do(ctx, http.MethodGet, locale, "user/notifications/credits", token, nil, true, &raw); err != nil {
		return nil, err
	}

	var events []model.NotificationEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, pkgerrors.NewMalformedError(err, "notifications response is not an array")
	}

	return events, nil
}

// AcknowledgeNotification acknowledges a delivered notification. Callers
// treat this as best-effort: failures are logged, never retried, and never
// roll back local state.
func (b *BackendClient) AcknowledgeNotification(ctx context.Context, locale, token string, notificationID int64) error {
	path := fmt.Sprintf("user/notifications/%d/acknowledge", notificationID)
	return b.do(ctx, http.MethodPost, locale, path, token, nil, false, nil)
}

// SubmitTopUp submits a credit top-up request and returns the server-issued
// request id.
func (b *BackendClient) SubmitTopUp(ctx context.Context, locale, token string, amount float64) (string, error) {
	body := map[string]float64{"amount": amount}

	var resp topUpResponse
	if err := b.do(ctx, http.MethodPost, locale, "user/credits/topup", token, body, false, &resp); err != nil {
		return "", err
	}

	if resp.RequestID == "" {
		return "", pkgerrors.NewMalformedError(nil, "top-up response missing request_id")
	}

	return resp.RequestID, nil
}

// ListOrders retrieves the customer's order history.
func (b *BackendClient) ListOrders(ctx context.Context, locale, token string) ([]model.Order, error) {
	var orders []model.Order
	if err := b.do(ctx, http.MethodGet, locale, "user/orders", token, nil, false, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPayments retrieves the customer's payment history.
func (b *BackendClient) ListPayments(ctx context.Context, locale, token string) ([]model.Payment, error) {
	var payments []model.Payment
	if err := b.do(ctx, http.MethodGet, locale, "user/payments", token, nil, false, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// do issues one backend request and decodes the JSON response into out
// (skipped when out is nil). Transport failures and non-2xx statuses are
// classified via pkg/errors.
func (b *BackendClient) do(ctx context.Context, method, locale, path, token string, body interface{}, noCache bool, out interface{}) error {
	url := fmt.Sprintf("%s/%s/%s", b.baseURL, locale, path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("backend: failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return pkgerrors.ClassifyTransportError(err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain the body so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pkgerrors.NewStatusError(resp.StatusCode, fmt.Sprintf("%s %s failed", method, path))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.NewMalformedError(err, fmt.Sprintf("%s %s returned unparseable body", method, path))
	}

	return nil
}
