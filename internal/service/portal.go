package service

import (
	stderrors "errors"
	"time"

	"CreditPulse/internal/biz"
	"CreditPulse/internal/model"
	"CreditPulse/internal/server/middleware"
	pkgerrors "CreditPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// tokenOf returns the bearer token the auth filter attached to the request.
func tokenOf(ctx khttp.Context) string {
	return middleware.TokenFromContext(ctx)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Locale   string `json:"locale"`
}

type attachRequest struct {
	Token  string `json:"token"`
	Locale string `json:"locale"`
}

type sessionReply struct {
	SessionID string         `json:"session_id"`
	Token     string         `json:"token"`
	Locale    string         `json:"locale"`
	Profile   *model.Profile `json:"profile"`
}

// Login authenticates against the commerce backend and opens a portal session.
func (s *PortalService) Login(ctx khttp.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "malformed login request")
	}
	if req.Email == "" || req.Password == "" {
		return errors.BadRequest("MISSING_CREDENTIALS", "email and password are required")
	}

	sess, err := s.sessions.Login(ctx, req.Locale, req.Email, req.Password)
	if err != nil {
		if pkgerrors.IsUnauthorized(err) {
			return errors.Unauthorized("BAD_CREDENTIALS", "invalid email or password")
		}
		return backendUnavailable(err)
	}

	return ctx.Result(200, &sessionReply{
		SessionID: sess.ID,
		Token:     sess.Token,
		Locale:    sess.Locale,
		Profile:   sess.Profile,
	})
}

// Attach adopts a storefront-issued bearer token into a portal session.
func (s *PortalService) Attach(ctx khttp.Context) error {
	var req attachRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "malformed attach request")
	}
	if req.Token == "" {
		return errors.BadRequest("MISSING_TOKEN", "token is required")
	}

	sess, err := s.sessions.Attach(ctx, req.Locale, req.Token)
	if err != nil {
		if stderrors.Is(err, biz.ErrSessionNotFound) {
			return errors.Unauthorized("INVALID_TOKEN", "token rejected by backend")
		}
		return backendUnavailable(err)
	}

	return ctx.Result(200, &sessionReply{
		SessionID: sess.ID,
		Token:     sess.Token,
		Locale:    sess.Locale,
		Profile:   sess.Profile,
	})
}

// Logout closes the session for the request's bearer token. Always succeeds.
func (s *PortalService) Logout(ctx khttp.Context) error {
	token := tokenOf(ctx)
	s.sessions.Logout(ctx, token)
	return ctx.Result(200, map[string]bool{"ok": true})
}

type profileReply struct {
	Profile   *model.Profile `json:"profile"`
	SyncedAt  time.Time      `json:"synced_at"`
	SessionID string         `json:"session_id"`
}

// SyncProfile refetches the authoritative profile and overwrites the local
// balance with the server's value.
func (s *PortalService) SyncProfile(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	profile, err := s.sessions.SyncProfile(ctx, sess)
	if err != nil {
		if pkgerrors.IsUnauthorized(err) {
			return errors.Unauthorized("SESSION_EXPIRED", "backend rejected the session token")
		}
		return backendUnavailable(err)
	}

	return ctx.Result(200, &profileReply{
		Profile:   profile,
		SyncedAt:  sess.Balance.LastUpdated(),
		SessionID: sess.ID,
	})
}

// Orders returns the customer's order history from the backend.
func (s *PortalService) Orders(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	orders, err := s.sessions.ListOrders(ctx, sess)
	if err != nil {
		return backendUnavailable(err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return ctx.Result(200, orders)
}

// Payments returns the customer's payment history from the backend.
func (s *PortalService) Payments(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	payments, err := s.sessions.ListPayments(ctx, sess)
	if err != nil {
		return backendUnavailable(err)
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	return ctx.Result(200, payments)
}

// backendUnavailable maps a backend failure to a portal error response.
func backendUnavailable(err error) error {
	if pkgerrors.IsTransient(err) {
		return errors.ServiceUnavailable("BACKEND_UNAVAILABLE", "commerce backend is unreachable")
	}
	return errors.InternalServer("BACKEND_ERROR", err.Error())
}
