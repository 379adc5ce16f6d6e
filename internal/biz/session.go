package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"CreditPulse/internal/conf"
	"CreditPulse/internal/data"
	"CreditPulse/internal/model"
	pkgerrors "CreditPulse/pkg/errors"
	pkglog "CreditPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrSessionNotFound is returned when no session exists for a bearer token.
var ErrSessionNotFound = errors.New("session not found")

// ErrInsufficientBalance is returned when a deduction exceeds the confirmed
// balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// staleSessionAge is the idle horizon after which a session is evicted.
// Matches the Redis session cache TTL.
const staleSessionAge = 24 * time.Hour

// Session bundles everything one authenticated customer owns: their balance,
// notification feed, credits façade and notification poller.
type Session struct {
	ID        string
	Token     string
	Profile   *model.Profile
	Locale    string
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time

	Balance       *BalanceStore
	Notifications *NotificationStore
	Credits       *CreditsUsecase
	Poller        *NotificationPoller
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the session's last activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionUsecase owns the live session table. It builds sessions on login or
// token attach, rebuilds them from the Redis cache after a restart, and tears
// them down on logout or staleness.
type SessionUsecase struct {
	backend *data.BackendClient
	cache   data.SessionCache
	bc      *conf.Bootstrap
	log     *pkglog.LogHelper

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionUsecase creates the session manager.
func NewSessionUsecase(d *data.Data, bc *conf.Bootstrap, logger log.Logger) *SessionUsecase {
	return &SessionUsecase{
		backend:  d.GetBackendClient(),
		cache:    d.GetSessionCache(),
		bc:       bc,
		log:      pkglog.NewLogHelper(logger),
		sessions: make(map[string]*Session),
	}
}

// Login authenticates against the commerce backend and builds a fresh
// session around the returned bearer token.
func (uc *SessionUsecase) Login(ctx context.Context, locale, email, password string) (*Session, error) {
	locale = uc.normalizeLocale(locale)

	token, profile, err := uc.backend.Login(ctx, locale, email, password)
	if err != nil {
		uc.log.Warnw("msg", "login failed", "email", email, "error", err.Error(), "type", "auth")
		return nil, err
	}
	profile.Locale = locale

	sess := uc.buildSession(ctx, token, profile, locale)
	uc.log.Auth("login succeeded", "session_id", sess.ID, "user_id", profile.UserID, "locale", locale)
	return sess, nil
}

// Attach adopts an externally issued bearer token (e.g. the storefront's own
// login flow) by validating it against the backend profile endpoint.
func (uc *SessionUsecase) Attach(ctx context.Context, locale, token string) (*Session, error) {
	locale = uc.normalizeLocale(locale)

	if sess := uc.lookup(token); sess != nil {
		sess.Touch()
		return sess, nil
	}

	profile, err := uc.backend.FetchProfile(ctx, locale, token)
	if err != nil {
		if pkgerrors.IsUnauthorized(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	profile.Locale = locale

	sess := uc.buildSession(ctx, token, profile, locale)
	uc.log.Auth("external token attached", "session_id", sess.ID, "user_id", profile.UserID)
	return sess, nil
}

// Resolve returns the live session for a bearer token. On a miss it tries to
// rebuild the session from the Redis cache so sessions survive a portal
// restart; a rebuilt session gets a fresh poller.
func (uc *SessionUsecase) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	if sess := uc.lookup(token); sess != nil {
		sess.Touch()
		return sess, nil
	}

	profile, err := uc.cache.GetProfile(ctx, token)
	if err != nil {
		if !errors.Is(err, data.ErrSessionNotCached) {
			uc.log.Redis("session cache lookup failed", "error", err.Error())
		}
		return nil, ErrSessionNotFound
	}

	locale := uc.normalizeLocale(profile.Locale)
	sess := uc.buildSession(ctx, token, profile, locale)
	uc.log.Session("session rebuilt from cache", "session_id", sess.ID, "user_id", profile.UserID)
	return sess, nil
}

// SyncProfile refetches the authoritative profile and overwrites the local
// balance with the server's value.
func (uc *SessionUsecase) SyncProfile(ctx context.Context, sess *Session) (*model.Profile, error) {
	sess.Balance.BeginUpdate()
	profile, err := uc.backend.FetchProfile(ctx, sess.Locale, sess.Token)
	if err != nil {
		sess.Balance.EndUpdate()
		return nil, err
	}
	profile.Locale = sess.Locale

	sess.Profile = profile
	sess.Credits.SyncBalance(profile.Balance)
	if err := uc.cache.PutProfile(ctx, sess.Token, profile); err != nil {
		uc.log.Redis("profile cache refresh failed", "error", err.Error())
	}
	return profile, nil
}

// SubmitTopUp sends a top-up request to the backend and records it as
// pending locally under the backend-issued request id.
func (uc *SessionUsecase) SubmitTopUp(ctx context.Context, sess *Session, amount float64) (string, error) {
	requestID, err := uc.backend.SubmitTopUp(ctx, sess.Locale, sess.Token, amount)
	if err != nil {
		return "", err
	}
	sess.Credits.AddPendingRequest(requestID, amount)
	return requestID, nil
}

// ListOrders fetches the customer's order history from the backend.
func (uc *SessionUsecase) ListOrders(ctx context.Context, sess *Session) ([]model.Order, error) {
	return uc.backend.ListOrders(ctx, sess.Locale, sess.Token)
}

// ListPayments fetches the customer's payment history from the backend.
func (uc *SessionUsecase) ListPayments(ctx context.Context, sess *Session) ([]model.Payment, error) {
	return uc.backend.ListPayments(ctx, sess.Locale, sess.Token)
}

// Logout stops the poller, wipes the session's processed sets, and forgets
// the token everywhere. The cache entry is deleted even when no live session
// exists for the token, otherwise a logged-out token could be rebuilt from
// Redis after a restart.
func (uc *SessionUsecase) Logout(ctx context.Context, token string) {
	uc.mu.Lock()
	sess, ok := uc.sessions[token]
	if ok {
		delete(uc.sessions, token)
	}
	uc.mu.Unlock()

	if err := uc.cache.DeleteProfile(ctx, token); err != nil {
		uc.log.Redis("session cache delete failed", "error", err.Error())
	}

	if !ok {
		return
	}

	sess.Poller.Stop()
	sess.Credits.ClearProcessedRequests()
	sess.Notifications.Clear()
	uc.log.Session("session closed", "session_id", sess.ID)
}

// CleanupProcessedSets trims every live session's processed sets. Run from
// the maintenance scheduler.
func (uc *SessionUsecase) CleanupProcessedSets() {
	uc.mu.RLock()
	sessions := make([]*Session, 0, len(uc.sessions))
	for _, s := range uc.sessions {
		sessions = append(sessions, s)
	}
	uc.mu.RUnlock()

	evicted := 0
	for _, s := range sessions {
		evicted += s.Poller.CleanupProcessedEvents()
		evicted += s.Credits.CleanupProcessedRequests()
	}
	if evicted > 0 {
		uc.log.Cleanup("processed sets swept", "sessions", len(sessions), "evicted", evicted)
	}
}

// EvictStaleSessions closes sessions idle past the stale horizon. Returns
// the number evicted.
func (uc *SessionUsecase) EvictStaleSessions(ctx context.Context) int {
	cutoff := time.Now().Add(-staleSessionAge)

	uc.mu.Lock()
	var stale []*Session
	for token, s := range uc.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(uc.sessions, token)
		}
	}
	uc.mu.Unlock()

	for _, s := range stale {
		s.Poller.Stop()
		s.Credits.ClearProcessedRequests()
		if err := uc.cache.DeleteProfile(ctx, s.Token); err != nil {
			uc.log.Redis("session cache delete failed", "error", err.Error())
		}
	}
	if len(stale) > 0 {
		uc.log.Session("stale sessions evicted", "count", len(stale))
	}
	return len(stale)
}

// SessionCount returns the number of live sessions.
func (uc *SessionUsecase) SessionCount() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.sessions)
}

// Shutdown stops every session's poller. Called on application teardown.
func (uc *SessionUsecase) Shutdown() {
	uc.mu.Lock()
	sessions := make([]*Session, 0, len(uc.sessions))
	for _, s := range uc.sessions {
		sessions = append(sessions, s)
	}
	uc.sessions = make(map[string]*Session)
	uc.mu.Unlock()

	for _, s := range sessions {
		s.Poller.Stop()
	}
	uc.log.Session("all sessions shut down", "count", len(sessions))
}

func (uc *SessionUsecase) lookup(token string) *Session {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.sessions[token]
}

func (uc *SessionUsecase) normalizeLocale(locale string) string {
	if locale != "en" && locale != "ar" {
		return uc.bc.Backend.DefaultLocale
	}
	return locale
}

// buildSession assembles the per-session object graph and starts its poller.
// If a session for the token already exists (login race) the existing one
// wins and the new poller never starts.
func (uc *SessionUsecase) buildSession(ctx context.Context, token string, profile *model.Profile, locale string) *Session {
	sessionID := pkglog.GenerateRequestID()

	balance := NewBalanceStore()
	balance.SetBalance(profile.Balance)
	notifications := NewNotificationStore(locale)
	credits := NewCreditsUsecase(balance, notifications, data.NewProcessedLog(), uc.log)
	breaker := NewCircuitBreaker(uc.bc.Poller.Production, uc.log)
	poller := NewNotificationPoller(uc.backend, credits, data.NewProcessedLog(), breaker,
		uc.bc.Poller, token, locale, sessionID, uc.log)

	sess := &Session{
		ID:            sessionID,
		Token:         token,
		Profile:       profile,
		Locale:        locale,
		CreatedAt:     time.Now(),
		lastSeen:      time.Now(),
		Balance:       balance,
		Notifications: notifications,
		Credits:       credits,
		Poller:        poller,
	}

	uc.mu.Lock()
	if existing, ok := uc.sessions[token]; ok {
		uc.mu.Unlock()
		existing.Touch()
		return existing
	}
	uc.sessions[token] = sess
	uc.mu.Unlock()

	if err := uc.cache.PutProfile(ctx, token, profile); err != nil {
		uc.log.Redis("profile cache write failed", "error", err.Error())
	}

	// The poller outlives the request; it is stopped on logout, eviction or
	// shutdown, not by the request context.
	poller.Start(context.Background())
	return sess
}
