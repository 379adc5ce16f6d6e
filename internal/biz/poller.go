package biz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"CreditPulse/internal/conf"
	"CreditPulse/internal/data"
	"CreditPulse/internal/model"
	pkglog "CreditPulse/pkg/log"
)

const (
	// maxConsecutiveErrors permanently disables a session's poller; the user
	// has to re-authenticate to get a fresh one
	maxConsecutiveErrors = 5
	// minGapTolerance absorbs early timer fires and the initial-delay offset
	// when enforcing the minimum gap between polls
	minGapTolerance = 2 * time.Second
)

// NotificationPoller periodically fetches credit events from the commerce
// backend for one session and feeds resolutions through the credits service.
// One poller per session, one goroutine per poller.
type NotificationPoller struct {
	backend   *data.BackendClient
	credits   *CreditsUsecase
	processed *data.ProcessedLog
	breaker   *CircuitBreaker
	cfg       *conf.Poller
	log       *pkglog.LogHelper

	token     string
	locale    string
	sessionID string

	mu               sync.Mutex
	polling          bool
	lastPollTime     time.Time
	consecutiveErrs  int
	disabled         bool
	cancel           context.CancelFunc
	done             chan struct{}

	now func() time.Time
}

// PollerStatus is a snapshot of the poller for the wallet status endpoint.
type PollerStatus struct {
	Disabled          bool               `json:"disabled"`
	ConsecutiveErrors int                `json:"consecutive_errors"`
	LastPollTime      time.Time          `json:"last_poll_time"`
	Breaker           model.CircuitState `json:"breaker"`
}

// NewNotificationPoller creates a poller bound to one session's token and
// locale. The processed log here is the event log (keyed request_id-type-id),
// distinct from the credits service's request set.
func NewNotificationPoller(backend *data.BackendClient, credits *CreditsUsecase, processed *data.ProcessedLog, breaker *CircuitBreaker, cfg *conf.Poller, token, locale, sessionID string, log *pkglog.LogHelper) *NotificationPoller {
	return &NotificationPoller{
		backend:   backend,
		credits:   credits,
		processed: processed,
		breaker:   breaker,
		cfg:       cfg,
		log:       log,
		token:     token,
		locale:    locale,
		sessionID: sessionID,
		now:       time.Now,
	}
}

// Start launches the polling goroutine: one jittered immediate poll, then a
// fixed-interval ticker. Calling Start on a running poller is a no-op.
func (p *NotificationPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil || p.disabled {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	// Spread session start-up so many sessions don't hit the backend in
	// lockstep after a restart.
	delay := p.cfg.InitialDelay + time.Duration(rand.Int63n(int64(time.Second)))
	p.log.Poller("poller starting",
		"session_id", p.sessionID,
		"interval", p.cfg.Interval.String(),
		"initial_delay", delay.String())

	go func() {
		defer close(done)

		select {
		case <-runCtx.Done():
			return
		case <-time.After(delay):
			p.Poll(runCtx)
		}

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.Poll(runCtx)
				if p.Disabled() {
					return
				}
			}
		}
	}()
}

// Stop tears the poller down: cancels the goroutine, waits for it to exit,
// and clears the processed event log and error counters so a restarted
// poller begins fresh.
func (p *NotificationPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.mu.Lock()
	p.polling = false
	p.consecutiveErrs = 0
	p.mu.Unlock()
	p.processed.Clear()
	p.log.Poller("poller stopped", "session_id", p.sessionID)
}

// Poll runs one polling cycle. Exported so tests can drive cycles without a
// running goroutine. Safe against overlap: a cycle that finds another in
// flight, or one that ran too recently, returns immediately.
func (p *NotificationPoller) Poll(ctx context.Context) {
	p.mu.Lock()
	if p.disabled || p.polling {
		p.mu.Unlock()
		return
	}
	if !p.lastPollTime.IsZero() && p.now().Sub(p.lastPollTime) < p.cfg.Interval-minGapTolerance {
		p.mu.Unlock()
		return
	}
	p.polling = true
	p.lastPollTime = p.now()
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.polling = false
		p.mu.Unlock()
	}()

	// A blocked fetch is a successful no-op cycle; the breaker decides when
	// the probe goes out.
	if !p.breaker.Allow() {
		p.log.Poller("fetch skipped, circuit open", "session_id", p.sessionID)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	events, err := p.backend.FetchCreditNotifications(fetchCtx, p.locale, p.token)
	cancel()

	if err != nil {
		p.recordFailure(err)
		return
	}
	p.recordSuccess()

	for i := range events {
		ev := &events[i]
		if ev.RequestID == "" {
			p.log.Poller("event without request id skipped", "event_id", ev.ID, "event_type", ev.Type)
			continue
		}
		key := ev.Key()
		if !p.processed.Mark(key) {
			continue
		}
		p.dispatch(ctx, ev, key)
	}
}

func (p *NotificationPoller) recordFailure(err error) {
	p.breaker.RecordFailure()

	p.mu.Lock()
	p.consecutiveErrs++
	errs := p.consecutiveErrs
	if errs >= maxConsecutiveErrors {
		p.disabled = true
	}
	disabled := p.disabled
	p.mu.Unlock()

	if disabled {
		p.log.Errorw("msg", "poller disabled after repeated failures, refresh required",
			"session_id", p.sessionID,
			"consecutive_errors", errs,
			"error", err.Error(),
			"type", "poller")
		return
	}
	p.log.Warnw("msg", "notification fetch failed",
		"session_id", p.sessionID,
		"consecutive_errors", errs,
		"error", err.Error(),
		"type", "poller")
}

func (p *NotificationPoller) recordSuccess() {
	p.breaker.RecordSuccess()
	p.mu.Lock()
	p.consecutiveErrs = 0
	p.mu.Unlock()
}

// dispatch hands one deduplicated event to the credits service. A panic in
// handling unmarks the event so the next cycle can retry it.
func (p *NotificationPoller) dispatch(ctx context.Context, ev *model.NotificationEvent, key string) {
	defer func() {
		if r := recover(); r != nil {
			p.processed.Unmark(key)
			p.log.Errorw("msg", "event handling panicked, event unmarked",
				"event_key", key,
				"panic", r,
				"type", "poller")
		}
	}()

	switch ev.Type {
	case model.EventCreditApproved:
		if ev.Amount <= 0 {
			// Malformed approval: drop it but keep it marked so the backend
			// can't replay it every cycle.
			p.log.Errorw("msg", "approval event with invalid amount dropped",
				"event_key", key,
				"amount", ev.Amount,
				"type", "poller")
			return
		}
		p.credits.ApproveCreditRequest(ev.RequestID, ev.Amount)
		p.acknowledge(ctx, ev.ID)
	case model.EventCreditRejected:
		p.credits.RejectCreditRequest(ev.RequestID)
		p.acknowledge(ctx, ev.ID)
	case model.EventCreditPending:
		p.log.Poller("pending event observed", "event_key", key, "amount", ev.Amount)
	default:
		p.log.Poller("unhandled event type", "event_key", key, "event_type", ev.Type)
	}
}

// acknowledge is best effort: the processed log already guards against
// redelivery, so an ack failure is only logged.
func (p *NotificationPoller) acknowledge(ctx context.Context, id int64) {
	ackCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	if err := p.backend.AcknowledgeNotification(ackCtx, p.locale, p.token, id); err != nil {
		p.log.Warnw("msg", "acknowledge failed", "event_id", id, "error", err.Error(), "type", "poller")
	}
}

// Disabled reports whether the poller has hit the terminal failure limit.
func (p *NotificationPoller) Disabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

// Status returns a snapshot for the wallet status endpoint.
func (p *NotificationPoller) Status() PollerStatus {
	p.mu.Lock()
	st := PollerStatus{
		Disabled:          p.disabled,
		ConsecutiveErrors: p.consecutiveErrs,
		LastPollTime:      p.lastPollTime,
	}
	p.mu.Unlock()
	st.Breaker = p.breaker.State()
	return st
}

// CleanupProcessedEvents trims the processed event log. Returns the number
// of evicted keys.
func (p *NotificationPoller) CleanupProcessedEvents() int {
	evicted := p.processed.Cleanup()
	if evicted > 0 {
		p.log.Cleanup("processed event log trimmed",
			"session_id", p.sessionID,
			"evicted", evicted,
			"size", p.processed.Len())
	}
	return evicted
}
