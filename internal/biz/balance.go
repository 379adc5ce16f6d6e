package biz

import (
	"sync"
	"time"

	"CreditPulse/internal/model"
)

// BalanceStore is the single source of truth for one session's credit
// balance and in-flight top-up requests. It is a pure state container: no
// I/O, synchronous operations only, guarded by a mutex so the poller
// goroutine and portal handlers can share it.
//
// Only the credits service mutates it; the service and portal layers read
// derived state (balance, projected balance, pending list).
type BalanceStore struct {
	mu          sync.Mutex
	balance     float64
	pending     []model.PendingRequest
	lastUpdated time.Time
	updating    bool

	now func() time.Time
}

// NewBalanceStore creates an empty balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		now: time.Now,
	}
}

// SetBalance overwrites the confirmed balance unconditionally. Used when
// syncing from an authoritative profile fetch. Clears the updating flag.
func (s *BalanceStore) SetBalance(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance = value
	s.lastUpdated = s.now()
	s.updating = false
}

// UpdateBalance applies a signed delta to the confirmed balance. Used for
// direct adjustments outside the pending-request flow (e.g. a purchase
// deduction or a server-origin approval with no local pending record).
func (s *BalanceStore) UpdateBalance(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance += delta
	s.lastUpdated = s.now()
}

// AddPendingRequest appends a new pending top-up. The insert is idempotent:
// a duplicate id or a non-positive amount is a silent no-op. Returns whether
// the entry was inserted.
func (s *BalanceStore) AddPendingRequest(id string, amount float64) bool {
	if id == "" || amount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pending {
		if p.ID == id {
			return false
		}
	}

	s.pending = append(s.pending, model.PendingRequest{
		ID:        id,
		Amount:    amount,
		Status:    model.StatusPending,
		CreatedAt: s.now(),
	})
	return true
}

// ApprovePendingRequest removes the pending entry with the given id and adds
// its amount to the balance. No-op when absent; the credits service falls
// back to a direct UpdateBalance in that case. Returns whether an entry was
// applied.
func (s *BalanceStore) ApprovePendingRequest(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			s.balance += p.Amount
			s.lastUpdated = s.now()
			return true
		}
	}
	return false
}

// RejectPendingRequest removes the pending entry with the given id. Never
// touches the balance. Returns whether an entry was removed.
func (s *BalanceStore) RejectPendingRequest(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// DeductIfSufficient debits amount only when the confirmed balance covers
// it, check and mutation under one lock so concurrent deductions cannot
// drive the balance negative. Returns whether the debit was applied.
func (s *BalanceStore) DeductIfSufficient(amount float64) bool {
	if amount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balance < amount {
		return false
	}
	s.balance -= amount
	s.lastUpdated = s.now()
	return true
}

// Balance returns the confirmed balance.
func (s *BalanceStore) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// ProjectedBalance returns balance + the sum of pending amounts. Always
// derived, never stored.
func (s *BalanceStore) ProjectedBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	projected := s.balance
	for _, p := range s.pending {
		projected += p.Amount
	}
	return projected
}

// PendingRequests returns a copy of the live pending list.
func (s *BalanceStore) PendingRequests() []model.PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PendingRequest, len(s.pending))
	copy(out, s.pending)
	return out
}

// PendingAmount looks up the amount of a pending request by id.
func (s *BalanceStore) PendingAmount(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pending {
		if p.ID == id {
			return p.Amount, true
		}
	}
	return 0, false
}

// LastUpdated returns the time the balance was last set from a trusted source.
func (s *BalanceStore) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// BeginUpdate flags the store as mid-refresh. Cleared by SetBalance, or by
// EndUpdate when the refresh fails.
func (s *BalanceStore) BeginUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updating = true
}

// EndUpdate clears the refresh flag without touching the balance. Used on a
// failed refresh so the store does not report updating forever.
func (s *BalanceStore) EndUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updating = false
}

// Updating reports whether a refresh is in flight.
func (s *BalanceStore) Updating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating
}
