package biz

import (
	"fmt"

	"CreditPulse/internal/data"
	"CreditPulse/internal/model"
	pkglog "CreditPulse/pkg/log"
)

// CreditsUsecase is the only mutation surface for a session's balance. All
// credit resolutions, whether they come from the poller or a portal action,
// flow through here so the at-most-once guarantee lives in one place.
//
// Request ids are marked processed BEFORE the balance is touched; a repeat
// resolution for a marked id is a no-op.
type CreditsUsecase struct {
	balance       *BalanceStore
	notifications *NotificationStore
	processed     *data.ProcessedLog
	log           *pkglog.LogHelper
}

// NewCreditsUsecase wires the façade over a session's stores.
func NewCreditsUsecase(balance *BalanceStore, notifications *NotificationStore, processed *data.ProcessedLog, log *pkglog.LogHelper) *CreditsUsecase {
	return &CreditsUsecase{
		balance:       balance,
		notifications: notifications,
		processed:     processed,
		log:           log,
	}
}

// AddPendingRequest records a newly submitted top-up and emits a submitted
// notification. Duplicate ids are ignored.
func (uc *CreditsUsecase) AddPendingRequest(requestID string, amount float64) {
	if !uc.balance.AddPendingRequest(requestID, amount) {
		uc.log.Wallet("pending request ignored", "request_id", requestID, "amount", amount)
		return
	}

	uc.notifications.Add(model.NotificationSubmitted,
		fmt.Sprintf("Your credit request of %.2f is being reviewed", amount),
		amount, requestID)
	uc.log.Wallet("pending request recorded", "request_id", requestID, "amount", amount)
}

// ApproveCreditRequest resolves an approval exactly once per request id.
//
// The explicit amount wins when positive; otherwise the amount is looked up
// from the pending entry. If neither yields a positive amount the approval is
// rejected and the id is unmarked so a later, well-formed event for the same
// request can still land.
func (uc *CreditsUsecase) ApproveCreditRequest(requestID string, amount float64) {
	if requestID == "" {
		uc.log.Errorw("msg", "approval without request id dropped", "amount", amount, "type", "wallet")
		return
	}
	// Mark is the atomic dedup guard: false means the id was already handled
	if !uc.processed.Mark(requestID) {
		uc.log.Wallet("duplicate approval ignored", "request_id", requestID)
		return
	}

	resolved := amount
	if resolved <= 0 {
		if pending, ok := uc.balance.PendingAmount(requestID); ok {
			resolved = pending
		}
	}
	if resolved <= 0 {
		uc.log.Errorw("msg", "approval with no resolvable amount", "request_id", requestID, "amount", amount, "type", "wallet")
		uc.processed.Unmark(requestID)
		return
	}

	// Prefer settling the local pending entry; a server-origin approval with
	// no local record credits the balance directly.
	if !uc.balance.ApprovePendingRequest(requestID) {
		uc.balance.UpdateBalance(resolved)
	}

	uc.notifications.Add(model.NotificationApproved,
		fmt.Sprintf("Your credit request of %.2f has been approved", resolved),
		resolved, requestID)
	uc.log.Wallet("credit request approved",
		"request_id", requestID,
		"amount", resolved,
		"balance", uc.balance.Balance())
}

// RejectCreditRequest resolves a rejection exactly once per request id. The
// balance is never touched; only the pending entry is removed.
func (uc *CreditsUsecase) RejectCreditRequest(requestID string) {
	if requestID == "" {
		uc.log.Errorw("msg", "rejection without request id dropped", "type", "wallet")
		return
	}
	if !uc.processed.Mark(requestID) {
		uc.log.Wallet("duplicate rejection ignored", "request_id", requestID)
		return
	}

	amount, _ := uc.balance.PendingAmount(requestID)
	uc.balance.RejectPendingRequest(requestID)

	uc.notifications.Add(model.NotificationRejected,
		"Your credit request has been rejected",
		amount, requestID)
	uc.log.Wallet("credit request rejected", "request_id", requestID, "amount", amount)
}

// SyncBalance overwrites the confirmed balance from an authoritative profile
// fetch.
func (uc *CreditsUsecase) SyncBalance(value float64) {
	uc.balance.SetBalance(value)
	uc.log.Wallet("balance synced", "balance", value)
}

// AddToBalance credits the balance directly, outside the request flow.
func (uc *CreditsUsecase) AddToBalance(amount float64) bool {
	if amount <= 0 {
		return false
	}
	uc.balance.UpdateBalance(amount)
	uc.notifications.Add(model.NotificationCredited,
		fmt.Sprintf("%.2f has been added to your balance", amount), amount, "")
	return true
}

// DeductFromBalance debits the balance if the confirmed balance covers it.
// Pending amounts never count toward spendable funds. Check and debit are
// atomic so concurrent deductions cannot overdraw.
func (uc *CreditsUsecase) DeductFromBalance(amount float64) bool {
	if !uc.balance.DeductIfSufficient(amount) {
		return false
	}
	uc.notifications.Add(model.NotificationDeducted,
		fmt.Sprintf("%.2f has been deducted from your balance", amount), amount, "")
	uc.log.Wallet("balance deducted", "amount", amount, "balance", uc.balance.Balance())
	return true
}

// HasSufficientBalance reports whether the confirmed balance covers amount.
func (uc *CreditsUsecase) HasSufficientBalance(amount float64) bool {
	return uc.balance.Balance() >= amount
}

// CleanupProcessedRequests trims the processed-request set. Returns the
// number of evicted ids.
func (uc *CreditsUsecase) CleanupProcessedRequests() int {
	evicted := uc.processed.Cleanup()
	if evicted > 0 {
		uc.log.Cleanup("processed request set trimmed", "evicted", evicted, "size", uc.processed.Len())
	}
	return evicted
}

// ClearProcessedRequests wipes the processed-request set (logout).
func (uc *CreditsUsecase) ClearProcessedRequests() {
	uc.processed.Clear()
}
