package service

import (
	"time"

	"CreditPulse/internal/biz"
	"CreditPulse/internal/model"
	pkgerrors "CreditPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

type balanceReply struct {
	Balance          float64                `json:"balance"`
	ProjectedBalance float64                `json:"projected_balance"`
	Pending          []model.PendingRequest `json:"pending_requests"`
	Updating         bool                   `json:"updating"`
	LastUpdated      time.Time              `json:"last_updated"`
	Poller           biz.PollerStatus       `json:"poller"`
}

// Balance returns the session's wallet state: confirmed balance, projected
// balance, pending requests and poller health.
func (s *PortalService) Balance(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	pending := sess.Balance.PendingRequests()
	if pending == nil {
		pending = []model.PendingRequest{}
	}
	return ctx.Result(200, &balanceReply{
		Balance:          sess.Balance.Balance(),
		ProjectedBalance: sess.Balance.ProjectedBalance(),
		Pending:          pending,
		Updating:         sess.Balance.Updating(),
		LastUpdated:      sess.Balance.LastUpdated(),
		Poller:           sess.Poller.Status(),
	})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type topUpReply struct {
	RequestID        string  `json:"request_id"`
	Status           string  `json:"status"`
	ProjectedBalance float64 `json:"projected_balance"`
}

// TopUp submits a credit top-up to the backend and records it as pending.
// The confirmed balance does not move until the poller sees the approval.
func (s *PortalService) TopUp(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	var req amountRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "malformed top-up request")
	}
	if req.Amount <= 0 {
		return errors.BadRequest("INVALID_AMOUNT", "amount must be positive")
	}

	requestID, err := s.sessions.SubmitTopUp(ctx, sess, req.Amount)
	if err != nil {
		if pkgerrors.IsUnauthorized(err) {
			return errors.Unauthorized("SESSION_EXPIRED", "backend rejected the session token")
		}
		return backendUnavailable(err)
	}

	s.log.Wallet("top-up submitted", "session_id", sess.ID, "request_id", requestID, "amount", req.Amount)
	return ctx.Result(200, &topUpReply{
		RequestID:        requestID,
		Status:           model.StatusPending,
		ProjectedBalance: sess.Balance.ProjectedBalance(),
	})
}

type deductReply struct {
	Balance float64 `json:"balance"`
}

// Deduct spends from the confirmed balance, e.g. for a credits purchase.
// Pending amounts are never spendable.
func (s *PortalService) Deduct(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	var req amountRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "malformed deduct request")
	}
	if req.Amount <= 0 {
		return errors.BadRequest("INVALID_AMOUNT", "amount must be positive")
	}

	if !sess.Credits.DeductFromBalance(req.Amount) {
		return errors.New(402, "INSUFFICIENT_BALANCE", "confirmed balance does not cover the amount")
	}

	return ctx.Result(200, &deductReply{Balance: sess.Balance.Balance()})
}

// Notifications returns the session's notification feed, newest first.
func (s *PortalService) Notifications(ctx khttp.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	items := sess.Notifications.List()
	if items == nil {
		items = []model.Notification{}
	}
	return ctx.Result(200, items)
}
