// Package service exposes the portal REST API over the biz layer.
package service

import (
	"context"

	"CreditPulse/internal/biz"
	"CreditPulse/internal/server/middleware"
	pkglog "CreditPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewPortalService)

// PortalService implements the account portal REST API: authentication,
// wallet, notifications, profile and purchase history.
type PortalService struct {
	sessions *biz.SessionUsecase
	log      *pkglog.LogHelper
}

// NewPortalService creates the portal service.
func NewPortalService(sessions *biz.SessionUsecase, logger log.Logger) *PortalService {
	return &PortalService{
		sessions: sessions,
		log:      pkglog.NewLogHelper(logger),
	}
}

// RegisterRoutes mounts the portal API on the HTTP server.
func (s *PortalService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/api/v1")

	r.POST("/auth/login", s.Login)
	r.POST("/auth/attach", s.Attach)
	r.POST("/auth/logout", s.Logout)

	r.GET("/wallet/balance", s.Balance)
	r.POST("/wallet/topup", s.TopUp)
	r.POST("/wallet/deduct", s.Deduct)
	r.GET("/wallet/notifications", s.Notifications)

	r.POST("/profile/sync", s.SyncProfile)
	r.GET("/orders", s.Orders)
	r.GET("/payments", s.Payments)
}

// session resolves the bearer token carried by the request context into a
// live session, mapping a miss to a 401.
func (s *PortalService) session(ctx context.Context) (*biz.Session, error) {
	token := middleware.TokenFromContext(ctx)
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("SESSION_NOT_FOUND", "no active session for token")
	}
	return sess, nil
}
