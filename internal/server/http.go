// Package server assembles the portal HTTP server.
package server

import (
	"CreditPulse/internal/conf"
	"CreditPulse/internal/server/middleware"
	"CreditPulse/internal/service"
	pkglog "CreditPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, portal *service.PortalService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
		http.Filter(
			middleware.Logging(logHelper),
			middleware.Auth(logHelper),
		),
	}
	if c.Server.Http.Network != "" {
		opts = append(opts, http.Network(c.Server.Http.Network))
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	if c.Server.Http.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Server.Http.Timeout))
	}
	srv := http.NewServer(opts...)

	portal.RegisterRoutes(srv)

	return srv
}
