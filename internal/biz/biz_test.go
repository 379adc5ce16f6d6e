package biz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"CreditPulse/internal/conf"
	"CreditPulse/internal/data"
	pkglog "CreditPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

func testLogger() *pkglog.LogHelper {
	return pkglog.NewLogHelper(log.NewStdLogger(io.Discard))
}

// testBackend spins up a fake commerce backend and returns a client bound to it.
func testBackend(t *testing.T, handler http.HandlerFunc) *data.BackendClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return data.NewBackendClient(&conf.Backend{BaseURL: srv.URL, DefaultLocale: "en"}, log.NewStdLogger(io.Discard))
}
