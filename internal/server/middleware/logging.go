package middleware

import (
	"net/http"
	"strings"
	"time"

	pkglog "CreditPulse/pkg/log"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// statusWriter captures the response status code for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Logging logs every portal request with a request ID, client IP, duration
// and status, and flags slow requests.
//
// Example output:
//
//	🌐 POST /api/v1/wallet/topup - 200 (42ms) | RequestID: mgrn0zfqda
//	🐌 [mgrn0zfqda] Slow request detected | GET /api/v1/orders | 1438ms
func Logging(logger *pkglog.LogHelper) khttp.FilterFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}
			ctx := pkglog.WithRequestContext(r.Context(), requestID, "", "", "")
			r = r.WithContext(ctx)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			sw.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path = path + "?" + r.URL.RawQuery
			}
			logger.RequestWithContext(ctx, r.Method, path, sw.status, time.Since(start).Milliseconds(),
				"ip", clientIP(r),
				"user_agent", r.Header.Get("User-Agent"),
			)
		})
	}
}

// clientIP extracts the client IP: X-Real-IP > X-Forwarded-For > RemoteAddr.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
