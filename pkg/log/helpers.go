package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper extends the Kratos log.Helper with domain-specific convenience
// methods. Each method attaches a "type" field which drives the emoji mapping
// in the EmojiConsoleEncoder.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper creates an enhanced log helper
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

// API logs portal API activity (emoji: 🔗)
func (h *LogHelper) API(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "api")
	h.Infow(allKvs...)
}

// Auth logs authentication activity (emoji: 🔓)
func (h *LogHelper) Auth(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "auth")
	h.Infow(allKvs...)
}

// Request logs an HTTP request (emoji derived from status code)
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%s)", method, url, status, formatDuration(durationMs))
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// Success logs a successful operation (emoji: ✅)
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "success")
	h.Infow(allKvs...)
}

// Redis logs session cache activity (emoji: 📦)
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "redis")
	h.Debugw(allKvs...)
}

// Backend logs remote commerce backend calls (emoji: 🛒)
func (h *LogHelper) Backend(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "backend")
	h.Debugw(allKvs...)
}

// Poller logs notification poller activity (emoji: 📡)
func (h *LogHelper) Poller(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "poller")
	h.Infow(allKvs...)
}

// Wallet logs balance and credit activity (emoji: 💰)
func (h *LogHelper) Wallet(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "wallet")
	h.Infow(allKvs...)
}

// Session logs session lifecycle activity (emoji: 👤)
func (h *LogHelper) Session(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "session")
	h.Infow(allKvs...)
}

// Notification logs user-visible notification activity (emoji: 🔔)
func (h *LogHelper) Notification(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "notification")
	h.Debugw(allKvs...)
}

// Breaker logs circuit breaker transitions (emoji: 🚦)
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "breaker")
	h.Warnw(allKvs...)
}

// Scheduler logs cron/maintenance activity (emoji: 🎯)
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "scheduler")
	h.Infow(allKvs...)
}

// Startup logs startup activity (emoji: 🚀)
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "startup")
	h.Infow(allKvs...)
}

// Cleanup logs memory-bound maintenance activity (emoji: 🧹)
func (h *LogHelper) Cleanup(msg string, kvs ...interface{}) {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "type", "cleanup")
	h.Debugw(allKvs...)
}

// SlowRequest logs a slow request warning (emoji: 🐌)
// threshold: slow request threshold in milliseconds
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"session_id", reqCtx.SessionID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
	h.Warnw(allKvs...)
}

// RequestWithContext logs an HTTP request with Context tracing.
// It extracts the request ID from the Context and detects slow requests.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"request_id", reqCtx.RequestID,
		"session_id", reqCtx.SessionID,
		"user_id", reqCtx.UserID,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)

	// Slow request detection (threshold 1000ms)
	if durationMs > 1000 {
		h.SlowRequest(ctx, method, url, durationMs, 1000)
	}
}

// AuthWithDuration logs an authenticated request with timing (convenience)
func (h *LogHelper) AuthWithDuration(sessionID, userID string, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("Authenticated request for session %s (user %s) in %dms", sessionID, userID, durationMs)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs, "session_id", sessionID, "user_id", userID, "duration_ms", durationMs, "type", "auth")
	h.Infow(allKvs...)
}

// CacheStats logs processed-set statistics (emoji: 🧹)
func (h *LogHelper) CacheStats(cacheName string, size, maxSize, evictions int64, kvs ...interface{}) {
	msg := fmt.Sprintf("Cache stats - %s | Size: %d/%d, Evictions: %d",
		cacheName, size, maxSize, evictions)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"cache_name", cacheName,
		"size", size,
		"max_size", maxSize,
		"evictions", evictions,
		"type", "cleanup",
	)
	h.Infow(allKvs...)
}
