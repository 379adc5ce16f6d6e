package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// contextKey is a private key type for storing RequestContext
type contextKey string

const requestContextKey contextKey = "creditpulse_request_context"

// RequestContext carries request tracing information across functions and
// modules via Context.
type RequestContext struct {
	RequestID string                 // short 10-char request ID, e.g. mgrn0zfqda
	SessionID string                 // portal session identifier
	UserID    string                 // customer ID from the backend profile
	Locale    string                 // session locale (en/ar)
	StartTime time.Time              // request start time
	Metadata  map[string]interface{} // extension metadata
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 character set (lowercase letters + digits)
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID generates a 10-char random request ID.
// Format: lowercase letters + digits, e.g. mgrn0zfqda.
// base36 keeps this cheaper than a UUID.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext injects a RequestContext into the Context.
// Usually called from middleware to provide tracing for the whole request
// lifecycle.
func WithRequestContext(ctx context.Context, requestID, sessionID, userID, locale string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		SessionID: sessionID,
		UserID:    userID,
		Locale:    locale,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext extracts the RequestContext from a Context.
// Returns a default empty RequestContext when absent.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{
			RequestID: "unknown",
			Metadata:  make(map[string]interface{}),
		}
	}

	if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}

	return &RequestContext{
		RequestID: "unknown",
		Metadata:  make(map[string]interface{}),
	}
}

// GetRequestID extracts the request ID from a Context.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetSessionID extracts the session ID from a Context.
func GetSessionID(ctx context.Context) string {
	return GetRequestContext(ctx).SessionID
}

// GetUserID extracts the customer ID from a Context.
func GetUserID(ctx context.Context) string {
	return GetRequestContext(ctx).UserID
}

// GetElapsedTime returns the elapsed request time in milliseconds.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
