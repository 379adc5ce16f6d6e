// Package biz holds the business logic: the per-session balance and
// notification state, the idempotent credits façade, the notification
// poller with its circuit breaker, and the session manager that ties
// them together.
package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewSessionUsecase)
