package model

import "time"

// CircuitState represents the current circuit breaker state of a poller
type CircuitState struct {
	IsOpen       bool      `json:"is_open"`
	FailCount    int       `json:"fail_count"`
	LastFailTime time.Time `json:"last_fail_time"`
}
