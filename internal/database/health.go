package database

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports readiness of the backing stores.
type HealthChecker struct {
	checks map[string]func(ctx context.Context) error
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]func(ctx context.Context) error)}
}

// Add registers a named check.
func (h *HealthChecker) Add(name string, check func(ctx context.Context) error) {
	h.checks[name] = check
}

// AddPinger registers a store exposing Ping.
func (h *HealthChecker) AddPinger(name string, p Pinger) {
	h.Add(name, p.Ping)
}

// Check runs every registered check with a shared timeout and returns
// "ok" or the error text per check. healthy is false if any check failed.
func (h *HealthChecker) Check(ctx context.Context) (status map[string]string, healthy bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status = make(map[string]string, len(h.checks))
	healthy = true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	return status, healthy
}
