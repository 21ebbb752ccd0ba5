package health

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusOK        = "ok"
	StatusError     = "error"
)

// Health runs registered checkers concurrently and caches the aggregate
// briefly so probes under load do not stampede the database.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	cacheMu     sync.Mutex
	cached      *Result
	cacheExpiry time.Time
	cacheTTL    time.Duration

	checkTimeout time.Duration
	now          func() time.Time
}

// Result is the aggregated readiness result.
type Result struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is one component's result.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// New creates a Health with a 5 second check timeout and a 1 second cache.
func New() *Health {
	return NewWithConfig(5*time.Second, time.Second)
}

// NewWithConfig creates a Health with explicit timeout and cache TTL.
// A zero TTL disables caching.
func NewWithConfig(checkTimeout, cacheTTL time.Duration) *Health {
	return &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: checkTimeout,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

// RegisterChecker registers checker under name, replacing any previous one.
func (h *Health) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	h.checkers[name] = checker
	h.mu.Unlock()
	h.ClearCache()
}

// Check returns the aggregated result, from cache when it is fresh.
func (h *Health) Check(ctx context.Context) *Result {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	if h.cached != nil && h.now().Before(h.cacheExpiry) {
		return h.cached
	}

	h.cached = h.run(ctx)
	h.cacheExpiry = h.now().Add(h.cacheTTL)
	return h.cached
}

// ClearCache forces the next Check to run every checker.
func (h *Health) ClearCache() {
	h.cacheMu.Lock()
	h.cached = nil
	h.cacheMu.Unlock()
}

func (h *Health) run(ctx context.Context) *Result {
	h.mu.RLock()
	checkers := maps.Clone(h.checkers)
	h.mu.RUnlock()

	result := &Result{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(checkers))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
			defer cancel()

			cr := CheckResult{Status: StatusOK}
			if err := checker.Check(checkCtx); err != nil {
				cr = CheckResult{Status: StatusError, Message: err.Error()}
			}

			mu.Lock()
			result.Checks[name] = cr
			if cr.Status != StatusOK {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}
