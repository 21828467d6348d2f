package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the aggregate or per-check health state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check probes one dependency. A failing critical check makes the whole
// service unhealthy; a failing non-critical one only degrades it.
type Check struct {
	Name     string
	Probe    func(context.Context) error
	Timeout  time.Duration
	Critical bool
}

// Checker runs registered checks on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		started: time.Now(),
	}
}

var defaultChecker = NewChecker()

// Health returns the process-wide checker used by the HTTP handlers.
func Health() *Checker { return defaultChecker }

// Register adds or replaces a check under its name.
func (c *Checker) Register(check Check) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	c.mu.Lock()
	c.checks[check.Name] = check
	c.mu.Unlock()
}

// Result is the outcome of a single check.
type Result struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Report aggregates all check results.
type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]Result `json:"checks,omitempty"`
}

// Run executes every registered check and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Checks:    make(map[string]Result, len(checks)),
	}

	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Checks[check.Name] = result

		switch result.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func runCheck(ctx context.Context, check Check) Result {
	ctx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() { errCh <- check.Probe(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	result := Result{
		Status:   StatusHealthy,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Error = err.Error()
		if check.Critical {
			result.Status = StatusUnhealthy
		} else {
			result.Status = StatusDegraded
		}
	}
	return result
}

// HealthHandler reports the full check breakdown. Degraded still returns
// 200 so load balancers keep routing; only unhealthy returns 503.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Health().Run(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler answers 200 whenever the process can serve HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler answers 200 only while every check passes.
func ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Health().Run(r.Context())

		w.Header().Set("Content-Type", "application/json")
		status := "ready"
		if report.Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			status = "not ready"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// StoreCheck probes a checkpoint store with a cheap read. Critical: a
// server that cannot reach its store cannot resume threads.
func StoreCheck(probe func(context.Context) error) Check {
	return Check{
		Name:     "checkpoint_store",
		Probe:    probe,
		Timeout:  5 * time.Second,
		Critical: true,
	}
}

// ProviderCheck probes an LLM provider endpoint. Non-critical: runs
// against other providers can still proceed.
func ProviderCheck(name string, probe func(context.Context) error) Check {
	return Check{
		Name:     "provider_" + name,
		Probe:    probe,
		Timeout:  10 * time.Second,
		Critical: false,
	}
}
