// Package health runs named subsystem checks for the /health endpoint.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// Checker reports on one subsystem. A non-nil error marks it unhealthy;
// detail is shown either way.
type Checker func(ctx context.Context) (detail string, err error)

// Status is the outcome of one check.
type Status struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	Detail    string  `json:"detail,omitempty"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latencyMs"`
}

// Registry holds checks in registration order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	checks  map[string]Checker
	timeout time.Duration
}

// NewRegistry creates an empty registry. A zero timeout means DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{checks: make(map[string]Checker), timeout: timeout}
}

// Register adds a check. Registering a name again replaces its check.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checks[name]; !ok {
		r.names = append(r.names, name)
	}
	r.checks[name] = check
}

// CheckAll runs every check concurrently, each under its own timeout.
// Statuses come back in registration order.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	names := append([]string(nil), r.names...)
	checks := make([]Checker, len(names))
	for i, n := range names {
		checks[i] = r.checks[n]
	}
	r.mu.RUnlock()

	statuses = make([]Status, len(names))
	var g errgroup.Group
	for i := range names {
		g.Go(func() error {
			statuses[i] = r.run(ctx, names[i], checks[i])
			return nil
		})
	}
	_ = g.Wait()

	healthy = true
	for _, st := range statuses {
		healthy = healthy && st.Healthy
	}
	return healthy, statuses
}

func (r *Registry) run(ctx context.Context, name string, check Checker) Status {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	detail, err := check(ctx)
	st := Status{
		Name:      name,
		Healthy:   err == nil,
		Detail:    detail,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Response is the body returned by the health endpoint.
type Response struct {
	Status    string   `json:"status"`
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Checks    []Status `json:"checks,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Handler serves GET /health. Any failing check answers 503 "degraded".
func (r *Registry) Handler(service, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy, statuses := r.CheckAll(c.Request.Context())

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, Response{
			Status:    status,
			Service:   service,
			Version:   version,
			Checks:    statuses,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
