// Package health tracks the dependencies the service needs to be ready.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultCheckTimeout bounds a single health check
const defaultCheckTimeout = 2 * time.Second

// Checker is a dependency that can report its health
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

// HealthCheck implements Checker
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

type entry struct {
	checker  Checker
	required bool
}

// Result is the outcome of one check
type Result struct {
	Err      error
	Required bool
}

// Registry manages health checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]entry
	timeout  time.Duration
}

// NewRegistry creates a new health registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]entry),
		timeout:  defaultCheckTimeout,
	}
}

// Register adds a checker. A failing required checker makes the service not ready.
func (r *Registry) Register(name string, checker Checker, required bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = entry{checker: checker, required: required}
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// List returns all registered checker names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll runs every checker concurrently, each under its own timeout
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checkers := make(map[string]entry, len(r.checkers))
	for name, e := range r.checkers {
		checkers[name] = e
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]Result, len(checkers))

	var g errgroup.Group
	for name, e := range checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			err := e.checker.HealthCheck(checkCtx)

			mu.Lock()
			results[name] = Result{Err: err, Required: e.required}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Ready reports whether every required check passed
func Ready(results map[string]Result) bool {
	for _, res := range results {
		if res.Required && res.Err != nil {
			return false
		}
	}
	return true
}
