package health

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/observability"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner evaluates readiness checks in parallel, each under its own
// timeout. Results keep the order the checkers were registered in.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
}

func NewProbeRunner(timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	active := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			active = append(active, c)
		}
	}
	return &ProbeRunner{checkers: active, timeout: timeout}
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	results := make([]CheckResult, len(r.checkers))
	var wg sync.WaitGroup
	for i, c := range r.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			results[i] = c.Check(checkCtx)
		}()
	}
	wg.Wait()

	allHealthy := true
	for _, res := range results {
		status := "ready"
		if !res.Healthy {
			allHealthy = false
			status = "not_ready"
		}
		observability.RecordHealthCheckResult(ctx, res.Name, status)
	}
	return allHealthy, results
}
