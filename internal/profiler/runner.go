package profiler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AuditFunc is a callback invoked once per analyzed target.
type AuditFunc func(target string, profile *Profile, duration float64) error

// Runner executes profiling runs against multiple targets with a worker
// pool and a global rate limit.
type Runner struct {
	Concurrency int           // Maximum number of concurrent analyze calls
	RateLimit   int           // Requests per second (global)
	Timeout     time.Duration // Timeout for each analyze call
}

// Run profiles every target and returns the profiles in target order.
func (r *Runner) Run(ctx context.Context, targets []string, p *Profiler, auditFn AuditFunc) []*Profile {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := r.RateLimit
	if limit <= 0 {
		limit = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit), limit)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	profiles := make([]*Profile, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			_ = limiter.Wait(ctx)

			start := time.Now()

			analyzeCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				analyzeCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			profile := p.Analyze(analyzeCtx, t)
			profiles[idx] = profile

			if auditFn != nil {
				_ = auditFn(t, profile, time.Since(start).Seconds())
			}
		}(i, target)
	}

	wg.Wait()
	return profiles
}
