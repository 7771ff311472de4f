package profiler

import (
	"context"
	"sync"
	"testing"

	"github.com/khanhnv2901/webprof-cli/internal/sensor"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *countingFetcher) Fetch(ctx context.Context, target string) (*sensor.RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.mu.Unlock()
	return &sensor.RawResponse{URL: target, Body: "<html><body>ok</body></html>"}, nil
}

func TestRunnerPreservesTargetOrder(t *testing.T) {
	fetcher := &countingFetcher{}
	p, err := New(fetcher, []sensor.Sensor{
		&stubSensor{key: "captcha", category: sensor.CategoryRestriction},
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	targets := []string{
		"https://a.example/",
		"https://b.example/",
		"https://c.example/",
	}
	runner := &Runner{Concurrency: 2, RateLimit: 100}

	profiles := runner.Run(context.Background(), targets, p, nil)

	if len(profiles) != len(targets) {
		t.Fatalf("expected %d profiles, got %d", len(targets), len(profiles))
	}
	for i, target := range targets {
		if profiles[i] == nil {
			t.Fatalf("profile %d is nil", i)
		}
		if profiles[i].URL != target {
			t.Errorf("profile %d: expected %q, got %q", i, target, profiles[i].URL)
		}
	}

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.calls) != len(targets) {
		t.Errorf("expected %d fetches, got %d", len(targets), len(fetcher.calls))
	}
}

func TestRunnerInvokesAuditCallback(t *testing.T) {
	p, _ := New(&countingFetcher{}, []sensor.Sensor{
		&stubSensor{key: "captcha", category: sensor.CategoryRestriction},
	}, nil)

	var mu sync.Mutex
	audited := map[string]bool{}
	auditFn := func(target string, profile *Profile, duration float64) error {
		mu.Lock()
		defer mu.Unlock()
		if profile == nil {
			t.Error("audit callback received nil profile")
		}
		if duration < 0 {
			t.Errorf("negative duration %v", duration)
		}
		audited[target] = true
		return nil
	}

	runner := &Runner{Concurrency: 1, RateLimit: 100}
	targets := []string{"https://a.example/", "https://b.example/"}
	runner.Run(context.Background(), targets, p, auditFn)

	mu.Lock()
	defer mu.Unlock()
	for _, target := range targets {
		if !audited[target] {
			t.Errorf("audit callback not invoked for %s", target)
		}
	}
}

func TestRunnerDefaultsProtectAgainstZeroValues(t *testing.T) {
	p, _ := New(&countingFetcher{}, []sensor.Sensor{
		&stubSensor{key: "captcha", category: sensor.CategoryRestriction},
	}, nil)

	runner := &Runner{}
	profiles := runner.Run(context.Background(), []string{"https://a.example/"}, p, nil)

	if len(profiles) != 1 || profiles[0] == nil {
		t.Fatal("zero-valued runner must still profile")
	}
}
