// Package profiler runs every registered sensor against one fetched
// resource and aggregates the findings into a Profile.
package profiler

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webprof-cli/internal/fetch"
	"github.com/khanhnv2901/webprof-cli/internal/sensor"
)

// Profile is the aggregated, confidence-scored output of one analyze call.
// Field names and nesting are a compatibility surface consumed by
// downstream crawl-strategy logic.
type Profile struct {
	URL               string                       `json:"url"`
	StatusCode        *int                         `json:"status_code"`
	Headers           map[string]string            `json:"headers"`
	Restrictions      map[string]sensor.Result     `json:"restrictions"`
	Features          map[string]sensor.Result     `json:"features"`
	Mitigations       map[string]sensor.Mitigation `json:"mitigations"`
	OverallConfidence float64                      `json:"overall_confidence"`
	AnalyzedAt        time.Time                    `json:"analyzed_at"`
}

// Profiler owns a fixed sensor registry and a fetch collaborator. It is
// safe for concurrent Analyze calls: sensors hold only immutable
// configuration and every call works on its own RawResponse.
type Profiler struct {
	fetcher fetch.Fetcher
	sensors []sensor.Sensor
	logger  *zap.Logger
}

// New builds a Profiler over the given fetcher and sensor registry. The
// logger is the diagnostics sink for non-fatal failures; its lifecycle is
// owned by the caller.
func New(fetcher fetch.Fetcher, sensors []sensor.Sensor, logger *zap.Logger) (*Profiler, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("profiler requires a fetcher")
	}
	if len(sensors) == 0 {
		return nil, fmt.Errorf("profiler requires at least one sensor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{fetcher: fetcher, sensors: sensors, logger: logger}, nil
}

type sensorOutcome struct {
	key      string
	category sensor.Category
	result   sensor.Result
	panicked bool
}

// Analyze fetches the target and fans every sensor out against the same
// RawResponse. It never returns an error: a fetch failure yields a Profile
// with a nil status code and empty maps, and a sensor that panics despite
// its own internal guard contributes nothing.
func (p *Profiler) Analyze(ctx context.Context, target string) *Profile {
	profile := &Profile{
		URL:          target,
		Headers:      map[string]string{},
		Restrictions: map[string]sensor.Result{},
		Features:     map[string]sensor.Result{},
		Mitigations:  map[string]sensor.Mitigation{},
		AnalyzedAt:   time.Now().UTC(),
	}

	raw, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		p.logger.Warn("fetch_failed",
			zap.String("target", target),
			zap.Error(err),
		)
		return profile
	}

	profile.URL = raw.URL
	profile.StatusCode = raw.StatusCode
	for name := range raw.Header {
		profile.Headers[name] = raw.Header.Get(name)
	}

	outcomes := make(chan sensorOutcome, len(p.sensors))
	for _, s := range p.sensors {
		go p.runSensor(ctx, s, raw, outcomes)
	}

	restrictionTotal := 0.0
	restrictionCount := 0
	for range p.sensors {
		outcome := <-outcomes
		if outcome.panicked {
			continue
		}
		if outcome.category == sensor.CategoryRestriction {
			profile.Restrictions[outcome.key] = outcome.result
			restrictionTotal += outcome.result.Confidence
			restrictionCount++
		} else {
			profile.Features[outcome.key] = outcome.result
		}
	}

	if restrictionCount > 0 {
		profile.OverallConfidence = round2(restrictionTotal / float64(restrictionCount))
	}

	for _, s := range p.sensors {
		res, ok := profile.Restrictions[s.Key()]
		if !ok {
			res, ok = profile.Features[s.Key()]
		}
		if !ok || !res.Flag {
			continue
		}
		profile.Mitigations[s.Key()] = s.Mitigation(res)
	}

	return profile
}

// runSensor executes one sensor, recovering panics so a misbehaving sensor
// can never take down an analyze call.
func (p *Profiler) runSensor(ctx context.Context, s sensor.Sensor, raw *sensor.RawResponse, out chan<- sensorOutcome) {
	outcome := sensorOutcome{key: s.Key(), category: s.Category()}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("sensor_panic",
				zap.String("sensor", s.Key()),
				zap.Any("panic", r),
			)
			outcome.panicked = true
		}
		out <- outcome
	}()

	start := time.Now()
	outcome.result = s.Detect(ctx, raw)
	p.logger.Debug("sensor_done",
		zap.String("sensor", s.Key()),
		zap.Bool("flag", outcome.result.Flag),
		zap.Float64("confidence", outcome.result.Confidence),
		zap.Duration("duration", time.Since(start)),
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
