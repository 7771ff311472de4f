package sensor

import (
	"fmt"
	"time"
)

// Sensor keys. The set is closed: the profiler routes and serializes results
// under these names and downstream crawl-strategy logic depends on them.
const (
	KeyCaptcha    = "captcha"
	KeyAntiBot    = "antibot"
	KeyJavaScript = "javascript"
	KeyAuth       = "auth"
	KeyLanguage   = "language"
	KeyAPI        = "api"
	KeyMobile     = "mobile"
)

// RegistryOptions carries the collaborators consumed by the Mobile sensor.
// Both may be nil; the sensor degrades to "not detected" without them.
type RegistryOptions struct {
	Classifier   TechnologyClassifier
	Store        AppStoreSearcher
	StoreTimeout time.Duration
}

// NewRegistry builds the fixed sensor set. The registry is created once at
// profiler construction and is read-only thereafter; a duplicate key is a
// programming error and fails construction.
func NewRegistry(opts RegistryOptions) ([]Sensor, error) {
	sensors := []Sensor{
		NewCaptchaSensor(),
		NewAntiBotSensor(),
		NewJavaScriptSensor(),
		NewAuthSensor(),
		NewLanguageSensor(),
		NewAPISensor(),
		NewMobileSensor(opts.Classifier, opts.Store, opts.StoreTimeout),
	}

	seen := make(map[string]struct{}, len(sensors))
	for _, s := range sensors {
		if _, dup := seen[s.Key()]; dup {
			return nil, fmt.Errorf("duplicate sensor key %q", s.Key())
		}
		seen[s.Key()] = struct{}{}
	}
	return sensors, nil
}
