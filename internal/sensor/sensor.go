package sensor

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Category routes a sensor's result into the profile.
type Category int

const (
	// CategoryRestriction marks findings that represent an access obstacle
	// (CAPTCHA walls, anti-bot defenses, JS-rendering requirements).
	CategoryRestriction Category = iota
	// CategoryFeature marks findings that represent a site capability
	// (API surface, language options, mobile variants, auth mechanisms).
	CategoryFeature
)

func (c Category) String() string {
	if c == CategoryRestriction {
		return "restriction"
	}
	return "feature"
}

// RawResponse is the immutable fetched representation of a URL consumed by
// all sensors. Header access is case-insensitive via http.Header. StatusCode
// is nil when the fetch never produced a response.
type RawResponse struct {
	URL        string
	StatusCode *int
	Header     http.Header
	Body       string
}

// HeaderValue returns the first value for the named header, case-insensitively.
func (r *RawResponse) HeaderValue(name string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(name)
}

// Result is a sensor's scored, evidenced finding for one RawResponse.
// It is created fresh per Detect call and never mutated after return.
type Result struct {
	Flag       bool                   `json:"flag"`
	Category   string                 `json:"category,omitempty"`
	Confidence float64                `json:"confidence"`
	Evidence   []string               `json:"evidence"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Priority ranks a mitigation strategy.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Strategy describes one mitigation a crawler can apply.
type Strategy struct {
	Type     string                 `json:"type"`
	Priority Priority               `json:"priority"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// Mitigation is a sensor-owned recommendation structure for handling a
// detected condition. It is pure lookup output with no per-call state.
type Mitigation struct {
	Strategies      map[string]Strategy `json:"strategies"`
	Recommendations []string            `json:"recommendations"`
}

// Sensor is the capability contract shared by the seven detectors.
//
// Detect inspects one RawResponse and must never panic or fail: internal
// errors degrade to a zero-confidence Result carrying the cause as evidence.
// Mitigation is a pure lookup on fixed tables, parameterized by the Result;
// sensors with result-independent tables simply ignore the argument.
type Sensor interface {
	Key() string
	Category() Category
	Detect(ctx context.Context, raw *RawResponse) Result
	Mitigation(res Result) Mitigation
}

func newResult() Result {
	return Result{Evidence: []string{}}
}

// errorResult converts an internal sensor failure into the neutral
// "not detected" outcome, preserving the cause in the evidence channel.
func errorResult(err error) Result {
	return Result{Evidence: []string{"Error processing response: " + err.Error()}}
}

func parseDocument(raw *RawResponse) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(raw.Body))
}

// appendUnique keeps list as an insertion-ordered deduplicated sequence.
func appendUnique(list []string, seen map[string]struct{}, v string) []string {
	if _, ok := seen[v]; ok {
		return list
	}
	seen[v] = struct{}{}
	return append(list, v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
