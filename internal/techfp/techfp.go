// Package techfp classifies the technologies behind a fetched page using
// wappalyzer fingerprints. It exists so the Mobile sensor can depend on a
// narrow interface instead of the fingerprinting library.
package techfp

import (
	"fmt"
	"net/http"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

// Client wraps the wappalyzer fingerprint engine. A nil Client is valid
// and classifies everything as unknown, so callers can wire it
// unconditionally even when initialization failed.
type Client struct {
	engine *wappalyzer.Wappalyze
}

// New compiles the embedded fingerprint set.
func New() (*Client, error) {
	engine, err := wappalyzer.New()
	if err != nil {
		return nil, fmt.Errorf("initialize wappalyzer: %w", err)
	}
	return &Client{engine: engine}, nil
}

// Classify maps the response to technology name -> categories. It degrades to
// an empty mapping when the engine is unavailable; it never fails.
func (c *Client) Classify(url string, header http.Header, body string) map[string][]string {
	if c == nil || c.engine == nil {
		return map[string][]string{}
	}

	fingerprints := c.engine.FingerprintWithInfo(header, []byte(body))
	technologies := make(map[string][]string, len(fingerprints))
	for tech, info := range fingerprints {
		technologies[tech] = info.Categories
	}
	return technologies
}
