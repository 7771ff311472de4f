// Package fetch retrieves the raw representation of a URL for profiling.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khanhnv2901/webprof-cli/internal/sensor"
)

const maxBodyBytes = 2 * 1024 * 1024

// Fetcher produces the RawResponse a profiling run works on. Network
// errors are reported to the profiler, which converts them into an empty
// profile rather than propagating them.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*sensor.RawResponse, error)
}

// HTTPFetcher is the production Fetcher. Non-2xx statuses are data, not
// errors: blocked and challenged pages are exactly what the sensors profile.
type HTTPFetcher struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (*sensor.RawResponse, error) {
	full := NormalizeTarget(target)

	client := &http.Client{
		Timeout: f.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
				MinVersion:         tls.VersionTLS12,
			},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", full, err)
	}
	defer resp.Body.Close()

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = maxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", full, err)
	}

	status := resp.StatusCode
	return &sensor.RawResponse{
		URL:        full,
		StatusCode: &status,
		Header:     resp.Header.Clone(),
		Body:       string(body),
	}, nil
}

// NormalizeTarget turns operator input into a fetchable URL. Scheme-less
// targets get https.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") {
		parsed, err = url.Parse("https://" + target)
		if err != nil {
			return target
		}
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String()
}
