// Package appstore looks up published mobile apps for a domain.
package appstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultSearchURL = "https://play.google.com/store/search"
	maxSearchBody    = 1024 * 1024
)

// appDetailPattern extracts the app id from a Play Store listing link.
var appDetailPattern = regexp.MustCompile(`/store/apps/details\?id=([\w.]+)`)

// Client searches the Google Play Store for an app matching a domain.
// The profiler gives each Search call its own deadline; the embedded
// HTTP client timeout is a backstop.
type Client struct {
	SearchURL string
	Timeout   time.Duration
	UserAgent string
}

// Search returns the app id of a Play Store listing whose detail link
// mentions the domain, or "" when no matching app is listed.
func (c *Client) Search(ctx context.Context, domain string) (string, error) {
	base := c.SearchURL
	if base == "" {
		base = defaultSearchURL
	}
	searchURL := fmt.Sprintf("%s?q=%s&c=apps", base, url.QueryEscape(domain))

	client := &http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("create store request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("store search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return "", fmt.Errorf("read store response: %w", err)
	}

	lowerDomain := strings.ToLower(domain)
	for _, match := range appDetailPattern.FindAllStringSubmatch(string(body), -1) {
		if strings.Contains(strings.ToLower(match[0]), lowerDomain) || strings.Contains(strings.ToLower(match[1]), appIDFragment(lowerDomain)) {
			return match[1], nil
		}
	}
	return "", nil
}

// appIDFragment guesses the package-name fragment a domain would use:
// "example.com" apps are typically published as com.example.something.
func appIDFragment(domain string) string {
	host := strings.TrimPrefix(domain, "www.")
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	return parts[len(parts)-1] + "." + parts[len(parts)-2]
}
