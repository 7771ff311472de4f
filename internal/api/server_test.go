package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khanhnv2901/webprof-cli/internal/profiler"
)

type stubProfileService struct {
	lastTarget string
}

func (s *stubProfileService) Analyze(ctx context.Context, target string) *profiler.Profile {
	s.lastTarget = target
	return &profiler.Profile{URL: target}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body)
	}
}

func TestProfileEndpoint(t *testing.T) {
	svc := &stubProfileService{}
	srv := NewServer(Config{Profiles: svc})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile", strings.NewReader(`{"url":"https://example.com/"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastTarget != "https://example.com/" {
		t.Errorf("expected analyze call for target, got %q", svc.lastTarget)
	}
	var profile profiler.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.URL != "https://example.com/" {
		t.Errorf("unexpected profile URL %q", profile.URL)
	}
}

func TestProfileEndpointRejectsMissingURL(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile", strings.NewReader(`{"url":"  "}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProfileEndpointRejectsGet(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestAuthTokenRequired(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}, AuthToken: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Auth-Token", "secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}, RateLimit: 1, RateBurst: 1})

	var lastCode int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		lastCode = rec.Code
	}
	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", lastCode)
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	srv := NewServer(Config{Profiles: &stubProfileService{}, CORSOrigins: []string{"https://ui.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/profile", nil)
	req.Header.Set("Origin", "https://ui.example")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin must get no CORS header, got %q", got)
	}
}

func TestProfileEndpointWithoutService(t *testing.T) {
	srv := NewServer(Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile", strings.NewReader(`{"url":"https://example.com/"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
