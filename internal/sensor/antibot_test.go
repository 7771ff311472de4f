package sensor

import (
	"context"
	"net/http"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestAntiBotDetectVendorHeader(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:    "https://example.com/",
		Header: http.Header{"Cf-Ray": []string{"8a1b2c3d4e5f"}},
		Body:   "<html><body>ok</body></html>",
	}

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected anti-bot flag for CF-Ray header")
	}
	if res.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", res.Confidence)
	}
	types, ok := res.Extra["protection_types"].([]string)
	if !ok {
		t.Fatalf("expected protection_types []string, got %T", res.Extra["protection_types"])
	}
	if len(types) != 1 || types[0] != "Cloudflare" {
		t.Errorf("expected [Cloudflare], got %v", types)
	}
}

func TestAntiBotDetectServerVendor(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:    "https://example.com/",
		Header: http.Header{"Server": []string{"Akamai GHost"}},
	}

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected anti-bot flag for akamai server header")
	}
	types := res.Extra["protection_types"].([]string)
	if len(types) != 1 || types[0] != "akamai" {
		t.Errorf("expected [akamai], got %v", types)
	}
}

func TestAntiBotDetectBlockingStatus(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:        "https://example.com/",
		StatusCode: intPtr(429),
	}

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected anti-bot flag for 429")
	}
	if res.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", res.Confidence)
	}
	if res.Evidence[0] != "Response code 429: Too Many Requests" {
		t.Errorf("unexpected evidence: %q", res.Evidence[0])
	}
}

func TestAntiBotDetectContentPhrase(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:  "https://example.com/",
		Body: "<html><body><h1>Access Denied</h1><p>Suspicious activity from your IP.</p></body></html>",
	}

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected anti-bot flag for content phrase")
	}
	if res.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7, got %v", res.Confidence)
	}
	types := res.Extra["protection_types"].([]string)
	if len(types) != 1 || types[0] != "Content Protection" {
		t.Errorf("content matches must dedupe to one protection type, got %v", types)
	}
}

func TestAntiBotSignalsCombine(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:        "https://example.com/",
		StatusCode: intPtr(403),
		Header:     http.Header{"Cf-Ray": []string{"abc"}},
		Body:       "bot detected",
	}

	res := s.Detect(context.Background(), raw)

	if res.Confidence != 0.9 {
		t.Errorf("strongest signal should win, got %v", res.Confidence)
	}
	types := res.Extra["protection_types"].([]string)
	if len(types) != 3 {
		t.Errorf("expected 3 distinct protection types, got %v", types)
	}
}

func TestAntiBotCleanResponse(t *testing.T) {
	s := NewAntiBotSensor()
	raw := &RawResponse{
		URL:        "https://example.com/",
		StatusCode: intPtr(200),
		Body:       "<html><body>welcome</body></html>",
	}

	res := s.Detect(context.Background(), raw)

	if res.Flag {
		t.Error("expected no anti-bot signals on a clean response")
	}
	if res.Extra != nil {
		t.Errorf("no Extra expected without findings, got %v", res.Extra)
	}
}

func TestAntiBotMitigationTable(t *testing.T) {
	s := NewAntiBotSensor()
	m := s.Mitigation(Result{Flag: true})
	for _, key := range []string{"proxy_rotation", "request_delay", "browser_fingerprint"} {
		if _, ok := m.Strategies[key]; !ok {
			t.Errorf("missing strategy %q", key)
		}
	}
	if len(m.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}
