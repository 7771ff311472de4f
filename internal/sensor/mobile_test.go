package sensor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type stubClassifier struct {
	technologies map[string][]string
}

func (c *stubClassifier) Classify(url string, header http.Header, body string) map[string][]string {
	return c.technologies
}

type stubStore struct {
	appID    string
	err      error
	gotCtx   context.Context
	searched string
}

func (s *stubStore) Search(ctx context.Context, domain string) (string, error) {
	s.gotCtx = ctx
	s.searched = domain
	return s.appID, s.err
}

func TestMobileDetectViewportMeta(t *testing.T) {
	s := NewMobileSensor(nil, nil, 0)
	raw := rawHTML(`<html><head><meta name="viewport" content="width=device-width"></head><body></body></html>`)

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected mobile flag for viewport meta")
	}
	if res.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", res.Confidence)
	}
	features := res.Extra["mobile_features"].([]string)
	if len(features) != 1 || features[0] != "responsive_design" {
		t.Errorf("expected [responsive_design], got %v", features)
	}
}

func TestMobileDetectFrameworksFromClassifier(t *testing.T) {
	classifier := &stubClassifier{technologies: map[string][]string{
		"React Native": {"Mobile frameworks"},
		"Nginx":        {"Web servers"},
	}}
	s := NewMobileSensor(classifier, nil, 0)
	raw := rawHTML(`<html><body></body></html>`)

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected mobile flag for mobile framework")
	}
	if res.Evidence[0] != "Detected mobile frameworks: React Native" {
		t.Errorf("unexpected evidence: %q", res.Evidence[0])
	}
	if _, ok := res.Extra["technologies"]; !ok {
		t.Error("expected technologies in extra")
	}
}

func TestMobileStoreLookupFindsApp(t *testing.T) {
	store := &stubStore{appID: "com.example.shop"}
	s := NewMobileSensor(nil, store, time.Second)
	raw := &RawResponse{URL: "https://example.com/", Body: "<html><body></body></html>"}

	res := s.Detect(context.Background(), raw)

	if store.searched != "example.com" {
		t.Errorf("expected lookup for example.com, got %q", store.searched)
	}
	if _, ok := store.gotCtx.Deadline(); !ok {
		t.Error("store lookup must run under a deadline")
	}
	if res.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for published app, got %v", res.Confidence)
	}
	links := res.Extra["app_links"].(map[string][]string)
	if len(links["android"]) != 1 || links["android"][0] != "com.example.shop" {
		t.Errorf("expected android app link, got %v", links)
	}
}

func TestMobileStoreLookupFailureDegrades(t *testing.T) {
	store := &stubStore{err: errors.New("store unreachable")}
	s := NewMobileSensor(nil, store, time.Second)
	raw := &RawResponse{URL: "https://example.com/", Body: "<html><body></body></html>"}

	res := s.Detect(context.Background(), raw)

	if res.Flag {
		t.Error("a failed store lookup must not flag")
	}
	if len(res.Evidence) != 1 || res.Evidence[0] != "Error checking Play Store: store unreachable" {
		t.Errorf("expected degradation evidence, got %v", res.Evidence)
	}
}

func TestMobileDetectAppStoreLinks(t *testing.T) {
	s := NewMobileSensor(nil, nil, 0)
	raw := rawHTML(`<html><body>
		<a href="https://apps.apple.com/app/id12345">App Store</a>
		<a href="https://play.google.com/store/apps/details?id=com.example.app">Play Store</a>
	</body></html>`)

	res := s.Detect(context.Background(), raw)

	if res.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for store links, got %v", res.Confidence)
	}
	links := res.Extra["app_links"].(map[string][]string)
	if len(links["ios"]) != 1 || len(links["android"]) != 1 {
		t.Errorf("expected one link per platform, got %v", links)
	}
}

func TestMobileDetectSubdomainAndPath(t *testing.T) {
	s := NewMobileSensor(nil, nil, 0)
	raw := &RawResponse{URL: "https://m.example.com/amp/story", Body: "<html><body></body></html>"}

	res := s.Detect(context.Background(), raw)

	features := res.Extra["mobile_features"].([]string)
	want := map[string]bool{"mobile_subdomain": true, "mobile_path": true}
	if len(features) != 2 {
		t.Fatalf("expected subdomain and path features, got %v", features)
	}
	for _, f := range features {
		if !want[f] {
			t.Errorf("unexpected feature %q", f)
		}
	}
	if res.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for mobile subdomain, got %v", res.Confidence)
	}
}

func TestMobileResponsiveCSS(t *testing.T) {
	s := NewMobileSensor(nil, nil, 0)
	raw := rawHTML(`<html><head><style>@media (max-width: 600px) { body { font-size: 14px; } }</style></head><body></body></html>`)

	res := s.Detect(context.Background(), raw)

	if !res.Flag {
		t.Fatal("expected mobile flag for responsive CSS")
	}
	if res.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", res.Confidence)
	}
}

func TestMobileNoSignalsKeepsExtraShape(t *testing.T) {
	s := NewMobileSensor(nil, nil, 0)
	res := s.Detect(context.Background(), rawHTML(`<html><body><p>desktop only</p></body></html>`))

	if res.Flag {
		t.Error("expected no mobile detection")
	}
	features := res.Extra["mobile_features"].([]string)
	if len(features) != 0 {
		t.Errorf("expected empty features, got %v", features)
	}
	links := res.Extra["app_links"].(map[string][]string)
	if len(links["ios"]) != 0 || len(links["android"]) != 0 {
		t.Errorf("expected empty app links, got %v", links)
	}
}
