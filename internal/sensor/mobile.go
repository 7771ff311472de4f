package sensor

import (
	"context"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TechnologyClassifier maps a fetched page to detected technologies and
// their categories. Implementations must degrade to an empty mapping on
// their own initialization or runtime failure; the Mobile sensor never
// fails because classification is unavailable.
type TechnologyClassifier interface {
	Classify(url string, header http.Header, body string) map[string][]string
}

// AppStoreSearcher looks up a mobile app published for a domain. It returns
// an empty app id when no matching app exists.
type AppStoreSearcher interface {
	Search(ctx context.Context, domain string) (string, error)
}

const defaultStoreTimeout = 5 * time.Second

var mobileSubdomainPattern = regexp.MustCompile(`(?i)^https?://(?:m|mobile|touch)\.`)

var mobilePathConventions = []string{"/mobile/", "/m/", "/amp/"}

var mobileMetaNames = []string{
	"mobile-web-app-capable",
	"apple-mobile-web-app-capable",
	"format-detection",
	"theme-color",
	"application-name",
}

// appLinkSpec ties a platform to its app-link meta names and store hosts.
type appLinkSpec struct {
	Platform  string
	MetaNames []string
	StoreURLs []string
}

var appLinkSpecs = []appLinkSpec{
	{
		Platform:  "ios",
		MetaNames: []string{"apple-itunes-app", "apple-mobile-web-app-title"},
		StoreURLs: []string{"apps.apple.com", "itunes.apple.com"},
	},
	{
		Platform:  "android",
		MetaNames: []string{"google-play-app"},
		StoreURLs: []string{"play.google.com"},
	},
}

var responsiveCSSIndicators = []string{"@media", "max-width", "min-width"}

var mobileStrategies = map[string]Strategy{
	"user_agent": {
		Type:     "mobile_user_agent",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"rotate_devices":   true,
			"platforms":        []string{"ios", "android"},
			"use_real_devices": true,
		},
	},
	"viewport_handling": {
		Type:     "responsive_viewport",
		Priority: PriorityMedium,
		Config: map[string]interface{}{
			"widths":        []int{320, 375, 414, 768},
			"emulate_touch": true,
		},
	},
	"app_deep_linking": {
		Type:     "app_link_handling",
		Priority: PriorityLow,
		Config: map[string]interface{}{
			"extract_app_ids": true,
			"save_deep_links": true,
		},
	},
}

var mobileRecommendations = []string{
	"Use mobile User-Agent strings when needed",
	"Handle responsive layouts appropriately",
	"Extract and store mobile app information",
	"Consider testing with real mobile device profiles",
}

// MobileSensor detects mobile variants and app affordances. Its two
// collaborators fail independently: classification degrades to no
// technologies, and the app-store lookup runs under its own timeout and
// degrades to "no app found".
type MobileSensor struct {
	classifier   TechnologyClassifier
	store        AppStoreSearcher
	storeTimeout time.Duration
}

func NewMobileSensor(classifier TechnologyClassifier, store AppStoreSearcher, storeTimeout time.Duration) *MobileSensor {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &MobileSensor{
		classifier:   classifier,
		store:        store,
		storeTimeout: storeTimeout,
	}
}

func (s *MobileSensor) Key() string        { return KeyMobile }
func (s *MobileSensor) Category() Category { return CategoryFeature }

func (s *MobileSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()
	features := []string{}
	featuresSeen := make(map[string]struct{})
	appLinks := map[string][]string{"ios": {}, "android": {}}
	linksSeen := map[string]map[string]struct{}{
		"ios":     {},
		"android": {},
	}

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	var technologies map[string][]string
	if s.classifier != nil {
		technologies = s.classifier.Classify(raw.URL, raw.Header, raw.Body)
		if frameworks := mobileFrameworks(technologies); len(frameworks) > 0 {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.9)
			features = appendUnique(features, featuresSeen, "mobile_framework")
			res.Evidence = append(res.Evidence, "Detected mobile frameworks: "+strings.Join(frameworks, ", "))
		}
	}

	if s.store != nil {
		if domain := hostOf(raw.URL); domain != "" {
			lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
			appID, err := s.store.Search(lookupCtx, domain)
			cancel()
			switch {
			case err != nil:
				// Lookup failure degrades to "no app found".
				res.Evidence = append(res.Evidence, "Error checking Play Store: "+err.Error())
			case appID != "":
				res.Flag = true
				res.Confidence = max(res.Confidence, 1.0)
				features = appendUnique(features, featuresSeen, "android_app")
				appLinks["android"] = appendUnique(appLinks["android"], linksSeen["android"], appID)
				res.Evidence = append(res.Evidence, "Found Android app: "+appID)
			}
		}
	}

	if vary := raw.HeaderValue("Vary"); strings.Contains(strings.ToLower(vary), "user-agent") {
		res.Flag = true
		res.Confidence = max(res.Confidence, 0.7)
		features = appendUnique(features, featuresSeen, "user_agent_detection")
		res.Evidence = append(res.Evidence, "Found User-Agent variation header")
	}

	if doc.Find(`meta[name="viewport"]`).Length() > 0 {
		res.Flag = true
		res.Confidence = max(res.Confidence, 0.9)
		features = appendUnique(features, featuresSeen, "responsive_design")
		res.Evidence = append(res.Evidence, "Found responsive viewport meta tag")
	}

	for _, name := range mobileMetaNames {
		if doc.Find(`meta[name="`+name+`"]`).Length() > 0 {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.8)
			features = appendUnique(features, featuresSeen, "mobile_optimized")
			res.Evidence = append(res.Evidence, "Found mobile meta tag: "+name)
		}
	}

	for _, spec := range appLinkSpecs {
		for _, name := range spec.MetaNames {
			meta := doc.Find(`meta[name="` + name + `"]`).First()
			if meta.Length() == 0 {
				continue
			}
			content, _ := meta.Attr("content")
			if content == "" {
				continue
			}
			res.Flag = true
			res.Confidence = max(res.Confidence, 1.0)
			features = appendUnique(features, featuresSeen, spec.Platform+"_app")
			appLinks[spec.Platform] = appendUnique(appLinks[spec.Platform], linksSeen[spec.Platform], content)
			res.Evidence = append(res.Evidence, "Found "+spec.Platform+" app meta tag")
		}
		for _, storeURL := range spec.StoreURLs {
			doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
				href, _ := link.Attr("href")
				if !strings.Contains(href, storeURL) {
					return
				}
				res.Flag = true
				res.Confidence = max(res.Confidence, 1.0)
				features = appendUnique(features, featuresSeen, spec.Platform+"_app")
				appLinks[spec.Platform] = appendUnique(appLinks[spec.Platform], linksSeen[spec.Platform], href)
				res.Evidence = append(res.Evidence, "Found "+spec.Platform+" app store link")
			})
		}
	}

	doc.Find("style").Each(func(_ int, style *goquery.Selection) {
		css := style.Text()
		for _, indicator := range responsiveCSSIndicators {
			if strings.Contains(css, indicator) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 0.8)
				features = appendUnique(features, featuresSeen, "responsive_design")
				res.Evidence = append(res.Evidence, "Found responsive CSS: "+indicator)
			}
		}
	})

	if mobileSubdomainPattern.MatchString(raw.URL) {
		res.Flag = true
		res.Confidence = max(res.Confidence, 1.0)
		features = appendUnique(features, featuresSeen, "mobile_subdomain")
		res.Evidence = append(res.Evidence, "Found mobile subdomain")
	}
	for _, path := range mobilePathConventions {
		if strings.Contains(raw.URL, path) {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.9)
			features = appendUnique(features, featuresSeen, "mobile_path")
			res.Evidence = append(res.Evidence, "Found mobile path: "+path)
		}
	}

	extra := map[string]interface{}{
		"mobile_features": features,
		"app_links":       appLinks,
	}
	if len(technologies) > 0 {
		extra["technologies"] = technologies
	}
	res.Extra = extra
	return res
}

func (s *MobileSensor) Mitigation(res Result) Mitigation {
	return Mitigation{
		Strategies:      mobileStrategies,
		Recommendations: mobileRecommendations,
	}
}

// mobileFrameworks returns the technologies carrying a mobile category,
// sorted for deterministic evidence output.
func mobileFrameworks(technologies map[string][]string) []string {
	frameworks := []string{}
	for tech, categories := range technologies {
		for _, category := range categories {
			if strings.Contains(category, "Mobile") {
				frameworks = append(frameworks, tech)
				break
			}
		}
	}
	sort.Strings(frameworks)
	return frameworks
}
