package sensor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var noscriptWarnings = []string{
	"javascript is required",
	"enable javascript",
	"js is required",
}

var dynamicAttributePrefixes = []string{"onclick", "onload", "onchange", "data-react", "ng-", "v-"}

var jsFrameworks = []string{"react", "angular", "vue", "jquery"}

var jsStrategies = map[string]Strategy{
	"headless_browser": {
		Type:     "puppeteer/selenium",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"wait_for_network_idle": true,
			"timeout":               30000,
		},
	},
	"js_rendering": {
		Type:     "prerender_service",
		Priority: PriorityMedium,
		Config: map[string]interface{}{
			"options": []string{"rendertron", "prerender.io"},
		},
	},
}

var jsRecommendations = []string{
	"Use headless browser with JavaScript enabled",
	"Implement wait conditions for dynamic content",
	"Consider using a pre-rendering service",
}

// JavaScriptSensor detects pages that require JavaScript rendering:
// noscript warnings, dynamic-content DOM attributes, and framework scripts.
type JavaScriptSensor struct{}

func NewJavaScriptSensor() *JavaScriptSensor { return &JavaScriptSensor{} }

func (s *JavaScriptSensor) Key() string        { return KeyJavaScript }
func (s *JavaScriptSensor) Category() Category { return CategoryRestriction }

func (s *JavaScriptSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()
	features := []string{}
	seen := make(map[string]struct{})

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	doc.Find("noscript").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(sel.Text())
		for _, warning := range noscriptWarnings {
			if strings.Contains(text, warning) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 0.9)
				res.Evidence = append(res.Evidence, "Found noscript warning: "+warning)
			}
		}
	})

	matched := make(map[string]struct{})
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			for _, attr := range node.Attr {
				for _, prefix := range dynamicAttributePrefixes {
					if strings.HasPrefix(attr.Key, prefix) {
						matched[prefix] = struct{}{}
					}
				}
			}
		}
	})
	for _, prefix := range dynamicAttributePrefixes {
		if _, ok := matched[prefix]; ok {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.8)
			features = appendUnique(features, seen, "dynamic_attribute:"+prefix)
			res.Evidence = append(res.Evidence, "Found dynamic attribute: "+prefix)
		}
	}

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, framework := range jsFrameworks {
			if strings.Contains(lower, framework) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 1.0)
				features = appendUnique(features, seen, "framework:"+framework)
				res.Evidence = append(res.Evidence, "Found "+framework+" framework")
			}
		}
	})

	if len(features) > 0 {
		res.Extra = map[string]interface{}{"js_features": features}
	}
	return res
}

func (s *JavaScriptSensor) Mitigation(res Result) Mitigation {
	return Mitigation{
		Strategies:      jsStrategies,
		Recommendations: jsRecommendations,
	}
}
