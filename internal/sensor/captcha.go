package sensor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// captchaVendorSpec defines the fingerprints for one CAPTCHA vendor.
type captchaVendorSpec struct {
	Name    string
	Classes []string
	Scripts []string
}

var captchaVendorSpecs = []captchaVendorSpec{
	{
		Name:    "recaptcha",
		Classes: []string{"g-recaptcha", "recaptcha"},
		Scripts: []string{"www.google.com/recaptcha", "recaptcha.net"},
	},
	{
		Name:    "hcaptcha",
		Classes: []string{"h-captcha"},
		Scripts: []string{"hcaptcha.com"},
	},
}

var captchaGenericKeywords = []string{"captcha", "verify human", "prove you are human"}

var captchaStrategies = map[string]Strategy{
	"recaptcha": {
		Type:     "service_required",
		Priority: PriorityHigh,
		Config:   map[string]interface{}{"service": "2captcha/anticaptcha"},
	},
	"hcaptcha": {
		Type:     "service_required",
		Priority: PriorityHigh,
		Config:   map[string]interface{}{"service": "2captcha/anticaptcha"},
	},
	"unknown": {
		Type:     "manual_review",
		Priority: PriorityMedium,
	},
}

var captchaRecommendations = []string{
	"Implement delay between requests",
	"Use rotating proxies",
	"Add human-like browser fingerprints",
}

// CaptchaSensor detects CAPTCHA walls by vendor CSS classes, vendor script
// sources, and generic challenge keywords.
type CaptchaSensor struct{}

func NewCaptchaSensor() *CaptchaSensor { return &CaptchaSensor{} }

func (s *CaptchaSensor) Key() string        { return KeyCaptcha }
func (s *CaptchaSensor) Category() Category { return CategoryRestriction }

func (s *CaptchaSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	for _, vendor := range captchaVendorSpecs {
		for _, class := range vendor.Classes {
			if hasClassContaining(doc, class) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 0.9)
				if res.Category == "" {
					res.Category = vendor.Name
				}
				res.Evidence = append(res.Evidence, "Found "+class+" element")
			}
		}
		for _, script := range vendor.Scripts {
			if hasScriptSourceContaining(doc, script) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 1.0)
				if res.Category == "" {
					res.Category = vendor.Name
				}
				res.Evidence = append(res.Evidence, "Found "+script+" script")
			}
		}
	}

	// Generic keywords never overwrite a vendor-specific category.
	body := strings.ToLower(raw.Body)
	for _, keyword := range captchaGenericKeywords {
		if strings.Contains(body, keyword) {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.7)
			if res.Category == "" {
				res.Category = "unknown"
			}
			res.Evidence = append(res.Evidence, "Found keyword: "+keyword)
		}
	}

	return res
}

func (s *CaptchaSensor) Mitigation(res Result) Mitigation {
	strategies := captchaStrategies
	if st, ok := captchaStrategies[res.Category]; ok {
		strategies = map[string]Strategy{res.Category: st}
	}
	return Mitigation{
		Strategies:      strategies,
		Recommendations: captchaRecommendations,
	}
}

func hasClassContaining(doc *goquery.Document, needle string) bool {
	needle = strings.ToLower(needle)
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		class, _ := sel.Attr("class")
		if strings.Contains(strings.ToLower(class), needle) {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasScriptSourceContaining(doc *goquery.Document, needle string) bool {
	needle = strings.ToLower(needle)
	found := false
	doc.Find("script[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if strings.Contains(strings.ToLower(src), needle) {
			found = true
			return false
		}
		return true
	})
	return found
}
