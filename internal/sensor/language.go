package sensor

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// knownLanguages is the closed set the Language sensor recognizes.
var knownLanguages = map[string]string{
	"ar": "Arabic",
	"fr": "French",
	"en": "English",
	"es": "Spanish",
	"de": "German",
	"zh": "Chinese",
}

var languageHeaderNames = []string{"Content-Language", "Accept-Language"}

var languageHTMLAttrs = []string{"lang", "xml:lang", "data-lang"}

var languageMetaNames = []string{"language", "content-language", "og:locale", "dc.language"}

var languageParamPattern = regexp.MustCompile(`[?&](?:lang|locale)=(\w+)`)

// languageLinkPatterns maps each known language code to a matcher for
// switcher links: /xx/ path segments or lang=/locale= query values.
var languageLinkPatterns = buildLanguageLinkPatterns()

func buildLanguageLinkPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(knownLanguages))
	for code := range knownLanguages {
		patterns[code] = regexp.MustCompile(`(?i)(?:/` + code + `(?:/|$)|[?&](?:lang|locale)=` + code + `\b)`)
	}
	return patterns
}

var languageStrategies = map[string]Strategy{
	"header_modification": {
		Type:     "request_headers",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"accept-language":  "en-US,en;q=0.9,ar;q=0.8,fr;q=0.7",
			"content-language": "en-US",
		},
	},
	"url_handling": {
		Type:     "url_parameters",
		Priority: PriorityMedium,
		Config: map[string]interface{}{
			"append_language":     true,
			"default_language":    "en",
			"supported_languages": sortedLanguageCodes(),
		},
	},
	"cookie_management": {
		Type:     "language_cookies",
		Priority: PriorityLow,
		Config: map[string]interface{}{
			"set_language_cookie": true,
			"cookie_name":         "preferred_language",
			"cookie_value":        "en",
		},
	},
}

var languageRecommendations = []string{
	"Set appropriate Accept-Language header",
	"Handle language-specific redirects",
	"Maintain consistent language preferences across sessions",
	"Consider using translation services if needed",
}

// LanguageSensor detects a site's language settings from headers, HTML
// attributes, meta tags, switcher links, and the URL itself. Each source is
// evaluated independently; a source overwrites the detected language only
// when its confidence is strictly higher.
type LanguageSensor struct{}

func NewLanguageSensor() *LanguageSensor { return &LanguageSensor{} }

func (s *LanguageSensor) Key() string        { return KeyLanguage }
func (s *LanguageSensor) Category() Category { return CategoryFeature }

func (s *LanguageSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()

	detected := ""
	detectedConf := 0.0
	redirect := false
	available := []string{}
	availableSeen := make(map[string]struct{})

	record := func(code string, conf float64, evidence string) {
		if conf > detectedConf {
			detected = code
			detectedConf = conf
		}
		res.Confidence = max(res.Confidence, conf)
		res.Evidence = append(res.Evidence, evidence)
	}

	for _, name := range languageHeaderNames {
		value := raw.HeaderValue(name)
		if value == "" {
			continue
		}
		code := strings.ToLower(strings.SplitN(strings.TrimSpace(strings.SplitN(value, ",", 2)[0]), "-", 2)[0])
		if code != "" {
			record(code, 0.9, "Found language in header: "+code)
		}
	}

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	html := doc.Find("html").First()
	for _, attr := range languageHTMLAttrs {
		value, ok := html.Attr(attr)
		if !ok {
			continue
		}
		code := strings.ToLower(strings.SplitN(value, "-", 2)[0])
		if name, known := knownLanguages[code]; known {
			record(code, 1.0, "Found language in HTML "+attr+": "+name)
		}
	}

	doc.Find("meta").Each(func(_ int, meta *goquery.Selection) {
		for _, attr := range []string{"name", "property", "http-equiv"} {
			metaName, _ := meta.Attr(attr)
			metaName = strings.ToLower(metaName)
			if metaName == "" {
				continue
			}
			for _, pattern := range languageMetaNames {
				if !strings.Contains(metaName, pattern) {
					continue
				}
				content, _ := meta.Attr("content")
				code := strings.ToLower(strings.SplitN(content, "-", 2)[0])
				if name, known := knownLanguages[code]; known {
					record(code, 0.8, "Found language in meta tag: "+name)
				}
			}
		}
	})

	codes := sortedLanguageCodes()
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		for _, code := range codes {
			if !languageLinkPatterns[code].MatchString(href) {
				continue
			}
			if _, dup := availableSeen[code]; dup {
				continue
			}
			available = appendUnique(available, availableSeen, code)
			res.Confidence = max(res.Confidence, 0.7)
			res.Evidence = append(res.Evidence, "Found language option: "+knownLanguages[code])
		}
	})

	lowerURL := strings.ToLower(raw.URL)
	for _, code := range codes {
		if strings.Contains(lowerURL, "/"+code+"/") {
			redirect = true
			record(code, 0.9, "Found language in URL path: "+knownLanguages[code])
		}
	}

	if m := languageParamPattern.FindStringSubmatch(raw.URL); m != nil {
		code := strings.ToLower(m[1])
		if name, known := knownLanguages[code]; known {
			record(code, 0.8, "Found language in URL parameter: "+name)
		}
	}

	res.Flag = detected != "" || len(available) > 0
	if res.Flag {
		res.Category = detected
		res.Extra = map[string]interface{}{
			"detected_language":     detected,
			"available_languages":   available,
			"has_language_redirect": redirect,
		}
	}
	return res
}

func (s *LanguageSensor) Mitigation(res Result) Mitigation {
	return Mitigation{
		Strategies:      languageStrategies,
		Recommendations: languageRecommendations,
	}
}

func sortedLanguageCodes() []string {
	codes := make([]string, 0, len(knownLanguages))
	for code := range knownLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
