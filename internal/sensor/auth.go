package sensor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var loginFormActionKeywords = []string{"login", "signin", "auth", "authenticate"}

var credentialInputTypes = map[string]struct{}{
	"text":     {},
	"password": {},
	"email":    {},
}

var loginButtonLabels = []string{"login", "sign in", "submit"}

var oauthProviders = []string{"google", "facebook", "twitter", "github"}

var oauthLinkPatterns = []string{"login/oauth", "oauth/login"}

var tokenHeaderNames = []string{"Authorization", "Token"}

var authStrategies = map[string]Strategy{
	"login_form": {
		Type:     "submit_form",
		Priority: PriorityMedium,
		Config:   map[string]interface{}{"method": "POST"},
	},
	"oauth": {
		Type:     "external_service",
		Priority: PriorityHigh,
	},
	"http_basic": {
		Type:     "basic_auth",
		Priority: PriorityMedium,
	},
	"token_based": {
		Type:     "bearer_token",
		Priority: PriorityHigh,
	},
}

var authRecommendations = []string{
	"Use secure and valid credentials",
	"Handle redirects properly",
	"Ensure secure HTTPS browsing",
}

// AuthSensor detects authentication gates: login forms, OAuth affordances,
// HTTP Basic challenges, and token-based schemes.
//
// Unlike the other sensors its confidence is count-based: 0.3 per distinct
// auth type detected, capped at 1.0.
type AuthSensor struct{}

func NewAuthSensor() *AuthSensor { return &AuthSensor{} }

func (s *AuthSensor) Key() string        { return KeyAuth }
func (s *AuthSensor) Category() Category { return CategoryFeature }

func (s *AuthSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()
	types := []string{}
	seen := make(map[string]struct{})

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	if detectLoginForm(doc) {
		types = appendUnique(types, seen, "login_form")
		res.Evidence = append(res.Evidence, "Found login form")
	}

	for _, provider := range detectOAuthProviders(doc) {
		types = appendUnique(types, seen, "oauth")
		res.Evidence = append(res.Evidence, "Found OAuth provider: "+provider)
	}

	if detectHTTPBasic(raw) {
		types = appendUnique(types, seen, "http_basic")
		res.Evidence = append(res.Evidence, "Found HTTP Basic Auth")
	}

	if detectTokenHeader(raw) {
		types = appendUnique(types, seen, "token_based")
		res.Evidence = append(res.Evidence, "Found token-based authentication")
	}

	if len(types) > 0 {
		res.Flag = true
		res.Category = types[0]
		res.Confidence = round2(min(1.0, 0.3*float64(len(types))))
		res.Extra = map[string]interface{}{"auth_types": types}
	}
	return res
}

func (s *AuthSensor) Mitigation(res Result) Mitigation {
	strategies := authStrategies
	if types, ok := res.Extra["auth_types"].([]string); ok && len(types) > 0 {
		strategies = make(map[string]Strategy, len(types))
		for _, t := range types {
			if st, known := authStrategies[t]; known {
				strategies[t] = st
			}
		}
	}
	return Mitigation{
		Strategies:      strategies,
		Recommendations: authRecommendations,
	}
}

// detectLoginForm looks for a POST/GET form whose action matches an auth
// keyword and which carries both credential inputs and a submit control.
func detectLoginForm(doc *goquery.Document) bool {
	found := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		method, _ := form.Attr("method")
		method = strings.ToLower(method)
		if method != "post" && method != "get" {
			return true
		}

		action, _ := form.Attr("action")
		action = strings.ToLower(action)
		matched := false
		for _, keyword := range loginFormActionKeywords {
			if strings.Contains(action, keyword) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		hasInput := false
		form.Find("input").Each(func(_ int, input *goquery.Selection) {
			typ, _ := input.Attr("type")
			if _, ok := credentialInputTypes[strings.ToLower(typ)]; ok {
				hasInput = true
			}
		})

		hasSubmit := form.Find(`button[type="submit"], input[type="submit"]`).Length() > 0
		if !hasSubmit {
			form.Find(`input[type="button"]`).Each(func(_ int, input *goquery.Selection) {
				value, _ := input.Attr("value")
				value = strings.ToLower(value)
				for _, label := range loginButtonLabels {
					if value == label {
						hasSubmit = true
					}
				}
			})
		}

		if hasInput && hasSubmit {
			found = true
			return false
		}
		return true
	})
	return found
}

func detectOAuthProviders(doc *goquery.Document) []string {
	providers := []string{}
	seen := make(map[string]struct{})

	for _, provider := range oauthProviders {
		matched := false
		doc.Find("button[class], a[class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			class, _ := sel.Attr("class")
			if strings.Contains(strings.ToLower(class), provider) {
				matched = true
				return false
			}
			return true
		})
		if !matched {
			doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				href, _ := sel.Attr("href")
				if strings.Contains(strings.ToLower(href), provider) {
					matched = true
					return false
				}
				return true
			})
		}
		if matched {
			providers = appendUnique(providers, seen, provider)
		}
	}

	// Provider-agnostic OAuth endpoints still signal an OAuth affordance.
	if len(providers) == 0 {
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			lower := strings.ToLower(href)
			for _, pattern := range oauthLinkPatterns {
				if strings.Contains(lower, pattern) {
					providers = appendUnique(providers, seen, "generic")
					return false
				}
			}
			return true
		})
	}
	return providers
}

func detectHTTPBasic(raw *RawResponse) bool {
	if raw.StatusCode == nil || *raw.StatusCode != 401 {
		return false
	}
	challenge := strings.ToLower(raw.HeaderValue("WWW-Authenticate"))
	return strings.Contains(challenge, "basic")
}

func detectTokenHeader(raw *RawResponse) bool {
	for _, name := range tokenHeaderNames {
		if raw.HeaderValue(name) != "" {
			return true
		}
	}
	return false
}
