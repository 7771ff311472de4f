package sensor

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var xhrHeaderNames = []string{"X-Requested-With"}

var httpClientCallPatterns = []string{"XMLHttpRequest", "fetch(", "axios", "$http", "$.ajax"}

var graphqlIndicators = []string{"graphql", "__schema"}

// apiEndpointPattern matches quoted endpoint-like path literals in scripts,
// e.g. "/api/users" or '/v2/search'.
var apiEndpointPattern = regexp.MustCompile(`["'](/(?:api|v[0-9]+)/[^"']+)["']`)

// apiURLPathSpec maps an API flavor to the URL path prefixes that reveal it.
type apiURLPathSpec struct {
	Name  string
	Paths []string
}

var apiURLPathSpecs = []apiURLPathSpec{
	{Name: "rest", Paths: []string{"/api/", "/rest/", "/v1/", "/v2/", "/graphql"}},
	{Name: "documentation", Paths: []string{"/docs", "/swagger", "/api-docs", "/redoc"}},
}

var apiStrategies = map[string]Strategy{
	"authentication": {
		Type:     "api_auth",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"auth_methods": []string{"bearer", "api_key", "oauth"},
			"retry_on_401": true,
		},
	},
	"rate_limiting": {
		Type:     "request_throttling",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"max_requests":   100,
			"time_window":    60,
			"backoff_factor": 2,
		},
	},
	"documentation": {
		Type:     "api_docs_extraction",
		Priority: PriorityMedium,
		Config: map[string]interface{}{
			"save_swagger":      true,
			"extract_endpoints": true,
		},
	},
}

var apiRecommendations = []string{
	"Implement proper API authentication",
	"Respect rate limits and implement backoff",
	"Extract and save API documentation if available",
	"Consider using dedicated API clients for different API types",
}

// APISensor detects API surface exposed by a page: XHR headers, HTTP-client
// calls and endpoint literals in scripts, GraphQL indicators, and API-shaped
// URL paths. Discovered endpoints are collected in insertion order.
type APISensor struct{}

func NewAPISensor() *APISensor { return &APISensor{} }

func (s *APISensor) Key() string        { return KeyAPI }
func (s *APISensor) Category() Category { return CategoryFeature }

func (s *APISensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()
	apiTypes := []string{}
	typesSeen := make(map[string]struct{})
	endpoints := []string{}
	endpointsSeen := make(map[string]struct{})

	for _, name := range xhrHeaderNames {
		if raw.HeaderValue(name) != "" {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.8)
			apiTypes = appendUnique(apiTypes, typesSeen, "xhr")
			res.Evidence = append(res.Evidence, "Found API header: "+name)
		}
	}

	doc, err := parseDocument(raw)
	if err != nil {
		return errorResult(err)
	}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		script := sel.Text()
		if script == "" {
			return
		}
		for _, pattern := range httpClientCallPatterns {
			if strings.Contains(script, pattern) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 0.7)
				apiTypes = appendUnique(apiTypes, typesSeen, "xhr")
				res.Evidence = append(res.Evidence, "Found "+pattern+" usage")
			}
		}
		for _, match := range apiEndpointPattern.FindAllStringSubmatch(script, -1) {
			endpoint := match[1]
			if _, dup := endpointsSeen[endpoint]; dup {
				continue
			}
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.9)
			apiTypes = appendUnique(apiTypes, typesSeen, "rest")
			endpoints = appendUnique(endpoints, endpointsSeen, endpoint)
			res.Evidence = append(res.Evidence, "Found API endpoint: "+endpoint)
		}
	})

	body := strings.ToLower(raw.Body)
	for _, indicator := range graphqlIndicators {
		if strings.Contains(body, indicator) {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.8)
			apiTypes = appendUnique(apiTypes, typesSeen, "graphql")
			res.Evidence = append(res.Evidence, "Found GraphQL indicator: "+indicator)
		}
	}

	lowerURL := strings.ToLower(raw.URL)
	for _, spec := range apiURLPathSpecs {
		for _, path := range spec.Paths {
			if strings.Contains(lowerURL, path) {
				res.Flag = true
				res.Confidence = max(res.Confidence, 0.9)
				apiTypes = appendUnique(apiTypes, typesSeen, spec.Name)
				res.Evidence = append(res.Evidence, "URL contains "+spec.Name+" path: "+path)
			}
		}
	}

	if res.Flag {
		res.Extra = map[string]interface{}{
			"api_types": apiTypes,
			"endpoints": endpoints,
		}
	}
	return res
}

func (s *APISensor) Mitigation(res Result) Mitigation {
	return Mitigation{
		Strategies:      apiStrategies,
		Recommendations: apiRecommendations,
	}
}
