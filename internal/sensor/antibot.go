package sensor

import (
	"context"
	"fmt"
	"strings"
)

// antiBotHeaderSpec matches one vendor protection header. When Values is
// empty, header presence alone is the signal.
type antiBotHeaderSpec struct {
	Header     string
	Values     []string
	Protection string
}

var antiBotHeaderSpecs = []antiBotHeaderSpec{
	{Header: "CF-Ray", Protection: "Cloudflare"},
	{Header: "Server", Values: []string{"cloudflare", "akamai", "incapsula"}},
	{Header: "X-Bot-Protection", Protection: "Generic bot protection"},
	{Header: "X-FW-Protection", Protection: "Firewall protection"},
}

var antiBotStatusCodes = map[int]string{
	403: "Forbidden",
	429: "Too Many Requests",
	503: "Service Unavailable",
}

var antiBotContentPhrases = []string{
	"automated access",
	"bot detected",
	"suspicious activity",
	"access denied",
	"rate limit exceeded",
	"ip blocked",
}

var antiBotStrategies = map[string]Strategy{
	"proxy_rotation": {
		Type:     "rotating_proxies",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"rotation_interval": "5-10 minutes",
			"proxy_types":       []string{"residential", "datacenter"},
		},
	},
	"request_delay": {
		Type:     "dynamic_delay",
		Priority: PriorityHigh,
		Config: map[string]interface{}{
			"min_delay":     2,
			"max_delay":     10,
			"random_factor": true,
		},
	},
	"browser_fingerprint": {
		Type:     "fingerprint_rotation",
		Priority: PriorityMedium,
		Config: map[string]interface{}{
			"rotate_user_agents": true,
			"mimic_real_browser": true,
		},
	},
}

var antiBotRecommendations = []string{
	"Implement exponential backoff for rate limits",
	"Use residential proxies for better success rate",
	"Rotate browser fingerprints regularly",
	"Consider using specialized anti-bot bypass services",
}

// AntiBotSensor detects anti-bot measures via vendor headers, blocking
// status codes, and challenge phrases in the body.
type AntiBotSensor struct{}

func NewAntiBotSensor() *AntiBotSensor { return &AntiBotSensor{} }

func (s *AntiBotSensor) Key() string        { return KeyAntiBot }
func (s *AntiBotSensor) Category() Category { return CategoryRestriction }

func (s *AntiBotSensor) Detect(ctx context.Context, raw *RawResponse) Result {
	res := newResult()
	protections := []string{}
	seen := make(map[string]struct{})

	for _, spec := range antiBotHeaderSpecs {
		value := raw.HeaderValue(spec.Header)
		if value == "" {
			continue
		}
		if len(spec.Values) > 0 {
			lower := strings.ToLower(value)
			for _, vendor := range spec.Values {
				if strings.Contains(lower, vendor) {
					res.Flag = true
					res.Confidence = max(res.Confidence, 0.9)
					protections = append(protections, vendor)
					res.Evidence = append(res.Evidence, "Found "+vendor+" protection header")
				}
			}
			continue
		}
		res.Flag = true
		res.Confidence = max(res.Confidence, 0.9)
		protections = append(protections, spec.Protection)
		res.Evidence = append(res.Evidence, "Found "+spec.Protection+" header")
	}

	if raw.StatusCode != nil {
		if reason, ok := antiBotStatusCodes[*raw.StatusCode]; ok {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.8)
			protections = append(protections, fmt.Sprintf("Status %d", *raw.StatusCode))
			res.Evidence = append(res.Evidence, fmt.Sprintf("Response code %d: %s", *raw.StatusCode, reason))
		}
	}

	body := strings.ToLower(raw.Body)
	for _, phrase := range antiBotContentPhrases {
		if strings.Contains(body, phrase) {
			res.Flag = true
			res.Confidence = max(res.Confidence, 0.7)
			protections = append(protections, "Content Protection")
			res.Evidence = append(res.Evidence, "Found anti-bot message: "+phrase)
		}
	}

	if res.Flag {
		deduped := []string{}
		for _, p := range protections {
			deduped = appendUnique(deduped, seen, p)
		}
		res.Extra = map[string]interface{}{"protection_types": deduped}
	}
	return res
}

func (s *AntiBotSensor) Mitigation(res Result) Mitigation {
	return Mitigation{
		Strategies:      antiBotStrategies,
		Recommendations: antiBotRecommendations,
	}
}
