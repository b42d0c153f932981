package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// DomainCredibilityInput is the check_domain_credibility argument set.
type DomainCredibilityInput struct {
	URL string `json:"url" jsonschema_description:"Full URL of the article, including scheme."`
}

// Domain classifications.
const (
	ClassCredible   = "credible"
	ClassSuspicious = "suspicious"
	ClassKnownFake  = "known_fake"
	ClassUnknown    = "unknown"
)

// DomainCredibility is the check_domain_credibility result.
type DomainCredibility struct {
	Domain           string `json:"domain"`
	CredibilityScore int    `json:"credibilityScore"`
	Classification   string `json:"classification"`
	Reason           string `json:"reason"`
}

var DomainCredibilityDefinition = Definition{
	Name:        "check_domain_credibility",
	Description: "Score the credibility of the publishing domain of an article URL against known fake and credible source lists and TLD heuristics.",
	InputSchema: GenerateSchema[DomainCredibilityInput](),
	Function: func(_ context.Context, input json.RawMessage) (any, error) {
		in, err := decode[DomainCredibilityInput](input)
		if err != nil {
			return nil, err
		}
		if err := requireString("url", in.URL); err != nil {
			return nil, err
		}
		return CheckDomainCredibility(in.URL), nil
	},
}

var suspiciousDomainPattern = regexp.MustCompile(`(?i)news|breaking|real|truth|expose|alert|urgent|warn`)

// CheckDomainCredibility scores the host of rawURL. Unparseable URLs score 0.
func CheckDomainCredibility(rawURL string) DomainCredibility {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return DomainCredibility{
			Domain:         "unknown",
			Classification: ClassUnknown,
			Reason:         "Invalid URL format",
		}
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if IsKnownFakeDomain(domain) {
		return DomainCredibility{
			Domain:           domain,
			CredibilityScore: 5,
			Classification:   ClassKnownFake,
			Reason:           "Domain is in known fake news list",
		}
	}
	if IsKnownCredibleDomain(domain) {
		return DomainCredibility{
			Domain:           domain,
			CredibilityScore: 95,
			Classification:   ClassCredible,
			Reason:           "Domain is in known credible sources list",
		}
	}

	score := 50
	tld := domain[strings.LastIndex(domain, ".")+1:]
	switch tld {
	case "gov", "edu", "org":
		score += 20
	case "net", "biz", "xyz", "info":
		score -= 10
	}
	if suspiciousDomainPattern.MatchString(domain) {
		score -= 15
	}

	res := DomainCredibility{Domain: domain, CredibilityScore: max(0, min(100, score))}
	switch {
	case score > 70:
		res.Classification = ClassCredible
		res.Reason = "Domain appears to be from a credible source"
	case score > 40:
		res.Classification = ClassSuspicious
		res.Reason = "Domain shows characteristics of unreliable source"
	default:
		res.Classification = ClassUnknown
		res.Reason = "Domain credibility is unknown or mixed"
	}
	return res
}
