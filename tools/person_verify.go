package tools

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/petasbytes/newsverify/internal/safety"
)

// PersonVerifyInput is the verify_person_statement argument set.
type PersonVerifyInput struct {
	PersonName string `json:"personName" jsonschema_description:"Person or organisation the statement is attributed to."`
	Statement  string `json:"statement" jsonschema_description:"The attributed statement, verbatim if possible."`
	Context    string `json:"context,omitempty" jsonschema_description:"Optional surrounding context."`
}

// Person verdicts. PersonFabricated is part of the vocabulary but the
// verifier never has enough evidence to emit it.
const (
	PersonVerified   = "VERIFIED"
	PersonUnverified = "UNVERIFIED"
	PersonFabricated = "FABRICATED"
)

// OfficialSource is one page checked for the statement.
type OfficialSource struct {
	URL   string `json:"url"`
	Found bool   `json:"found"`
}

// PersonVerification is the verify_person_statement result.
type PersonVerification struct {
	Verified        bool             `json:"verified"`
	Confidence      int              `json:"confidence"`
	OfficialSources []OfficialSource `json:"officialSources"`
	Verdict         string           `json:"verdict"`
	Explanation     string           `json:"explanation"`
}

// PersonOptions configures the verifier. Zero fields take defaults.
type PersonOptions struct {
	HTTPClient *http.Client
	// Policy guards every outbound URL; nil means the default URLPolicy.
	Policy     *safety.URLPolicy
	Timeout    time.Duration // per fetch, default 5s
	Delay      time.Duration // between fetches, default 1s
	MaxSources int           // default 3
	BodyLimit  int64         // bytes read per page, default 5000
	// Sources overrides the curated person -> pages table.
	Sources map[string][]string
}

const (
	personUserAgent    = "newsverify/1.0 (+statement verification)"
	personMaxRedirects = 5
)

// PersonVerifier checks attributed statements against official pages.
type PersonVerifier struct {
	client     *http.Client
	policy     safety.URLPolicy
	timeout    time.Duration
	delay      time.Duration
	maxSources int
	bodyLimit  int64
	sources    map[string][]string
}

// NewPersonVerifier applies defaults to opts.
func NewPersonVerifier(opts PersonOptions) *PersonVerifier {
	v := &PersonVerifier{
		timeout:    cmp.Or(opts.Timeout, 5*time.Second),
		delay:      cmp.Or(opts.Delay, time.Second),
		maxSources: cmp.Or(opts.MaxSources, 3),
		bodyLimit:  cmp.Or(opts.BodyLimit, 5000),
		sources:    officialSources,
	}
	if opts.Policy != nil {
		v.policy = *opts.Policy
	}
	v.client = v.policy.GuardClient(opts.HTTPClient, personMaxRedirects)
	if opts.Sources != nil {
		v.sources = make(map[string][]string, len(opts.Sources))
		for k, s := range opts.Sources {
			v.sources[strings.ToLower(strings.TrimSpace(k))] = s
		}
	}
	return v
}

// PersonVerifyDefinition binds verify_person_statement to v.
func PersonVerifyDefinition(v *PersonVerifier) Definition {
	return Definition{
		Name:        "verify_person_statement",
		Description: "Check whether a statement attributed to a public person or organisation appears on their official pages.",
		InputSchema: GenerateSchema[PersonVerifyInput](),
		Function: func(ctx context.Context, input json.RawMessage) (any, error) {
			in, err := decode[PersonVerifyInput](input)
			if err != nil {
				return nil, err
			}
			if err := requireString("personName", in.PersonName); err != nil {
				return nil, err
			}
			if err := requireString("statement", in.Statement); err != nil {
				return nil, err
			}
			return v.Verify(ctx, in)
		},
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// SourcesFor returns the pages checked for name, falling back to its
// Wikipedia article.
func (v *PersonVerifier) SourcesFor(name string) []string {
	if s, ok := v.sources[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return []string{"wikipedia.org/wiki/" + whitespace.ReplaceAllString(strings.TrimSpace(name), "_")}
}

// Verify fetches up to MaxSources pages sequentially and looks for any
// statement keyword in each. Unreachable pages count as not found. Only
// cancellation of ctx is returned as an error.
func (v *PersonVerifier) Verify(ctx context.Context, in PersonVerifyInput) (PersonVerification, error) {
	kws := keywords(in.Statement, 3)
	sources := v.SourcesFor(in.PersonName)
	if len(sources) > v.maxSources {
		sources = sources[:v.maxSources]
	}

	limiter := rate.NewLimiter(rate.Every(v.delay), 1)
	checked := make([]OfficialSource, 0, len(sources))
	anyFound := false
	for _, src := range sources {
		if err := limiter.Wait(ctx); err != nil {
			return PersonVerification{}, err
		}
		u := src
		if !strings.HasPrefix(u, "http") {
			u = "https://" + u
		}
		found := false
		if body, ok := v.fetch(ctx, u); ok {
			found = containsAny(strings.ToLower(body), kws)
		}
		checked = append(checked, OfficialSource{URL: u, Found: found})
		anyFound = anyFound || found
	}

	res := PersonVerification{OfficialSources: checked}
	switch {
	case anyFound:
		res.Verdict = PersonVerified
		res.Confidence = 90
		res.Explanation = fmt.Sprintf("Statement verified on official sources for %s", in.PersonName)
	case len(checked) > 0:
		res.Verdict = PersonUnverified
		res.Confidence = 20
		res.Explanation = fmt.Sprintf("Statement not found on official sources for %s. Not necessarily false, just unverified.", in.PersonName)
	default:
		res.Verdict = PersonUnverified
		res.Confidence = 10
		res.Explanation = fmt.Sprintf("Unable to verify against official sources for %s", in.PersonName)
	}
	res.Verified = res.Verdict == PersonVerified
	return res, nil
}

func (v *PersonVerifier) fetch(ctx context.Context, raw string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	u, err := v.policy.Check(ctx, raw)
	if err != nil {
		return "", false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", personUserAgent)
	resp, err := v.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, v.bodyLimit))
	if err != nil && len(b) == 0 {
		return "", false
	}
	return string(b), true
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
