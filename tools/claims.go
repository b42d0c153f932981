package tools

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ClaimExtractionInput is the extract_claims argument set.
type ClaimExtractionInput struct {
	Text string `json:"text" jsonschema_description:"Article text to scan for checkable claims."`
}

// ClaimExtraction is the extract_claims result.
type ClaimExtraction struct {
	Claims      []string `json:"claims"`
	ClaimCount  int      `json:"claimCount"`
	KeyEntities []string `json:"keyEntities"`
}

var ClaimExtractionDefinition = Definition{
	Name:        "extract_claims",
	Description: "Extract factual claims (numbers, dates, statistics, quotes) and key named entities from article text.",
	InputSchema: GenerateSchema[ClaimExtractionInput](),
	Function: func(_ context.Context, input json.RawMessage) (any, error) {
		in, err := decode[ClaimExtractionInput](input)
		if err != nil {
			return nil, err
		}
		if err := requireString("text", in.Text); err != nil {
			return nil, err
		}
		return ExtractClaims(in.Text), nil
	},
}

const (
	maxClaims   = 8
	maxEntities = 10
)

var (
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	numberPattern   = regexp.MustCompile(`\d`)
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	statWordPattern = regexp.MustCompile(`(?i)according to|study|percent|million|billion|thousand|research|found|showed|reported`)
	quotePattern    = regexp.MustCompile(`["']`)
	capitalWord     = regexp.MustCompile(`^[A-Z][a-z]+`)
)

// ExtractClaims returns claim-like sentences and capitalized entity runs.
// ClaimCount is the number of distinct claims before truncation.
func ExtractClaims(text string) ClaimExtraction {
	claims := []string{}
	seen := make(map[string]struct{})
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) <= 20 {
			continue
		}
		if !numberPattern.MatchString(s) && !yearPattern.MatchString(s) &&
			!statWordPattern.MatchString(s) && !quotePattern.MatchString(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		claims = append(claims, s)
	}

	res := ClaimExtraction{ClaimCount: len(claims), KeyEntities: entities(text)}
	if len(claims) > maxClaims {
		claims = claims[:maxClaims]
	}
	res.Claims = claims
	return res
}

// entities collects runs of up to four capitalized words, one run starting
// at every capitalized word.
func entities(text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	words := strings.Fields(text)
	for i, w := range words {
		if !capitalWord.MatchString(w) {
			continue
		}
		entity := w
		for j := i + 1; j < min(i+4, len(words)); j++ {
			if !capitalWord.MatchString(words[j]) {
				break
			}
			entity += " " + words[j]
		}
		if utf8.RuneCountInString(entity) <= 3 {
			continue
		}
		if _, dup := seen[entity]; dup {
			continue
		}
		seen[entity] = struct{}{}
		out = append(out, entity)
	}
	if len(out) > maxEntities {
		out = out[:maxEntities]
	}
	return out
}
