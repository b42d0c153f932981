package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/newsverify/tools"
)

func TestCheckDomainCredibility(t *testing.T) {
	cases := []struct {
		url    string
		domain string
		score  int
		class  string
	}{
		{"https://www.reuters.com/world/x", "reuters.com", 95, tools.ClassCredible},
		{"https://worldnewsdailyreport.com/a", "worldnewsdailyreport.com", 5, tools.ClassKnownFake},
		{"https://my-breaking-news.xyz/story", "my-breaking-news.xyz", 25, tools.ClassUnknown},
		{"https://WWW.BBC.CO.UK/news", "bbc.co.uk", 95, tools.ClassCredible},
		{"https://example.edu/x", "example.edu", 70, tools.ClassSuspicious},
		{"https://city.gov.example.gov", "city.gov.example.gov", 70, tools.ClassSuspicious},
		{"https://example.com", "example.com", 50, tools.ClassSuspicious},
		{"https://truth-alert.info", "truth-alert.info", 25, tools.ClassUnknown},
		{"reuters.com", "unknown", 0, tools.ClassUnknown},
		{"::not a url", "unknown", 0, tools.ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			got := tools.CheckDomainCredibility(tc.url)
			assert.Equal(t, tc.domain, got.Domain)
			assert.Equal(t, tc.score, got.CredibilityScore)
			assert.Equal(t, tc.class, got.Classification)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestDomainCredibility_ViaHandler(t *testing.T) {
	out, err := tools.DomainCredibilityDefinition.Function(context.Background(), json.RawMessage(`{"url":"https://apnews.com/article/1"}`))
	require.NoError(t, err)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"domain":"apnews.com","credibilityScore":95,"classification":"credible","reason":"Domain is in known credible sources list"}`, string(b))
}

func TestAnalyzeSentimentBias_Manipulative(t *testing.T) {
	text := "SHOCKING news about the BOMBSHELL report!!!!!!"
	got := tools.AnalyzeSentimentBias(text)
	assert.Equal(t, 80, got.BiasScore)
	assert.Equal(t, tools.BiasHighlyManipulative, got.Verdict)
	assert.Equal(t, []string{"shocking", "bombshell"}, got.EmotionalTriggers)
	assert.Equal(t, got.EmotionalTriggers, got.LoadedWords)
	assert.Equal(t, 6, got.ExclamationCount)
	assert.InDelta(t, 0.49, got.CapsRatio, 1e-9)
}

func TestAnalyzeSentimentBias_Bands(t *testing.T) {
	neutral := tools.AnalyzeSentimentBias("The council approved the budget on Tuesday after a short debate.")
	assert.Equal(t, tools.BiasNeutral, neutral.Verdict)
	assert.Empty(t, neutral.EmotionalTriggers)
	assert.NotNil(t, neutral.EmotionalTriggers)

	// four triggers (40) plus one exclamation (5) lands in the middle band
	biased := tools.AnalyzeSentimentBias("a hoax, a scandal, a conspiracy and a cover up!")
	assert.Equal(t, 45, biased.BiasScore)
	assert.Equal(t, tools.BiasBiased, biased.Verdict)

	empty := tools.AnalyzeSentimentBias("")
	assert.Equal(t, 0, empty.BiasScore)
	assert.Zero(t, empty.CapsRatio)
}

func TestAnalyzeSentimentBias_Caps(t *testing.T) {
	all := tools.AnalyzeSentimentBias(strings.Repeat("!", 20) + " " + strings.Repeat("SHOCKING BOMBSHELL EXPOSED URGENT BANNED ", 3))
	assert.Equal(t, 100, all.BiasScore)
	assert.Equal(t, 1.0, all.CapsRatio)
}

func TestExtractClaims(t *testing.T) {
	text := `The study found that 45 percent of voters changed their minds in 2023. Short one. President Joe Biden said "we will win" at the rally.`
	got := tools.ExtractClaims(text)
	assert.Equal(t, []string{
		"The study found that 45 percent of voters changed their minds in 2023",
		`President Joe Biden said "we will win" at the rally`,
	}, got.Claims)
	assert.Equal(t, 2, got.ClaimCount)
	assert.Equal(t, []string{"Short", "President Joe Biden", "Joe Biden", "Biden"}, got.KeyEntities)
}

func TestExtractClaims_CapsAndDedupes(t *testing.T) {
	var b strings.Builder
	for i := range 10 {
		fmt.Fprintf(&b, "Sentence number %d mentions a figure. ", i)
	}
	b.WriteString("Sentence number 0 mentions a figure. ")
	got := tools.ExtractClaims(b.String())
	assert.Len(t, got.Claims, 8)
	assert.Equal(t, 10, got.ClaimCount)
}

func TestExtractClaims_NoClaims(t *testing.T) {
	got := tools.ExtractClaims("nothing here is checkable at all really. nope")
	assert.Empty(t, got.Claims)
	assert.NotNil(t, got.Claims)
	assert.Zero(t, got.ClaimCount)
}

func TestExtractClaims_EntityCap(t *testing.T) {
	words := make([]string, 0, 30)
	for i := range 30 {
		words = append(words, fmt.Sprintf("Name%c", 'a'+i%26), "and")
	}
	got := tools.ExtractClaims(strings.Join(words, " "))
	assert.Len(t, got.KeyEntities, 10)
}
