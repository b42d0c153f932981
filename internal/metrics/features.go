package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/newsverify/tools"
)

// Features describes a submitted article without carrying any of its text.
// The sensationalism fields use the same rules as analyze_sentiment_bias.
type Features struct {
	Runes        int
	Words        int
	Lines        int
	Links        int
	Truncated    bool
	CapsRatio    float64
	Exclamations int
	Triggers     int
}

// ArticleFeatures computes Features for text as submitted. maxRunes is the
// input cap the agent applies; zero means no cap.
func ArticleFeatures(text string, maxRunes int) Features {
	runes := utf8.RuneCountInString(text)
	sb := tools.AnalyzeSentimentBias(text)
	words := strings.Fields(text)
	return Features{
		Runes:        runes,
		Words:        len(words),
		Lines:        countLines(text),
		Links:        countLinks(words),
		Truncated:    maxRunes > 0 && runes > maxRunes,
		CapsRatio:    sb.CapsRatio,
		Exclamations: sb.ExclamationCount,
		Triggers:     len(sb.EmotionalTriggers),
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

func countLinks(words []string) int {
	n := 0
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, "()[]<>\"'"))
		if strings.HasPrefix(w, "http://") || strings.HasPrefix(w, "https://") {
			n++
		}
	}
	return n
}
