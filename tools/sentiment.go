package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"
)

// SentimentBiasInput is the analyze_sentiment_bias argument set.
type SentimentBiasInput struct {
	Text string `json:"text" jsonschema_description:"Article text to score for emotional manipulation."`
}

// Bias verdicts.
const (
	BiasNeutral            = "NEUTRAL"
	BiasBiased             = "BIASED"
	BiasHighlyManipulative = "HIGHLY_MANIPULATIVE"
)

// SentimentBias is the analyze_sentiment_bias result.
type SentimentBias struct {
	BiasScore         int      `json:"biasScore"`
	EmotionalTriggers []string `json:"emotionalTriggers"`
	CapsRatio         float64  `json:"capsRatio"`
	ExclamationCount  int      `json:"exclamationCount"`
	LoadedWords       []string `json:"loadedWords"`
	Verdict           string   `json:"verdict"`
}

var SentimentBiasDefinition = Definition{
	Name:        "analyze_sentiment_bias",
	Description: "Measure emotional manipulation in text: capitalization ratio, exclamation marks and sensational trigger phrases.",
	InputSchema: GenerateSchema[SentimentBiasInput](),
	Function: func(_ context.Context, input json.RawMessage) (any, error) {
		in, err := decode[SentimentBiasInput](input)
		if err != nil {
			return nil, err
		}
		if err := requireString("text", in.Text); err != nil {
			return nil, err
		}
		return AnalyzeSentimentBias(in.Text), nil
	},
}

// AnalyzeSentimentBias scores text for sensationalism. Only ASCII letters
// count towards the capitalization ratio.
func AnalyzeSentimentBias(text string) SentimentBias {
	var letters, caps int
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
			caps++
			letters++
		case c >= 'a' && c <= 'z':
			letters++
		}
	}
	var capsRatio float64
	if letters > 0 {
		capsRatio = float64(caps) / float64(letters)
	}
	exclamations := strings.Count(text, "!")

	lower := strings.ToLower(text)
	triggers := []string{}
	for _, t := range emotionalTriggers {
		if strings.Contains(lower, t) {
			triggers = append(triggers, t)
		}
	}

	score := 0
	switch {
	case capsRatio > 0.3:
		score += 30
	case capsRatio > 0.15:
		score += 15
	}
	score += min(exclamations*5, 30)
	score += min(len(triggers)*10, 40)
	score = min(score, 100)

	verdict := BiasHighlyManipulative
	switch {
	case score <= 30:
		verdict = BiasNeutral
	case score <= 60:
		verdict = BiasBiased
	}

	loaded := make([]string, len(triggers))
	copy(loaded, triggers)
	return SentimentBias{
		BiasScore:         score,
		EmotionalTriggers: triggers,
		CapsRatio:         math.Floor(capsRatio*100+0.5) / 100,
		ExclamationCount:  exclamations,
		LoadedWords:       loaded,
		Verdict:           verdict,
	}
}
