package verdict

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier identifies which interpretation layer produced an answer.
type Tier int

const (
	TierStrict Tier = iota + 1
	TierEmbedded
	TierKeyword
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierEmbedded:
		return "embedded"
	case TierKeyword:
		return "keyword"
	}
	return "unknown"
}

const (
	defaultConfidence  = 50
	keywordConfidence  = 70
	defaultExplanation = "Analysis complete"
	// explanationPrefix bounds the keyword-tier explanation, in runes.
	explanationPrefix = 300
)

// Answer is the verdict payload extracted from a final model reply.
type Answer struct {
	Verdict     Verdict `json:"verdict"`
	Confidence  int     `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Outcome is the result of one interpretation tier: either a StructuredAnswer
// or a ParseFailure.
type Outcome interface {
	tier() Tier
}

// StructuredAnswer is a successful tier result.
type StructuredAnswer struct {
	Answer
	Tier Tier
}

// ParseFailure records why a tier could not produce an answer.
type ParseFailure struct {
	Tier   Tier
	Reason string
}

func (a StructuredAnswer) tier() Tier { return a.Tier }
func (f ParseFailure) tier() Tier     { return f.Tier }

// Interpret runs the tiers in order and returns the first answer with the tier
// that produced it.
func Interpret(content string) (Answer, Tier) {
	for _, step := range []func(string) Outcome{Strict, Embedded, Keyword} {
		switch o := step(content).(type) {
		case StructuredAnswer:
			return o.Answer, o.Tier
		case ParseFailure:
			continue
		}
	}
	// Keyword never fails; this is unreachable.
	return Answer{Verdict: Uncertain, Confidence: defaultConfidence}, TierKeyword
}

// Strict treats the whole trimmed content as a JSON object.
func Strict(content string) Outcome {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &obj); err != nil {
		return ParseFailure{Tier: TierStrict, Reason: err.Error()}
	}
	return fromObject(obj, TierStrict)
}

// Embedded finds the first JSON object inside surrounding prose. The widest
// brace span is tried first, then each opening brace in turn.
func Embedded(content string) Outcome {
	first := strings.IndexByte(content, '{')
	last := strings.LastIndexByte(content, '}')
	if first < 0 || last <= first {
		return ParseFailure{Tier: TierEmbedded, Reason: "no object found"}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(content[first:last+1]), &obj); err == nil {
		if o, ok := fromObject(obj, TierEmbedded).(StructuredAnswer); ok {
			return o
		}
	}
	for i := first; i >= 0 && i < last; {
		obj = nil
		dec := json.NewDecoder(strings.NewReader(content[i:]))
		if err := dec.Decode(&obj); err == nil {
			if o, ok := fromObject(obj, TierEmbedded).(StructuredAnswer); ok {
				return o
			}
		}
		next := strings.IndexByte(content[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ParseFailure{Tier: TierEmbedded, Reason: "no object with a valid verdict"}
}

// Keyword scans the upper-cased content for FAKE, then REAL.
func Keyword(content string) Outcome {
	upper := strings.ToUpper(content)
	a := Answer{Verdict: Uncertain, Confidence: defaultConfidence}
	switch {
	case strings.Contains(upper, string(Fake)):
		a.Verdict, a.Confidence = Fake, keywordConfidence
	case strings.Contains(upper, string(Real)):
		a.Verdict, a.Confidence = Real, keywordConfidence
	}
	a.Explanation = prefix(content, explanationPrefix)
	return StructuredAnswer{Answer: a, Tier: TierKeyword}
}

func fromObject(obj map[string]any, t Tier) Outcome {
	if obj == nil {
		return ParseFailure{Tier: t, Reason: "not an object"}
	}
	raw, _ := obj["verdict"].(string)
	v, ok := Parse(raw)
	if !ok {
		return ParseFailure{Tier: t, Reason: fmt.Sprintf("invalid verdict %v", obj["verdict"])}
	}
	return StructuredAnswer{
		Answer: Answer{
			Verdict:     v,
			Confidence:  confidence(obj["confidence"]),
			Explanation: explanation(obj["explanation"]),
		},
		Tier: t,
	}
}

// confidence defaults to 50 when the value is absent, zero or not a number.
func confidence(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%")), 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return defaultConfidence
		}
		f = p
	default:
		return defaultConfidence
	}
	if f == 0 {
		return defaultConfidence
	}
	return ClampScore(f)
}

func explanation(v any) string {
	switch x := v.(type) {
	case nil:
		return defaultExplanation
	case string:
		if x == "" {
			return defaultExplanation
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
