// Package verdict defines the agent's final classification and turns raw model
// replies into one.
//
// Interpretation is layered: a strict JSON parse of the whole reply, then the
// first decodable JSON object embedded in prose, then a keyword scan. Each tier
// returns an explicit Outcome; the keyword tier always succeeds, so Interpret
// never fails.
package verdict

import (
	"math"
	"strings"
)

// Verdict is the agent's final classification of a text.
type Verdict string

const (
	Real      Verdict = "REAL"
	Fake      Verdict = "FAKE"
	Uncertain Verdict = "UNCERTAIN"
)

// Parse normalizes s case-insensitively. ok is false for anything outside the
// three known verdicts.
func Parse(s string) (Verdict, bool) {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case Real, Fake, Uncertain:
		return v, true
	}
	return "", false
}

// Valid reports whether v is one of the three verdicts.
func (v Verdict) Valid() bool {
	_, ok := Parse(string(v))
	return ok
}

// ClampScore rounds half-up and clamps to [0,100]. NaN maps to 0.
func ClampScore(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	r := math.Floor(f + 0.5)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}
