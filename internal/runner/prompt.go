package runner

import (
	"fmt"
	"strings"

	"github.com/petasbytes/newsverify/tools"
)

const (
	userPromptPrefix = "Please analyze this article for authenticity:\n\n"

	budgetExplanation = "Analysis incomplete - agent reached max iterations. Unable to determine authenticity with confidence."
)

// SystemPrompt lists the tools and fixes the final-answer contract.
func SystemPrompt(defs []tools.Definition, minTools int) string {
	var b strings.Builder
	b.WriteString("You are an expert fake news detection AI. Your job is to analyze articles and determine if they are REAL, FAKE, or UNCERTAIN.\n\n")
	b.WriteString("You have access to these tools:\n")
	for i, d := range defs {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, d.Name, d.Description)
	}
	b.WriteString("\nIMPORTANT RULES:\n")
	fmt.Fprintf(&b, "- You MUST use at least %d different tools before giving a verdict\n", max(minTools, 3))
	b.WriteString(`- Use tools strategically to gather evidence
- After tool usage, provide ONLY a JSON response with this format:
{"verdict": "REAL" | "FAKE" | "UNCERTAIN", "confidence": 0-100, "explanation": "2-3 sentences"}
- The verdict must be one of exactly: REAL, FAKE, or UNCERTAIN
- Confidence should reflect how certain you are (0-100)
- Explanation should briefly summarize why you reached this verdict`)
	return b.String()
}

func reminderPrompt(used, want int) string {
	return fmt.Sprintf("You have used %d distinct tool(s). Use at least %d different tools before giving your final JSON verdict.", used, want)
}

func resultMessage(rec ToolCallRecord) string {
	if rec.Success {
		return fmt.Sprintf("Tool %s result: %s", rec.ToolName, rec.Output)
	}
	return fmt.Sprintf("Tool %s error: %s", rec.ToolName, rec.ErrorMessage)
}

// truncateRunes keeps the first n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
