// Package runner drives one verification run: it exchanges messages with a
// model service, dispatches the tool calls it asks for and turns the final
// reply into a verdict.
//
// Invariants:
//   - the system message is first and appears once; every later message is
//     appended, never rewritten
//   - tool calls in one assistant turn run sequentially in the order given,
//     and each yields exactly one ToolCallRecord and one result message
//   - the model is called at most MaxIterations times per run
//
// Flow:
//
//	system, user(article) -> assistant(tool calls) -> user(tool results) ... -> assistant(answer)
//
// RunAnalysis never returns an error: transport failures and budget
// exhaustion resolve to an UNCERTAIN result.
package runner
