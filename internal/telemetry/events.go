package telemetry

import (
	"context"

	"github.com/petasbytes/newsverify/internal/metrics"
)

// EmitRunStarted records article features only; the article text never
// leaves the process through telemetry.
func EmitRunStarted(ctx context.Context, f metrics.Features, model string) {
	if !ObserveEnabled() {
		return
	}
	runID, _ := RunIDFromContext(ctx)
	Emit("run_started", map[string]any{
		"run_id":           runID,
		"model":            model,
		"features_version": "2",
		"input": map[string]any{
			"runes":        f.Runes,
			"words":        f.Words,
			"lines":        f.Lines,
			"links":        f.Links,
			"truncated":    f.Truncated,
			"caps_ratio":   f.CapsRatio,
			"exclamations": f.Exclamations,
			"triggers":     f.Triggers,
		},
	})
}

// EmitModelCall records one model round trip.
func EmitModelCall(ctx context.Context, provider string, iteration int, durationMs int64, toolCalls int, err error) {
	if !ObserveEnabled() {
		return
	}
	runID, _ := RunIDFromContext(ctx)
	fields := map[string]any{
		"run_id":      runID,
		"provider":    provider,
		"iteration":   iteration,
		"duration_ms": durationMs,
		"tool_calls":  toolCalls,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	Emit("model_call", fields)
}

// EmitToolExec records one tool execution by size, not content.
func EmitToolExec(ctx context.Context, tool string, durationMs int64, inBytes, outBytes int, errMsg string) {
	if !ObserveEnabled() {
		return
	}
	runID, _ := RunIDFromContext(ctx)
	fields := map[string]any{
		"run_id":      runID,
		"tool":        tool,
		"duration_ms": durationMs,
		"in_bytes":    inBytes,
		"out_bytes":   outBytes,
		"success":     errMsg == "",
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}
	Emit("tool_exec", fields)
}

// EmitRunFinished records the terminal state of a run.
func EmitRunFinished(ctx context.Context, verdict string, confidence, toolCalls int, durationMs int64, outcome string) {
	if !ObserveEnabled() {
		return
	}
	runID, _ := RunIDFromContext(ctx)
	Emit("run_finished", map[string]any{
		"run_id":      runID,
		"verdict":     verdict,
		"confidence":  confidence,
		"tool_calls":  toolCalls,
		"duration_ms": durationMs,
		"outcome":     outcome,
	})
}
