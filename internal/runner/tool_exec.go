package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/newsverify/internal/metrics"
	"github.com/petasbytes/newsverify/internal/telemetry"
	"github.com/petasbytes/newsverify/tools"
)

// ToolCallRecord is the outcome of one tool invocation.
type ToolCallRecord struct {
	ToolName     string          `json:"toolName"`
	Input        map[string]any  `json:"input"`
	Output       json.RawMessage `json:"output,omitempty"`
	DurationMs   int64           `json:"durationMs"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Executor resolves tool names and runs handlers, converting every failure
// mode into a record.
type Executor struct {
	registry *tools.Registry
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

func NewExecutor(reg *tools.Registry, logger *slog.Logger, rec *metrics.Recorder) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: reg, logger: logger, metrics: rec}
}

// Execute never returns an error and never panics.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (rec ToolCallRecord) {
	start := time.Now()
	if args == nil {
		args = map[string]any{}
	}
	rec = ToolCallRecord{ToolName: name, Input: args}

	var inSize int
	// telemetry carries an error category only; messages can echo input
	errKind := ""
	defer func() {
		if p := recover(); p != nil {
			rec.Success = false
			rec.Output = nil
			rec.ErrorMessage = fmt.Sprintf("tool panicked: %v", p)
			errKind = "panic"
		}
		rec.DurationMs = time.Since(start).Milliseconds()
		telemetry.EmitToolExec(ctx, name, rec.DurationMs, inSize, len(rec.Output), errKind)
		e.metrics.ObserveToolCall(name, rec.Success, time.Since(start))
		if rec.Success {
			e.logger.Debug("tool succeeded", "tool", name, "duration_ms", rec.DurationMs)
		} else {
			e.logger.Warn("tool failed", "tool", name, "duration_ms", rec.DurationMs, "error", rec.ErrorMessage)
		}
	}()

	def, _ := e.registry.Lookup(name)
	input, err := json.Marshal(args)
	if err != nil {
		rec.ErrorMessage = fmt.Sprintf("invalid tool arguments: %v", err)
		errKind = "invalid_args"
		return rec
	}
	inSize = len(input)

	out, err := def.Function(ctx, input)
	if err != nil {
		rec.ErrorMessage = err.Error()
		errKind = "tool_error"
		if errors.Is(err, tools.ErrUnknownTool) {
			errKind = "unknown_tool"
		}
		return rec
	}
	b, err := json.Marshal(out)
	if err != nil {
		rec.ErrorMessage = fmt.Sprintf("tool output is not serializable: %v", err)
		errKind = "bad_output"
		return rec
	}
	rec.Output = b
	rec.Success = true
	return rec
}
