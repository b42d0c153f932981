package runner

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/newsverify/internal/metrics"
	"github.com/petasbytes/newsverify/internal/provider"
	"github.com/petasbytes/newsverify/internal/telemetry"
	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/memory"
	"github.com/petasbytes/newsverify/tools"
)

// Defaults applied by New.
const (
	DefaultMaxIterations = 10
	DefaultMaxInputChars = 3000
	DefaultCallTimeout   = 60 * time.Second
)

// Terminal outcomes, used as a metrics label.
const (
	OutcomeAnswered        = "answered"
	OutcomeModelError      = "model_error"
	OutcomeBudgetExhausted = "budget_exhausted"
)

// AgentResult is the final output of a run.
type AgentResult struct {
	Verdict           verdict.Verdict  `json:"verdict"`
	ConfidenceScore   int              `json:"confidenceScore"`
	Explanation       string           `json:"explanation"`
	ToolCallsExecuted []ToolCallRecord `json:"toolCallsExecuted"`
	TotalProcessingMs int64            `json:"totalProcessingMs"`
}

// RunIDs identifies the persisted entities a run belongs to. Both may be
// empty for ad-hoc runs.
type RunIDs struct {
	ArticleID  string
	AnalysisID string
}

// Options tunes a Runner. Zero values take the defaults above.
type Options struct {
	Model         string
	MaxIterations int
	MaxInputChars int
	CallTimeout   time.Duration
	// MinDistinctTools, when positive, sends one reminder if the model
	// answers after fewer distinct successful tools.
	MinDistinctTools int
	// OnToolCall observes every record before its result is appended to the
	// conversation. Panics are recovered and logged.
	OnToolCall func(ctx context.Context, ids RunIDs, rec ToolCallRecord)
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// Runner is safe for concurrent use; runs share no mutable state.
type Runner struct {
	model    provider.ChatModel
	registry *tools.Registry
	exec     *Executor
	opts     Options
	system   string
	logger   *slog.Logger
}

func New(model provider.ChatModel, reg *tools.Registry, opts Options) *Runner {
	opts.MaxIterations = cmp.Or(opts.MaxIterations, DefaultMaxIterations)
	opts.MaxInputChars = cmp.Or(opts.MaxInputChars, DefaultMaxInputChars)
	opts.CallTimeout = cmp.Or(opts.CallTimeout, DefaultCallTimeout)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		model:    model,
		registry: reg,
		exec:     NewExecutor(reg, logger, opts.Metrics),
		opts:     opts,
		system:   SystemPrompt(reg.Definitions(), opts.MinDistinctTools),
		logger:   logger,
	}
}

// RunAnalysis runs the agent loop over text.
func (r *Runner) RunAnalysis(ctx context.Context, text string, ids RunIDs) AgentResult {
	res, _ := r.Run(ctx, text, ids)
	return res
}

// Run is RunAnalysis that also returns the full conversation.
func (r *Runner) Run(ctx context.Context, text string, ids RunIDs) (res AgentResult, transcript []memory.Message) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = telemetry.WithRunID(ctx, runID)
	log := r.logger.With("run_id", runID, "article_id", ids.ArticleID, "analysis_id", ids.AnalysisID)

	st := &runState{
		conv:    memory.NewConversation(r.system),
		records: []ToolCallRecord{},
		used:    map[string]struct{}{},
	}
	features := metrics.ArticleFeatures(text, r.opts.MaxInputChars)
	st.conv.AddUser(userPromptPrefix + truncateRunes(text, r.opts.MaxInputChars))
	telemetry.EmitRunStarted(ctx, features, r.opts.Model)
	log.Info("analysis started", "model", r.opts.Model, "provider", r.model.Name(),
		"input_runes", features.Runes, "truncated", features.Truncated)

	outcome := OutcomeModelError
	defer func() {
		if p := recover(); p != nil {
			log.Error("analysis run panicked", "panic", p)
			res = r.uncertain(st, 20, fmt.Sprintf("Error during analysis: internal error: %v", p))
			outcome = OutcomeModelError
		}
		res.TotalProcessingMs = time.Since(start).Milliseconds()
		transcript = st.conv.Messages()
		r.opts.Metrics.ObserveRun(string(res.Verdict), outcome, time.Since(start))
		telemetry.EmitRunFinished(ctx, string(res.Verdict), res.ConfidenceScore, len(res.ToolCallsExecuted), res.TotalProcessingMs, outcome)
		log.Info("analysis finished", "verdict", res.Verdict, "confidence", res.ConfidenceScore,
			"tool_calls", len(res.ToolCallsExecuted), "outcome", outcome, "duration_ms", res.TotalProcessingMs)
	}()

	res, outcome = r.loop(ctx, st, ids, log)
	return res, transcript
}

type runState struct {
	conv      *memory.Conversation
	records   []ToolCallRecord
	used      map[string]struct{}
	iteration int
	reminded  bool
}

func (r *Runner) loop(ctx context.Context, st *runState, ids RunIDs, log *slog.Logger) (AgentResult, string) {
	for {
		resp, err := r.callModel(ctx, st, log)
		if err != nil {
			log.Error("model call failed", "iteration", st.iteration, "error", err)
			return r.uncertain(st, 20, "Error during analysis: "+err.Error()), OutcomeModelError
		}

		if len(resp.ToolCalls) == 0 {
			if r.needsReminder(st) {
				st.reminded = true
				st.conv.AddAssistant(resp.Content)
				st.conv.AddUser(reminderPrompt(len(st.used), r.opts.MinDistinctTools))
				log.Info("final answer before minimum tools, reminding", "distinct_tools", len(st.used))
				if r.advance(st) {
					return r.uncertain(st, 30, budgetExplanation), OutcomeBudgetExhausted
				}
				continue
			}
			st.conv.AddAssistant(resp.Content)
			ans, tier := verdict.Interpret(resp.Content)
			log.Info("final answer parsed", "tier", tier.String(), "verdict", ans.Verdict)
			return AgentResult{
				Verdict:           ans.Verdict,
				ConfidenceScore:   ans.Confidence,
				Explanation:       ans.Explanation,
				ToolCallsExecuted: st.records,
			}, OutcomeAnswered
		}

		st.conv.AddAssistant(resp.Content)
		for _, call := range resp.ToolCalls {
			log.Debug("calling tool", "tool", call.Name, "iteration", st.iteration)
			rec := r.exec.Execute(ctx, call.Name, call.Arguments)
			st.records = append(st.records, rec)
			if rec.Success {
				st.used[rec.ToolName] = struct{}{}
			}
			r.notify(ctx, ids, rec, log)
			st.conv.AddUser(resultMessage(rec))
		}
		if r.advance(st) {
			log.Warn("reached max iterations without final answer", "max_iterations", r.opts.MaxIterations)
			return r.uncertain(st, 30, budgetExplanation), OutcomeBudgetExhausted
		}
	}
}

// advance counts one completed pass and reports whether the budget is spent.
func (r *Runner) advance(st *runState) bool {
	st.iteration++
	return st.iteration >= r.opts.MaxIterations
}

func (r *Runner) needsReminder(st *runState) bool {
	return r.opts.MinDistinctTools > 0 && !st.reminded && len(st.used) < r.opts.MinDistinctTools
}

func (r *Runner) callModel(ctx context.Context, st *runState, log *slog.Logger) (*provider.ChatResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := r.model.Chat(cctx, provider.ChatRequest{
		Model:    r.opts.Model,
		Messages: st.conv.Messages(),
		Tools:    r.registry.Definitions(),
	})
	elapsed := time.Since(start)
	r.opts.Metrics.ObserveModelCall(r.model.Name(), err == nil, elapsed)
	n := 0
	if resp != nil {
		n = len(resp.ToolCalls)
	}
	telemetry.EmitModelCall(ctx, r.model.Name(), st.iteration, elapsed.Milliseconds(), n, err)
	log.Debug("model call", "iteration", st.iteration, "duration_ms", elapsed.Milliseconds(), "tool_calls", n)
	if err == nil && resp == nil {
		err = fmt.Errorf("model returned no response")
	}
	return resp, err
}

func (r *Runner) notify(ctx context.Context, ids RunIDs, rec ToolCallRecord, log *slog.Logger) {
	if r.opts.OnToolCall == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error("tool call hook panicked", "tool", rec.ToolName, "panic", p)
		}
	}()
	r.opts.OnToolCall(ctx, ids, rec)
}

func (r *Runner) uncertain(st *runState, confidence int, explanation string) AgentResult {
	return AgentResult{
		Verdict:           verdict.Uncertain,
		ConfidenceScore:   confidence,
		Explanation:       explanation,
		ToolCallsExecuted: st.records,
	}
}
