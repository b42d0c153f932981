package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/internal/verdict"
)

const persistTimeout = 10 * time.Second

func (s *Service) worker(ctx context.Context, id int) {
	log := s.logger.With("worker", id)
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			s.metrics.SetQueueDepth(len(s.jobs))
			s.process(ctx, j, log)
		}
	}
}

// process runs one job under the run deadline and persists the outcome.
func (s *Service) process(ctx context.Context, j job, log *slog.Logger) {
	log = log.With("analysis_id", j.ids.AnalysisID)
	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	done := make(chan runner.AgentResult, 1)
	go func() { done <- s.agent.RunAnalysis(rctx, j.text, j.ids) }()

	var res runner.AgentResult
	status := "completed"
	select {
	case res = <-done:
	case <-rctx.Done():
		status = "abandoned"
		explanation := fmt.Sprintf("Analysis timed out after %s", s.runTimeout)
		if ctx.Err() != nil {
			explanation = "Analysis cancelled: service shutting down"
		}
		res = runner.AgentResult{
			Verdict:           verdict.Uncertain,
			ConfidenceScore:   20,
			Explanation:       explanation,
			TotalProcessingMs: time.Since(start).Milliseconds(),
		}
		log.Warn("analysis run abandoned", "timeout", s.runTimeout, "error", rctx.Err())
	}

	pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer pcancel()
	err := s.store.FinalizeResult(pctx, j.ids.AnalysisID, store.Result{
		Verdict:         res.Verdict,
		ConfidenceScore: res.ConfidenceScore,
		Explanation:     res.Explanation,
		ProcessingMs:    res.TotalProcessingMs,
	})
	if err != nil {
		status = "failed"
		log.Error("failed to store analysis result", "error", err)
		if ferr := s.store.FailAnalysis(pctx, j.ids.AnalysisID, "Error during analysis: "+err.Error()); ferr != nil {
			log.Error("failed to mark analysis failed", "error", ferr)
		}
	}
	s.metrics.ObserveJob(status)
	log.Info("analysis job finished", "status", status, "verdict", res.Verdict,
		"confidence", res.ConfidenceScore, "duration_ms", time.Since(start).Milliseconds())
}

// drain closes the queue to new jobs and fails those left in it after the
// workers stopped.
func (s *Service) drain() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	for {
		select {
		case j := <-s.jobs:
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			if err := s.store.FailAnalysis(ctx, j.ids.AnalysisID, "Analysis cancelled: service shutting down"); err != nil {
				s.logger.Error("failed to mark queued analysis", "analysis_id", j.ids.AnalysisID, "error", err)
			}
			cancel()
			s.metrics.ObserveJob("failed")
		default:
			s.metrics.SetQueueDepth(0)
			return
		}
	}
}

// PersistToolCalls returns a runner hook that appends each tool record to
// the analysis it belongs to. Runs without an analysis id are ignored.
func PersistToolCalls(st store.Store, logger *slog.Logger) func(context.Context, runner.RunIDs, runner.ToolCallRecord) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, ids runner.RunIDs, rec runner.ToolCallRecord) {
		if ids.AnalysisID == "" {
			return
		}
		if err := st.AppendToolCallRecord(context.WithoutCancel(ctx), toolCallLog(ids.AnalysisID, rec)); err != nil {
			logger.Error("failed to store tool call", "analysis_id", ids.AnalysisID, "tool", rec.ToolName, "error", err)
		}
	}
}

func toolCallLog(analysisID string, rec runner.ToolCallRecord) store.ToolCallLog {
	input, err := json.Marshal(rec.Input)
	if err != nil {
		input = []byte("{}")
	}
	return store.ToolCallLog{
		AnalysisID: analysisID,
		ToolName:   rec.ToolName,
		Input:      input,
		Output:     rec.Output,
		DurationMs: rec.DurationMs,
		Success:    rec.Success,
		ErrorMsg:   rec.ErrorMessage,
	}
}
