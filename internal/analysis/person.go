package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/tools"
)

// PersonResult pairs the stored analysis with the raw verification.
type PersonResult struct {
	Analysis     store.Analysis           `json:"analysis"`
	Verification tools.PersonVerification `json:"verification"`
}

// VerifyPerson checks a statement attributed to a person and records it as
// a person-verification analysis. It runs synchronously.
func (s *Service) VerifyPerson(ctx context.Context, in tools.PersonVerifyInput) (PersonResult, error) {
	in.PersonName = strings.TrimSpace(in.PersonName)
	in.Statement = strings.TrimSpace(in.Statement)
	if in.PersonName == "" || in.Statement == "" {
		return PersonResult{}, fmt.Errorf("%w: personName and statement are required", ErrInvalidRequest)
	}
	if s.person == nil {
		return PersonResult{}, fmt.Errorf("%w: person verification is disabled", ErrInvalidRequest)
	}

	article, err := s.store.CreateArticle(ctx, store.Article{
		Title: fmt.Sprintf("Statement attributed to %s", in.PersonName),
		Text:  in.Statement,
	})
	if err != nil {
		return PersonResult{}, fmt.Errorf("create article: %w", err)
	}
	an, err := s.store.CreateAnalysis(ctx, store.Analysis{ArticleID: article.ID, AnalysisType: store.AnalysisPersonCheck})
	if err != nil {
		return PersonResult{}, fmt.Errorf("create analysis: %w", err)
	}

	start := time.Now()
	v, err := s.person.Verify(ctx, in)
	elapsed := time.Since(start)
	rec := runner.ToolCallRecord{
		ToolName:   "verify_person_statement",
		Input:      personInput(in),
		DurationMs: elapsed.Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	} else if oerr := setOutput(&rec, v); oerr != nil {
		s.logger.Warn("failed to encode tool output", "analysis_id", an.ID, "tool", rec.ToolName, "error", oerr)
	}
	pctx := context.WithoutCancel(ctx)
	if aerr := s.store.AppendToolCallRecord(pctx, toolCallLog(an.ID, rec)); aerr != nil {
		s.logger.Error("failed to store tool call", "analysis_id", an.ID, "error", aerr)
	}

	if err != nil {
		if ferr := s.store.FailAnalysis(pctx, an.ID, "Error during verification: "+err.Error()); ferr != nil {
			s.logger.Error("failed to mark analysis failed", "analysis_id", an.ID, "error", ferr)
		}
		return PersonResult{}, fmt.Errorf("verify person: %w", err)
	}

	if err := s.store.FinalizeResult(pctx, an.ID, store.Result{
		Verdict:         personVerdict(v.Verdict),
		ConfidenceScore: v.Confidence,
		Explanation:     v.Explanation,
		ProcessingMs:    elapsed.Milliseconds(),
	}); err != nil {
		return PersonResult{}, fmt.Errorf("finalize analysis: %w", err)
	}
	stored, err := s.store.GetAnalysis(pctx, an.ID)
	if err != nil {
		return PersonResult{}, err
	}
	return PersonResult{Analysis: stored, Verification: v}, nil
}

func personVerdict(v string) verdict.Verdict {
	switch v {
	case tools.PersonVerified:
		return verdict.Real
	case tools.PersonFabricated:
		return verdict.Fake
	}
	return verdict.Uncertain
}

// setOutput encodes out into rec. An encoding failure marks the call failed.
func setOutput(rec *runner.ToolCallRecord, out any) error {
	b, err := json.Marshal(out)
	if err != nil {
		rec.Success = false
		rec.Output = nil
		rec.ErrorMessage = fmt.Sprintf("encode output: %v", err)
		return err
	}
	rec.Output = b
	return nil
}

func personInput(in tools.PersonVerifyInput) map[string]any {
	m := map[string]any{"personName": in.PersonName, "statement": in.Statement}
	if in.Context != "" {
		m["context"] = in.Context
	}
	return m
}
