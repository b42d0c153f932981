// Package store persists articles, analyses and their tool-call logs, and
// answers the keyword lookups the history tools run against past analyses.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/tools"
)

// ErrNotFound is returned when an article or analysis id does not exist.
var ErrNotFound = errors.New("not found")

type SourceType string

const (
	SourceText  SourceType = "TEXT"
	SourceURL   SourceType = "URL"
	SourceImage SourceType = "IMAGE"
)

type AnalysisType string

const (
	AnalysisText        AnalysisType = "TEXT"
	AnalysisPersonCheck AnalysisType = "IMAGE_PERSON_VERIFY"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// PendingExplanation is stored on an analysis until its run finishes.
const PendingExplanation = "Analysis in progress..."

// Limits for list operations.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Article struct {
	ID         string     `json:"id"`
	URL        string     `json:"url,omitempty"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	SourceType SourceType `json:"sourceType"`
	CreatedAt  time.Time  `json:"createdAt"`
	// Analyses is filled by GetArticle (all, with tool calls) and
	// ListArticles (latest only).
	Analyses []Analysis `json:"analyses,omitempty"`
}

type Analysis struct {
	ID              string          `json:"id"`
	ArticleID       string          `json:"articleId"`
	AnalysisType    AnalysisType    `json:"analysisType"`
	Status          Status          `json:"status"`
	Verdict         verdict.Verdict `json:"verdict"`
	ConfidenceScore int             `json:"confidenceScore"`
	Explanation     string          `json:"explanation"`
	ProcessingMs    int64           `json:"processingMs"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Article         *Article        `json:"article,omitempty"`
	ToolCalls       []ToolCallLog   `json:"toolCalls,omitempty"`
}

// ToolCallLog is the persisted form of one tool execution.
type ToolCallLog struct {
	ID         string          `json:"id"`
	AnalysisID string          `json:"analysisId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
	Output     json.RawMessage `json:"output,omitempty"`
	DurationMs int64           `json:"durationMs"`
	Success    bool            `json:"success"`
	ErrorMsg   string          `json:"errorMsg,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Result is the terminal state written by FinalizeResult.
type Result struct {
	Verdict         verdict.Verdict
	ConfidenceScore int
	Explanation     string
	ProcessingMs    int64
}

// Stats counts analyses by verdict. Pending analyses count as uncertain.
type Stats struct {
	Total     int `json:"total"`
	Real      int `json:"real"`
	Fake      int `json:"fake"`
	Uncertain int `json:"uncertain"`
}

func (s *Stats) add(v verdict.Verdict, n int) {
	s.Total += n
	switch v {
	case verdict.Real:
		s.Real += n
	case verdict.Fake:
		s.Fake += n
	case verdict.Uncertain:
		s.Uncertain += n
	}
}

// Store is implemented by the memory, SQLite and Postgres backends.
type Store interface {
	tools.HistoryQuerier

	CreateArticle(ctx context.Context, a Article) (Article, error)
	GetArticle(ctx context.Context, id string) (Article, error)
	ListArticles(ctx context.Context, limit int) ([]Article, error)

	CreateAnalysis(ctx context.Context, a Analysis) (Analysis, error)
	GetAnalysis(ctx context.Context, id string) (Analysis, error)
	RecentAnalyses(ctx context.Context, limit int) ([]Analysis, error)
	Stats(ctx context.Context) (Stats, error)

	AppendToolCallRecord(ctx context.Context, log ToolCallLog) error
	FinalizeResult(ctx context.Context, analysisID string, r Result) error
	FailAnalysis(ctx context.Context, analysisID, reason string) error

	Close() error
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

func now() time.Time { return time.Now().UTC() }

// prepareArticle fills server-side fields.
func prepareArticle(a Article) Article {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	if a.SourceType == "" {
		a.SourceType = SourceText
		if a.URL != "" {
			a.SourceType = SourceURL
		}
	}
	a.Analyses = nil
	return a
}

func prepareAnalysis(a Analysis) (Analysis, error) {
	if a.ArticleID == "" {
		return a, fmt.Errorf("analysis: article id is required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	if a.AnalysisType == "" {
		a.AnalysisType = AnalysisText
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Verdict == "" {
		a.Verdict = verdict.Uncertain
	}
	if a.Explanation == "" && a.Status == StatusPending {
		a.Explanation = PendingExplanation
	}
	a.Article, a.ToolCalls = nil, nil
	return a, nil
}

func prepareToolCall(l ToolCallLog) (ToolCallLog, error) {
	if l.AnalysisID == "" {
		return l, fmt.Errorf("tool call: analysis id is required")
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}
	if len(l.Input) == 0 {
		l.Input = json.RawMessage("{}")
	}
	return l, nil
}

func checkField(f tools.Field) error {
	switch f {
	case tools.FieldExplanation, tools.FieldTitleOrText:
		return nil
	}
	return fmt.Errorf("unsupported history field %q", f)
}

// likePattern escapes LIKE metacharacters; queries use ESCAPE '\'.
func likePattern(kw string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(kw)) + "%"
}
