package tools

import (
	"context"
	"time"

	"github.com/petasbytes/newsverify/internal/verdict"
)

// Field selects what a history lookup matches against.
type Field string

const (
	// FieldExplanation matches completed analyses by explanation text.
	FieldExplanation Field = "explanation"
	// FieldTitleOrText matches articles by title or body, paired with their
	// latest completed analysis.
	FieldTitleOrText Field = "title_or_text"
)

// HistoryRecord is a prior analysis as seen by the lookup tools.
type HistoryRecord struct {
	AnalysisID  string
	ArticleID   string
	Title       string
	URL         string
	Text        string
	Verdict     verdict.Verdict
	Explanation string
	CreatedAt   time.Time
}

// HistoryQuerier is the read-only historical-analysis boundary.
// Matching is a case-insensitive substring test.
type HistoryQuerier interface {
	FindByKeyword(ctx context.Context, field Field, keyword string, limit int) ([]HistoryRecord, error)
}
