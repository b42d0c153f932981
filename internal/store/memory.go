package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/tools"
)

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	mu        sync.RWMutex
	articles  []Article
	analyses  []Analysis
	toolCalls []ToolCallLog
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateArticle(_ context.Context, a Article) (Article, error) {
	a = prepareArticle(a)
	m.mu.Lock()
	m.articles = append(m.articles, a)
	m.mu.Unlock()
	return a, nil
}

func (m *Memory) GetArticle(_ context.Context, id string) (Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.article(id)
	if !ok {
		return Article{}, ErrNotFound
	}
	for _, an := range m.analyses {
		if an.ArticleID == id {
			an.ToolCalls = m.callsFor(an.ID)
			a.Analyses = append(a.Analyses, an)
		}
	}
	return a, nil
}

func (m *Memory) ListArticles(_ context.Context, limit int) ([]Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Article{}
	for i := len(m.articles) - 1; i >= 0 && len(out) < ClampLimit(limit); i-- {
		a := m.articles[i]
		if an, ok := m.latestAnalysis(a.ID, false); ok {
			a.Analyses = []Analysis{an}
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) CreateAnalysis(_ context.Context, a Analysis) (Analysis, error) {
	a, err := prepareAnalysis(a)
	if err != nil {
		return Analysis{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.article(a.ArticleID); !ok {
		return Analysis{}, ErrNotFound
	}
	m.analyses = append(m.analyses, a)
	return a, nil
}

func (m *Memory) GetAnalysis(_ context.Context, id string) (Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.analysisIndex(id)
	if i < 0 {
		return Analysis{}, ErrNotFound
	}
	an := m.analyses[i]
	if a, ok := m.article(an.ArticleID); ok {
		an.Article = &a
	}
	an.ToolCalls = m.callsFor(id)
	return an, nil
}

func (m *Memory) RecentAnalyses(_ context.Context, limit int) ([]Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Analysis{}
	for i := len(m.analyses) - 1; i >= 0 && len(out) < ClampLimit(limit); i-- {
		an := m.analyses[i]
		if a, ok := m.article(an.ArticleID); ok {
			an.Article = &a
		}
		an.ToolCalls = m.callsFor(an.ID)
		out = append(out, an)
	}
	return out, nil
}

func (m *Memory) Stats(context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Stats
	for _, an := range m.analyses {
		s.add(an.Verdict, 1)
	}
	return s, nil
}

func (m *Memory) AppendToolCallRecord(_ context.Context, l ToolCallLog) error {
	l, err := prepareToolCall(l)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.analysisIndex(l.AnalysisID) < 0 {
		return ErrNotFound
	}
	m.toolCalls = append(m.toolCalls, l)
	return nil
}

func (m *Memory) FinalizeResult(_ context.Context, id string, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.analysisIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	t := now()
	an := &m.analyses[i]
	an.Status = StatusCompleted
	an.Verdict = r.Verdict
	an.ConfidenceScore = r.ConfidenceScore
	an.Explanation = r.Explanation
	an.ProcessingMs = r.ProcessingMs
	an.CompletedAt = &t
	return nil
}

func (m *Memory) FailAnalysis(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.analysisIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	t := now()
	an := &m.analyses[i]
	an.Status = StatusFailed
	an.Verdict = verdict.Uncertain
	an.Explanation = reason
	an.ProcessingMs = t.Sub(an.CreatedAt).Milliseconds()
	an.CompletedAt = &t
	return nil
}

func (m *Memory) FindByKeyword(_ context.Context, field tools.Field, keyword string, limit int) ([]tools.HistoryRecord, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	kw := strings.ToLower(keyword)
	limit = ClampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []tools.HistoryRecord{}
	switch field {
	case tools.FieldExplanation:
		for i := len(m.analyses) - 1; i >= 0 && len(out) < limit; i-- {
			an := m.analyses[i]
			if an.Status != StatusCompleted || !strings.Contains(strings.ToLower(an.Explanation), kw) {
				continue
			}
			a, _ := m.article(an.ArticleID)
			out = append(out, historyRecord(a, an))
		}
	case tools.FieldTitleOrText:
		for i := len(m.articles) - 1; i >= 0 && len(out) < limit; i-- {
			a := m.articles[i]
			if !strings.Contains(strings.ToLower(a.Title), kw) && !strings.Contains(strings.ToLower(a.Text), kw) {
				continue
			}
			if an, ok := m.latestAnalysis(a.ID, true); ok {
				out = append(out, historyRecord(a, an))
			}
		}
	}
	return out, nil
}

func historyRecord(a Article, an Analysis) tools.HistoryRecord {
	return tools.HistoryRecord{
		AnalysisID:  an.ID,
		ArticleID:   an.ArticleID,
		Title:       a.Title,
		URL:         a.URL,
		Text:        a.Text,
		Verdict:     an.Verdict,
		Explanation: an.Explanation,
		CreatedAt:   an.CreatedAt,
	}
}

// callers hold m.mu.

func (m *Memory) article(id string) (Article, bool) {
	i := slices.IndexFunc(m.articles, func(a Article) bool { return a.ID == id })
	if i < 0 {
		return Article{}, false
	}
	return m.articles[i], true
}

func (m *Memory) analysisIndex(id string) int {
	return slices.IndexFunc(m.analyses, func(a Analysis) bool { return a.ID == id })
}

func (m *Memory) latestAnalysis(articleID string, completedOnly bool) (Analysis, bool) {
	for i := len(m.analyses) - 1; i >= 0; i-- {
		an := m.analyses[i]
		if an.ArticleID != articleID || (completedOnly && an.Status != StatusCompleted) {
			continue
		}
		return an, true
	}
	return Analysis{}, false
}

func (m *Memory) callsFor(analysisID string) []ToolCallLog {
	var out []ToolCallLog
	for _, c := range m.toolCalls {
		if c.AnalysisID == analysisID {
			out = append(out, c)
		}
	}
	return out
}
