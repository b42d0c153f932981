package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/tools"
)

// DefaultSQLiteDSN is a shared in-memory database.
const DefaultSQLiteDSN = "file::memory:?cache=shared"

// sqliteDriver is go-sqlite3 with a fold() SQL function registered on every
// connection. SQLite's built-in lower() and NOCASE only fold ASCII, while
// likePattern folds the keyword with strings.ToLower.
const sqliteDriver = "sqlite3_newsverify"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	text        TEXT NOT NULL,
	source_type TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);

CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY,
	article_id       TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	analysis_type    TEXT NOT NULL,
	status           TEXT NOT NULL,
	verdict          TEXT NOT NULL,
	confidence_score INTEGER NOT NULL DEFAULT 0,
	explanation      TEXT NOT NULL DEFAULT '',
	processing_ms    INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	completed_at     TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_analyses_article_id ON analyses(article_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);

CREATE TABLE IF NOT EXISTS tool_calls (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	tool_name   TEXT NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT,
	duration_ms INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	error_msg   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_analysis_id ON tool_calls(analysis_id);
`

const sqliteAnalysisColumns = `id, article_id, analysis_type, status, verdict, confidence_score,
	explanation, processing_ms, created_at, completed_at`

// SQLite is a Store backed by database/sql and go-sqlite3. All access goes
// through a single connection, so no query is issued while rows are open.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens dsn (DefaultSQLiteDSN when empty) and creates the schema.
func NewSQLite(ctx context.Context, dsn string) (_ *SQLite, err error) {
	db, err := sql.Open(sqliteDriver, cmp.Or(dsn, DefaultSQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}
	s := &SQLite{db: db}
	defer func() {
		if err != nil {
			if e := s.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA foreign_keys=ON`} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateArticle(ctx context.Context, a Article) (Article, error) {
	a = prepareArticle(a)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, title, text, source_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.URL, a.Title, a.Text, string(a.SourceType), a.CreatedAt)
	if err != nil {
		return Article{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

func (s *SQLite) GetArticle(ctx context.Context, id string) (Article, error) {
	a, err := s.article(ctx, id)
	if err != nil {
		return Article{}, err
	}
	analyses, err := s.queryAnalyses(ctx, `SELECT `+sqliteAnalysisColumns+` FROM analyses
		WHERE article_id = ? ORDER BY created_at ASC, rowid ASC`, id)
	if err != nil {
		return Article{}, err
	}
	for i := range analyses {
		if analyses[i].ToolCalls, err = s.toolCalls(ctx, analyses[i].ID); err != nil {
			return Article{}, err
		}
	}
	a.Analyses = analyses
	return a, nil
}

func (s *SQLite) ListArticles(ctx context.Context, limit int) (_ []Article, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, text, source_type, created_at FROM articles
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	out := []Article{}
	for rows.Next() {
		a, err := scanSQLiteArticle(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	for i := range out {
		latest, err := s.queryAnalyses(ctx, `SELECT `+sqliteAnalysisColumns+` FROM analyses
			WHERE article_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, out[i].ID)
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			out[i].Analyses = latest
		}
	}
	return out, nil
}

func (s *SQLite) CreateAnalysis(ctx context.Context, a Analysis) (Analysis, error) {
	a, err := prepareAnalysis(a)
	if err != nil {
		return Analysis{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (`+sqliteAnalysisColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM articles WHERE id = ?)`,
		a.ID, a.ArticleID, string(a.AnalysisType), string(a.Status), string(a.Verdict),
		a.ConfidenceScore, a.Explanation, a.ProcessingMs, a.CreatedAt, nullTime(a.CompletedAt),
		a.ArticleID)
	if err != nil {
		return Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	if err := requireRow(res); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func (s *SQLite) GetAnalysis(ctx context.Context, id string) (Analysis, error) {
	found, err := s.queryAnalyses(ctx, `SELECT `+sqliteAnalysisColumns+` FROM analyses WHERE id = ?`, id)
	if err != nil {
		return Analysis{}, err
	}
	if len(found) == 0 {
		return Analysis{}, ErrNotFound
	}
	an := found[0]
	if err := s.attach(ctx, &an); err != nil {
		return Analysis{}, err
	}
	return an, nil
}

func (s *SQLite) RecentAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	out, err := s.queryAnalyses(ctx, `SELECT `+sqliteAnalysisColumns+` FROM analyses
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.attach(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLite) Stats(ctx context.Context) (_ Stats, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM analyses GROUP BY verdict`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()
	var st Stats
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return Stats{}, fmt.Errorf("stats scan: %w", err)
		}
		st.add(verdict.Verdict(v), n)
	}
	return st, rows.Err()
}

func (s *SQLite) AppendToolCallRecord(ctx context.Context, l ToolCallLog) error {
	l, err := prepareToolCall(l)
	if err != nil {
		return err
	}
	var output any
	if len(l.Output) > 0 {
		output = string(l.Output)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, analysis_id, tool_name, input, output, duration_ms, success, error_msg, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM analyses WHERE id = ?)`,
		l.ID, l.AnalysisID, l.ToolName, string(l.Input), output, l.DurationMs, l.Success, l.ErrorMsg, l.CreatedAt,
		l.AnalysisID)
	if err != nil {
		return fmt.Errorf("insert tool call: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) FinalizeResult(ctx context.Context, id string, r Result) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE analyses SET status = ?, verdict = ?, confidence_score = ?, explanation = ?,
			processing_ms = ?, completed_at = ?
		WHERE id = ?`,
		string(StatusCompleted), string(r.Verdict), r.ConfidenceScore, r.Explanation, r.ProcessingMs, now(), id)
	if err != nil {
		return fmt.Errorf("finalize analysis: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) FailAnalysis(ctx context.Context, id, reason string) error {
	an, err := s.queryAnalyses(ctx, `SELECT `+sqliteAnalysisColumns+` FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if len(an) == 0 {
		return ErrNotFound
	}
	t := now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE analyses SET status = ?, verdict = ?, explanation = ?, processing_ms = ?, completed_at = ?
		WHERE id = ?`,
		string(StatusFailed), string(verdict.Uncertain), reason, t.Sub(an[0].CreatedAt).Milliseconds(), t, id)
	if err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	return nil
}

func (s *SQLite) FindByKeyword(ctx context.Context, field tools.Field, keyword string, limit int) (_ []tools.HistoryRecord, err error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	pattern := likePattern(keyword)
	var rows *sql.Rows
	switch field {
	case tools.FieldExplanation:
		rows, err = s.db.QueryContext(ctx, `
			SELECT an.id, an.article_id, COALESCE(a.title, ''), COALESCE(a.url, ''), COALESCE(a.text, ''),
				an.verdict, an.explanation, an.created_at
			FROM analyses an LEFT JOIN articles a ON a.id = an.article_id
			WHERE an.status = ? AND fold(an.explanation) LIKE ? ESCAPE '\'
			ORDER BY an.created_at DESC, an.rowid DESC LIMIT ?`,
			string(StatusCompleted), pattern, ClampLimit(limit))
	case tools.FieldTitleOrText:
		rows, err = s.db.QueryContext(ctx, `
			SELECT an.id, a.id, a.title, a.url, a.text, an.verdict, an.explanation, an.created_at
			FROM articles a
			JOIN analyses an ON an.id = (
				SELECT x.id FROM analyses x
				WHERE x.article_id = a.id AND x.status = ?
				ORDER BY x.created_at DESC, x.rowid DESC LIMIT 1)
			WHERE fold(a.title) LIKE ? ESCAPE '\' OR fold(a.text) LIKE ? ESCAPE '\'
			ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?`,
			string(StatusCompleted), pattern, pattern, ClampLimit(limit))
	}
	if err != nil {
		return nil, fmt.Errorf("find by %s: %w", field, err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()

	out := []tools.HistoryRecord{}
	for rows.Next() {
		var r tools.HistoryRecord
		var v string
		if err := rows.Scan(&r.AnalysisID, &r.ArticleID, &r.Title, &r.URL, &r.Text, &v, &r.Explanation, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("find by %s scan: %w", field, err)
		}
		r.Verdict = verdict.Verdict(v)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) article(ctx context.Context, id string) (Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, text, source_type, created_at FROM articles WHERE id = ?`, id)
	a, err := scanSQLiteArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	return a, err
}

// attach loads the article and the ordered tool calls of an.
func (s *SQLite) attach(ctx context.Context, an *Analysis) error {
	a, err := s.article(ctx, an.ArticleID)
	switch {
	case err == nil:
		an.Article = &a
	case !errors.Is(err, ErrNotFound):
		return err
	}
	an.ToolCalls, err = s.toolCalls(ctx, an.ID)
	return err
}

func (s *SQLite) queryAnalyses(ctx context.Context, query string, args ...any) (_ []Analysis, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()
	out := []Analysis{}
	for rows.Next() {
		var an Analysis
		var typ, status, v string
		var completed sql.NullTime
		if err := rows.Scan(&an.ID, &an.ArticleID, &typ, &status, &v, &an.ConfidenceScore,
			&an.Explanation, &an.ProcessingMs, &an.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		an.AnalysisType, an.Status, an.Verdict = AnalysisType(typ), Status(status), verdict.Verdict(v)
		if completed.Valid {
			t := completed.Time
			an.CompletedAt = &t
		}
		out = append(out, an)
	}
	return out, rows.Err()
}

func (s *SQLite) toolCalls(ctx context.Context, analysisID string) (_ []ToolCallLog, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, analysis_id, tool_name, input, output, duration_ms, success, error_msg, created_at
		FROM tool_calls WHERE analysis_id = ? ORDER BY created_at ASC, rowid ASC`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()
	var out []ToolCallLog
	for rows.Next() {
		var l ToolCallLog
		var input string
		var output sql.NullString
		if err := rows.Scan(&l.ID, &l.AnalysisID, &l.ToolName, &input, &output, &l.DurationMs,
			&l.Success, &l.ErrorMsg, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		l.Input = []byte(input)
		if output.Valid {
			l.Output = []byte(output.String)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArticle(row rowScanner) (Article, error) {
	var a Article
	var src string
	if err := row.Scan(&a.ID, &a.URL, &a.Title, &a.Text, &src, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Article{}, err
		}
		return Article{}, fmt.Errorf("scan article: %w", err)
	}
	a.SourceType = SourceType(src)
	return a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
