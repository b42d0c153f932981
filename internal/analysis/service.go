// Package analysis turns submitted text or URLs into persisted analyses and
// runs the agent for each one on a bounded worker pool.
package analysis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/newsverify/internal/metrics"
	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/tools"
)

var (
	// ErrInvalidRequest wraps every caller-side validation or fetch failure.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrQueueFull is returned when no worker slot or queue space is free.
	ErrQueueFull = errors.New("analysis queue is full")
	// ErrShuttingDown is returned once Run has stopped its workers.
	ErrShuttingDown = errors.New("analysis service is shutting down")
)

const (
	MinTextLength       = 50
	MinArticleTextChars = 10
	titleChars          = 100

	DefaultConcurrency = 2
	DefaultQueueSize   = 32
	DefaultRunTimeout  = 5 * time.Minute
)

// Agent runs one analysis. *runner.Runner implements it.
type Agent interface {
	RunAnalysis(ctx context.Context, text string, ids runner.RunIDs) runner.AgentResult
}

// Fetcher downloads article text. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PersonChecker verifies attributed statements. *tools.PersonVerifier
// implements it.
type PersonChecker interface {
	Verify(ctx context.Context, in tools.PersonVerifyInput) (tools.PersonVerification, error)
}

type Options struct {
	Concurrency int
	QueueSize   int
	// RunTimeout bounds a whole agent run; a run still going at the
	// deadline is abandoned and finalized as UNCERTAIN.
	RunTimeout time.Duration
	Person     PersonChecker
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

type job struct {
	text string
	ids  runner.RunIDs
}

type Service struct {
	// mu guards closed; enqueue holds the read side across its send so
	// drain sees every job that made it into the queue.
	mu     sync.RWMutex
	closed bool

	store       store.Store
	agent       Agent
	fetcher     Fetcher
	person      PersonChecker
	jobs        chan job
	concurrency int
	runTimeout  time.Duration
	logger      *slog.Logger
	metrics     *metrics.Recorder
}

func New(st store.Store, agent Agent, fetcher Fetcher, opts Options) *Service {
	return &Service{
		store:       st,
		agent:       agent,
		fetcher:     fetcher,
		person:      opts.Person,
		jobs:        make(chan job, cmp.Or(opts.QueueSize, DefaultQueueSize)),
		concurrency: cmp.Or(opts.Concurrency, DefaultConcurrency),
		runTimeout:  cmp.Or(opts.RunTimeout, DefaultRunTimeout),
		logger:      cmp.Or(opts.Logger, slog.Default()),
		metrics:     opts.Metrics,
	}
}

// Run processes queued jobs until ctx is cancelled. Jobs still queued at
// shutdown are marked failed.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range s.concurrency {
		g.Go(func() error {
			s.worker(gctx, i)
			return nil
		})
	}
	err := g.Wait()
	s.drain()
	return err
}

// Request is an analysis submission. URL wins when both are set.
type Request struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// AnalyzeText validates req, stores the article and a pending analysis, and
// queues the agent run. It returns without waiting for the run.
func (s *Service) AnalyzeText(ctx context.Context, req Request) (store.Analysis, error) {
	if s.isClosed() {
		return store.Analysis{}, ErrShuttingDown
	}
	text := strings.TrimSpace(req.Text)
	rawURL := strings.TrimSpace(req.URL)
	switch {
	case text == "" && rawURL == "":
		return store.Analysis{}, fmt.Errorf("%w: either text or url must be provided", ErrInvalidRequest)
	case rawURL == "" && len([]rune(text)) < MinTextLength:
		return store.Analysis{}, fmt.Errorf("%w: text must be at least %d characters", ErrInvalidRequest, MinTextLength)
	}

	if rawURL != "" {
		if s.fetcher == nil {
			return store.Analysis{}, fmt.Errorf("%w: url fetching is disabled", ErrInvalidRequest)
		}
		s.logger.Info("fetching article", "url", rawURL)
		fetched, err := s.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			return store.Analysis{}, fmt.Errorf("%w: failed to fetch URL: %v", ErrInvalidRequest, err)
		}
		if fetched == "" {
			return store.Analysis{}, fmt.Errorf("%w: no text found at URL", ErrInvalidRequest)
		}
		text = fetched
	}

	title := rawURL
	if title == "" {
		title = prefix(text, titleChars)
	}
	article, err := s.store.CreateArticle(ctx, store.Article{URL: rawURL, Title: title, Text: text})
	if err != nil {
		return store.Analysis{}, fmt.Errorf("create article: %w", err)
	}
	an, err := s.store.CreateAnalysis(ctx, store.Analysis{ArticleID: article.ID, AnalysisType: store.AnalysisText})
	if err != nil {
		return store.Analysis{}, fmt.Errorf("create analysis: %w", err)
	}

	if err := s.enqueue(job{text: text, ids: runner.RunIDs{ArticleID: article.ID, AnalysisID: an.ID}}); err != nil {
		reason := "Analysis rejected: queue is full"
		if errors.Is(err, ErrShuttingDown) {
			reason = "Analysis cancelled: service shutting down"
		}
		if ferr := s.store.FailAnalysis(context.WithoutCancel(ctx), an.ID, reason); ferr != nil {
			s.logger.Error("failed to mark rejected analysis", "analysis_id", an.ID, "error", ferr)
		}
		return store.Analysis{}, err
	}
	s.logger.Info("analysis queued", "analysis_id", an.ID, "article_id", article.ID)
	return an, nil
}

func (s *Service) enqueue(j job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrShuttingDown
	}
	select {
	case s.jobs <- j:
		s.metrics.ObserveJob("queued")
		s.metrics.SetQueueDepth(len(s.jobs))
		return nil
	default:
		s.metrics.ObserveJob("rejected")
		return ErrQueueFull
	}
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Service) GetAnalysis(ctx context.Context, id string) (store.Analysis, error) {
	return s.store.GetAnalysis(ctx, id)
}

// Recent returns the newest analyses, limit clamped to [1, 100].
func (s *Service) Recent(ctx context.Context, limit int) ([]store.Analysis, error) {
	return s.store.RecentAnalyses(ctx, store.ClampLimit(limit))
}

func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
