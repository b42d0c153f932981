// Package fetch downloads article pages and reduces them to plain text.
package fetch

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/petasbytes/newsverify/internal/safety"
)

var tracer = otel.Tracer("newsverify.fetch")

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5
	DefaultMaxChars     = 3000
	DefaultMaxBodyBytes = 2 << 20
	userAgent           = "newsverify/1.0 (+article fetcher)"
)

// ErrTooManyRedirects is returned when a page redirects more than allowed.
var ErrTooManyRedirects = safety.ErrTooManyRedirects

type Options struct {
	HTTPClient   *http.Client
	Policy       safety.URLPolicy
	Timeout      time.Duration
	MaxRedirects int
	// MaxChars bounds the extracted text, in runes.
	MaxChars     int
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Fetcher retrieves article text. It is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	policy   safety.URLPolicy
	maxChars int
	maxBody  int64
	logger   *slog.Logger
}

func New(opts Options) *Fetcher {
	base := cmp.Or(opts.HTTPClient, http.DefaultClient)
	maxRedirects := cmp.Or(opts.MaxRedirects, DefaultMaxRedirects)
	f := &Fetcher{
		policy:   opts.Policy,
		maxChars: cmp.Or(opts.MaxChars, DefaultMaxChars),
		maxBody:  cmp.Or(opts.MaxBodyBytes, DefaultMaxBodyBytes),
		logger:   cmp.Or(opts.Logger, slog.Default()),
	}
	f.client = f.policy.GuardClient(base, maxRedirects)
	f.client.Timeout = cmp.Or(opts.Timeout, DefaultTimeout)
	return f
}

// Fetch downloads rawURL and returns its visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch.Fetch")
	defer span.End()

	u, err := f.policy.Check(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "url rejected")
		return "", err
	}
	span.SetAttributes(attribute.String("url.host", u.Host))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status")
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return "", fmt.Errorf("read body: %w", err)
	}
	text := ExtractText(string(body), f.maxChars)
	f.logger.Debug("fetched article", "host", u.Host, "bytes", len(body), "chars", len([]rune(text)),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// ExtractText replaces tags with spaces, unescapes entities, collapses
// whitespace and keeps the first maxChars runes (all when maxChars <= 0).
func ExtractText(page string, maxChars int) string {
	s := scriptRe.ReplaceAllString(page, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if maxChars > 0 {
		if r := []rune(s); len(r) > maxChars {
			s = string(r[:maxChars])
		}
	}
	return s
}
