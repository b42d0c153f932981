package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/petasbytes/newsverify/internal/store"
)

// ArticleRequest creates an article without analysing it.
type ArticleRequest struct {
	URL   string `json:"url"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (s *Service) CreateArticle(ctx context.Context, req ArticleRequest) (store.Article, error) {
	a := store.Article{
		URL:   strings.TrimSpace(req.URL),
		Text:  strings.TrimSpace(req.Text),
		Title: strings.TrimSpace(req.Title),
	}
	if a.Text != "" && len([]rune(a.Text)) < MinArticleTextChars {
		return store.Article{}, fmt.Errorf("%w: text must be at least %d characters", ErrInvalidRequest, MinArticleTextChars)
	}
	if a.Title == "" {
		a.Title = a.URL
	}
	if a.Title == "" {
		a.Title = prefix(a.Text, titleChars)
	}
	if a.Title == "" {
		return store.Article{}, fmt.Errorf("%w: one of url, text or title is required", ErrInvalidRequest)
	}
	return s.store.CreateArticle(ctx, a)
}

func (s *Service) GetArticle(ctx context.Context, id string) (store.Article, error) {
	return s.store.GetArticle(ctx, id)
}

func (s *Service) ListArticles(ctx context.Context, limit int) ([]store.Article, error) {
	return s.store.ListArticles(ctx, store.ClampLimit(limit))
}
