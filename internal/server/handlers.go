package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/petasbytes/newsverify/internal/analysis"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/tools"
)

type handlers struct {
	svc      Analyzer
	registry *tools.Registry
	logger   *slog.Logger
}

type analyzeTextRequest struct {
	Text string `json:"text"`
	URL  string `json:"url" binding:"omitempty,url"`
}

// textOrURL requires at least one non-blank field.
func textOrURL(sl validator.StructLevel) {
	req := sl.Current().Interface().(analyzeTextRequest)
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.URL) == "" {
		sl.ReportError(req.Text, "text", "Text", "text_or_url", "")
	}
}

type personRequest struct {
	PersonName string `json:"personName" binding:"required"`
	Statement  string `json:"statement" binding:"required"`
	Context    string `json:"context"`
}

type createArticleRequest struct {
	URL   string `json:"url" binding:"omitempty,url"`
	Text  string `json:"text" binding:"omitempty,min=10"`
	Title string `json:"title"`
}

type toolInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (h *handlers) listTools(c *gin.Context) {
	defs := h.registry.Definitions()
	out := make([]toolInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, toolInfo{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) analyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	an, err := h.svc.AnalyzeText(c.Request.Context(), analysis.Request{Text: req.Text, URL: req.URL})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, an)
}

func (h *handlers) getAnalysis(c *gin.Context) {
	an, err := h.svc.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, an)
}

func (h *handlers) recent(c *gin.Context) {
	list, err := h.svc.Recent(c.Request.Context(), limitParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) verifyPerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.svc.VerifyPerson(c.Request.Context(), tools.PersonVerifyInput{
		PersonName: req.PersonName,
		Statement:  req.Statement,
		Context:    req.Context,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) createArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	a, err := h.svc.CreateArticle(c.Request.Context(), analysis.ArticleRequest{URL: req.URL, Text: req.Text, Title: req.Title})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) getArticle(c *gin.Context) {
	a, err := h.svc.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) listArticles(c *gin.Context) {
	list, err := h.svc.ListArticles(c.Request.Context(), limitParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

// limitParam reads ?limit=, defaulting to 10 and capping at 100.
func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return store.DefaultLimit
	}
	return min(n, store.MaxLimit)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *handlers) badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(msgs, "; ")})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "text_or_url":
		return "either text or url must be provided"
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func (h *handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, analysis.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, analysis.ErrQueueFull), errors.Is(err, analysis.ErrShuttingDown):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
