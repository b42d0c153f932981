// Package server exposes the analysis service over HTTP with gin.
package server

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/petasbytes/newsverify/internal/analysis"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/tools"
)

// ServiceName labels spans and the tracer resource.
const ServiceName = "newsverify"

// Analyzer is the part of *analysis.Service the handlers use.
type Analyzer interface {
	AnalyzeText(ctx context.Context, req analysis.Request) (store.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (store.Analysis, error)
	Recent(ctx context.Context, limit int) ([]store.Analysis, error)
	Stats(ctx context.Context) (store.Stats, error)
	VerifyPerson(ctx context.Context, in tools.PersonVerifyInput) (analysis.PersonResult, error)
	CreateArticle(ctx context.Context, req analysis.ArticleRequest) (store.Article, error)
	GetArticle(ctx context.Context, id string) (store.Article, error)
	ListArticles(ctx context.Context, limit int) ([]store.Article, error)
}

type Options struct {
	// FrontendURL is the single origin allowed by CORS.
	FrontendURL string
	// Gatherer backs /metrics; nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// New builds the router. Routes live under /api except /metrics.
func New(svc Analyzer, reg *tools.Registry, opts Options) *gin.Engine {
	logger := cmp.Or(opts.Logger, slog.Default())
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(ServiceName), requestLogger(logger), cors(opts.FrontendURL))

	h := &handlers{svc: svc, registry: reg, logger: logger}
	api := router.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/tools", h.listTools)

		an := api.Group("/analysis")
		{
			an.POST("/text", h.analyzeText)
			an.POST("/person", h.verifyPerson)
			an.GET("/stats/summary", h.stats)
			an.GET("/:id", h.getAnalysis)
			an.GET("", h.recent)
		}
		articles := api.Group("/articles")
		{
			articles.POST("", h.createArticle)
			articles.GET("/:id", h.getArticle)
			articles.GET("", h.listArticles)
		}
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return router
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// cors allows a single configured origin with credentials.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" && c.GetHeader("Origin") == origin {
			hdr := c.Writer.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Credentials", "true")
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH")
			hdr.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			hdr.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

var validatorsOnce sync.Once

// registerValidators configures gin's shared validator once per process.
func registerValidators() {
	validatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
			v.RegisterStructValidation(textOrURL, analyzeTextRequest{})
		}
	})
}

// jsonFieldName reports validation errors under the JSON field name.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
