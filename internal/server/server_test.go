package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/newsverify/internal/analysis"
	"github.com/petasbytes/newsverify/internal/metrics"
	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/server"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/internal/verdict"
	"github.com/petasbytes/newsverify/tools"
)

const articleText = "Officials confirmed the bridge will reopen next month after a structural inspection found no damage."

type noopAgent struct{}

func (noopAgent) RunAnalysis(context.Context, string, runner.RunIDs) runner.AgentResult {
	return runner.AgentResult{Verdict: verdict.Uncertain}
}

type fixedPerson struct{}

func (fixedPerson) Verify(_ context.Context, in tools.PersonVerifyInput) (tools.PersonVerification, error) {
	return tools.PersonVerification{Verdict: tools.PersonUnverified, Confidence: 20, Explanation: "not found for " + in.PersonName,
		OfficialSources: []tools.OfficialSource{}}, nil
}

type fixture struct {
	svc    *analysis.Service
	router *gin.Engine
	store  *store.Memory
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, opts analysis.Options) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	reg := prometheus.NewRegistry()
	opts.Person = fixedPerson{}
	opts.Metrics = metrics.NewRecorder(reg)
	svc := analysis.New(st, noopAgent{}, nil, opts)
	router := server.New(svc, tools.Default(tools.Deps{History: st}), server.Options{
		FrontendURL: "http://localhost:5173",
		Gatherer:    reg,
	})
	return fixture{svc: svc, router: router, store: st, reg: reg}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	w := f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestTools(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	w := f.do(t, http.MethodGet, "/api/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 6)
	assert.Equal(t, "check_domain_credibility", list[0]["name"])
	assert.NotNil(t, list[0]["inputSchema"])
}

func TestAnalyzeTextFlow(t *testing.T) {
	f := newFixture(t, analysis.Options{})

	w := f.do(t, http.MethodPost, "/api/analysis/text", `{"text":"`+articleText+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[store.Analysis](t, w)
	assert.Equal(t, store.StatusPending, created.Status)
	assert.Equal(t, "Analysis in progress...", created.Explanation)

	w = f.do(t, http.MethodGet, "/api/analysis/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[store.Analysis](t, w)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.Article)

	w = f.do(t, http.MethodGet, "/api/analysis?limit=abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.Analysis](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/analysis/stats/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.Stats{Total: 1, Uncertain: 1}, decode[store.Stats](t, w))
}

func TestAnalyzeTextValidation(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	tests := []struct {
		name, body, want string
	}{
		{"empty", `{}`, "either text or url must be provided"},
		{"blank", `{"text":"   "}`, "either text or url must be provided"},
		{"bad url", `{"url":"not a url"}`, "url must be a valid URL"},
		{"short text", `{"text":"too short to analyse"}`, "at least 50"},
		{"malformed", `{"text":`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/analysis/text", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]string](t, w)["error"], tt.want)
		})
	}
}

func TestAnalyzeTextQueueFull(t *testing.T) {
	f := newFixture(t, analysis.Options{QueueSize: 1})
	body := `{"text":"` + articleText + `"}`
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/analysis/text", body).Code)

	w := f.do(t, http.MethodPost, "/api/analysis/text", body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

func TestAnalyzeTextDuringShutdown(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.svc.Run(ctx))

	w := f.do(t, http.MethodPost, "/api/analysis/text", `{"text":"`+articleText+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "shutting down")
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	for _, path := range []string{"/api/analysis/nope", "/api/articles/nope"} {
		w := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "not found", decode[map[string]string](t, w)["error"])
	}
}

func TestArticles(t *testing.T) {
	f := newFixture(t, analysis.Options{})

	w := f.do(t, http.MethodPost, "/api/articles", `{"text":"tiny"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/articles", `{"url":"https://example.com/a","title":"Example"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[store.Article](t, w)
	assert.Equal(t, "Example", a.Title)
	assert.Equal(t, store.SourceURL, a.SourceType)

	w = f.do(t, http.MethodGet, "/api/articles/"+a.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.Article](t, w), 1)
}

func TestVerifyPerson(t *testing.T) {
	f := newFixture(t, analysis.Options{})

	w := f.do(t, http.MethodPost, "/api/analysis/person", `{"personName":"NASA"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "statement is required")

	w = f.do(t, http.MethodPost, "/api/analysis/person", `{"personName":"NASA","statement":"Launch delayed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[analysis.PersonResult](t, w)
	assert.Equal(t, store.AnalysisPersonCheck, res.Analysis.AnalysisType)
	assert.Equal(t, verdict.Uncertain, res.Analysis.Verdict)
	assert.Equal(t, tools.PersonUnverified, res.Verification.Verdict)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, analysis.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/analysis/text", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, analysis.Options{})
	f.do(t, http.MethodPost, "/api/analysis/text", `{"text":"`+articleText+`"}`)

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `newsverify_analysis_jobs_total{status="queued"} 1`)
}
