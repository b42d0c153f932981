package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/petasbytes/newsverify/internal/config"
	"github.com/petasbytes/newsverify/internal/fetch"
	"github.com/petasbytes/newsverify/internal/metrics"
	"github.com/petasbytes/newsverify/internal/provider"
	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/safety"
	"github.com/petasbytes/newsverify/internal/telemetry"
	"github.com/petasbytes/newsverify/tools"
)

// app holds the components shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	policy  safety.URLPolicy
	metrics *metrics.Recorder
	// client carries every outbound page fetch; callers add their own
	// timeouts and redirect checks.
	client *http.Client
}

// loadApp reads the config and sets up logging and telemetry. A nil
// registerer disables metrics.
func loadApp(reg prometheus.Registerer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	telemetry.Configure(cfg.Telemetry.ObserveJSON, cfg.Telemetry.ArtifactsDir)

	a := &app{
		cfg:    cfg,
		logger: logger,
		policy: safety.URLPolicy{AllowPrivate: cfg.Fetch.AllowPrivate},
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	if reg != nil {
		a.metrics = metrics.NewRecorder(reg)
	}
	return a, nil
}

func (a *app) personOptions() tools.PersonOptions {
	policy := a.policy
	return tools.PersonOptions{
		HTTPClient: a.client,
		Policy:     &policy,
		Timeout:    a.cfg.Person.Timeout,
		Delay:      a.cfg.Person.Delay,
		MaxSources: a.cfg.Person.MaxSources,
	}
}

func (a *app) registry(history tools.HistoryQuerier) *tools.Registry {
	return tools.Default(tools.Deps{History: history, Person: a.personOptions()})
}

func (a *app) fetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{
		HTTPClient:   a.client,
		Policy:       a.policy,
		Timeout:      a.cfg.Fetch.Timeout,
		MaxRedirects: a.cfg.Fetch.MaxRedirects,
		MaxChars:     a.cfg.Agent.MaxInputChars,
		Logger:       a.logger,
	})
}

func (a *app) runner(reg *tools.Registry, onToolCall func(context.Context, runner.RunIDs, runner.ToolCallRecord)) (*runner.Runner, error) {
	model, err := provider.New(a.cfg.Model.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}
	a.logger.Info("model provider ready", "provider", model.Name(), "model", a.cfg.Model.Name)
	return runner.New(model, reg, runner.Options{
		Model:            a.cfg.Model.Name,
		MaxIterations:    a.cfg.Agent.MaxIterations,
		MaxInputChars:    a.cfg.Agent.MaxInputChars,
		CallTimeout:      a.cfg.Agent.CallTimeout,
		MinDistinctTools: a.cfg.Agent.MinDistinctTools,
		OnToolCall:       onToolCall,
		Logger:           a.logger,
		Metrics:          a.metrics,
	}), nil
}
