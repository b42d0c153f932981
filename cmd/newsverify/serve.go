package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/newsverify/internal/analysis"
	"github.com/petasbytes/newsverify/internal/server"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/internal/telemetry"
	"github.com/petasbytes/newsverify/tools"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a, err := loadApp(reg)
	if err != nil {
		return err
	}
	log := a.logger

	shutdownTracing, err := telemetry.SetupTracing(ctx, a.cfg.Telemetry.TracingConfig(server.ServiceName))
	if err != nil {
		return err
	}
	defer func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(fctx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	st, err := store.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()
	log.Info("store ready", "driver", a.cfg.Store.Driver)

	registry := a.registry(st)
	agent, err := a.runner(registry, analysis.PersistToolCalls(st, log))
	if err != nil {
		return err
	}
	svc := analysis.New(st, agent, a.fetcher(), analysis.Options{
		Concurrency: a.cfg.Worker.Concurrency,
		QueueSize:   a.cfg.Worker.QueueSize,
		RunTimeout:  a.cfg.Worker.RunTimeout,
		Person:      tools.NewPersonVerifier(a.personOptions()),
		Logger:      log,
		Metrics:     a.metrics,
	})
	router := server.New(svc, registry, server.Options{
		FrontendURL: a.cfg.Server.FrontendURL,
		Gatherer:    reg,
		Logger:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
		return server.Serve(gctx, addr, router, a.cfg.Server.ShutdownTimeout, log)
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
