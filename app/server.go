package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"quickplan/app/config"
	"quickplan/app/controllers"
	"quickplan/app/export"
	"quickplan/app/metrics"
	"quickplan/app/routes"
	"quickplan/app/services"
	"quickplan/app/store"
)

// app holds the pieces shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   store.TaskStore
	service *services.TaskService
}

func setup(ctx context.Context, m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", "driver", cfg.Store.Driver)

	svc := services.NewTaskService(st, services.NewStatsCache(cfg.Stats.TTL), m, logger)
	return &app{cfg: cfg, logger: logger, store: st, service: svc}, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.TaskStore, error) {
	switch cfg.Store.Driver {
	case "neo4j":
		driver, err := config.InitNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		st, err := store.NewNeo4jStore(ctx, driver, cfg.Neo4j.Database)
		if err != nil {
			driver.Close(ctx)
			return nil, err
		}
		return st, nil
	default:
		return store.OpenSQLite(ctx, store.SQLiteOptions{
			Path:         cfg.SQLite.Path,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
		})
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.logger.Error("close store", "error", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a, err := setup(ctx, m)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Store.SeedExamples {
		if _, err := a.service.SeedExamples(ctx); err != nil {
			a.logger.Warn("seeding example tasks failed", "error", err)
		}
	}

	handler := routes.NewRouter(routes.Handlers{
		Tasks:   controllers.NewTaskController(a.service, a.logger),
		Stats:   controllers.NewStatsController(a.service, a.logger),
		Export:  controllers.NewExportController(a.service, a.cfg.Export, a.logger),
		Health:  controllers.NewHealthController(a.service, version, a.logger),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, routes.Options{Logger: a.logger, Metrics: m, RateLimit: a.cfg.RateLimit})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", srv.Addr, "version", version)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.close()

	out := exportOut
	if out == "" {
		out = export.Filename("", a.cfg.Export.Filename)
	}
	title := exportTitle
	if title == "" {
		title = a.cfg.Export.Title
	}
	n, err := writeExport(cmd.Context(), a.service, out, title, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("export written", "path", out, "rows", n)
	return nil
}

// writeExport renders the workbook to path and returns the number of rows.
func writeExport(ctx context.Context, svc *services.TaskService, path, title string, now time.Time) (int, error) {
	rows, summary, err := svc.ExportRows(ctx)
	if err != nil {
		return 0, err
	}
	data, err := export.Render(export.Report{Title: title, GeneratedAt: now, Rows: rows, Summary: summary})
	if err != nil {
		return 0, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(rows), nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.service.GetStats(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
