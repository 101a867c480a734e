package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-pm/internal/anomaly"
	"github.com/miradorstack/mirador-pm/internal/api"
	"github.com/miradorstack/mirador-pm/internal/cache"
	"github.com/miradorstack/mirador-pm/internal/config"
	"github.com/miradorstack/mirador-pm/internal/engine"
	"github.com/miradorstack/mirador-pm/internal/metrics"
	"github.com/miradorstack/mirador-pm/internal/repo"
	"github.com/miradorstack/mirador-pm/internal/services"
	"github.com/miradorstack/mirador-pm/internal/telemetry"
	"github.com/miradorstack/mirador-pm/internal/utils"
	"github.com/miradorstack/mirador-pm/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-pm", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		logger.Warn("telemetry unavailable", slog.Any("error", err))
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(flushCtx)
	}()

	cacheProvider, valkeyCloser := buildCache(cfg, logger)
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	analyzer, err := buildAnalyzer(cfg, cacheProvider, logger)
	if err != nil {
		return err
	}

	handler := api.NewHandler(logger, analyzer)
	server, err := api.NewServer(cfg.Server, handler.Routes())
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	if cfg.Watch.Enabled && cfg.EventStore.File != "" {
		watcher, err := watch.NewWatcher(logger, cfg.EventStore.File, analyzer.Reload)
		if err != nil {
			logger.Warn("file watch unavailable", slog.Any("error", err))
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("file watch stopped", slog.Any("error", err))
				}
			}()
		}
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("mirador-pm stopped")
	return nil
}

func buildCache(cfg *config.Config, logger *slog.Logger) (cache.Provider, cache.Provider) {
	var cacheProvider cache.Provider = cache.NoopProvider{}
	var closer cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			closer = provider
		}
	} else if cfg.Cache.Enabled {
		cacheProvider = cache.NewMemoryProvider()
	}
	return cacheProvider, closer
}

func buildAnalyzer(cfg *config.Config, cacheProvider cache.Provider, logger *slog.Logger) (*services.Analyzer, error) {
	var eventSource services.EventSource
	if cfg.EventStore.File != "" {
		eventSource = repo.NewFileStore(cfg.EventStore.File)
	} else {
		eventSource = repo.NewEventStoreClient(
			cfg.EventStore.Endpoint,
			cfg.EventStore.APIKey,
			cfg.EventStore.Timeout,
			cacheProvider,
			cfg.EventStore.CacheTTL,
		)
	}

	errorSource := buildAnomalySource(cfg, cacheProvider, logger)

	conformanceCfg, err := buildConformance(cfg.Analysis.Conformance)
	if err != nil {
		return nil, err
	}

	bottlenecks := engine.NewBottleneckAnalyzer(logger, errorSource, cfg.Analysis.TopN)
	return services.NewAnalyzer(logger, eventSource, bottlenecks, conformanceCfg, cfg.Analysis.TopN), nil
}

func buildAnomalySource(cfg *config.Config, cacheProvider cache.Provider, logger *slog.Logger) anomaly.Source {
	switch cfg.Anomaly.Mode {
	case "incidents":
		if cfg.Incidents.Endpoint == "" {
			logger.Warn("incident mode selected without an endpoint, reporting zero errors")
			return anomaly.NopSource{}
		}
		return repo.NewIncidentClient(
			cfg.Incidents.Endpoint,
			cfg.Incidents.APIKey,
			cfg.Incidents.Timeout,
			cacheProvider,
			cfg.Incidents.CacheTTL,
		)
	case "nop":
		return anomaly.NopSource{}
	default:
		return anomaly.SyntheticSource{Seed: cfg.Anomaly.Seed, Rate: cfg.Anomaly.Rate}
	}
}

func buildConformance(cfg config.ConformanceConfig) (engine.ConformanceConfig, error) {
	flow := cfg.Flow
	if cfg.FlowName != "" || len(flow) == 0 {
		flows, err := engine.LoadReferenceFlows(cfg.FlowsPath)
		if err != nil {
			return engine.ConformanceConfig{}, fmt.Errorf("load reference flows: %w", err)
		}
		if cfg.FlowName != "" {
			if len(flows) == 0 {
				return engine.ConformanceConfig{}, fmt.Errorf("reference flow %q not found in %s", cfg.FlowName, cfg.FlowsPath)
			}
			selected, err := engine.FlowByName(flows, cfg.FlowName)
			if err != nil {
				return engine.ConformanceConfig{}, err
			}
			flow = selected.Activities
		} else if len(flows) > 0 {
			if selected, err := engine.FlowByName(flows, ""); err == nil {
				flow = selected.Activities
			}
		}
	}

	out := engine.ConformanceConfig{
		IdealFlow:     flow,
		ExtraSlack:    cfg.ExtraSlack,
		MissingSlack:  cfg.MissingSlack,
		OrderPenalty:  cfg.OrderPenalty,
		ConformingMin: cfg.ConformingMin,
		PartialMin:    cfg.PartialMin,
	}
	if len(out.IdealFlow) > 0 {
		if err := out.Validate(); err != nil {
			return engine.ConformanceConfig{}, err
		}
	}
	return out, nil
}
