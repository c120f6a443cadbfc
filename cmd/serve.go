package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/leadscore/internal/adapters/http/api"
	"github.com/okian/leadscore/internal/adapters/http/swagger"
	"github.com/okian/leadscore/internal/adapters/repository"
	"github.com/okian/leadscore/internal/adapters/zoho"
	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/config"
	"github.com/okian/leadscore/internal/domain/dedupe"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// processTimeoutFactor bounds a whole pipeline run in units of the per-call
// vendor timeout: token, download, upload, list and attach.
const processTimeoutFactor = 5

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Loads configuration from defaults, the YAML file in LEADSCORE_CONFIG and LEADSCORE_ environment variables, then serves the API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cmd.Flags().Changed("log-format") && cfg.LogFormat != "" {
				if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("log-level") {
				if err := logger.SetLevelString(cfg.LogLevel); err != nil {
					logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
					_ = logger.SetLevelString("info")
				}
			}
			return serve(ctx, cfg, logger.Get())
		},
	}
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	// Drop the default Go collectors; system gauges are exported on the
	// custom registry instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := buildHandler(cfg, log)
	if err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      processTimeout(cfg) + readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("version", version),
			logger.Bool("template_cache", cfg.TemplateCacheTTLMS > 0))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

func processTimeout(cfg *config.Config) time.Duration {
	return processTimeoutFactor * cfg.RequestTimeout()
}

// buildHandler wires the vendor client, pipeline and routes from cfg.
func buildHandler(cfg *config.Config, log logger.Logger) (http.Handler, error) {
	layout, err := presentation.LoadLayout(cfg.LayoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}

	limiter := zoho.NewHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	httpClient := zoho.NewHTTPClient(cfg.RequestTimeout(), limiter)
	tokens := zoho.NewRefreshTokenProvider(zoho.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
		TokenURL:     cfg.TokenURL,
	}, httpClient)

	client := zoho.NewClient(tokens, zoho.Endpoints{
		UploadURL:       cfg.UploadURL,
		CRMBaseURL:      cfg.CRMBaseURL,
		ParentFolderID:  cfg.ParentFolderID,
		AttachmentTitle: cfg.AttachmentTitle,
	},
		zoho.WithHTTPClient(httpClient),
		zoho.WithLedger(dedupe.NewInMemoryLedger(dedupe.WithMaxSize(cfg.AttachLedgerSize))),
		zoho.WithMaxResponseBytes(cfg.MaxResponseBytes),
		zoho.WithLogger(log.Named("zoho")),
	)

	templates := repository.NewTemplateCache(client, cfg.TemplateCacheTTL(),
		repository.WithLogger(log.Named("templates")))

	pipeline := service.NewPipeline(cfg.TemplateURL, templates, client, client,
		service.WithLogger(log.Named("pipeline")),
		service.WithFiller(presentation.NewFiller(layout)),
	)

	apiServer := api.NewServer(pipeline,
		api.WithLogger(log.Named("api")),
		api.WithVersion(version),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithProcessTimeout(processTimeout(cfg)),
	)

	mux := http.NewServeMux()
	swagger.Register(mux)
	apiServer.Register(mux)
	return apiServer.Handler(mux), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
