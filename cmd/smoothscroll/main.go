// Package main provides the entry point for the smoothscroll server.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"

	"github.com/Rorqualx/smoothscroll-go/internal/browser"
	"github.com/Rorqualx/smoothscroll-go/internal/config"
	"github.com/Rorqualx/smoothscroll-go/internal/handlers"
	"github.com/Rorqualx/smoothscroll-go/internal/loop"
	"github.com/Rorqualx/smoothscroll-go/internal/metrics"
	"github.com/Rorqualx/smoothscroll-go/internal/middleware"
	"github.com/Rorqualx/smoothscroll-go/internal/presets"
	"github.com/Rorqualx/smoothscroll-go/internal/scroll"
	"github.com/Rorqualx/smoothscroll-go/internal/session"
	"github.com/Rorqualx/smoothscroll-go/pkg/version"
)

func main() {
	cfg := config.Load()

	// Logging first so validation warnings are visible.
	setupLogging(cfg.LogLevel)
	cfg.Validate()
	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every scroll session and pointer callback runs on this goroutine.
	frames := loop.New(cfg.FrameInterval)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		frames.Run(loopCtx)
	}()

	log.Info().Msg("Initializing browser pool...")
	pool, err := browser.NewPool(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize browser pool")
	}

	presetMgr, err := presets.NewManager(cfg.PresetsPath, cfg.PresetsHotReload)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load easing presets")
	}
	presetMgr.OnReload(metrics.RecordPresetReload)

	opener := browser.NewOpener(pool, cfg, frames.Post)
	sessionMgr := session.NewManager(cfg, session.OpenerFunc(func(ctx context.Context, url string) (session.Page, error) {
		target, err := opener.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		return target, nil
	}), frames, scroll.Config{
		Reporter:        metrics.NewReporter(nil),
		Hooks:           browser.MomentumHooks(),
		DefaultDuration: cfg.DefaultScrollDuration,
		DefaultEasing:   cfg.DefaultEasing,
		Resolve:         presetMgr.Resolve,
	})

	handler := handlers.New(sessionMgr, frames, cfg)

	// Recovery runs outermost so it catches panics from everything below it.
	finalHandler := middleware.Chain(
		middleware.Recovery,
		middleware.Logging,
		middleware.SecurityHeaders,
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}),
		middleware.APIKey(cfg),
	)(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("address", addr).Msg("Failed to listen")
	}
	if cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConnections)
	}

	// Waiting scroll requests hold the connection for up to the longest animation.
	server := &http.Server{
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.MaxScrollDuration + 90*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopCh := make(chan struct{})

	var metricsServer *http.Server
	if cfg.PrometheusEnabled {
		metrics.SetBuildInfo(version.Full(), version.GoVersion())

		go metrics.StartCollector(10*time.Second, stopCh, func() {
			metrics.UpdatePoolMetrics(pool.Size(), pool.Available())
			metrics.UpdateSessionMetrics(sessionMgr.Count())
		})

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())

		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.PrometheusPort),
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().
				Int("port", cfg.PrometheusPort).
				Msg("Prometheus metrics server started")

			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Int("pool_size", cfg.BrowserPoolSize).
			Int("max_connections", cfg.MaxConnections).
			Dur("frame_interval", frames.Interval()).
			Bool("metrics_enabled", cfg.PrometheusEnabled).
			Msg("smoothscroll is ready to accept requests")

		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Shutting down...")
	close(stopCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}

	// Sessions interrupt their scrolls on the loop, so the loop stops after them.
	if err := sessionMgr.Close(); err != nil {
		log.Error().Err(err).Msg("Session manager close error")
	}
	stopLoop()
	<-loopDone

	if err := presetMgr.Close(); err != nil {
		log.Error().Err(err).Msg("Presets manager close error")
	}
	if err := pool.Close(); err != nil {
		log.Error().Err(err).Msg("Browser pool close error")
	}

	log.Info().Msg("Shutdown complete")
}

// setupLogging configures zerolog based on the log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printBanner prints the startup banner.
func printBanner() {
	banner := `
  ___ _ __  ___  ___ | |_| |__  ___  ___ _ __ ___ | | |
 (_-<| '  \/ _ \/ _ \|  _| '  \(_-< / _| '_/ _ \| | |
 /__/|_|_|_\___/\___/ \__|_||_/__/ \__|_| \___/|_|_|
                               eased scrolling for headless pages
`
	fmt.Println(banner)
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Msg("Starting smoothscroll")
}
