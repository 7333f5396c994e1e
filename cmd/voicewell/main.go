package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicewell/internal/cfg"
	"voicewell/internal/metrics"
	"voicewell/internal/model"
	"voicewell/internal/server"
	"voicewell/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	artifact := loadArtifact(c, mw)
	pipeline := model.NewPipeline(artifact, c.Threshold, c.RangePolicy, mw)

	startMetricsServer(ctx, c)

	api := server.New(server.Config{
		Port:        c.ServerPort,
		SessionTTL:  c.SessionTTL,
		HTTPTimeout: c.HTTPTimeout,
	}, pipeline, artifact, store, m)

	go func() {
		if err := api.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, api)
}

// initializeStorage opens the store if DATA_PATH is configured. Running
// without it disables accounts and history but keeps prediction serving up.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		log.Warn().Msg("no data path configured, running without persistence")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// loadArtifact resolves the active artifact version and loads it. A missing
// artifact is fatal: serving predictions is the whole point of the process.
func loadArtifact(c cfg.Settings, mw *metrics.Wrapper) *model.Artifact {
	registry, err := model.NewRegistry(c.ModelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact registry failed")
	}

	dir := registry.ActiveDir()
	artifact, err := model.Load(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("model artifact load failed")
	}

	if trainedAt := artifact.Classifier.Metadata.TrainedAt; !trainedAt.IsZero() {
		mw.ModelAgeSet(time.Since(trainedAt).Seconds())
	}
	return artifact
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a signal arrives, then drains the API server.
func waitForShutdown(ctx context.Context, api *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api shutdown incomplete")
	}
}
