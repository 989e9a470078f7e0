package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/applidesk/backend/internal/config"
	"github.com/applidesk/backend/internal/db"
	"github.com/applidesk/backend/internal/geo"
	httpapi "github.com/applidesk/backend/internal/http"
	"github.com/applidesk/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "applidesk-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var distance geo.DistanceProvider
	if cfg.MatrixURL == "" {
		distance = geo.MockProvider{}
		logger.Info().Msg("using mock distance provider")
	} else {
		distance = &geo.MatrixProvider{
			BaseURL:   cfg.MatrixURL,
			APIKey:    cfg.MatrixAPIKey,
			UserAgent: "applidesk-backend",
		}
	}

	var regions geo.RegionExpander
	if cfg.PlacesURL == "" {
		regions = geo.StaticRegions{}
		logger.Info().Msg("region expansion disabled: no places service configured")
	} else {
		regions = &geo.PlacesRegions{
			BaseURL:   cfg.PlacesURL,
			UserAgent: "applidesk-backend",
			RadiusKm:  cfg.RegionRadiusKm,
		}
	}

	ranker := &service.Ranker{
		Directory: store,
		Distance:  distance,
		Retry: service.RetryPolicy{
			Attempts: cfg.DistanceRetryAttempts,
			Delay:    cfg.DistanceRetryDelay,
		},
		Logger: logger,
	}
	coordinator := &service.Coordinator{
		Store:     store,
		Directory: store,
		Regions:   regions,
		Ranker:    ranker,
		Logger:    logger,
	}

	router := httpapi.Router(cfg, store, coordinator, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
