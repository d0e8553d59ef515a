package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"avatarstudio/internal/adapter/repo"
	"avatarstudio/internal/collab"
	"avatarstudio/internal/domain"
	"avatarstudio/internal/http/handlers"
	httpapi "avatarstudio/internal/http/httpapi"
	"avatarstudio/internal/infra"
	"avatarstudio/internal/infra/geoip"
	"avatarstudio/internal/metrics"
	"avatarstudio/internal/middleware"
	"avatarstudio/internal/orchestrator"
	"avatarstudio/internal/providers/avatar"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancelWatches := context.WithCancel(context.Background())
	defer cancelWatches()

	// Project store: postgres when configured, in-memory otherwise.
	var projects domain.ProjectRepository
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		projects = repo.NewProjectRepository(dbpool)
		logger.Info().Msg("using postgres project store")
	} else {
		projects = repo.NewProjectRepositoryMemory()
		logger.Info().Msg("using in-memory project store")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	vendor := avatar.NewClient(avatar.Options{
		ClientID:       cfg.VendorClientID,
		ClientSecret:   cfg.VendorSecret,
		BaseURL:        cfg.VendorBaseURL,
		TokenURL:       cfg.VendorTokenURL,
		StatusURL:      cfg.VendorStatusURL,
		Scope:          cfg.VendorScope,
		Logger:         &logger,
		RequestTimeout: cfg.VendorHTTPTimeout,
	})
	if !vendor.HasCredentials() {
		logger.Warn().Msg("vendor credentials not configured, generation requests will fail")
	}

	m := metrics.New()
	jobs := orchestrator.New(vendor, orchestrator.Options{
		PollInterval:  cfg.PollInterval,
		SafetyTimeout: cfg.JobSafetyTimeout,
		Logger:        &logger,
		Metrics:       m,
	})
	hub := collab.NewHub(&logger, m)

	app := &handlers.App{
		Logger:    logger,
		Vendor:    vendor,
		Jobs:      jobs,
		Projects:  projects,
		Hub:       hub,
		Metrics:   m,
		StartedAt: time.Now(),
		WatchCtx:  ctx,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   countryLookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancelWatches()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
