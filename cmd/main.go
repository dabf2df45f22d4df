package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/compass/internal/api"
	"github.com/UnknownOlympus/compass/internal/cache"
	"github.com/UnknownOlympus/compass/internal/config"
	"github.com/UnknownOlympus/compass/internal/geocoding"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/publish"
	"github.com/UnknownOlympus/compass/internal/reconciler"
	"github.com/UnknownOlympus/compass/internal/repository"
	"github.com/UnknownOlympus/compass/internal/resolver"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/UnknownOlympus/compass/internal/stream"
	"github.com/UnknownOlympus/compass/internal/tasks"
	"github.com/UnknownOlympus/compass/internal/zones"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// Cache backends selectable with COMPASS_CACHE_BACKEND.
const (
	cacheBackendPostgres = "postgres"
	cacheBackendRedis    = "redis"
	cacheBackendMemory   = "memory"
)

const shutdownTimeout = 15 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Initialize the database connection.
	dtb, err := repository.NewDatabase(
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dtb.Close()

	// Create a new repository instance using the database connection.
	repo := repository.NewRepository(dtb, logger)
	if err = repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare database schema: %v", err)
	}

	// Create geocoding provider using factory pattern based on configuration
	// This allows runtime selection between different providers (Google, Visicom, Nominatim).
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		RateLimit: cfg.Provider.RateLimit,
		Locale:    geocoding.Locale{Language: cfg.Provider.Language, Country: cfg.Provider.Country},
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type)

	backend, closeBackend, err := setupCacheBackend(cfg.Cache, repo)
	if err != nil {
		log.Fatalf("Failed to set up geocode cache: %v", err)
	}
	defer closeBackend()
	geocodeCache := cache.New(backend, cfg.Cache.MemorySize, logger, appMetrics)

	zoneIndex, err := zones.Load(cfg.ZonesFile, logger)
	if err != nil {
		log.Fatalf("Failed to load sector zones: %v", err)
	}

	clock := clockwork.NewRealClock()
	background := tasks.NewGroup(logger, cfg.WritebackTimeout, appMetrics.BackgroundTasks)

	addressResolver := resolver.New(logger, geocodeCache, geoProvider, background, appMetrics, resolver.Options{
		ProviderName:  cfg.Provider.Type,
		Timeout:       cfg.Provider.Timeout,
		Workers:       cfg.Workers,
		AddressPrefix: cfg.AddrPrefix,
		Clock:         clock,
	})

	statusReconciler := reconciler.New(reconciler.Rules{
		RMAMarker: cfg.Reconciler.RMAMarker,
		RMAStatus: cfg.Reconciler.RMAStatus,
		NewStatus: cfg.Reconciler.NewStatus,
	}, repo, background, logger, appMetrics)

	publisher := publish.New(cfg.Kafka, logger)
	defer func() {
		if err = publisher.Close(); err != nil {
			logger.Error("Failed to close publisher", "error", err)
		}
	}()

	dashboard := service.NewDashboardService(
		logger, addressResolver, zoneIndex, statusReconciler, publisher, appMetrics, clock,
	)

	// Each collection is read as its own snapshot stream.
	tickets := stream.NewPoller[models.TicketRecord](
		logger, "tickets", repo.FetchTickets, cfg.Interval, clock, appMetrics,
	)
	shipments := stream.NewPoller[models.ShipmentRecord](
		logger, "shipments", repo.FetchShipments, cfg.Interval, clock, appMetrics,
	)

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	server := newHTTPServer(cfg.Port, api.NewRouter(
		dashboard, dtb, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger,
	))
	go func() {
		logger.InfoContext(ctx, "Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "HTTP server failed", "error", err)
			stop()
		}
	}()

	done := make(chan struct{})
	go func() {
		dashboard.Run(ctx, tickets.Subscribe(ctx), shipments.Subscribe(ctx))
		close(done)
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.Info("Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", "error", err)
	}
	<-done
	if err = addressResolver.Shutdown(shutdownCtx); err != nil {
		logger.Error("Geocoding did not finish", "error", err)
	}
	if err = background.Shutdown(shutdownCtx); err != nil {
		logger.Error("Background writes did not finish", "error", err)
	}

	// Log graceful shutdown completion.
	logger.Info("Application stopped gracefully.")
}

// setupCacheBackend returns the durable geocode cache backend selected by configuration
// and a function releasing its resources. The memory backend has no durable tier.
func setupCacheBackend(cfg config.CacheConfig, repo *repository.Repository) (cache.Backend, func(), error) {
	switch cfg.Backend {
	case cacheBackendPostgres:
		return repo, func() {}, nil
	case cacheBackendRedis:
		backend, err := cache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return backend, func() { _ = backend.Close() }, nil
	case cacheBackendMemory:
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// newHTTPServer creates the server for the dashboard API, health check and metrics endpoints.
func newHTTPServer(port int, handler http.Handler) *http.Server {
	readTimeout := 5
	writeTimeout := 10
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified	 or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
