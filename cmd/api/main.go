package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcioluisms/hotelly2-sub000/internal/app"
	"github.com/marcioluisms/hotelly2-sub000/internal/clock"
	"github.com/marcioluisms/hotelly2-sub000/internal/config"
	"github.com/marcioluisms/hotelly2-sub000/internal/logging"
	"github.com/marcioluisms/hotelly2-sub000/internal/metrics"
	"github.com/marcioluisms/hotelly2-sub000/internal/pricing"
	"github.com/marcioluisms/hotelly2-sub000/internal/storage/postgres"
	"github.com/marcioluisms/hotelly2-sub000/internal/tasks"
	transporthttp "github.com/marcioluisms/hotelly2-sub000/internal/transport/http"
	"github.com/marcioluisms/hotelly2-sub000/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, cfg.App)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	clk := clock.NewSystem()
	quoter := pricing.NewPostgresQuoter(pool)

	holdRepo := postgres.NewHoldRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	holdOpts := []app.HoldServiceOption{
		app.WithHoldTTL(cfg.Holds.TTL),
		app.WithHoldLogger(logger),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without a broker URL the API still serves requests; expiry then relies
	// on direct POST /holds/{id}/expire calls.
	var queue *tasks.RabbitQueue
	if cfg.Queue.URL != "" {
		queue, err = tasks.NewRabbitQueue(cfg.Queue.URL, cfg.Queue.QueueName)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to queue")
		}
		defer queue.Close()
		holdOpts = append(holdOpts, app.WithExpiryScheduler(tasks.NewScheduler(queue, clk)))
	} else {
		logger.Warn().Msg("no queue url configured, hold expiry worker disabled")
	}

	holdSvc := app.NewHoldService(holdRepo, quoter, clk, holdOpts...)
	reservationSvc := app.NewReservationService(reservationRepo, quoter, clk)
	catalogSvc := app.NewCatalogService(catalogRepo, clk)

	if queue != nil {
		worker := tasks.NewWorker(queue, holdSvc, clk, logger,
			tasks.WithSweepInterval(cfg.Holds.SweepInterval))
		if err := worker.Start(runCtx); err != nil {
			logger.Fatal().Err(err).Msg("start expiry worker")
		}
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/holds", transporthttp.HandleCreateHold(holdSvc))
	mux.Handle("/holds/", transporthttp.HandleHoldActions(holdSvc))
	mux.Handle("/reservations/", transporthttp.HandleReservationActions(reservationSvc))
	mux.Handle("/admin/properties", transporthttp.HandleAdminProperties(catalogSvc))
	mux.Handle("/admin/properties/", transporthttp.HandleAdminPropertySubresources(catalogSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.HTTP.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler,
	}

	logger.Info().Int("port", cfg.HTTP.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-runCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
