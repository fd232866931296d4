package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sunolegal/internal/api"
	"sunolegal/internal/assistant"
	"sunolegal/internal/backend"
	"sunolegal/internal/catalog"
	"sunolegal/internal/config"
	"sunolegal/internal/database"
	"sunolegal/internal/domain"
	"sunolegal/internal/events"
	"sunolegal/internal/google"
	"sunolegal/internal/logging"
	"sunolegal/internal/metrics"
	"sunolegal/internal/models"
	"sunolegal/internal/repository"
	"sunolegal/internal/service"
	"sunolegal/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout     = 10 * time.Second
	sheetsRefreshPeriod = 5 * time.Minute
	defaultMetricsPort  = 9090
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("load catalog")
		return err
	}
	catalogService := service.NewCatalogService(cat, logging.Component(&logger, "catalog"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readyChecks := make(map[string]api.ReadyCheck)

	db, repo, err := initBookingStore(cfg, &logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		readyChecks["database"] = db.PingContext
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
		readyChecks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}
	flags := initFlagStore(redisClient, &logger)

	publisher, amqpPublisher := initEvents(cfg, &logger)
	if amqpPublisher != nil {
		defer amqpPublisher.Close()
	}

	backendClient := initBackend(cfg, redisClient, &logger)
	sheetsService := initGoogleSheets(ctx, cfg, &logger)
	resyncSheet(ctx, sheetsService, db, &logger)

	// Background writers stop before redis and the database close.
	var background sync.WaitGroup
	defer func() {
		stop()
		background.Wait()
	}()

	var syncer domain.SyncWorker
	if sw := initSyncWorker(ctx, cfg, db, repo, redisClient, backendClient, sheetsService, &logger); sw != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			sw.Start(ctx)
		}()
		syncer = sw
	}

	bookingService := service.NewBookingService(repo, catalogService, publisher, syncer, logging.Component(&logger, "bookings"))
	var assistantBackend domain.AssistantBackend
	if backendClient != nil {
		assistantBackend = backendClient
		bookingService.SetPaymentVerifier(backendClient)
	}

	seed := cfg.Chat.ResponderSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	chatService := service.NewChatService(
		assistantBackend,
		assistant.NewResponder(assistant.NewRandPicker(seed)),
		flags,
		service.ChatLimits{
			Messages: cfg.Chat.RateLimitMessages,
			Window:   time.Duration(cfg.Chat.RateLimitWindow) * time.Second,
		},
		logging.Component(&logger, "chat"),
	)
	profileService := service.NewProfileService(flags, logging.Component(&logger, "profile"))

	startBackups(ctx, cfg, db, &background, &logger)
	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, cfg.Auth, api.Deps{
		Catalog:     catalogService,
		Bookings:    bookingService,
		Chat:        chatService,
		Profiles:    profileService,
		ReadyChecks: readyChecks,
	}, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, catalogService, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}
	if path := os.Getenv("CATALOG_PATH"); path != "" {
		cfg.Catalog.Path = path
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initBookingStore opens SQLite when a path is configured, otherwise bookings live in memory.
func initBookingStore(cfg *config.Config, logger *zerolog.Logger) (*database.DB, domain.BookingRepository, error) {
	if cfg.Database.Path == "" {
		logger.Warn().Msg("database path not set, bookings are kept in memory")
		return nil, repository.NewMemoryBookingRepository(), nil
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, nil, err
	}
	return db, db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initFlagStore(redisClient *redis.Client, logger *zerolog.Logger) domain.StateStore {
	memory := repository.NewMemoryFlagStore(models.DefaultFlagTTL * time.Second)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverFlagStore(
		repository.NewRedisFlagStore(redisClient, models.DefaultFlagTTL*time.Second),
		memory,
		logging.Component(logger, "flags"),
	)
}

// initEvents returns the publisher handed to the booking service and the AMQP
// connection to close on shutdown, if any.
func initEvents(cfg *config.Config, logger *zerolog.Logger) (domain.EventPublisher, *events.AMQPPublisher) {
	bus := events.NewEventBus()
	subscribeAuditLog(bus, logging.Component(logger, "events"))

	if cfg.Events.AMQPURL == "" {
		return bus, nil
	}
	amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq unavailable, events stay in process")
		return bus, nil
	}
	logger.Info().Str("exchange", cfg.Events.Exchange).Msg("rabbitmq connected")
	return events.MultiPublisher{bus, amqpPublisher}, amqpPublisher
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	handler := func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Str("booking_id", payload.BookingID).
			Str("previous_status", payload.PreviousStatus).
			Str("status", payload.Status).
			Msg("booking event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingStatusChanged, handler)
	bus.Subscribe(events.EventBookingCompleted, handler)
	bus.Subscribe(events.EventBookingPaymentConfirmed, handler)
}

func initBackend(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *backend.Client {
	if cfg.Backend.BaseURL == "" {
		logger.Warn().Msg("backend base_url not set, assistant runs offline")
		return nil
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second)
	if redisClient != nil {
		client.UseRedisCache(redisClient, time.Duration(cfg.Backend.CacheTTLSeconds)*time.Second)
	}
	logger.Info().
		Str("base_url", cfg.Backend.BaseURL).
		Str("api_key", logging.MaskToken(cfg.Backend.APIKey)).
		Msg("backend client configured")
	return client
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, sheetsLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("bookings sheet not reachable, share it with the service account")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets cache warm-up failed")
	}
	go sheetsService.RefreshCache(ctx, sheetsRefreshPeriod)

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// resyncSheet rewrites the mirror sheet from SQLite before the sync worker starts.
// In-memory bookings are empty after a restart, so the sheet is left as it is.
func resyncSheet(ctx context.Context, sheetsService *google.SheetsService, db *database.DB, logger *zerolog.Logger) {
	if sheetsService == nil || db == nil {
		return
	}
	bookings, err := db.ListBookings(ctx, models.BookingQuery{})
	if err != nil {
		logger.Warn().Err(err).Msg("list bookings for sheet resync")
		return
	}
	done, err := sheetsService.ResyncBookings(ctx, bookings)
	if err != nil {
		logger.Warn().Err(err).Msg("sheet resync failed")
		return
	}
	if done {
		logger.Info().Int("bookings", len(bookings)).Msg("bookings sheet resynced")
	}
}

func initSyncWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	repo domain.BookingRepository,
	redisClient *redis.Client,
	backendClient *backend.Client,
	sheetsService *google.SheetsService,
	logger *zerolog.Logger,
) *worker.SyncWorker {
	if !cfg.Sync.Enabled || (backendClient == nil && sheetsService == nil) {
		return nil
	}

	var store worker.TaskStore
	if db != nil {
		store = db
		if failed, err := db.GetFailedSyncTasks(ctx); err == nil && len(failed) > 0 {
			logger.Warn().Int("count", len(failed)).Msg("sync queue has failed tasks")
		}
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: cfg.Sync.MaxRetries}
	syncWorker := worker.NewSyncWorker(store, redisClient, retryPolicy, logging.Component(logger, "sync"))
	syncWorker.SetPollInterval(time.Duration(cfg.Sync.PollInterval) * time.Second)
	syncWorker.SetBookingSource(repo)
	if backendClient != nil {
		syncWorker.AddSink("backend", backendClient)
	}
	if sheetsService != nil {
		syncWorker.AddSink("sheets", sheetsService)
	}

	return syncWorker
}

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, background *sync.WaitGroup, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || db == nil {
		return
	}

	backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
	background.Add(1)
	go func() {
		defer background.Done()
		if err := backupService.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("backup scheduler stopped")
		}
	}()
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = defaultMetricsPort
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
