package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benvon/smartmatch/internal/config"
	"github.com/benvon/smartmatch/internal/database"
	"github.com/benvon/smartmatch/internal/handlers"
	"github.com/benvon/smartmatch/internal/interactions"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/middleware"
	"github.com/benvon/smartmatch/internal/presence"
	"github.com/benvon/smartmatch/internal/queue"
	"github.com/benvon/smartmatch/internal/realtime"
	"github.com/benvon/smartmatch/internal/scheduler"
	"github.com/benvon/smartmatch/internal/signals"
	"github.com/benvon/smartmatch/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("interaction_sink", cfg.InteractionSink),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx := context.Background()

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, telemetry.Options{
				ServiceName: telemetry.ServiceAPI,
				Endpoint:    cfg.OTELEndpoint,
				Insecure:    cfg.OTELInsecure,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	interactionRepo := database.NewInteractionRepository(db)
	activityRepo := database.NewUserActivityRepository(db)
	preferencesRepo := database.NewPreferencesRepository(db)
	candidateRepo := database.NewCandidateRepository(db, cfg.Pipeline.ScorerCandidateLimit)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)
	channels := presence.NewRedisChannelService(redisClient)

	healthChecks := map[string]handlers.CheckFunc{
		"database": db.HealthCheck,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	// Views go straight to the database unless a worker persists them from the queue
	var viewSink interactions.Sink = interactionRepo
	var jobQueue *queue.RabbitMQQueue
	if cfg.InteractionSink == config.SinkQueue {
		jobQueue, err = queue.Connect(ctx, cfg.RabbitMQURL, queue.DefaultConnectTimeout, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		viewSink = queue.NewInteractionSink(jobQueue)
		healthChecks["queue"] = jobQueue.HealthCheck
	}

	pipeline, err := signals.New(signals.Deps{
		Sink:        interactionRepo,
		ViewSink:    viewSink,
		Activity:    activityRepo,
		Channels:    channels,
		Preferences: preferencesRepo,
		Scorer:      candidateRepo,
	}, cfg.Pipeline, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_signal_pipeline", zap.Error(err))
	}

	activityTracker := middleware.NewActivityTracker(activityRepo, middleware.DefaultActivityInterval, cfg.Pipeline.IOTimeout, zapLogger)
	origins := middleware.ParseOrigins(cfg.FrontendURL)
	presenceSocket := realtime.NewPresenceSocket(channels, activityRepo, cfg.Pipeline.PresenceChannel, origins, cfg.Pipeline.IOTimeout, zapLogger.Named("realtime"))

	jobs := scheduler.New(zapLogger.Named("scheduler"))
	mustSchedule(zapLogger, jobs, "sweep_recommendations", cfg.Pipeline.RecommendationSweepSchedule, func(ctx context.Context) error {
		if removed := pipeline.SweepRecommendations(); removed > 0 {
			zapLogger.Debug("recommendations_swept", zap.Int("removed", removed))
		}
		return nil
	})
	mustSchedule(zapLogger, jobs, "expire_sessions", "@every 10m", func(ctx context.Context) error {
		if expired := pipeline.ExpireSessions(cfg.Pipeline.SessionIdleTimeout); expired > 0 {
			zapLogger.Info("idle_sessions_expired", zap.Int("count", expired))
		}
		activityTracker.Prune()
		return nil
	})
	mustSchedule(zapLogger, jobs, "prune_views", cfg.MaintenanceSchedule, func(ctx context.Context) error {
		deleted, err := interactionRepo.DeleteViewsOlderThan(ctx, time.Now().Add(-cfg.ViewRetention))
		if err != nil {
			return fmt.Errorf("failed to prune views: %w", err)
		}
		zapLogger.Info("views_pruned", zap.Int64("deleted", deleted))
		return nil
	})
	jobs.Start()

	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, ratelimitConfigRepo, database.InteractionsRatelimitKey, cfg.RateLimit, zapLogger, time.Minute)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}

	r := mux.NewRouter()

	// In gorilla/mux, middleware registered first is the outermost wrapper
	if tracingEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceAPI))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(origins))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Identity)
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(activityTracker.Middleware())

	healthChecker := handlers.NewHealthChecker(healthChecks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()

	interactionsRouter := api.PathPrefix("/interactions").Subrouter()
	interactionsRouter.Use(middleware.RequireIdentity)
	interactionsRouter.Use(rateLimitReloader.Middleware())
	handlers.NewInteractionHandler(pipeline).RegisterRoutes(interactionsRouter)

	handlers.NewPresenceHandler(pipeline, presenceSocket).RegisterRoutes(api.PathPrefix("/presence").Subrouter())

	recommendationsRouter := api.PathPrefix("/recommendations").Subrouter()
	recommendationsRouter.Use(middleware.RequireIdentity)
	handlers.NewRecommendationHandler(pipeline, zapLogger).RegisterRoutes(recommendationsRouter)

	handlers.NewSessionHandler(pipeline).RegisterRoutes(api.PathPrefix("/session").Subrouter())

	preferencesRouter := api.PathPrefix("/preferences").Subrouter()
	preferencesRouter.Use(middleware.RequireIdentity)
	handlers.NewPreferenceHandler(pipeline).RegisterRoutes(preferencesRouter)

	// Preflight requests are answered by the CORS middleware before routing
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()
	go rateLimitReloader.Start(backgroundCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	backgroundCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	jobs.Stop()
	// Open view windows are flushed after the last request has been served
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("failed_to_flush_pipeline", zap.Error(err))
	}

	zapLogger.Info("server_exited", zap.Any("pipeline_stats", pipeline.Stats()))
}

func mustSchedule(log *zap.Logger, s *scheduler.Scheduler, name, spec string, fn scheduler.JobFunc) {
	if err := s.Add(name, spec, fn); err != nil {
		log.Fatal("failed_to_schedule_job", zap.String("job", name), zap.Error(err))
	}
	log.Info("scheduled_job", zap.String("job", name), zap.String("schedule", spec))
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
