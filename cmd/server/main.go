package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zimid/booking-server-go/internal/config"
	"github.com/zimid/booking-server-go/internal/database"
	"github.com/zimid/booking-server-go/internal/handler"
	"github.com/zimid/booking-server-go/internal/jobs"
	"github.com/zimid/booking-server-go/internal/middleware"
	"github.com/zimid/booking-server-go/internal/notify"
	"github.com/zimid/booking-server-go/internal/redis"
	"github.com/zimid/booking-server-go/internal/repository"
	"github.com/zimid/booking-server-go/internal/service"
	"github.com/zimid/booking-server-go/internal/session"
	"github.com/zimid/booking-server-go/internal/ussd"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load timezone")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url for task queue")
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	dispatcher := notify.NewDispatcher(queueClient, cfg.Notify.Queue, cfg.Notify.BufferSize, config.NotifyEnqueueTimeout)
	dispatcher.Start()
	defer dispatcher.Stop()

	worker := notify.NewWorker(redisOpt, notify.WorkerConfig{
		Queue:       cfg.Notify.Queue,
		Concurrency: cfg.Notify.Concurrency,
	}, notify.NewHandler(
		notify.NewSMSSender(notify.SMSConfig{
			Enabled:  cfg.Notify.SMSEnabled,
			Username: cfg.Notify.SMSUsername,
			APIKey:   cfg.Notify.SMSAPIKey,
			SenderID: cfg.Notify.SMSSenderID,
			BaseURL:  cfg.Notify.SMSBaseURL,
			RatePerS: cfg.Notify.SMSRatePerS,
		}),
		notify.NewEmailSender(notify.EmailConfig{
			Enabled:  cfg.Notify.EmailEnabled,
			Addr:     cfg.Notify.SMTPAddr,
			Username: cfg.Notify.SMTPUsername,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.EmailFrom,
		}),
	))
	if err := worker.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start notification worker")
	}
	defer worker.Stop()

	sessionStore, err := session.NewStore(cfg.SessionStore, redisClient.Client, cfg.SessionTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session store")
	}
	log.Info().Str("driver", cfg.SessionStore).Dur("ttl", cfg.SessionTTL()).Msg("session store ready")

	provinceRepo := repository.NewProvinceRepository(db.DB)
	serviceTypeRepo := repository.NewServiceTypeRepository(db.DB)
	bookingRepo := repository.NewBookingRepository(db.DB)

	allocator := service.NewSlotAllocator(provinceRepo, serviceTypeRepo, bookingRepo, service.AllocatorConfig{
		SlotCapacity: cfg.SlotCapacity,
		MaxDaysAhead: cfg.MaxDaysAhead,
		Location:     loc,
	})
	catalogService := service.NewCatalogService(provinceRepo, serviceTypeRepo)
	bookingService := service.NewBookingService(db, bookingRepo, allocator, dispatcher)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	engine := ussd.NewEngine(sessionStore, catalogService, allocator, bookingService, ussd.Config{
		HelpLine:     cfg.HelpLine,
		HelpURL:      cfg.HelpURL,
		MaxDaysAhead: cfg.MaxDaysAhead,
		Location:     loc,
	})

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	ussdRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.UssdRateLimitPerMin, config.UssdRateLimitWindow, "ussd",
	).WithKey(middleware.UssdCaller).WithReject(middleware.RejectUssd)

	ussdHandler := handler.NewUssdHandler(engine, config.UssdRequestTimeout)
	bookingHandler := handler.NewBookingHandler(bookingService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	healthHandler := handler.NewHealthHandler(map[string]handler.Check{
		"database": db.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/ussd", func(r chi.Router) {
		r.With(ussdRateLimitMiddleware.Handler).Post("/callback", ussdHandler.Callback)
		r.Get("/health", ussdHandler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Mount("/bookings", bookingHandler.Routes())
		catalogHandler.Register(r)
	})

	sweeper := jobs.NewNoShowSweeper(bookingRepo, allocator.Today, cfg.NoShowSweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
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
