package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/internal/command"
	"github.com/kuztatygit/lemfi-qa-homework/internal/handler"
	"github.com/kuztatygit/lemfi-qa-homework/internal/query"
	"github.com/kuztatygit/lemfi-qa-homework/internal/repository"
	"github.com/kuztatygit/lemfi-qa-homework/internal/validation"
	"github.com/kuztatygit/lemfi-qa-homework/shared/config"
	"github.com/kuztatygit/lemfi-qa-homework/shared/events"
	"github.com/kuztatygit/lemfi-qa-homework/shared/logger"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	redisClient "github.com/kuztatygit/lemfi-qa-homework/shared/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log := logger.Must()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	middleware.MustInitJWTSecret(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Write store
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := repository.OpenPostgres(ctx, log, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to open postgres store", zap.Error(err))
		}
		store = pg
	default:
		log.Warn("using in-memory store, data is lost on restart")
		store = repository.NewMemoryStore()
	}
	defer store.Close()

	// Redis: balance read model and, optionally, the event stream
	var cache goredis.Cmdable
	if cfg.RedisAddr != "" {
		redis, err := redisClient.NewClient(ctx, log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redis.Close()
		cache = redis.Client
	}

	publisher := newPublisher(cfg, cache, log)

	// --- CQRS wiring ---
	gate, err := validation.NewGate(cfg.SupportedCurrencies, nil)
	if err != nil {
		log.Fatal("invalid currency configuration", zap.Error(err))
	}
	readRepo := repository.NewAccountReadRepository(store, cache, log)

	commandSvc := command.NewAccountCommandService(store, readRepo, gate, publisher, log, cfg.TokenTTL)
	querySvc := query.NewAccountQueryService(readRepo)
	authSvc := query.NewAuthQueryService(store, cfg.TokenTTL)

	authHandler := handler.NewAuthHandler(commandSvc, authSvc, log, cfg.TokenTTL)
	paymentHandler := handler.NewPaymentHandler(commandSvc, querySvc, log)
	userDataHandler := handler.NewUserDataHandler(commandSvc, querySvc, log)

	// Setup router
	router := gin.New()
	router.Use(middleware.TraceID(), middleware.LoggingMiddleware(log), middleware.Metrics(), gin.Recovery())

	public := router.Group("/public", middleware.RateLimit(cfg.SignupRatePerSecond, cfg.SignupBurst))
	{
		public.POST("/sign-up", authHandler.SignUp)
		public.POST("/sign-in", authHandler.SignIn)
	}

	api := router.Group("/api", middleware.AuthMiddleware())
	{
		api.POST("/add-funds", paymentHandler.AddFunds)
		api.GET("/payments", paymentHandler.ListPayments)
		api.POST("/personal-data", userDataHandler.UpdatePersonalData)
		api.GET("/balance", userDataHandler.GetBalance)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("ledger service starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}
}

// newPublisher picks the event bus named by EVENT_BUS.
func newPublisher(cfg *config.Config, redis goredis.Cmdable, log *zap.Logger) events.Publisher {
	switch cfg.EventBus {
	case config.EventBusKafka:
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
		return events.NewKafkaPublisher(cfg.KafkaBrokers)
	case config.EventBusRedis:
		log.Info("publishing events to redis streams")
		return events.NewRedisPublisher(redis)
	default:
		return events.NopPublisher{}
	}
}
