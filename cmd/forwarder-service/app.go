package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"kurir/internal/activity"
	"kurir/internal/admin"
	"kurir/internal/broker"
	"kurir/internal/config"
	"kurir/internal/constants"
	"kurir/internal/delivery"
	"kurir/internal/forwarding"
	"kurir/internal/logger"
	"kurir/internal/rules"
	"kurir/pkg/circuitbreaker"
	"kurir/pkg/health"
	"kurir/pkg/metrics"
	"kurir/pkg/middleware"
	"kurir/pkg/ratelimit"
)

type App struct {
	config *config.Config
	logger logger.Logger

	mongoClient *mongo.Client
	redisClient *redis.Client

	store         *rules.Store
	activityLog   *activity.Log
	dispatcher    *forwarding.Dispatcher
	eventProducer broker.Producer

	router *gin.Engine
	server *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("forwarder-service")
	}
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize rule store: %w", err)
	}

	if err := a.initActivityLog(ctx); err != nil {
		return fmt.Errorf("failed to initialize activity log: %w", err)
	}

	a.initDispatcher()

	metrics.RegisterForwarderMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterHTTPMetrics()
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: a.router,
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(a.config.Database.MongoDB.URI))
	if err != nil {
		return fmt.Errorf("mongodb connect failed: %w", err)
	}
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	a.mongoClient = mongoClient

	a.redisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.config.Database.Redis.Host, a.config.Database.Redis.Port),
		Password: a.config.Database.Redis.Password,
		DB:       a.config.Database.Redis.DB,
	})
	if err := a.redisClient.Ping(connectCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (a *App) initStore(ctx context.Context) error {
	dbName := a.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDB
	}
	repo := rules.NewRepository(a.mongoClient.Database(dbName))

	opts := []rules.StoreOption{}
	if a.config.Broker.Type == "kafka" && a.config.Broker.Kafka.ConfigUpdateTopic != "" {
		producer, err := broker.NewProducer(a.config.Broker, a.logger)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Failed to create config event producer, peer notifications disabled",
				"error", err,
			)
		} else {
			a.eventProducer = producer
			notifier := rules.NewNotifier(producer, a.config.Broker.Kafka.ConfigUpdateTopic, a.logger)
			opts = append(opts, rules.WithEventPublisher(notifier))
			a.logger.InfowCtx(ctx, "Config event producer initialized")
		}
	}

	a.store = rules.NewStore(repo, a.config.Forwarder.Reload, a.logger, opts...)

	if err := a.store.ReloadRules(ctx, true); err != nil {
		a.logger.WarnwCtx(ctx, "Failed to load initial rules",
			"error", err,
		)
	}

	return nil
}

func (a *App) initActivityLog(ctx context.Context) error {
	repo := activity.NewRepository(a.redisClient, constants.ActivityLogKey, constants.ActivityLogCapacity)
	a.activityLog = activity.NewLog(constants.ActivityLogCapacity, repo, a.logger)

	if err := a.activityLog.Restore(ctx); err != nil {
		a.logger.WarnwCtx(ctx, "Failed to restore activity log, starting empty",
			"error", err,
		)
	}

	return nil
}

func (a *App) initDispatcher() {
	var deliverer delivery.Deliverer = delivery.NewBotAPIDeliverer(a.config.Forwarder.Delivery, a.logger)

	if a.config.CircuitBreaker.Enabled {
		cbConfig := circuitbreaker.DefaultConfig("bot-api")
		if a.config.CircuitBreaker.MaxRequests > 0 {
			cbConfig.MaxRequests = a.config.CircuitBreaker.MaxRequests
		}
		if a.config.CircuitBreaker.Interval > 0 {
			cbConfig.Interval = a.config.CircuitBreaker.Interval
		}
		if a.config.CircuitBreaker.Timeout > 0 {
			cbConfig.Timeout = a.config.CircuitBreaker.Timeout
		}
		if a.config.CircuitBreaker.FailureRatio > 0 {
			minRequests := a.config.CircuitBreaker.MinRequests
			if minRequests == 0 {
				minRequests = 3
			}
			ratio := a.config.CircuitBreaker.FailureRatio
			cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= minRequests && failureRatio >= ratio
			}
		}
		deliverer = delivery.NewCircuitBreakerDeliverer(deliverer, cbConfig)
		a.logger.Infow("Delivery circuit breaker enabled")
	}

	deliveryTimeout := a.config.Forwarder.Delivery.Timeout
	if deliveryTimeout <= 0 {
		deliveryTimeout = constants.DefaultDeliveryTimeout
	}

	a.dispatcher = forwarding.NewDispatcher(a.store, a.activityLog, deliverer, deliveryTimeout, a.logger)
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Forwarder.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.Forwarder.RateLimit.RPS,
			Burst:           a.config.Forwarder.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.Forwarder.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.Forwarder.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := admin.NewHandler(a.store, a.activityLog, a.dispatcher, a.logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	healthRegistry.Register(health.NewRedisChecker(a.redisClient))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.config.Broker.Type == "" {
		a.logger.WarnwCtx(ctx, "No broker configured, running with the HTTP API only")
	} else {
		inboundConsumer, err := broker.NewConsumer(a.config.Broker, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create inbound consumer: %w", err)
		}
		inboundConsumer.SetServiceName("forwarder-service")
		defer inboundConsumer.Close()

		inboundTopic := a.config.Broker.Kafka.InboundTopic
		if inboundTopic == "" {
			inboundTopic = constants.DefaultInboundTopic
		}
		g.Go(func() error {
			a.logger.InfowCtx(gCtx, "Starting inbound message consumer",
				"topic", inboundTopic,
			)
			return inboundConsumer.Consume(gCtx, inboundTopic, forwarding.InboundHandler(a.dispatcher))
		})
	}

	if a.config.Broker.Type == "kafka" && a.config.Broker.Kafka.ConfigUpdateTopic != "" {
		configConsumer, err := broker.NewConsumer(a.config.Broker, a.logger)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("forwarder-service")
			defer configConsumer.Close()

			g.Go(func() error {
				a.logger.InfowCtx(gCtx, "Starting config update event consumer",
					"topic", a.config.Broker.Kafka.ConfigUpdateTopic,
				)
				return configConsumer.Consume(gCtx, a.config.Broker.Kafka.ConfigUpdateTopic, rules.ConfigEventHandler(a.store, a.logger))
			})
		}
	}

	g.Go(func() error {
		return a.store.StartReloader(gCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if shutdownErr := a.Shutdown(context.Background()); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Infow("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event producer close error: %w", err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.Infow("Shutdown complete")
	return nil
}
