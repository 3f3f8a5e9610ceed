package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taxidata/platform/internal/processor"
	"github.com/taxidata/platform/internal/rides"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/config"
	"github.com/taxidata/platform/pkg/database"
	"github.com/taxidata/platform/pkg/health"
	"github.com/taxidata/platform/pkg/logger"
	"github.com/taxidata/platform/pkg/middleware"
	"github.com/taxidata/platform/pkg/rabbitmq"
	"github.com/taxidata/platform/pkg/resilience"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("ride-processor")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Apply pending migrations
	if err := database.RunMigrations(&cfg.Database, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied")

	// Connect to PostgreSQL
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(pool)
	log.Println("Connected to PostgreSQL database")

	// Connect to RabbitMQ
	conn, err := rabbitmq.NewConnection(&cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	// One breaker instance per protected operation, owned by this process
	registry := resilience.NewRegistry()
	breaker := registry.Get(resilience.BuildSettings(
		processor.SaveRideBreakerName,
		cfg.Breaker.WindowSize,
		cfg.Breaker.FailureRateThreshold,
		cfg.Breaker.OpenTimeoutSeconds,
		cfg.Breaker.HalfOpenMaxCalls,
	))

	repo := rides.NewRepository(pool)
	pipeline := processor.NewPipeline(repo, breaker)
	consumer := processor.NewConsumer(conn, pipeline, cfg.RabbitMQ.Prefetch)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Health and metrics endpoint alongside the consumer
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, version, map[string]func() error{
		"database": health.DatabaseChecker(pool),
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	go func() {
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start health server: %v", err)
		}
	}()

	log.Printf("Ride processor consuming queue %q", cfg.RabbitMQ.Queue)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Consumer stopped with error: %v", err)
	}
	log.Println("Ride processor shut down")
}
