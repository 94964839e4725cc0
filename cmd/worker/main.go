package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/credentials"
	"github.com/maheshrc27/postpilot/internal/health"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/publisher"
	"github.com/maheshrc27/postpilot/internal/queue"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/internal/status"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	postTargetRepo := repository.NewPostTargetRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)

	refreshers := map[string]credentials.Refresher{
		models.PlatformInstagram: service.NewInstagramConnectService(cfg, socialAccountRepo),
		models.PlatformTiktok:    service.NewTiktokConnectService(cfg, socialAccountRepo),
		models.PlatformYoutube:   service.NewYoutubeConnectService(cfg, socialAccountRepo),
		models.PlatformTwitter:   service.NewTwitterConnectService(cfg, socialAccountRepo),
	}
	resolver := credentials.NewResolver(socialAccountRepo, []byte(cfg.SecretKey), refreshers)

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	registry := publisher.NewRegistry(
		publisher.NewTwitterPublisher(httpClient, cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret),
		publisher.NewInstagramPublisher(httpClient),
		publisher.NewTiktokPublisher(httpClient),
		publisher.NewLinkedinPublisher(httpClient),
		publisher.NewYoutubePublisher(httpClient),
	)

	aggregator := status.NewRecomputer(postRepo, postTargetRepo)
	metrics := health.NewMetrics()

	worker := queue.NewWorker(postTargetRepo, resolver, registry, aggregator, cfg.Worker.RatePerSecond, metrics)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency:    cfg.Worker.Concurrency,
		RetryDelayFunc: queue.RetryDelay,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishTask)

	// Ops side channel: /health, /ready, /metrics.
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New()
	app.Use(logger.New())
	health.NewHandler(inspector, metrics).Register(app)

	go func() {
		if err := app.Listen(cfg.Worker.HealthAddr); err != nil {
			log.Fatalf("Failed to start health server: %v", err)
		}
	}()

	go func() {
		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	server.Shutdown()
	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down health server: %v", err)
	}
	log.Println("Worker shutdown complete.")
}
