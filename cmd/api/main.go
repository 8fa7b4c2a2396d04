package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hakiu/consent-service/internal/alert"
	"github.com/hakiu/consent-service/internal/config"
	"github.com/hakiu/consent-service/internal/httpserver"
	"github.com/hakiu/consent-service/internal/ratelimit"
	"github.com/hakiu/consent-service/internal/store"
)

// main boots the service: env → config → DB → schema → Redis → HTTP server.
func main() {
	// Optional .env for local development; real deployments use the
	// platform environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Durable storage (Postgres) for consent logs and honeypot detections.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		log.Fatal(err)
	}

	// Shared key-value store: rate-limit counters coordinate across
	// instances through Redis, never in process memory.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	limits := ratelimit.NewStore(rdb)
	alerts := alert.NewDispatcher(cfg.WebhookURL)

	router := httpserver.NewRouter(cfg, db, rdb, limits, alerts)

	log.Println("server started on :" + cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}
