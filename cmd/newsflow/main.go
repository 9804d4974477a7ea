package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"newsflow/internal/api"
	"newsflow/internal/fixtures"
	"newsflow/internal/llm"
	"newsflow/internal/recommend"
	"newsflow/internal/scraper"
	"newsflow/internal/sentiment"
	"newsflow/internal/service"
	"newsflow/internal/store"
)

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func main() {
	dbHost := envOrDefault("DB_HOST", "localhost")
	dbPort := envOrDefault("DB_PORT", "5432")
	dbName := envOrDefault("DB_NAME", "newsflow")
	dbUser := envOrDefault("DB_USER", "newsflow")
	dbPass := envOrDefault("DB_PASS", "newsflow")
	redisAddr := envOrDefault("REDIS_ADDR", "localhost:6379")
	llmURL := envOrDefault("LLM_URL", "http://localhost:11434/api/generate")
	llmModel := envOrDefault("LLM_MODEL", "smollm2:135m")
	fixturesDir := os.Getenv("FIXTURES_DIR")
	port := envOrDefault("PORT", "8080")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, dbHost, dbPort, dbName)
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	// the database may still be starting inside docker
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Printf("waiting for db: attempt %d, err: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("could not connect to db: %v", err)
	}

	repo := store.NewPgStore(db)
	if err := repo.RunMigrations(); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("warning: redis ping failed, feed caching disabled: %v", err)
	}
	cancel()

	if fixturesDir != "" {
		loader := fixtures.NewLoader(repo)
		if err := loader.Load(context.Background(), fixturesDir); err != nil {
			log.Fatalf("fixtures: %v", err)
		}
	}

	analyzer := sentiment.New()
	engine := recommend.NewEngine(repo)
	hybrid := recommend.NewHybrid(engine, repo, rdb)
	scr := scraper.New(repo, analyzer)
	llmClient := llm.NewClient(llmURL, llmModel, &http.Client{Timeout: 60 * time.Second})

	svc := service.NewService(repo, rdb, engine, hybrid, scr, llmClient)

	sched := scraper.NewScheduler(svc)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	handler := api.NewHandler(svc)
	router := gin.Default()
	api.RegisterRoutes(router, handler)

	log.Printf("listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
