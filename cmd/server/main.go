package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/tdnguyen/retail-analytics/internal/adapter/handler"
	"github.com/tdnguyen/retail-analytics/internal/adapter/storage"
	"github.com/tdnguyen/retail-analytics/internal/config"
	"github.com/tdnguyen/retail-analytics/internal/core/service"
	"github.com/tdnguyen/retail-analytics/internal/port"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis report cache (optional)
	var cache port.ReportCache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		cache = storage.NewRedisAdapter(rdb)
		log.Println("connected to redis")
	} else {
		log.Println("report cache disabled (redis_addr not set)")
	}

	// Initialize adapters and services
	repo := storage.NewMySQLAdapter(db)
	store, err := storage.NewFileModelStore(cfg.ModelsDir)
	if err != nil {
		log.Fatalf("failed to init model store: %v", err)
	}

	analytics := service.NewAnalyticsService(repo, cache, cfg.CacheTTL())
	mlService := service.NewMLService(repo, store)

	startRetrainScheduler(cfg, mlService)

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(analytics, mlService).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Println("connections closed")
}

// startRetrainScheduler retrains both models on a cron schedule when one is
// configured. Schedule is a standard 5-field cron expression, e.g.
// "0 3 * * *" (daily 3am).
func startRetrainScheduler(cfg config.Config, mlService *service.MLService) {
	if cfg.RetrainSchedule == "" {
		log.Println("scheduled retraining disabled (retrain_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(cfg.RetrainSchedule)
	if err != nil {
		log.Printf("invalid retrain_schedule '%s': %v — scheduled retraining disabled", cfg.RetrainSchedule, err)
		return
	}
	log.Printf("model retraining scheduled (cron: %s)", cfg.RetrainSchedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Printf("next model retraining at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))

			time.Sleep(next.Sub(now))

			result := mlService.TrainAll(context.Background())
			log.Printf("scheduled retraining complete: status=%s segmentation=%s churn=%s",
				result.Status, result.Segmentation.Status, result.Churn.Status)
		}
	}()
}
