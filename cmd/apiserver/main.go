// Command apiserver runs the Book dot REST backend.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookdot/internal/cache"
	"bookdot/internal/config"
	"bookdot/internal/database"
	"bookdot/internal/observability"
	"bookdot/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.Tracing("bookdot-api"))
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	store, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rdb, err := cache.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, store, rdb)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := rdb.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
		if err := store.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
