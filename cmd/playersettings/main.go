package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libresonic/playersettings/internal/config"
	"github.com/libresonic/playersettings/internal/database"
	"github.com/libresonic/playersettings/internal/events"
	"github.com/libresonic/playersettings/internal/geoip"
	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	geo := geoip.Open(cfg.GeoIPDBPath)
	defer geo.Close()

	publisher, closePublisher, err := newPublisher(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer closePublisher()

	srv := server.New(server.Config{
		DB:                db.Pool,
		Pinger:            db,
		JWTSecret:         cfg.JWTSecret,
		SessionSecret:     cfg.SessionSecret,
		BaseURL:           cfg.BaseURL,
		SecureCookies:     cfg.SecureCookies(),
		TranscodeDir:      cfg.Transcoding.Directory,
		DownsampleCommand: cfg.Transcoding.DownsampleCommand,
		Locator:           locatorFor(geo),
		Publisher:         publisher,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("playersettings listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

// newPublisher returns the Redis event publisher, or a no-op one when no
// Redis URL is configured.
func newPublisher(ctx context.Context, redisURL string) (events.Publisher, func(), error) {
	if redisURL == "" {
		log.Println("REDIS_URL not set, settings events disabled")
		return events.Nop{}, func() {}, nil
	}
	rdb, err := events.Connect(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Println("publishing settings events to redis")
	return events.NewRedisPublisher(rdb), func() { _ = rdb.Close() }, nil
}

// locatorFor hides a locator without a database so player descriptions
// skip the lookup.
func locatorFor(geo *geoip.Locator) player.Locator {
	if !geo.Enabled() {
		return nil
	}
	return geo
}
