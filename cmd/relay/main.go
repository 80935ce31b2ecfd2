package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/outbox"
	"github.com/NawarAli1912/EStore.API-sub000/internal/service/offers"
	"github.com/NawarAli1912/EStore.API-sub000/internal/storage"
	"github.com/NawarAli1912/EStore.API-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log := logger.New("outbox-relay", getEnv("DEBUG", "") != "")
	log.Info("outbox relay starting")

	// Configuration
	httpPort := getEnv("HTTP_PORT", "8091")
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getEnv("KAFKA_TOPIC", "estore-events")
	interval := getEnv("RELAY_INTERVAL", "1s")

	// Database setup
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Error("invalid DB_PORT", "error", err)
		os.Exit(1)
	}
	creds := &storage.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "estore"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./migrations"),
	}

	store, err := storage.NewPostgresStore(creds)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.RunMigrations(creds); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database migrations completed")

	tick, err := time.ParseDuration(interval)
	if err != nil {
		log.Error("invalid RELAY_INTERVAL", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := outbox.NewMetrics(registry)

	publisher := outbox.NewKafkaPublisher(topic, brokers...)
	defer publisher.Close()

	relay := outbox.NewRelay(store, log,
		outbox.WithInterval(tick),
		outbox.WithMetrics(metrics),
	)
	relay.RegisterAll(publisher.Handle)

	sweeper := offers.NewSweeper(store, log, offers.DefaultSweepInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)
	go sweeper.Run(ctx)

	// metrics and health endpoints
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		log.Info("http endpoints listening", "port", httpPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down outbox relay")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	log.Info("outbox relay stopped")
}
