package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/config"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/evaluator"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/metrics"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/notifier"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/processor"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/producer"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/resolver"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/router"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/scheduler"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/shared"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/staging"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout    = 10 * time.Second
	notificationBuffer = 256
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg := &config.Config{}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	level, levelErr := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	if envErr != nil {
		slog.Debug("No .env file loaded", "error", envErr)
	}

	slog.Info("Starting data processor",
		"mongo_uri", shared.MaskDSN(cfg.MongoURI),
		"mongo_db", cfg.MongoDatabase,
		"mongo_collection", cfg.MongoCollection,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"api_base_url", cfg.APIBaseURL,
		"processing_log_url", cfg.ProcessingLogURL,
		"notification_url", cfg.NotificationURL,
		"kafka_brokers", cfg.KafkaBrokers,
		"alarms_topic", cfg.AlarmsTopic,
		"redis_addr", cfg.RedisAddr,
		"http_port", cfg.HTTPPort,
		"poll_interval", cfg.PollInterval,
		"operation_timeout", cfg.OperationTimeout,
	)

	if levelErr != nil {
		slog.Error("Invalid configuration", "error", levelErr)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	slog.Info("Connecting to PostgreSQL database")
	db, err := database.NewDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		slog.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		redisClient, err = shared.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.Info("Successfully connected to Redis")
	} else {
		slog.Info("No Redis address configured, service metrics are not reported")
	}

	collector := metrics.NewCollector(metrics.ServiceName, redisClient)
	collector.Start(ctx)
	defer collector.Stop()

	prom := metrics.NewPrometheus()

	var publisher evaluator.AlarmPublisher = &evaluator.NoOpPublisher{}
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.NewProducer(cfg.KafkaBrokers, cfg.AlarmsTopic)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		publisher = kafkaProducer
	} else {
		slog.Info("No Kafka brokers configured, alarm events are not published")
	}

	var notifiers notifier.Group
	if cfg.NotificationURL != "" {
		sink := notifier.NewSink(cfg.NotificationURL)
		defer sink.Close()
		go func() {
			if err := sink.Connect(ctx); err != nil {
				slog.Warn("Notification server unavailable, will retry on next send", "error", err)
			}
		}()
		queue := notifier.NewAsync("websocket", sink, notificationBuffer, cfg.OperationTimeout)
		defer queue.Close(shutdownTimeout)
		notifiers = append(notifiers, queue)
	}
	if cfg.ProcessingLogURL != "" {
		client := notifier.NewProcessingLogClient(cfg.ProcessingLogURL, cfg.OperationTimeout)
		queue := notifier.NewAsync("processing-log", client, notificationBuffer, cfg.OperationTimeout)
		defer queue.Close(shutdownTimeout)
		notifiers = append(notifiers, queue)
	}

	proc := processor.NewProcessor(processor.Dependencies{
		OpenStaging: func(ctx context.Context) (processor.StagingStore, error) {
			st, err := staging.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.OperationTimeout)
			if err != nil {
				return nil, err
			}
			return st, nil
		},
		ParameterTypes: resolver.NewClient(cfg.APIBaseURL, cfg.OperationTimeout),
		Store:          db,
		Evaluator:      evaluator.New(db, publisher, cfg.OperationTimeout),
		Notifier:       notifiers,
		Metrics:        metrics.Fanout{collector, prom},
	}, cfg.OperationTimeout)

	sched := scheduler.New(func(ctx context.Context) error {
		_, err := proc.RunPass(ctx)
		return err
	}, cfg.PollInterval)

	server := router.NewServer(cfg.HTTPPort, router.NewRouter(sched,
		promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{})))
	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	sched.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	slog.Info("Data processor stopped")
}
