/**
 * @description
 * Entry point for the MonetizeGram service. It loads configuration, connects to
 * PostgreSQL, Redis, RabbitMQ and Telegram, wires the payment services together
 * and runs the HTTP server, the bot update loop and the maintenance schedule
 * until it receives a shutdown signal.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Optional session store and checkout selection throttle.
 * - github.com/joho/godotenv: Local .env bootstrap.
 * - github.com/prometheus/client_golang: /metrics exposition.
 * - internal/*, pkg/*: The service packages.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HashGen/MonetizeGram/internal/api"
	"github.com/HashGen/MonetizeGram/internal/app"
	"github.com/HashGen/MonetizeGram/internal/bot"
	"github.com/HashGen/MonetizeGram/internal/config"
	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/HashGen/MonetizeGram/internal/session"
	"github.com/HashGen/MonetizeGram/internal/store"
	"github.com/HashGen/MonetizeGram/pkg/rabbitmq"
	"github.com/HashGen/MonetizeGram/pkg/telegram"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("level=warn component=bootstrap msg=\"failed to load .env file\" err=%v", err)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"invalid configuration\" err=%v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	log.Printf("level=info component=bootstrap msg=\"starting monetizegram\" port=%s", cfg.ServerPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	if err := store.Migrate(ctx, dbpool); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema migration failed\" err=%v", err)
	}
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	repository := store.NewPostgresRepository(dbpool, cfg.PendingPaymentTTL())

	// Redis is optional: without it sessions live in memory and checkout is not rate limited.
	var sessions session.Store = session.NewMemoryStore(cfg.SessionTTL())
	var throttle app.SelectionThrottle
	if cfg.RedisURL == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; using in-memory sessions and no checkout rate limit\" env=REDIS_URL")
	} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using in-memory sessions\" err=%v", parseErr)
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancelPing()
		if pingErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis ping failed; using in-memory sessions\" err=%v", pingErr)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			sessions = session.NewRedisStore(redisClient, cfg.RedisKeyPrefix, cfg.SessionTTL())
			throttle = app.NewRedisSelectionThrottle(redisClient, cfg.RedisKeyPrefix, cfg.CheckoutRateLimitPerMinute, time.Minute)
			log.Println("level=info component=bootstrap msg=\"redis connected\"")
		}
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	if cfg.RabbitMQURL == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; events will not be published\" env=RABBITMQ_URL")
	} else if producer, perr := rabbitmq.NewEventProducer(cfg.RabbitMQURL); perr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", perr)
	} else {
		publisher = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}
	defer publisher.Close()

	client, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"telegram client init failed\" err=%v", err)
	}
	log.Printf("level=info component=bootstrap msg=\"telegram bot authorized\" username=%s", client.Username())

	metrics := app.NewMetrics(prometheus.DefaultRegisterer)
	notifier := app.NewNotifier(client, cfg.SuperAdminID, logger)

	settlement := app.NewSettlement(repository, client, notifier, publisher, app.SettlementConfig{
		CommissionPercent: cfg.PlatformCommissionPercent,
		InviteLinkTTL:     cfg.InviteLinkTTL(),
		EventsExchange:    cfg.EventsExchange,
	}, logger, metrics)
	reconciler := app.NewReconciler(repository, settlement, notifier, logger, metrics)
	allocator := app.NewAllocator(repository, cfg.AllocatorMaxBaseOffset, cfg.AllocatorMaxProbes, logger, metrics)
	checkout := app.NewCheckout(repository, allocator, throttle, notifier, publisher, app.CheckoutConfig{
		PublicURL:      cfg.PublicURL,
		PendingTTL:     cfg.PendingPaymentTTL(),
		EventsExchange: cfg.EventsExchange,
	}, logger)
	owners := app.NewOwnerService(repository, client, notifier, publisher, app.OwnerConfig{
		CommissionPercent: cfg.PlatformCommissionPercent,
		MinimumWithdrawal: cfg.MinimumWithdrawal(),
		EventsExchange:    cfg.EventsExchange,
	}, logger)
	admin := app.NewAdminService(cfg.SuperAdminID, cfg.SuperAdminUsername, repository, client, notifier, publisher, cfg.EventsExchange, logger)
	reports := app.NewReportService(repository, notifier, logger)
	jobs := app.NewJobs(repository, client, notifier, publisher, app.JobsConfig{
		BannedOwnerRetention: cfg.BannedOwnerRetention(),
		EventsExchange:       cfg.EventsExchange,
	}, logger, metrics)

	// Payment SMS can also arrive through the broker when a relay publishes them there.
	if cfg.RabbitMQURL != "" {
		consumer, cerr := rabbitmq.NewConsumer(cfg.RabbitMQURL)
		if cerr != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; sms queue intake disabled\" err=%v", cerr)
		} else {
			defer consumer.Close()
			bindings := map[string]rabbitmq.Handler{
				domain.EventSMSReceived: reconciler.HandleSMSDelivery,
			}
			if err := consumer.ConsumeWithBindings(ctx, cfg.EventsExchange, cfg.SMSInboxQueue, bindings); err != nil {
				log.Printf("level=warn component=bootstrap msg=\"sms queue consumer start failed\" err=%v", err)
			}
		}
	}

	handler := api.NewHandler(reconciler, jobs, admin)
	router := api.NewRouter(handler, api.Secrets{
		Automation: cfg.AutomationSecret,
		SuperAdmin: cfg.SuperAdminSecret,
		Cron:       cfg.CronSecret,
	}, promhttp.Handler())

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	var scheduler *app.Scheduler
	if cfg.SweepEnabled() {
		scheduler = app.NewScheduler(jobs, logger, cfg.SubscriptionSweepSchedule)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"scheduler start failed\" err=%v", err)
		}
	}

	telegramBot := bot.New(client, sessions, owners, checkout, reports, admin, reconciler, bot.Config{
		AdminID:           cfg.SuperAdminID,
		CommissionPercent: cfg.PlatformCommissionPercent,
	}, logger)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		telegramBot.Run(ctx, client.Updates(60))
	}()

	<-ctx.Done()
	log.Println("level=info component=http msg=\"shutdown started\"")

	client.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		log.Println("level=warn component=bot msg=\"in-flight updates did not finish before shutdown timeout\"")
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
