package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/order-engine/internal/checkout"
	"github.com/safar/order-engine/internal/config"
	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/handlers"
	"github.com/safar/order-engine/internal/lifecycle"
	"github.com/safar/order-engine/internal/notify"
	"github.com/safar/order-engine/internal/observability"
	"github.com/safar/order-engine/internal/settings"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	var settingsSource settings.Source = settings.NewDBSource(db, settings.Defaults(cfg))
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		settingsSource = settings.NewCachedSource(rdb, settingsSource, cfg.Redis.SettingsTTL, logger)
		logger.Info("settings cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var publishers []notify.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publishers = append(publishers, notify.WithBreaker(kafkaPublisher, logger))
		logger.Info("kafka purchase events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if cfg.Webhook.URL != "" {
		webhook := notify.NewWebhookPublisher(cfg.Webhook.URL, cfg.Webhook.Token, cfg.Webhook.Timeout)
		publishers = append(publishers, notify.WithBreaker(webhook, logger))
		logger.Info("analytics webhook enabled")
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		HashContact: cfg.Notify.HashContact,
		Timeout:     cfg.Notify.Timeout,
	}, logger, publishers...)

	service, err := checkout.NewService(checkout.Deps{
		DB:              db,
		Settings:        settingsSource,
		Notifier:        dispatcher,
		Logger:          logger,
		OrderNumberBase: cfg.Checkout.OrderNumberBase,
		MaxAttempts:     cfg.Checkout.MaxAttempts,
		Timeout:         cfg.Checkout.PlacementTimeout,
	})
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Placer:         service,
		Admin:          lifecycle.NewManager(db, logger),
		DB:             db,
		Logger:         logger,
		AdminToken:     cfg.Server.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		ThrottleLimit:  cfg.Checkout.ThrottleLimit,
		ThrottleWindow: cfg.Checkout.ThrottleWindow,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending purchase notifications dropped", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
