package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caphehouse/api/internal/clients"
	domain "github.com/caphehouse/api/internal/domain"
	"github.com/caphehouse/api/internal/feed"
	"github.com/caphehouse/api/internal/handlers"
	"github.com/caphehouse/api/internal/platform/config"
	"github.com/caphehouse/api/internal/platform/observability"
	"github.com/caphehouse/api/internal/repositories"
	"github.com/caphehouse/api/internal/repositories/memory"
	redisrepo "github.com/caphehouse/api/internal/repositories/redis"
	"github.com/caphehouse/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	cartStore, storePinger, closeStore, err := newCartStore(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to initialise cart store", zap.Error(err))
	}
	defer closeStore()

	apiClient, err := clients.NewClient(cfg.RemoteAPI.BaseURL, &http.Client{Timeout: cfg.RemoteAPI.Timeout})
	if err != nil {
		logger.Fatal("failed to initialise api client", zap.Error(err))
	}

	events := observability.EventLogger(logger.Named("services"))

	carts, err := services.NewCartService(services.CartServiceDeps{
		Store:      cartStore,
		StorageKey: cfg.Checkout.CartStorageKey,
		Logger:     events,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}
	if _, err := carts.Load(ctx); err != nil {
		logger.Warn("cart restore failed; starting empty", zap.Error(err))
	}

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:     carts,
		Shipping: apiClient,
		Vouchers: apiClient,
		Orders:   apiClient,
		Logger:   events,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	addresses, err := services.NewAddressSelector(services.AddressSelectorDeps{
		Addresses:   apiClient,
		Locations:   apiClient,
		SearchDelay: cfg.Checkout.SearchDelay,
		Logger:      events,
	})
	if err != nil {
		logger.Fatal("failed to initialise address selector", zap.Error(err))
	}
	defer addresses.Close()

	notifyOrder, stopFeed, err := startOrderFeed(ctx, cfg.Feed, logger)
	if err != nil {
		logger.Fatal("failed to initialise order feed", zap.Error(err))
	}
	defer stopFeed()

	var checkoutOpts []handlers.CheckoutOption
	if notifyOrder != nil {
		checkoutOpts = append(checkoutOpts, handlers.WithOrderNotifier(notifyOrder))
	}

	router := handlers.NewRouter(
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(storePinger)),
		handlers.WithCartRoutes(handlers.NewCartHandlers(carts).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkout, addresses, checkoutOpts...).Routes),
		handlers.WithAddressRoutes(handlers.NewAddressHandlers(addresses).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("caphe house api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCartStore selects redis when an address is configured, falling back to
// the in-memory store for local development.
func newCartStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (repositories.CartStore, handlers.Pinger, func(), error) {
	if cfg.Addr == "" {
		logger.Info("no redis address configured; using in-memory cart store")
		return memory.NewCartStore(), nil, func() {}, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store, err := redisrepo.NewCartStore(client)
	if err != nil {
		return nil, nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Addr), zap.Error(err))
	}

	closeStore := func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}
	return store, store, closeStore, nil
}

// startOrderFeed wires the Pub/Sub side of the order feed when configured.
// Submitted orders are announced on the topic, and the optional subscription
// logs updates; the staff dashboard consumes the same topic.
func startOrderFeed(ctx context.Context, cfg config.FeedConfig, logger *zap.Logger) (handlers.OrderNotifier, func(), error) {
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	feedLogger := logger.Named("feed")

	topic := client.Topic(cfg.Topic)
	publisher, err := feed.NewPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	notify := func(ctx context.Context, update domain.OrderUpdate) {
		if _, err := publisher.PublishOrderUpdate(ctx, update); err != nil {
			feedLogger.Warn("order update publish failed",
				zap.String("orderId", update.OrderID),
				zap.Error(err),
			)
		}
	}

	var subscriber *feed.Subscriber
	if cfg.Subscription != "" {
		subscriber, err = feed.NewSubscriber(feed.SubscriberDeps{
			Subscription: client.Subscription(cfg.Subscription),
			Logger:       observability.EventLogger(feedLogger),
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		err = subscriber.Subscribe(ctx, func(ctx context.Context, update domain.OrderUpdate) {
			feedLogger.Info("order update",
				zap.String("orderId", update.OrderID),
				zap.String("status", update.Status),
			)
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}

	return notify, func() {
		if subscriber != nil {
			subscriber.Unsubscribe()
		}
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}, nil
}
