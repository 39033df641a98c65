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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/config"
	"github.com/chachabrian/rideshare-backend/internal/database"
	"github.com/chachabrian/rideshare-backend/internal/handlers"
	"github.com/chachabrian/rideshare-backend/internal/logger"
	"github.com/chachabrian/rideshare-backend/internal/repository"
	"github.com/chachabrian/rideshare-backend/internal/repository/memory"
	mongostore "github.com/chachabrian/rideshare-backend/internal/repository/mongo"
	"github.com/chachabrian/rideshare-backend/internal/repository/postgres"
	"github.com/chachabrian/rideshare-backend/internal/services"
	"github.com/chachabrian/rideshare-backend/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Initialize WebSocket hub
	hub := services.NewHub(log)
	go hub.Run(ctx)

	channels, redisClient := notificationChannels(ctx, cfg, hub, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := services.NewDispatcher(store, channels, cfg.NotifyTimeout, log)
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	router := handlers.NewRouter(handlers.Deps{
		Auth:        services.NewAuthService(store, tokens, log),
		Rides:       services.NewRideService(store, log),
		Bookings:    services.NewBookingService(store, dispatcher, log),
		Hub:         hub,
		Tokens:      tokens,
		Store:       store,
		Redis:       redisClient,
		Log:         log,
		CORSOrigins: corsOrigins(cfg.CORSOrigins),
		PublicDir:   cfg.PublicDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	// Let in-flight notifications finish before the store goes away.
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		log.Warn("notifications still pending at shutdown")
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		db, err := database.InitDB(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil

	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		store := mongostore.NewStore(client, cfg.Mongo.Database, cfg.Mongo.Transactions, log)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}
}

// notificationChannels wires every provider that is configured. A provider
// that fails to start is logged and left out.
func notificationChannels(ctx context.Context, cfg *config.Config, hub *services.Hub, log *zap.Logger) (services.Channels, *redis.Client) {
	var channels services.Channels

	if cfg.AWS.Enabled() {
		sess, err := services.NewAWSSession(cfg.AWS)
		if err != nil {
			log.Warn("aws disabled", zap.Error(err))
		} else {
			if cfg.AWS.SESFrom != "" && !cfg.SMTP.Enabled() {
				channels.Email = utils.NewSESMailer(sess, cfg.AWS.SESFrom)
			}
			if cfg.SMS.Provider == "sns" {
				channels.SMS = utils.NewSNSSender(sess, cfg.AWS.SNSSenderID)
			}
		}
	}

	if cfg.SMTP.Enabled() {
		channels.Email = utils.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}
	if cfg.SMS.Provider == "africastalking" && cfg.SMS.ATUsername != "" && cfg.SMS.ATAPIKey != "" {
		channels.SMS = utils.NewAfricasTalkingSender(cfg.SMS.ATUsername, cfg.SMS.ATAPIKey)
	}

	if cfg.FirebaseServiceAccountPath != "" {
		pusher, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath)
		if err != nil {
			log.Warn("firebase disabled", zap.Error(err))
		} else {
			channels.Push = pusher
		}
	}

	// With Redis every instance relays events to its own hub, so the hub is
	// not published to directly.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := services.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis disabled", zap.Error(err))
		} else {
			redisClient = client
			channels.Publishers = append(channels.Publishers, services.NewRedisPublisher(client))
			go services.RelayToHub(ctx, client, hub)
		}
	}
	if redisClient == nil {
		channels.Publishers = append(channels.Publishers, hub)
	}

	log.Info("notification channels",
		zap.Bool("email", channels.Email != nil),
		zap.Bool("sms", channels.SMS != nil),
		zap.Bool("push", channels.Push != nil),
		zap.Bool("redis", redisClient != nil))
	return channels, redisClient
}

func corsOrigins(origins []string) []string {
	for _, o := range origins {
		if o == "*" {
			return nil
		}
	}
	return origins
}
