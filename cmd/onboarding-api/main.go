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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/onboarding-api/internal/config"
	"github.com/vasapolrittideah/onboarding-api/internal/handler"
	"github.com/vasapolrittideah/onboarding-api/internal/mailer"
	"github.com/vasapolrittideah/onboarding-api/internal/onboarding"
	"github.com/vasapolrittideah/onboarding-api/internal/repository"
	"github.com/vasapolrittideah/onboarding-api/internal/token"
	"github.com/vasapolrittideah/onboarding-api/internal/usecase"
	"github.com/vasapolrittideah/onboarding-api/internal/verification"
)

const startupTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.New(&logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	if err := mongoClient.Ping(startupCtx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongo")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping redis")
	}

	db := mongoClient.Database(cfg.Mongo.Database)

	userRepo := repository.NewUserMongoRepository(startupCtx, &logger, db)
	codes := verification.NewStore(redisClient)
	carrier := onboarding.NewStateCarrier(cfg.Token.Issuer, cfg.Signup)
	issuer := token.NewIssuer(cfg.Token)
	smtpMailer := mailer.NewMailer(&logger)

	authUsecase := usecase.NewAuthUsecase(userRepo, codes, carrier, issuer, smtpMailer, cfg.Signup)
	authHandler := handler.NewAuthHTTPHandler(&logger, authUsecase, issuer, cfg)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	authHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down HTTP server")
	}

	logger.Info().Msg("server stopped")
}
