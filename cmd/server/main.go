package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/config"
	"referral-purchase-service/internal/controller"
	"referral-purchase-service/internal/rabbit"
	"referral-purchase-service/internal/repository"
	"referral-purchase-service/internal/router"
	"referral-purchase-service/internal/service"
	"referral-purchase-service/internal/storage"
)

func main() {
	cfg := config.Load()
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("error conectando a MongoDB")
	}
	db := client.Database(cfg.MongoDBName)

	purchaseRepo := repository.NewMongoPurchaseRepository(db)
	if err := purchaseRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("error creando índices")
	}

	// Redis para sesiones
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("REDIS_URL inválida")
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("error conectando a Redis")
	}

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("error conectando a RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("error creando canal en RabbitMQ")
	}
	if err := rabbit.Setup(ch); err != nil {
		log.Fatal().Err(err).Msg("error declarando exchange")
	}

	// Repositorios y servicios
	authService := service.NewAuthService(
		repository.NewMongoAdminRepository(db),
		repository.NewRedisSessionRepository(rdb),
		cfg.JWTSecret,
		cfg.SessionTTL(),
	)
	objects := storage.NewGridFSStorage(db, cfg.PublicBaseURL)
	table := backend.NewPurchasesTable(purchaseRepo, rabbit.NewPublisher(ch), rabbit.NewFeed(conn))

	r := router.New(router.Deps{
		Auth:        authService,
		Storage:     objects,
		Objects:     objects,
		Table:       table,
		Bucket:      cfg.StorageBucket,
		MaxFileSize: cfg.MaxUploadBytes,
		Location:    cfg.Location(),
		HealthChecks: map[string]controller.Check{
			"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"rabbit": func(context.Context) error {
				if conn.IsClosed() {
					return amqp091.ErrClosed
				}
				return nil
			},
		},
		CORSOrigins: cfg.CORSOrigins,
		Release:     cfg.Env == "production",
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Msgf("servicio de compras ejecutándose en puerto %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error del servidor")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("cerrando servidor…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre forzado")
	}
	_ = ch.Close()
	_ = conn.Close()
	_ = rdb.Close()
	_ = client.Disconnect(shutdownCtx)
	log.Info().Msg("servidor detenido")
}
