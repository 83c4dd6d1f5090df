// Command seedadmin crea o actualiza un administrador del panel.
//
//	go run ./cmd/seedadmin -email admin@ejemplo.com -password secreto
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"referral-purchase-service/internal/config"
	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/repository"
	"referral-purchase-service/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	email := flag.String("email", "", "email del administrador")
	password := flag.String("password", "", "contraseña del administrador")
	disabled := flag.Bool("disabled", false, "deja la cuenta deshabilitada")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("error conectando a MongoDB")
	}
	defer client.Disconnect(ctx)

	hash, err := service.HashPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("error generando hash")
	}

	repo := repository.NewMongoAdminRepository(client.Database(cfg.MongoDBName))
	admin := &model.Admin{
		Email:        service.NormalizeEmail(*email),
		PasswordHash: hash,
		Enabled:      !*disabled,
	}
	if err := repo.Save(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("error guardando administrador")
	}
	log.Info().Str("email", admin.Email).Bool("enabled", admin.Enabled).Msg("administrador guardado")
}
