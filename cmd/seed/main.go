package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ems-backend/config"
	appuser "github.com/oksasatya/go-ems-backend/internal/application"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ems-backend/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
)

// seed registers a demo user through the same path as POST /api/auth/register.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := appuser.NewService(pginfra.NewUserRepository(pool), helpers.NewBcryptHasher(0), logger)

	u, err := svc.Register(ctx, cfg.SeedName, cfg.SeedEmail, cfg.SeedPassword)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		logger.WithField("email", cfg.SeedEmail).Info("seed user already exists")
		return
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email, "name": u.Name}).Info("seeded user")
}
