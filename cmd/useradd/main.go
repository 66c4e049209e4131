package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/internal/auth"
	"github.com/spec-kit/northwind-service/internal/config"
	"github.com/spec-kit/northwind-service/internal/domain"
	"github.com/spec-kit/northwind-service/internal/observability"
	"github.com/spec-kit/northwind-service/internal/persistence"
	"github.com/spec-kit/northwind-service/internal/repository"
)

// useradd creates or updates a login account in the users table.
//
//	USERADD_PASSWORD=... useradd -username alice -roles ADMIN,STAFF
func main() {
	username := flag.String("username", "", "account name")
	roles := flag.String("roles", "", "comma separated roles, e.g. ADMIN,STAFF")
	disabled := flag.Bool("disabled", false, "store the account as disabled")
	flag.Parse()

	password := os.Getenv("USERADD_PASSWORD")
	if strings.TrimSpace(*username) == "" || password == "" {
		flag.Usage()
		log.Fatal("username flag and USERADD_PASSWORD are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	cred := &domain.Credential{
		Username:     strings.TrimSpace(*username),
		PasswordHash: hash,
		Enabled:      !*disabled,
	}
	cred.Roles = strings.Join((&domain.Credential{Roles: *roles}).RoleList(), ",")

	if err := repository.NewCredentialWriter(pg.PoolHandle()).Upsert(ctx, cred); err != nil {
		logger.Fatal("failed to store account", zap.Error(err))
	}
	logger.Info("account stored",
		zap.Int64("id", cred.ID),
		zap.String("username", cred.Username),
		zap.String("roles", cred.Roles),
		zap.Bool("enabled", cred.Enabled))
}
