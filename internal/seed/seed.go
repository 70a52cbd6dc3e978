package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/machzor/internal/app/models"
	appRepos "github.com/yigit/machzor/internal/app/repositories"
	"github.com/yigit/machzor/internal/config"
	"github.com/yigit/machzor/internal/db"
	"golang.org/x/crypto/bcrypt"
)

// CreateDefaultData seeds the administrator account configured under
// cfg.Admin. The seed is idempotent: an existing account with the same email
// is left untouched, so changing the configured password later has no effect
// on an already-seeded deployment.
func CreateDefaultData(ctx context.Context, database *db.PostgresDB, cfg *config.Config, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(database)

	exists, err := userRepo.EmailExists(ctx, cfg.Admin.Email)
	if err != nil {
		lgr.Error().Err(err).Str("email", cfg.Admin.Email).Msg("Error checking if admin user exists")
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		lgr.Debug().Str("email", cfg.Admin.Email).Msg("Admin user already exists, skipping creation")
		return nil
	}

	if cfg.Admin.Password == "" {
		lgr.Warn().Str("email", cfg.Admin.Email).Msg("Admin password not configured, skipping admin creation")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &appModels.User{
		Email:     cfg.Admin.Email,
		Password:  string(hashedPassword),
		FirstName: cfg.Admin.FirstName,
		LastName:  cfg.Admin.LastName,
		RoleType:  appModels.RoleAdmin,
		IsActive:  true,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		lgr.Error().Err(err).Str("email", cfg.Admin.Email).Msg("Error creating admin user")
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	lgr.Info().Int64("adminID", admin.ID).Str("email", admin.Email).Msg("Default admin user created")
	return nil
}
