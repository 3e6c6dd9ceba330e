package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.TenantConfiguration{},
		&entities.Conversation{},
		&entities.Message{},
		&entities.AutomationRule{},
		&entities.Lead{},
	); err != nil {
		return err
	}
	log.Info().Msg("applied messaging gateway migrations")
	return nil
}
