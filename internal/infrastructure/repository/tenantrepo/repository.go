// Package tenantrepo persists tenant configurations.
package tenantrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate inserts the configuration unless an active one already exists
// for the owning account; either way the active row is returned. Concurrent
// first calls race on the partial unique index, never on application state.
func (r *Repository) GetOrCreate(ctx context.Context, cfg *tenant.Configuration) (*tenant.Configuration, error) {
	entity := toEntity(cfg)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create tenant configuration: %w", err)
	}

	var found entities.TenantConfiguration
	err = r.db.WithContext(ctx).
		Where("account_id = ? AND active", cfg.AccountID).
		First(&found).Error
	if err != nil {
		return nil, fmt.Errorf("fetch tenant configuration: %w", err)
	}
	result := fromEntity(found)
	return &result, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*tenant.Configuration, error) {
	var entity entities.TenantConfiguration
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatewayerrors.Newf(gatewayerrors.TypeNotFound, "configuration %s not found", id)
		}
		return nil, fmt.Errorf("fetch tenant configuration: %w", err)
	}
	result := fromEntity(entity)
	return &result, nil
}

func (r *Repository) UpdateConnectionStatus(ctx context.Context, id string, status tenant.ConnectionStatus, pairing *string) error {
	err := r.db.WithContext(ctx).
		Model(&entities.TenantConfiguration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"connection_status": string(status),
			"pairing_payload":   pairing,
		}).Error
	if err != nil {
		return fmt.Errorf("update connection status: %w", err)
	}
	return nil
}

func (r *Repository) UpdateOwnNumber(ctx context.Context, id string, number string) error {
	err := r.db.WithContext(ctx).
		Model(&entities.TenantConfiguration{}).
		Where("id = ?", id).
		Update("own_number", number).Error
	if err != nil {
		return fmt.Errorf("update own number: %w", err)
	}
	return nil
}

func toEntity(cfg *tenant.Configuration) entities.TenantConfiguration {
	return entities.TenantConfiguration{
		ID:               cfg.ID,
		AccountID:        cfg.AccountID,
		Name:             cfg.Name,
		Active:           cfg.Active,
		ConnectionStatus: string(cfg.ConnectionStatus),
		PairingPayload:   cfg.PairingPayload,
		OwnNumber:        cfg.OwnNumber,
	}
}

func fromEntity(entity entities.TenantConfiguration) tenant.Configuration {
	return tenant.Configuration{
		ID:               entity.ID,
		AccountID:        entity.AccountID,
		Name:             entity.Name,
		Active:           entity.Active,
		ConnectionStatus: tenant.ConnectionStatus(entity.ConnectionStatus),
		PairingPayload:   entity.PairingPayload,
		OwnNumber:        entity.OwnNumber,
		CreatedAt:        entity.CreatedAt,
		UpdatedAt:        entity.UpdatedAt,
	}
}
