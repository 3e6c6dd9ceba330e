// Package leadrepo inserts CRM lead records on behalf of the automation
// engine.
package leadrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"zapcrm/messaging-gateway/internal/domain/automation"
	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateLead(ctx context.Context, lead automation.Lead) (string, error) {
	entity := entities.Lead{
		ID:       uuid.NewString(),
		ConfigID: lead.ConfigID,
		Name:     lead.Name,
		Phone:    lead.Phone,
		Source:   lead.Source,
		Notes:    lead.Notes,
		OwnerID:  lead.OwnerID,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return entity.ID, nil
}
