// Package chatrepo persists conversations and messages.
package chatrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate is the atomic insert-or-fetch on (config id, contact number).
// Concurrent first-contact messages resolve to a single row through the
// unique index.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, error) {
	entity := toConversationEntity(conv)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_id"}, {Name: "contact_number"}},
			DoNothing: true,
		}).
		Create(&entity).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	var found entities.Conversation
	err = r.db.WithContext(ctx).
		Where("config_id = ? AND contact_number = ?", conv.ConfigID, conv.ContactNumber).
		First(&found).Error
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}

	// Backfill the display name the first time the contact identifies itself.
	if found.ContactName == "" && conv.ContactName != "" {
		if err := r.db.WithContext(ctx).
			Model(&entities.Conversation{}).
			Where("id = ?", found.ID).
			Update("contact_name", conv.ContactName).Error; err != nil {
			return nil, fmt.Errorf("update contact name: %w", err)
		}
		found.ContactName = conv.ContactName
	}

	result := fromConversationEntity(found)
	return &result, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatewayerrors.Newf(gatewayerrors.TypeNotFound, "conversation %s not found", id)
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	result := fromConversationEntity(entity)
	return &result, nil
}

func (r *ConversationRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND last_activity_at < ?", id, at).
		Update("last_activity_at", at).Error
	if err != nil {
		return fmt.Errorf("touch conversation activity: %w", err)
	}
	return nil
}

func toConversationEntity(conv *chat.Conversation) entities.Conversation {
	return entities.Conversation{
		ID:             conv.ID,
		ConfigID:       conv.ConfigID,
		ContactNumber:  conv.ContactNumber,
		ContactName:    conv.ContactName,
		Status:         string(conv.Status),
		LastActivityAt: conv.LastActivityAt,
	}
}

func fromConversationEntity(entity entities.Conversation) chat.Conversation {
	return chat.Conversation{
		ID:             entity.ID,
		ConfigID:       entity.ConfigID,
		ContactNumber:  entity.ContactNumber,
		ContactName:    entity.ContactName,
		Status:         chat.ConversationStatus(entity.Status),
		LastActivityAt: entity.LastActivityAt,
		CreatedAt:      entity.CreatedAt,
	}
}
