package chatrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message. A duplicate (conversation id, external id)
// inserts nothing and reports false with a nil error.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) (bool, error) {
	entity := toMessageEntity(msg)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("create message: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	var entity entities.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatewayerrors.Newf(gatewayerrors.TypeNotFound, "message %s not found", id)
		}
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	result := fromMessageEntity(entity)
	return &result, nil
}

// GetByExternalID returns nil without error when the external id is not
// tracked; callers treat that as an unresolvable reply parent.
func (r *MessageRepository) GetByExternalID(ctx context.Context, conversationID, externalID string) (*chat.Message, error) {
	var entity entities.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND external_id = ?", conversationID, externalID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message by external id: %w", err)
	}
	result := fromMessageEntity(entity)
	return &result, nil
}

func (r *MessageRepository) CountInbound(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ? AND direction = ?", conversationID, string(chat.DirectionInbound)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count inbound messages: %w", err)
	}
	return count, nil
}

func (r *MessageRepository) UpdateDeliveryStatus(ctx context.Context, configID, externalID string, status chat.DeliveryStatus) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("config_id = ? AND external_id = ? AND direction = ?", configID, externalID, string(chat.DirectionOutbound)).
		Update("delivery_status", string(status)).Error
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	return nil
}

func toMessageEntity(msg *chat.Message) entities.Message {
	return entities.Message{
		ID:                msg.ID,
		ConversationID:    msg.ConversationID,
		ExternalID:        msg.ExternalID,
		ConfigID:          msg.ConfigID,
		Direction:         string(msg.Direction),
		Content:           msg.Content,
		MediaURL:          msg.MediaURL,
		MediaMimeType:     msg.MediaMimeType,
		MediaFilename:     msg.MediaFilename,
		DeliveryStatus:    string(msg.DeliveryStatus),
		ExternalTimestamp: msg.ExternalTimestamp,
		ParentExternalID:  msg.ParentExternalID,
		ParentContent:     msg.ParentContent,
		ParentAuthor:      msg.ParentAuthor,
	}
}

func fromMessageEntity(entity entities.Message) chat.Message {
	return chat.Message{
		ID:                entity.ID,
		ConversationID:    entity.ConversationID,
		ExternalID:        entity.ExternalID,
		ConfigID:          entity.ConfigID,
		Direction:         chat.Direction(entity.Direction),
		Content:           entity.Content,
		MediaURL:          entity.MediaURL,
		MediaMimeType:     entity.MediaMimeType,
		MediaFilename:     entity.MediaFilename,
		DeliveryStatus:    chat.DeliveryStatus(entity.DeliveryStatus),
		ExternalTimestamp: entity.ExternalTimestamp,
		ParentExternalID:  entity.ParentExternalID,
		ParentContent:     entity.ParentContent,
		ParentAuthor:      entity.ParentAuthor,
		CreatedAt:         entity.CreatedAt,
	}
}
