// Package chat holds the durable conversation model shared by the ingestion
// pipeline, the automation engine and the outbound command service.
package chat

import (
	"context"
	"time"
)

// ConversationStatus is the lifecycle status of a conversation thread.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Direction tells whether a message entered or left the tenant's session.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DeliveryStatus tracks what the external network reported for a message.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Conversation is the durable thread with one external contact under one
// tenant configuration. Unique per (config id, normalized contact number).
type Conversation struct {
	ID             string
	ConfigID       string
	ContactNumber  string
	ContactName    string
	Status         ConversationStatus
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// Message belongs to exactly one conversation. The external identifier is
// unique within the conversation; a second ingestion with the same id is a
// no-op.
type Message struct {
	ID                string
	ConversationID    string
	ConfigID          string
	ExternalID        string
	Direction         Direction
	Content           string
	MediaURL          *string
	MediaMimeType     *string
	MediaFilename     *string
	DeliveryStatus    DeliveryStatus
	ExternalTimestamp time.Time
	ParentExternalID  *string
	ParentContent     *string
	ParentAuthor      *string
	CreatedAt         time.Time
}

// ConversationRepository persists conversation threads.
type ConversationRepository interface {
	// GetOrCreate atomically inserts the conversation or fetches the
	// existing row for (config id, contact number).
	GetOrCreate(ctx context.Context, conv *Conversation) (*Conversation, error)
	GetByID(ctx context.Context, id string) (*Conversation, error)
	// TouchActivity bumps the last-activity timestamp.
	TouchActivity(ctx context.Context, id string, at time.Time) error
}

// MessageRepository persists messages with the uniqueness guard on
// (conversation id, external id).
type MessageRepository interface {
	// Create inserts the message. Returns false with a nil error when a row
	// with the same (conversation id, external id) already exists.
	Create(ctx context.Context, msg *Message) (bool, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	GetByExternalID(ctx context.Context, conversationID, externalID string) (*Message, error)
	CountInbound(ctx context.Context, conversationID string) (int64, error)
	// UpdateDeliveryStatus records delivery acknowledgements reported by the
	// network for messages sent under the given configuration.
	UpdateDeliveryStatus(ctx context.Context, configID, externalID string, status DeliveryStatus) error
}
