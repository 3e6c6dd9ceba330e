// Package ingest reconciles raw network events with the durable
// conversation store.
package ingest

import (
	"context"
	"time"

	"zapcrm/messaging-gateway/internal/domain/chat"
)

// Event is a message notification translated from the external client
// library into a network-agnostic shape.
type Event struct {
	ConfigID     string
	TenantNumber string
	ExternalID   string
	// ChatNumber is the raw counterparty identifier as delivered by the
	// network, before normalization.
	ChatNumber string
	SenderName string
	FromMe     bool
	Group      bool
	Broadcast  bool
	Timestamp  time.Time
	Text       string
	Media      *Media
	Quote      *Quote
}

// Media is an attachment already downloaded from the network by the client
// adapter. The pipeline classifies and persists it.
type Media struct {
	Data     []byte
	MimeType string
	Filename string
}

// Quote references the message an event replies to.
type Quote struct {
	ExternalID string
}

// DeliveryKind distinguishes receipt acknowledgements.
type DeliveryKind string

const (
	DeliveryAckDelivered DeliveryKind = "delivered"
	DeliveryAckRead      DeliveryKind = "read"
)

// Receipt is a delivery acknowledgement for previously sent messages.
type Receipt struct {
	ConfigID    string
	ExternalIDs []string
	Kind        DeliveryKind
}

// BlobStore persists downloaded media and returns a stable URL.
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier dispatches automation after inbound persistence.
type Notifier interface {
	Dispatch(ctx context.Context, msg *chat.Message, conv *chat.Conversation)
}

// Guard suppresses the echo of messages sent through the command API.
type Guard interface {
	WasSent(configID, externalID string) bool
}
