// Package session owns the per-tenant connection state machine for the
// external messaging network.
package session

import (
	"context"
	"time"

	"zapcrm/messaging-gateway/internal/domain/tenant"
)

// SendResult is what the network reports for an accepted send.
type SendResult struct {
	ExternalID string
	Timestamp  time.Time
}

// ReplyTarget identifies the quoted parent of a reply send.
type ReplyTarget struct {
	ExternalID   string
	AuthorNumber string
	Content      string
	FromMe       bool
}

// OutboundMedia is a media payload for a media send.
type OutboundMedia struct {
	Data     []byte
	MimeType string
	Filename string
	Caption  string
}

// Client is the tenant-scoped handle onto the external messaging network.
// The wire protocol itself is delegated to the client library behind this
// interface; tests substitute a fake.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	// IsConnected reports the real transport state, not a cached flag.
	IsConnected() bool
	IsLoggedIn() bool
	// OwnNumber is the tenant's own network number, empty until paired.
	OwnNumber() string
	SendText(ctx context.Context, contactNumber, text string) (SendResult, error)
	SendReply(ctx context.Context, contactNumber, text string, parent ReplyTarget) (SendResult, error)
	SendMedia(ctx context.Context, contactNumber string, media OutboundMedia) (SendResult, error)
	// ClearSession removes local session artifacts so the next connect
	// performs a clean re-pair.
	ClearSession(ctx context.Context) error
}

// Hooks receives lifecycle notifications from the client. The manager
// implements this to drive its state machine.
type Hooks interface {
	OnPairing(code string)
	OnConnected(ownNumber string)
	OnDisconnected(reason string)
	OnLoggedOut(reason string)
}

// ClientFactory builds a fresh client for a tenant configuration. The
// factory prepares local session storage before the client connects.
type ClientFactory func(ctx context.Context, cfg *tenant.Configuration, hooks Hooks) (Client, error)

// StatusEvent is emitted on every state transition and consumed by the
// real-time broadcast layer.
type StatusEvent struct {
	ConfigID       string    `json:"config_id"`
	AccountID      string    `json:"account_id"`
	State          State     `json:"state"`
	PairingPayload *string   `json:"pairing_payload,omitempty"`
	At             time.Time `json:"at"`
}

// StatusPublisher fans status events out to the broadcast layer.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, evt StatusEvent) error
}
