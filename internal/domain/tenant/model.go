// Package tenant resolves staff accounts to their messaging session
// configuration.
package tenant

import (
	"context"
	"time"
)

// ConnectionStatus mirrors the session state persisted on the configuration
// row so a restarted process knows the last-known state.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusPairing      ConnectionStatus = "pairing"
	StatusConnected    ConnectionStatus = "connected"
	StatusAuthFailed   ConnectionStatus = "auth_failed"
)

// Configuration is the durable per-tenant session record. At most one active
// configuration exists per owning account.
type Configuration struct {
	ID               string
	AccountID        string
	Name             string
	Active           bool
	ConnectionStatus ConnectionStatus
	PairingPayload   *string
	OwnNumber        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repository persists tenant configurations.
type Repository interface {
	// GetOrCreate atomically inserts the configuration or fetches the
	// existing active row for the owning account.
	GetOrCreate(ctx context.Context, cfg *Configuration) (*Configuration, error)
	GetByID(ctx context.Context, id string) (*Configuration, error)
	// UpdateConnectionStatus records the last-known state and the current
	// pairing payload (nil clears it).
	UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus, pairing *string) error
	// UpdateOwnNumber records the tenant's own network number once pairing
	// completes.
	UpdateOwnNumber(ctx context.Context, id string, number string) error
}

// AccountRegistry validates staff accounts against the CRM core.
type AccountRegistry interface {
	ValidateAccount(ctx context.Context, accountID string) (bool, error)
}
