package session

import "zapcrm/messaging-gateway/internal/domain/tenant"

// State is the session connection state.
//
// disconnected -> pairing -> connected -> disconnected (network loss)
//                                      -> auth_failed  (session revoked)
//
// disconnected never auto-restarts; a restart is caller-initiated.
type State string

const (
	StateDisconnected State = "disconnected"
	StatePairing      State = "pairing"
	StateConnected    State = "connected"
	StateAuthFailed   State = "auth_failed"
)

// ConnectionStatus maps a state onto the durable configuration record.
func (s State) ConnectionStatus() tenant.ConnectionStatus {
	switch s {
	case StatePairing:
		return tenant.StatusPairing
	case StateConnected:
		return tenant.StatusConnected
	case StateAuthFailed:
		return tenant.StatusAuthFailed
	default:
		return tenant.StatusDisconnected
	}
}

// Status is the snapshot returned to API callers.
type Status struct {
	State          State   `json:"state"`
	Connected      bool    `json:"connected"`
	PairingPayload *string `json:"pairing_payload,omitempty"`
}
