package responses

import (
	"time"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/domain/session"
	"zapcrm/messaging-gateway/internal/domain/tenant"
)

// SessionStatusResponse is the snapshot returned by the status and lifecycle
// endpoints.
type SessionStatusResponse struct {
	ConfigID       string  `json:"config_id"`
	AccountID      string  `json:"account_id"`
	State          string  `json:"state"`
	Connected      bool    `json:"connected"`
	PairingPayload *string `json:"pairing_payload,omitempty"`
	OwnNumber      string  `json:"own_number,omitempty"`
}

func NewSessionStatusResponse(cfg *tenant.Configuration, status session.Status) SessionStatusResponse {
	return SessionStatusResponse{
		ConfigID:       cfg.ID,
		AccountID:      cfg.AccountID,
		State:          string(status.State),
		Connected:      status.Connected,
		PairingPayload: status.PairingPayload,
		OwnNumber:      cfg.OwnNumber,
	}
}

// MessageResponse is the persisted message returned by the send endpoints.
type MessageResponse struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	ExternalID       string    `json:"external_id"`
	Direction        string    `json:"direction"`
	Content          string    `json:"content"`
	MediaURL         *string   `json:"media_url,omitempty"`
	MediaMimeType    *string   `json:"media_mime_type,omitempty"`
	MediaFilename    *string   `json:"media_filename,omitempty"`
	DeliveryStatus   string    `json:"delivery_status"`
	ParentExternalID *string   `json:"parent_external_id,omitempty"`
	ParentContent    *string   `json:"parent_content,omitempty"`
	ParentAuthor     *string   `json:"parent_author,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewMessageResponse(msg *chat.Message) MessageResponse {
	return MessageResponse{
		ID:               msg.ID,
		ConversationID:   msg.ConversationID,
		ExternalID:       msg.ExternalID,
		Direction:        string(msg.Direction),
		Content:          msg.Content,
		MediaURL:         msg.MediaURL,
		MediaMimeType:    msg.MediaMimeType,
		MediaFilename:    msg.MediaFilename,
		DeliveryStatus:   string(msg.DeliveryStatus),
		ParentExternalID: msg.ParentExternalID,
		ParentContent:    msg.ParentContent,
		ParentAuthor:     msg.ParentAuthor,
		Timestamp:        msg.ExternalTimestamp,
	}
}
