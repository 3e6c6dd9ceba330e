package entities

import "time"

// Message carries the uniqueness guard on (conversation id, external id):
// replaying an already ingested event inserts nothing.
type Message struct {
	ID                string    `gorm:"type:varchar(40);primaryKey"`
	ConversationID    string    `gorm:"type:varchar(40);not null;uniqueIndex:ux_message_external,priority:1"`
	ExternalID        string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_message_external,priority:2"`
	ConfigID          string    `gorm:"type:varchar(40);not null;index"`
	Direction         string    `gorm:"type:varchar(10);not null"`
	Content           string    `gorm:"type:text"`
	MediaURL          *string   `gorm:"type:text"`
	MediaMimeType     *string   `gorm:"type:varchar(64)"`
	MediaFilename     *string   `gorm:"type:varchar(255)"`
	DeliveryStatus    string    `gorm:"type:varchar(16);not null;default:'pending'"`
	ExternalTimestamp time.Time `gorm:"index"`
	ParentExternalID  *string   `gorm:"type:varchar(128)"`
	ParentContent     *string   `gorm:"type:text"`
	ParentAuthor      *string   `gorm:"type:varchar(128)"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (Message) TableName() string {
	return "messages"
}
