package entities

import "time"

// Conversation is unique per (configuration, normalized contact number).
type Conversation struct {
	ID             string    `gorm:"type:varchar(40);primaryKey"`
	ConfigID       string    `gorm:"type:varchar(40);not null;uniqueIndex:ux_conversation_contact,priority:1"`
	ContactNumber  string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_conversation_contact,priority:2"`
	ContactName    string    `gorm:"type:varchar(128)"`
	Status         string    `gorm:"type:varchar(16);not null;default:'active'"`
	LastActivityAt time.Time `gorm:"index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}
