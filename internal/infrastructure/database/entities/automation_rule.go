package entities

import (
	"time"

	"gorm.io/datatypes"
)

// AutomationRule is authored by the CRM rule editor; this subsystem only
// reads it.
type AutomationRule struct {
	ID            string         `gorm:"type:varchar(40);primaryKey"`
	ConfigID      string         `gorm:"type:varchar(40);not null;index"`
	Active        bool           `gorm:"not null;default:true"`
	Priority      int            `gorm:"not null;default:0"`
	TriggerKind   string         `gorm:"type:varchar(40);not null"`
	TriggerParams datatypes.JSON `gorm:"type:jsonb"`
	ActionKind    string         `gorm:"type:varchar(40);not null"`
	ActionParams  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (AutomationRule) TableName() string {
	return "automation_rules"
}
