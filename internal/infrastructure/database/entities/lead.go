package entities

import "time"

// Lead is the CRM lead record created by the create-lead automation action.
// The table is owned by the CRM core; this subsystem only inserts.
type Lead struct {
	ID        string    `gorm:"type:varchar(40);primaryKey"`
	ConfigID  string    `gorm:"type:varchar(40);not null;index"`
	Name      string    `gorm:"type:varchar(128);not null"`
	Phone     string    `gorm:"type:varchar(32);not null"`
	Source    string    `gorm:"type:varchar(64)"`
	Notes     string    `gorm:"type:text"`
	OwnerID   string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Lead) TableName() string {
	return "leads"
}
