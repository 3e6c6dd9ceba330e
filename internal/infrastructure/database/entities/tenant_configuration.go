package entities

import "time"

// TenantConfiguration is the durable per-tenant session record. The partial
// unique index keeps at most one active configuration per owning account.
type TenantConfiguration struct {
	ID               string  `gorm:"type:varchar(40);primaryKey"`
	AccountID        string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_tenant_config_account,where:active"`
	Name             string  `gorm:"type:varchar(128);not null"`
	Active           bool    `gorm:"not null;default:true"`
	ConnectionStatus string  `gorm:"type:varchar(20);not null;default:'disconnected'"`
	PairingPayload   *string `gorm:"type:text"`
	OwnNumber        string  `gorm:"type:varchar(32)"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (TenantConfiguration) TableName() string {
	return "tenant_configurations"
}
