// Package rulerepo reads automation rules authored by the CRM rule editor.
package rulerepo

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"zapcrm/messaging-gateway/internal/domain/automation"
	"zapcrm/messaging-gateway/internal/infrastructure/database/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns the active rules for a configuration in ascending
// priority order.
func (r *Repository) ListActive(ctx context.Context, configID string) ([]automation.Rule, error) {
	var rows []entities.AutomationRule
	err := r.db.WithContext(ctx).
		Where("config_id = ? AND active", configID).
		Order("priority ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list automation rules: %w", err)
	}

	rules := make([]automation.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, automation.Rule{
			ID:            row.ID,
			ConfigID:      row.ConfigID,
			Active:        row.Active,
			Priority:      row.Priority,
			TriggerKind:   automation.TriggerKind(row.TriggerKind),
			TriggerParams: json.RawMessage(row.TriggerParams),
			ActionKind:    automation.ActionKind(row.ActionKind),
			ActionParams:  json.RawMessage(row.ActionParams),
		})
	}
	return rules, nil
}
