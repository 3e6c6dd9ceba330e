// Package automation evaluates trigger predicates against newly ingested
// inbound messages and executes the configured actions. Rules are authored
// elsewhere in the CRM and are read-only here.
package automation

import (
	"context"
	"encoding/json"
)

// TriggerKind identifies a rule's predicate.
type TriggerKind string

const (
	TriggerFirstInboundMessage TriggerKind = "first-inbound-message"
	TriggerKeywordMatch        TriggerKind = "keyword-match"
)

// ActionKind identifies a rule's effect.
type ActionKind string

const (
	ActionSendMessage ActionKind = "send-message"
	ActionCreateLead  ActionKind = "create-lead"
)

// Rule is one automation rule scoped to a tenant configuration.
type Rule struct {
	ID            string
	ConfigID      string
	Active        bool
	Priority      int
	TriggerKind   TriggerKind
	TriggerParams json.RawMessage
	ActionKind    ActionKind
	ActionParams  json.RawMessage
}

// KeywordTriggerParams configures the keyword-match trigger.
type KeywordTriggerParams struct {
	Keywords []string `json:"keywords"`
}

// SendMessageActionParams configures the send-message action.
type SendMessageActionParams struct {
	Text string `json:"text"`
}

// CreateLeadActionParams configures the create-lead action.
type CreateLeadActionParams struct {
	Source  string `json:"source"`
	Notes   string `json:"notes"`
	OwnerID string `json:"owner_id"`
}

// RuleRepository loads active rules ordered by ascending priority.
type RuleRepository interface {
	ListActive(ctx context.Context, configID string) ([]Rule, error)
}

// Lead is the CRM record the create-lead action inserts.
type Lead struct {
	ConfigID string
	Name     string
	Phone    string
	Source   string
	Notes    string
	OwnerID  string
}

// LeadCreator inserts CRM lead records.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead Lead) (string, error)
}
