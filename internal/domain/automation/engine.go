package automation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/infrastructure/metrics"
)

// Sender dispatches auto-reply text through the outbound command service.
type Sender interface {
	SendText(ctx context.Context, configID, contact, text string) (*chat.Message, error)
}

// Engine runs the flat rule set against one inbound message.
type Engine struct {
	rules    RuleRepository
	messages chat.MessageRepository
	leads    LeadCreator
	sender   Sender
	log      zerolog.Logger
}

func NewEngine(rules RuleRepository, messages chat.MessageRepository, leads LeadCreator, sender Sender, log zerolog.Logger) *Engine {
	return &Engine{
		rules:    rules,
		messages: messages,
		leads:    leads,
		sender:   sender,
		log:      log.With().Str("component", "automation-engine").Logger(),
	}
}

// Dispatch evaluates every active rule in ascending priority order and
// executes the action of each rule whose trigger matches. More than one rule
// may fire per message; a false predicate skips only its own rule.
func (e *Engine) Dispatch(ctx context.Context, msg *chat.Message, conv *chat.Conversation) {
	rules, err := e.rules.ListActive(ctx, msg.ConfigID)
	if err != nil {
		e.log.Error().Err(err).Str("config_id", msg.ConfigID).Msg("failed to load automation rules")
		return
	}

	for _, rule := range rules {
		fired, err := e.evaluate(ctx, rule, msg, conv)
		if err != nil {
			e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("trigger evaluation failed")
			continue
		}
		if !fired {
			continue
		}
		metrics.RulesFiredTotal.WithLabelValues(string(rule.TriggerKind), string(rule.ActionKind)).Inc()
		if err := e.execute(ctx, rule, msg, conv); err != nil {
			e.log.Error().Err(err).Str("rule_id", rule.ID).Msg("rule action failed")
		}
	}
}

// evaluate runs the trigger predicate. Unrecognized trigger kinds evaluate
// to false.
func (e *Engine) evaluate(ctx context.Context, rule Rule, msg *chat.Message, conv *chat.Conversation) (bool, error) {
	switch rule.TriggerKind {
	case TriggerFirstInboundMessage:
		count, err := e.messages.CountInbound(ctx, conv.ID)
		if err != nil {
			return false, err
		}
		return count == 1, nil

	case TriggerKeywordMatch:
		var params KeywordTriggerParams
		if len(rule.TriggerParams) > 0 {
			if err := json.Unmarshal(rule.TriggerParams, &params); err != nil {
				return false, err
			}
		}
		content := strings.ToLower(msg.Content)
		for _, keyword := range params.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(keyword)) {
				return true, nil
			}
		}
		return false, nil

	default:
		e.log.Warn().
			Str("rule_id", rule.ID).
			Str("trigger", string(rule.TriggerKind)).
			Msg("unrecognized trigger kind, evaluating to false")
		return false, nil
	}
}

func (e *Engine) execute(ctx context.Context, rule Rule, msg *chat.Message, conv *chat.Conversation) error {
	switch rule.ActionKind {
	case ActionSendMessage:
		var params SendMessageActionParams
		if len(rule.ActionParams) > 0 {
			if err := json.Unmarshal(rule.ActionParams, &params); err != nil {
				return err
			}
		}
		if params.Text == "" {
			// Configuration problem, not a fatal one.
			e.log.Warn().Str("rule_id", rule.ID).Msg("send-message rule has no text, skipping")
			return nil
		}
		_, err := e.sender.SendText(ctx, msg.ConfigID, conv.ContactNumber, params.Text)
		return err

	case ActionCreateLead:
		var params CreateLeadActionParams
		if len(rule.ActionParams) > 0 {
			if err := json.Unmarshal(rule.ActionParams, &params); err != nil {
				return err
			}
		}
		name := conv.ContactName
		if name == "" {
			name = conv.ContactNumber
		}
		id, err := e.leads.CreateLead(ctx, Lead{
			ConfigID: msg.ConfigID,
			Name:     name,
			Phone:    conv.ContactNumber,
			Source:   params.Source,
			Notes:    params.Notes,
			OwnerID:  params.OwnerID,
		})
		if err != nil {
			return err
		}
		e.log.Info().Str("rule_id", rule.ID).Str("lead_id", id).Msg("lead created")
		return nil

	default:
		// Configuration problem, not a fatal one.
		e.log.Warn().
			Str("rule_id", rule.ID).
			Str("action", string(rule.ActionKind)).
			Msg("unrecognized action kind, skipping")
		return nil
	}
}
