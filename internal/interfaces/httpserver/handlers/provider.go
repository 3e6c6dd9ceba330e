package handlers

import (
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/config"
	"zapcrm/messaging-gateway/internal/domain/session"
)

// Provider wires HTTP handlers.
type Provider struct {
	Session *SessionHandler
	Message *MessageHandler
}

func NewProvider(
	cfg *config.Config,
	resolver ConfigResolver,
	sessions *session.Registry,
	sender MessageSender,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Session: NewSessionHandler(resolver, sessions, log),
		Message: NewMessageHandler(cfg, resolver, sender, log),
	}
}
