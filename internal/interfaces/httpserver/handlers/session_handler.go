package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/session"
	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/interfaces/httpserver/responses"
)

// ConfigResolver maps a staff account id to its session configuration.
type ConfigResolver interface {
	Resolve(ctx context.Context, accountID string) (*tenant.Configuration, error)
}

// SessionHandler exposes the session lifecycle endpoints.
type SessionHandler struct {
	resolver ConfigResolver
	sessions *session.Registry
	log      zerolog.Logger
}

func NewSessionHandler(resolver ConfigResolver, sessions *session.Registry, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		resolver: resolver,
		sessions: sessions,
		log:      log.With().Str("component", "session-handler").Logger(),
	}
}

// Status returns the current lifecycle snapshot for the account's session.
func (h *SessionHandler) Status(c *gin.Context) {
	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	mgr := h.sessions.GetOrCreate(cfg)
	c.JSON(http.StatusOK, responses.NewSessionStatusResponse(cfg, mgr.Status()))
}

// Start opens the session client. Starting an already running session is a
// no-op returning the current snapshot.
func (h *SessionHandler) Start(c *gin.Context) {
	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	mgr := h.sessions.GetOrCreate(cfg)
	if err := mgr.Start(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Str("config_id", cfg.ID).Msg("session start failed")
		responses.HandleError(c, err, "failed to start session")
		return
	}
	c.JSON(http.StatusAccepted, responses.NewSessionStatusResponse(cfg, mgr.Status()))
}

// Stop tears the session down and clears its local artifacts. Stopping a
// session that is not running is a no-op.
func (h *SessionHandler) Stop(c *gin.Context) {
	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	mgr := h.sessions.GetOrCreate(cfg)
	if err := mgr.Stop(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Str("config_id", cfg.ID).Msg("session stop failed")
		responses.HandleError(c, err, "failed to stop session")
		return
	}
	c.JSON(http.StatusOK, responses.NewSessionStatusResponse(cfg, mgr.Status()))
}

func (h *SessionHandler) resolveConfig(c *gin.Context) (*tenant.Configuration, bool) {
	accountID := c.Param("account")
	cfg, err := h.resolver.Resolve(c.Request.Context(), accountID)
	if err != nil {
		responses.HandleError(c, err, "failed to resolve account")
		return nil, false
	}
	return cfg, true
}
