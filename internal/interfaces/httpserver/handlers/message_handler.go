package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/config"
	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/domain/outbound"
	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/interfaces/httpserver/requests"
	"zapcrm/messaging-gateway/internal/interfaces/httpserver/responses"
)

// MessageSender dispatches outbound commands through the session client.
type MessageSender interface {
	SendText(ctx context.Context, configID, contact, text string) (*chat.Message, error)
	SendReply(ctx context.Context, configID, contact, text, parentMessageID string) (*chat.Message, error)
	SendMedia(ctx context.Context, configID, contact string, file outbound.MediaFile) (*chat.Message, error)
}

// MessageHandler exposes the outbound command endpoints.
type MessageHandler struct {
	cfg      *config.Config
	resolver ConfigResolver
	sender   MessageSender
	log      zerolog.Logger
}

func NewMessageHandler(cfg *config.Config, resolver ConfigResolver, sender MessageSender, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		cfg:      cfg,
		resolver: resolver,
		sender:   sender,
		log:      log.With().Str("component", "message-handler").Logger(),
	}
}

// SendText sends plain text to a contact.
func (h *MessageHandler) SendText(c *gin.Context) {
	var req requests.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(c, err.Error())
		return
	}
	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	msg, err := h.sender.SendText(c.Request.Context(), cfg.ID, req.Contact, req.Text)
	if err != nil {
		h.log.Error().Err(err).Str("config_id", cfg.ID).Msg("text send failed")
		responses.HandleError(c, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, responses.NewMessageResponse(msg))
}

// SendReply sends text quoting a previously stored message.
func (h *MessageHandler) SendReply(c *gin.Context) {
	var req requests.SendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleValidationError(c, err.Error())
		return
	}
	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	msg, err := h.sender.SendReply(c.Request.Context(), cfg.ID, req.Contact, req.Text, req.ParentMessageID)
	if err != nil {
		h.log.Error().Err(err).Str("config_id", cfg.ID).Msg("reply send failed")
		responses.HandleError(c, err, "failed to send reply")
		return
	}
	c.JSON(http.StatusCreated, responses.NewMessageResponse(msg))
}

// SendMedia sends a media file uploaded as multipart form data.
func (h *MessageHandler) SendMedia(c *gin.Context) {
	var form requests.SendMediaForm
	if err := c.ShouldBind(&form); err != nil {
		responses.HandleValidationError(c, err.Error())
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		responses.HandleValidationError(c, "missing file part")
		return
	}
	if h.cfg.MaxMediaBytes > 0 && fileHeader.Size > h.cfg.MaxMediaBytes {
		responses.HandleValidationError(c, "media exceeds the maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		responses.HandleValidationError(c, "unreadable file part")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		responses.HandleValidationError(c, "unreadable file part")
		return
	}

	cfg, ok := h.resolveConfig(c)
	if !ok {
		return
	}
	msg, err := h.sender.SendMedia(c.Request.Context(), cfg.ID, form.Contact, outbound.MediaFile{
		Data:     data,
		Filename: fileHeader.Filename,
		Caption:  form.Caption,
	})
	if err != nil {
		h.log.Error().Err(err).Str("config_id", cfg.ID).Msg("media send failed")
		responses.HandleError(c, err, "failed to send media")
		return
	}
	c.JSON(http.StatusCreated, responses.NewMessageResponse(msg))
}

func (h *MessageHandler) resolveConfig(c *gin.Context) (*tenant.Configuration, bool) {
	accountID := c.Param("account")
	cfg, err := h.resolver.Resolve(c.Request.Context(), accountID)
	if err != nil {
		responses.HandleError(c, err, "failed to resolve account")
		return nil, false
	}
	return cfg, true
}
