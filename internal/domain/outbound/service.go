// Package outbound implements the command API for sends initiated by the
// CRM: text, reply and media.
package outbound

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/domain/session"
	"zapcrm/messaging-gateway/internal/infrastructure/metrics"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// Guard registers external ids of messages sent through this service so the
// later echo event is not persisted twice.
type Guard interface {
	MarkSent(configID, externalID string)
}

// BlobStore keeps a copy of sent media for the CRM UI.
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MediaFile is the caller-supplied media payload.
type MediaFile struct {
	Data     []byte
	Filename string
	Caption  string
}

// Service dispatches outbound commands through the per-tenant session
// client and persists the resulting message synchronously, so the caller's
// read-after-write sees it before the echo event arrives.
type Service struct {
	sessions      *session.Registry
	guard         Guard
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
	blobs         BlobStore
	log           zerolog.Logger
}

func NewService(
	sessions *session.Registry,
	guard Guard,
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	blobs BlobStore,
	log zerolog.Logger,
) *Service {
	return &Service{
		sessions:      sessions,
		guard:         guard,
		conversations: conversations,
		messages:      messages,
		blobs:         blobs,
		log:           log.With().Str("component", "outbound-service").Logger(),
	}
}

// SendText sends plain text to a contact.
func (s *Service) SendText(ctx context.Context, configID, contact, text string) (*chat.Message, error) {
	if text == "" {
		return nil, gatewayerrors.New(gatewayerrors.TypeValidation, "message text is empty")
	}
	client, mgr, err := s.liveClient(configID)
	if err != nil {
		metrics.SendsTotal.WithLabelValues("text", "rejected").Inc()
		return nil, err
	}
	number, err := chat.ResolveContact(contact, mgr.Config().OwnNumber)
	if err != nil {
		return nil, err
	}

	result, err := client.SendText(ctx, number, text)
	if err != nil {
		metrics.SendsTotal.WithLabelValues("text", "error").Inc()
		return nil, fmt.Errorf("send text: %w", err)
	}
	metrics.SendsTotal.WithLabelValues("text", "ok").Inc()
	return s.persistSent(ctx, mgr, number, text, result, nil, nil)
}

// SendReply sends text quoting a previously stored message. When the parent
// cannot be resolved the reply degrades to a plain send rather than failing.
func (s *Service) SendReply(ctx context.Context, configID, contact, text, parentMessageID string) (*chat.Message, error) {
	if text == "" {
		return nil, gatewayerrors.New(gatewayerrors.TypeValidation, "message text is empty")
	}
	client, mgr, err := s.liveClient(configID)
	if err != nil {
		metrics.SendsTotal.WithLabelValues("reply", "rejected").Inc()
		return nil, err
	}
	number, err := chat.ResolveContact(contact, mgr.Config().OwnNumber)
	if err != nil {
		return nil, err
	}

	parent, err := s.messages.GetByID(ctx, parentMessageID)
	if err != nil {
		s.log.Warn().Err(err).Str("parent_id", parentMessageID).Msg("parent lookup failed, degrading to plain send")
		parent = nil
	}
	if parent == nil {
		result, err := client.SendText(ctx, number, text)
		if err != nil {
			metrics.SendsTotal.WithLabelValues("reply", "error").Inc()
			return nil, fmt.Errorf("send degraded reply: %w", err)
		}
		metrics.SendsTotal.WithLabelValues("reply", "degraded").Inc()
		return s.persistSent(ctx, mgr, number, text, result, nil, nil)
	}

	target := session.ReplyTarget{
		ExternalID:   parent.ExternalID,
		AuthorNumber: number,
		Content:      parent.Content,
		FromMe:       parent.Direction == chat.DirectionOutbound,
	}
	if target.FromMe {
		target.AuthorNumber = mgr.Config().OwnNumber
	}
	result, err := client.SendReply(ctx, number, text, target)
	if err != nil {
		metrics.SendsTotal.WithLabelValues("reply", "error").Inc()
		return nil, fmt.Errorf("send reply: %w", err)
	}
	metrics.SendsTotal.WithLabelValues("reply", "ok").Inc()
	return s.persistSent(ctx, mgr, number, text, result, parent, nil)
}

// SendMedia sends a media file with an optional caption.
func (s *Service) SendMedia(ctx context.Context, configID, contact string, file MediaFile) (*chat.Message, error) {
	if len(file.Data) == 0 {
		return nil, gatewayerrors.New(gatewayerrors.TypeValidation, "media payload is empty")
	}
	client, mgr, err := s.liveClient(configID)
	if err != nil {
		metrics.SendsTotal.WithLabelValues("media", "rejected").Inc()
		return nil, err
	}
	number, err := chat.ResolveContact(contact, mgr.Config().OwnNumber)
	if err != nil {
		return nil, err
	}

	mime := mimetype.Detect(file.Data).String()
	result, err := client.SendMedia(ctx, number, session.OutboundMedia{
		Data:     file.Data,
		MimeType: mime,
		Filename: file.Filename,
		Caption:  file.Caption,
	})
	if err != nil {
		metrics.SendsTotal.WithLabelValues("media", "error").Inc()
		return nil, fmt.Errorf("send media: %w", err)
	}
	metrics.SendsTotal.WithLabelValues("media", "ok").Inc()

	ref := &mediaRef{mime: mime, filename: file.Filename}
	if s.blobs != nil {
		key := fmt.Sprintf("media/%s/sent-%s", configID, result.ExternalID)
		url, err := s.blobs.Store(ctx, key, file.Data, mime)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to archive sent media, message persisted without url")
		} else {
			ref.url = &url
		}
	}
	return s.persistSent(ctx, mgr, number, file.Caption, result, nil, ref)
}

type mediaRef struct {
	url      *string
	mime     string
	filename string
}

// liveClient verifies connection liveness with a fresh transport check, not
// the cached state.
func (s *Service) liveClient(configID string) (session.Client, *session.Manager, error) {
	mgr, ok := s.sessions.Manager(configID)
	if !ok {
		return nil, nil, gatewayerrors.New(gatewayerrors.TypeNotConnected, "session is not running")
	}
	client := mgr.Client()
	if client == nil || !client.IsConnected() {
		return nil, nil, gatewayerrors.New(gatewayerrors.TypeNotConnected, "session transport is not connected")
	}
	return client, mgr, nil
}

func (s *Service) persistSent(
	ctx context.Context,
	mgr *session.Manager,
	number, content string,
	result session.SendResult,
	parent *chat.Message,
	media *mediaRef,
) (*chat.Message, error) {
	cfg := mgr.Config()
	s.guard.MarkSent(cfg.ID, result.ExternalID)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	conv, err := s.conversations.GetOrCreate(ctx, &chat.Conversation{
		ID:             uuid.NewString(),
		ConfigID:       cfg.ID,
		ContactNumber:  number,
		Status:         chat.ConversationActive,
		LastActivityAt: result.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	msg := &chat.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		ConfigID:          cfg.ID,
		ExternalID:        result.ExternalID,
		Direction:         chat.DirectionOutbound,
		Content:           content,
		DeliveryStatus:    chat.DeliverySent,
		ExternalTimestamp: result.Timestamp,
	}
	if parent != nil {
		msg.ParentExternalID = &parent.ExternalID
		msg.ParentContent = &parent.Content
		author := conv.ContactName
		if author == "" {
			author = conv.ContactNumber
		}
		if parent.Direction == chat.DirectionOutbound {
			author = "me"
		}
		msg.ParentAuthor = &author
	}
	if media != nil {
		msg.MediaURL = media.url
		mime := media.mime
		msg.MediaMimeType = &mime
		if media.filename != "" {
			filename := media.filename
			msg.MediaFilename = &filename
		}
	}

	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist sent message: %w", err)
	}
	if err := s.conversations.TouchActivity(ctx, conv.ID, result.Timestamp); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to bump conversation activity")
	}
	return msg, nil
}
