package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/infrastructure/metrics"
)

// Pipeline converges inbound and outbound network events onto the durable
// store. Ingestion is best-effort: the network expects no acknowledgement,
// so any step failure is logged and the event dropped.
type Pipeline struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
	blobs         BlobStore
	guard         Guard
	automation    Notifier
	maxMediaBytes int64
	log           zerolog.Logger
}

func NewPipeline(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	blobs BlobStore,
	guard Guard,
	automation Notifier,
	maxMediaBytes int64,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		messages:      messages,
		blobs:         blobs,
		guard:         guard,
		automation:    automation,
		maxMediaBytes: maxMediaBytes,
		log:           log.With().Str("component", "ingest-pipeline").Logger(),
	}
}

// HandleInbound processes a message authored by the counterparty.
func (p *Pipeline) HandleInbound(ctx context.Context, evt Event) {
	if evt.Group || evt.Broadcast {
		p.drop("group_or_broadcast")
		return
	}
	if evt.Text == "" && evt.Media == nil {
		p.drop("empty")
		return
	}

	msg, conv, created, err := p.ingest(ctx, evt, chat.DirectionInbound)
	if err != nil {
		p.log.Error().Err(err).Str("external_id", evt.ExternalID).Msg("inbound ingestion failed, event dropped")
		return
	}
	if created && p.automation != nil {
		p.automation.Dispatch(ctx, msg, conv)
	}
}

// HandleOutbound processes an echo of a message sent from the tenant's own
// account, including sends made on other devices.
func (p *Pipeline) HandleOutbound(ctx context.Context, evt Event) {
	if !evt.FromMe {
		p.drop("not_from_me")
		return
	}
	if evt.Group || evt.Broadcast {
		p.drop("group_or_broadcast")
		return
	}
	if chat.NormalizeNumber(evt.ChatNumber) == chat.NormalizeNumber(evt.TenantNumber) {
		p.drop("self_chat")
		return
	}
	if p.guard != nil && p.guard.WasSent(evt.ConfigID, evt.ExternalID) {
		// Already persisted synchronously by the command API.
		metrics.DuplicatesSuppressedTotal.Inc()
		p.log.Debug().Str("external_id", evt.ExternalID).Msg("echo suppressed")
		return
	}

	if _, _, _, err := p.ingest(ctx, evt, chat.DirectionOutbound); err != nil {
		p.log.Error().Err(err).Str("external_id", evt.ExternalID).Msg("outbound ingestion failed, event dropped")
	}
}

// HandleReceipt applies delivery acknowledgements to previously persisted
// messages.
func (p *Pipeline) HandleReceipt(ctx context.Context, rcpt Receipt) {
	status := chat.DeliveryDelivered
	if rcpt.Kind == DeliveryAckRead {
		status = chat.DeliveryRead
	}
	for _, externalID := range rcpt.ExternalIDs {
		if err := p.messages.UpdateDeliveryStatus(ctx, rcpt.ConfigID, externalID, status); err != nil {
			p.log.Warn().Err(err).Str("external_id", externalID).Msg("failed to apply receipt")
		}
	}
}

// ingest runs the shared persistence steps. The bool result reports whether
// a new message row was created (false for duplicate external ids).
func (p *Pipeline) ingest(ctx context.Context, evt Event, direction chat.Direction) (*chat.Message, *chat.Conversation, bool, error) {
	contact, err := chat.ResolveContact(evt.ChatNumber, evt.TenantNumber)
	if err != nil {
		return nil, nil, false, fmt.Errorf("resolve contact: %w", err)
	}

	contactName := ""
	if direction == chat.DirectionInbound {
		contactName = evt.SenderName
	}
	conv, err := p.conversations.GetOrCreate(ctx, &chat.Conversation{
		ID:             uuid.NewString(),
		ConfigID:       evt.ConfigID,
		ContactNumber:  contact,
		ContactName:    contactName,
		Status:         chat.ConversationActive,
		LastActivityAt: evt.Timestamp,
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("resolve conversation: %w", err)
	}

	msg := &chat.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		ConfigID:          evt.ConfigID,
		ExternalID:        evt.ExternalID,
		Direction:         direction,
		Content:           evt.Text,
		DeliveryStatus:    chat.DeliverySent,
		ExternalTimestamp: evt.Timestamp,
	}
	if direction == chat.DirectionInbound {
		msg.DeliveryStatus = chat.DeliveryDelivered
	}

	if evt.Quote != nil {
		p.resolveParent(ctx, msg, conv, evt.Quote)
	}
	if evt.Media != nil {
		if err := p.persistMedia(ctx, msg, evt); err != nil {
			return nil, nil, false, fmt.Errorf("persist media: %w", err)
		}
	}

	created, err := p.messages.Create(ctx, msg)
	if err != nil {
		return nil, nil, false, fmt.Errorf("persist message: %w", err)
	}
	if !created {
		// Benign replay of an already persisted external id.
		p.log.Debug().Str("external_id", evt.ExternalID).Msg("duplicate external id, ingestion is a no-op")
		return msg, conv, false, nil
	}

	if err := p.conversations.TouchActivity(ctx, conv.ID, evt.Timestamp); err != nil {
		p.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to bump conversation activity")
	}
	metrics.MessagesIngestedTotal.WithLabelValues(string(direction)).Inc()
	return msg, conv, true, nil
}

// resolveParent snapshots the quoted message when it is tracked. An
// untracked parent leaves the parent fields null.
func (p *Pipeline) resolveParent(ctx context.Context, msg *chat.Message, conv *chat.Conversation, quote *Quote) {
	parent, err := p.messages.GetByExternalID(ctx, conv.ID, quote.ExternalID)
	if err != nil {
		p.log.Warn().Err(err).Str("parent_external_id", quote.ExternalID).Msg("parent lookup failed")
		return
	}
	if parent == nil {
		return
	}
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

func (p *Pipeline) persistMedia(ctx context.Context, msg *chat.Message, evt Event) error {
	media := evt.Media
	if p.maxMediaBytes > 0 && int64(len(media.Data)) > p.maxMediaBytes {
		return fmt.Errorf("media exceeds max size of %d bytes", p.maxMediaBytes)
	}

	mime := media.MimeType
	if mime == "" {
		mime = mimetype.Detect(media.Data).String()
	}
	key := fmt.Sprintf("media/%s/%s-%s", evt.ConfigID, time.Now().UTC().Format("20060102"), msg.ID)

	url, err := p.blobs.Store(ctx, key, media.Data, mime)
	if err != nil {
		return err
	}
	msg.MediaURL = &url
	msg.MediaMimeType = &mime
	if media.Filename != "" {
		filename := media.Filename
		msg.MediaFilename = &filename
	}
	return nil
}

func (p *Pipeline) drop(reason string) {
	metrics.EventsDroppedTotal.WithLabelValues(reason).Inc()
}
