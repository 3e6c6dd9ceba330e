package whatsapp

import (
	"context"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"zapcrm/messaging-gateway/internal/domain/ingest"
)

func (c *Client) handleEvent(rawEvt interface{}) {
	ctx := context.Background()
	switch evt := rawEvt.(type) {
	case *events.Connected:
		c.hooks.OnConnected(c.OwnNumber())
	case *events.PairSuccess:
		c.log.Info().Str("device", evt.ID.String()).Msg("device paired")
	case *events.Disconnected:
		c.hooks.OnDisconnected("stream closed by network")
	case *events.StreamReplaced:
		c.hooks.OnDisconnected("stream replaced by another connection")
	case *events.LoggedOut:
		c.hooks.OnLoggedOut(evt.Reason.String())
	case *events.Message:
		c.handleMessage(ctx, evt)
	case *events.Receipt:
		c.handleReceipt(ctx, evt)
	}
}

func (c *Client) handleMessage(ctx context.Context, evt *events.Message) {
	translated := ingest.Event{
		ConfigID:     c.cfg.ID,
		TenantNumber: c.OwnNumber(),
		ExternalID:   evt.Info.ID,
		ChatNumber:   evt.Info.Chat.User,
		SenderName:   evt.Info.PushName,
		FromMe:       evt.Info.IsFromMe,
		Group:        evt.Info.Chat.Server != types.DefaultUserServer,
		Broadcast:    isBroadcastChat(evt),
		Timestamp:    evt.Info.Timestamp,
	}

	msg := unwrapMessage(evt.Message)
	translated.Text = extractText(msg)
	translated.Quote = extractQuote(msg)

	if dl, mime, filename := extractDownloadable(msg); dl != nil {
		data, err := c.wm.Download(ctx, dl)
		if err != nil {
			c.log.Warn().Err(err).Str("external_id", evt.Info.ID).Msg("media download failed, ingesting without attachment")
		} else {
			translated.Media = &ingest.Media{Data: data, MimeType: mime, Filename: filename}
		}
	}

	if translated.FromMe {
		c.traffic.HandleOutbound(ctx, translated)
		return
	}
	c.traffic.HandleInbound(ctx, translated)
}

func (c *Client) handleReceipt(ctx context.Context, evt *events.Receipt) {
	var kind ingest.DeliveryKind
	switch evt.Type {
	case types.ReceiptTypeDelivered:
		kind = ingest.DeliveryAckDelivered
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
		kind = ingest.DeliveryAckRead
	default:
		return
	}
	ids := make([]string, 0, len(evt.MessageIDs))
	for _, id := range evt.MessageIDs {
		ids = append(ids, string(id))
	}
	if len(ids) == 0 {
		return
	}
	c.traffic.HandleReceipt(ctx, ingest.Receipt{
		ConfigID:    c.cfg.ID,
		ExternalIDs: ids,
		Kind:        kind,
	})
}

func isBroadcastChat(evt *events.Message) bool {
	chatStr := evt.Info.Chat.String()
	return evt.Info.IsIncomingBroadcast() ||
		strings.HasPrefix(chatStr, "status@") ||
		strings.HasSuffix(chatStr, "@broadcast")
}

// unwrapMessage peels view-once and ephemeral wrappers off the payload.
func unwrapMessage(msg *waE2E.Message) *waE2E.Message {
	if msg == nil {
		return nil
	}
	unwrap := func(m *waE2E.Message) *waE2E.Message {
		if v := m.GetViewOnceMessage(); v != nil {
			return v.GetMessage()
		}
		if v := m.GetEphemeralMessage(); v != nil {
			return v.GetMessage()
		}
		if v := m.GetViewOnceMessageV2(); v != nil {
			return v.GetMessage()
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		next := unwrap(msg)
		if next == nil {
			break
		}
		msg = next
	}
	return msg
}

func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func extractQuote(msg *waE2E.Message) *ingest.Quote {
	if msg == nil {
		return nil
	}
	var ci *waE2E.ContextInfo
	switch {
	case msg.GetExtendedTextMessage().GetContextInfo() != nil:
		ci = msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetImageMessage().GetContextInfo() != nil:
		ci = msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage().GetContextInfo() != nil:
		ci = msg.GetVideoMessage().GetContextInfo()
	case msg.GetDocumentMessage().GetContextInfo() != nil:
		ci = msg.GetDocumentMessage().GetContextInfo()
	case msg.GetAudioMessage().GetContextInfo() != nil:
		ci = msg.GetAudioMessage().GetContextInfo()
	}
	if ci.GetStanzaID() == "" {
		return nil
	}
	return &ingest.Quote{ExternalID: ci.GetStanzaID()}
}

// extractDownloadable returns the media part of the message, if any, together
// with its declared mime type and filename.
func extractDownloadable(msg *waE2E.Message) (whatsmeow.DownloadableMessage, string, string) {
	if msg == nil {
		return nil, "", ""
	}
	if im := msg.GetImageMessage(); im != nil {
		return im, im.GetMimetype(), ""
	}
	if vi := msg.GetVideoMessage(); vi != nil {
		return vi, vi.GetMimetype(), ""
	}
	if au := msg.GetAudioMessage(); au != nil {
		return au, au.GetMimetype(), ""
	}
	if st := msg.GetStickerMessage(); st != nil {
		return st, st.GetMimetype(), ""
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc, doc.GetMimetype(), doc.GetFileName()
	}
	return nil, "", ""
}
