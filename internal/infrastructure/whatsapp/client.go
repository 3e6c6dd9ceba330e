// Package whatsapp adapts the whatsmeow client library to the session and
// ingest domain interfaces. Each tenant gets its own client backed by its own
// sqlite device store.
package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/domain/ingest"
	"zapcrm/messaging-gateway/internal/domain/session"
	"zapcrm/messaging-gateway/internal/domain/tenant"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// Traffic receives translated message and receipt events. The ingest
// pipeline implements it.
type Traffic interface {
	HandleInbound(ctx context.Context, evt ingest.Event)
	HandleOutbound(ctx context.Context, evt ingest.Event)
	HandleReceipt(ctx context.Context, rcpt ingest.Receipt)
}

// Client wraps one whatsmeow client bound to one tenant configuration.
type Client struct {
	cfg       *tenant.Configuration
	wm        *whatsmeow.Client
	container *sqlstore.Container
	dbPath    string
	hooks     session.Hooks
	traffic   Traffic
	log       zerolog.Logger
}

var _ session.Client = (*Client)(nil)

// NewFactory returns a session.ClientFactory producing per-tenant clients.
// Session stores live under storeDir, one sqlite database per tenant, so a
// compromised or revoked tenant session never touches another tenant's keys.
func NewFactory(storeDir string, traffic Traffic, log zerolog.Logger) session.ClientFactory {
	return func(ctx context.Context, cfg *tenant.Configuration, hooks session.Hooks) (session.Client, error) {
		if err := os.MkdirAll(storeDir, 0o750); err != nil {
			return nil, fmt.Errorf("create session store dir: %w", err)
		}

		dbPath := fmt.Sprintf("%s/wa-%s.db", storeDir, cfg.ID)
		dbURI := fmt.Sprintf("file:%s?_foreign_keys=on", dbPath)
		container, err := sqlstore.New(ctx, "sqlite3", dbURI, waLog.Noop)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}

		device, err := container.GetFirstDevice(ctx)
		if err == sql.ErrNoRows {
			device = container.NewDevice()
		} else if err != nil {
			container.Close()
			return nil, fmt.Errorf("load device: %w", err)
		}

		c := &Client{
			cfg:       cfg,
			container: container,
			dbPath:    dbPath,
			hooks:     hooks,
			traffic:   traffic,
			log: log.With().
				Str("component", "whatsapp-client").
				Str("config_id", cfg.ID).
				Logger(),
		}

		wm := whatsmeow.NewClient(device, waLog.Noop)
		// The session manager owns reconnection policy; the library must not
		// fight it by reconnecting behind its back.
		wm.EnableAutoReconnect = false
		wm.AutoTrustIdentity = true
		wm.AddEventHandler(c.handleEvent)
		c.wm = wm
		return c, nil
	}
}

// Connect opens the transport. For an unpaired device it also consumes the
// pairing channel, forwarding each fresh code to the lifecycle hooks.
func (c *Client) Connect(ctx context.Context) error {
	if c.wm.Store.ID == nil {
		qrChan, err := c.wm.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("open pairing channel: %w", err)
		}
		if err := c.wm.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go c.consumePairing(qrChan)
		return nil
	}
	if err := c.wm.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (c *Client) consumePairing(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.log.Info().Msg("pairing code issued")
			c.hooks.OnPairing(evt.Code)
		case "success":
			c.log.Info().Msg("pairing completed")
			return
		case "timeout":
			c.log.Warn().Msg("pairing timed out")
			c.wm.Disconnect()
			c.hooks.OnDisconnected("pairing timed out")
			return
		}
	}
}

func (c *Client) Disconnect() {
	c.wm.Disconnect()
}

func (c *Client) IsConnected() bool {
	return c.wm.IsConnected()
}

func (c *Client) IsLoggedIn() bool {
	return c.wm.IsLoggedIn()
}

func (c *Client) OwnNumber() string {
	if c.wm.Store.ID == nil {
		return ""
	}
	return c.wm.Store.ID.User
}

func (c *Client) SendText(ctx context.Context, contactNumber, text string) (session.SendResult, error) {
	jid := c.contactJID(contactNumber)
	resp, err := c.wm.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return session.SendResult{}, gatewayerrors.Wrap(gatewayerrors.TypeInternal, "send text", err)
	}
	return session.SendResult{ExternalID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) SendReply(ctx context.Context, contactNumber, text string, parent session.ReplyTarget) (session.SendResult, error) {
	jid := c.contactJID(contactNumber)
	participant := jid.String()
	if parent.FromMe && c.wm.Store.ID != nil {
		participant = c.wm.Store.ID.ToNonAD().String()
	}
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(parent.ExternalID),
				Participant:   proto.String(participant),
				QuotedMessage: &waE2E.Message{Conversation: proto.String(parent.Content)},
			},
		},
	}
	resp, err := c.wm.SendMessage(ctx, jid, msg)
	if err != nil {
		return session.SendResult{}, gatewayerrors.Wrap(gatewayerrors.TypeInternal, "send reply", err)
	}
	return session.SendResult{ExternalID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) SendMedia(ctx context.Context, contactNumber string, media session.OutboundMedia) (session.SendResult, error) {
	jid := c.contactJID(contactNumber)

	mediaType := uploadType(media.MimeType)
	uploaded, err := c.wm.Upload(ctx, media.Data, mediaType)
	if err != nil {
		return session.SendResult{}, gatewayerrors.Wrap(gatewayerrors.TypeInternal, "upload media", err)
	}

	msg := buildMediaMessage(mediaType, media, uploaded)
	resp, err := c.wm.SendMessage(ctx, jid, msg)
	if err != nil {
		return session.SendResult{}, gatewayerrors.Wrap(gatewayerrors.TypeInternal, "send media", err)
	}
	return session.SendResult{ExternalID: resp.ID, Timestamp: resp.Timestamp}, nil
}

// ClearSession closes the device store and removes its files so the next
// connect starts from a clean unpaired device.
func (c *Client) ClearSession(ctx context.Context) error {
	c.container.Close()
	for _, path := range []string{c.dbPath, c.dbPath + "-wal", c.dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove session artifact %s: %w", path, err)
		}
	}
	return nil
}

func (c *Client) contactJID(contactNumber string) types.JID {
	return types.NewJID(chat.NormalizeNumber(contactNumber), types.DefaultUserServer)
}

func uploadType(mime string) whatsmeow.MediaType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return whatsmeow.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return whatsmeow.MediaVideo
	case strings.HasPrefix(mime, "audio/"):
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func buildMediaMessage(mediaType whatsmeow.MediaType, media session.OutboundMedia, up whatsmeow.UploadResponse) *waE2E.Message {
	msg := &waE2E.Message{}
	switch mediaType {
	case whatsmeow.MediaImage:
		msg.ImageMessage = &waE2E.ImageMessage{
			Caption:       proto.String(media.Caption),
			Mimetype:      proto.String(media.MimeType),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &up.FileLength,
		}
	case whatsmeow.MediaVideo:
		msg.VideoMessage = &waE2E.VideoMessage{
			Caption:       proto.String(media.Caption),
			Mimetype:      proto.String(media.MimeType),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &up.FileLength,
		}
	case whatsmeow.MediaAudio:
		msg.AudioMessage = &waE2E.AudioMessage{
			Mimetype:      proto.String(media.MimeType),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &up.FileLength,
		}
	default:
		msg.DocumentMessage = &waE2E.DocumentMessage{
			Title:         proto.String(media.Filename),
			Caption:       proto.String(media.Caption),
			Mimetype:      proto.String(media.MimeType),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &up.FileLength,
		}
	}
	return msg
}
