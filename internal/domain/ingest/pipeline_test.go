package ingest_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/domain/ingest"
)

// memConversations is an in-memory chat.ConversationRepository with the same
// uniqueness semantics as the database: one conversation per
// (config id, contact number).
type memConversations struct {
	mu    sync.Mutex
	byKey map[string]*chat.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{byKey: make(map[string]*chat.Conversation)}
}

func convKey(configID, contact string) string { return configID + "|" + contact }

func (r *memConversations) GetOrCreate(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := convKey(conv.ConfigID, conv.ContactNumber)
	if existing, ok := r.byKey[key]; ok {
		if existing.ContactName == "" && conv.ContactName != "" {
			existing.ContactName = conv.ContactName
		}
		copied := *existing
		return &copied, nil
	}
	stored := *conv
	r.byKey[key] = &stored
	copied := stored
	return &copied, nil
}

func (r *memConversations) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.byKey {
		if conv.ID == id {
			copied := *conv
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("conversation %s not found", id)
}

func (r *memConversations) TouchActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.byKey {
		if conv.ID == id && at.After(conv.LastActivityAt) {
			conv.LastActivityAt = at
		}
	}
	return nil
}

func (r *memConversations) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// memMessages enforces the (conversation id, external id) uniqueness guard.
type memMessages struct {
	mu     sync.Mutex
	byID   map[string]*chat.Message
	byExt  map[string]*chat.Message
	stored []*chat.Message
}

func newMemMessages() *memMessages {
	return &memMessages{
		byID:  make(map[string]*chat.Message),
		byExt: make(map[string]*chat.Message),
	}
}

func extKey(conversationID, externalID string) string { return conversationID + "|" + externalID }

func (r *memMessages) Create(ctx context.Context, msg *chat.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := extKey(msg.ConversationID, msg.ExternalID)
	if _, ok := r.byExt[key]; ok {
		return false, nil
	}
	stored := *msg
	r.byID[stored.ID] = &stored
	r.byExt[key] = &stored
	r.stored = append(r.stored, &stored)
	return true, nil
}

func (r *memMessages) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.byID[id]; ok {
		copied := *msg
		return &copied, nil
	}
	return nil, fmt.Errorf("message %s not found", id)
}

func (r *memMessages) GetByExternalID(ctx context.Context, conversationID, externalID string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.byExt[extKey(conversationID, externalID)]; ok {
		copied := *msg
		return &copied, nil
	}
	return nil, nil
}

func (r *memMessages) CountInbound(ctx context.Context, conversationID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.stored {
		if msg.ConversationID == conversationID && msg.Direction == chat.DirectionInbound {
			n++
		}
	}
	return n, nil
}

func (r *memMessages) UpdateDeliveryStatus(ctx context.Context, configID, externalID string, status chat.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.stored {
		if msg.ConfigID == configID && msg.ExternalID == externalID && msg.Direction == chat.DirectionOutbound {
			msg.DeliveryStatus = status
		}
	}
	return nil
}

func (r *memMessages) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

func (r *memMessages) last() *chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stored) == 0 {
		return nil
	}
	copied := *r.stored[len(r.stored)-1]
	return &copied
}

type memBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (b *memBlobs) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	return "https://blobs.test/" + key, nil
}

type stubGuard struct {
	hits map[string]bool
}

func (g *stubGuard) WasSent(configID, externalID string) bool {
	return g.hits[configID+"|"+externalID]
}

type recordingNotifier struct {
	mu        sync.Mutex
	dispatches []*chat.Message
}

func (n *recordingNotifier) Dispatch(ctx context.Context, msg *chat.Message, conv *chat.Conversation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatches = append(n.dispatches, msg)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dispatches)
}

type pipelineFixture struct {
	pipeline      *ingest.Pipeline
	conversations *memConversations
	messages      *memMessages
	blobs         *memBlobs
	guard         *stubGuard
	notifier      *recordingNotifier
}

func newFixture() *pipelineFixture {
	f := &pipelineFixture{
		conversations: newMemConversations(),
		messages:      newMemMessages(),
		blobs:         &memBlobs{},
		guard:         &stubGuard{hits: make(map[string]bool)},
		notifier:      &recordingNotifier{},
	}
	f.pipeline = ingest.NewPipeline(f.conversations, f.messages, f.blobs, f.guard, f.notifier, 1024, zerolog.Nop())
	return f
}

func inboundEvent(externalID, text string) ingest.Event {
	return ingest.Event{
		ConfigID:     "cfg-1",
		TenantNumber: "5511999999999",
		ExternalID:   externalID,
		ChatNumber:   "5511888888888@s.whatsapp.net",
		SenderName:   "Alice",
		Timestamp:    time.Now(),
		Text:         text,
	}
}

func TestPipeline_InboundCreatesConversationAndMessage(t *testing.T) {
	f := newFixture()

	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-1", "hello"))

	if f.conversations.count() != 1 {
		t.Fatalf("conversations = %d, want 1", f.conversations.count())
	}
	if f.messages.count() != 1 {
		t.Fatalf("messages = %d, want 1", f.messages.count())
	}
	msg := f.messages.last()
	if msg.Direction != chat.DirectionInbound {
		t.Errorf("direction = %s, want inbound", msg.Direction)
	}
	if msg.DeliveryStatus != chat.DeliveryDelivered {
		t.Errorf("delivery status = %s, want delivered", msg.DeliveryStatus)
	}
	if f.notifier.count() != 1 {
		t.Errorf("automation dispatched %d times, want 1", f.notifier.count())
	}
}

func TestPipeline_ReplayIsIdempotent(t *testing.T) {
	f := newFixture()

	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-1", "hello"))
	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-1", "hello"))

	if f.messages.count() != 1 {
		t.Fatalf("messages = %d, want 1 after replay", f.messages.count())
	}
	if f.notifier.count() != 1 {
		t.Fatalf("automation must not re-dispatch on replay, got %d", f.notifier.count())
	}
}

func TestPipeline_SameContactReusesConversation(t *testing.T) {
	f := newFixture()

	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-1", "first"))
	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-2", "second"))

	if f.conversations.count() != 1 {
		t.Fatalf("conversations = %d, want 1", f.conversations.count())
	}
	if f.messages.count() != 2 {
		t.Fatalf("messages = %d, want 2", f.messages.count())
	}
}

func TestPipeline_ConcurrentSameContactOneConversation(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.pipeline.HandleInbound(context.Background(), inboundEvent(fmt.Sprintf("ext-%d", i), "hi"))
		}(i)
	}
	wg.Wait()

	if f.conversations.count() != 1 {
		t.Fatalf("conversations = %d, want 1", f.conversations.count())
	}
	if f.messages.count() != 10 {
		t.Fatalf("messages = %d, want 10", f.messages.count())
	}
}

func TestPipeline_DropsGroupBroadcastAndEmpty(t *testing.T) {
	f := newFixture()

	group := inboundEvent("ext-g", "hi")
	group.Group = true
	f.pipeline.HandleInbound(context.Background(), group)

	broadcast := inboundEvent("ext-b", "hi")
	broadcast.Broadcast = true
	f.pipeline.HandleInbound(context.Background(), broadcast)

	empty := inboundEvent("ext-e", "")
	f.pipeline.HandleInbound(context.Background(), empty)

	if f.messages.count() != 0 {
		t.Fatalf("messages = %d, want 0 after filtered events", f.messages.count())
	}
}

func TestPipeline_OutboundEchoSuppressedByGuard(t *testing.T) {
	f := newFixture()
	f.guard.hits["cfg-1|ext-sent"] = true

	echo := inboundEvent("ext-sent", "sent from api")
	echo.FromMe = true
	f.pipeline.HandleOutbound(context.Background(), echo)

	if f.messages.count() != 0 {
		t.Fatalf("guarded echo was persisted, messages = %d", f.messages.count())
	}
}

func TestPipeline_OutboundFromOtherDevicePersisted(t *testing.T) {
	f := newFixture()

	evt := inboundEvent("ext-phone", "typed on the phone")
	evt.FromMe = true
	f.pipeline.HandleOutbound(context.Background(), evt)

	if f.messages.count() != 1 {
		t.Fatalf("messages = %d, want 1", f.messages.count())
	}
	msg := f.messages.last()
	if msg.Direction != chat.DirectionOutbound {
		t.Errorf("direction = %s, want outbound", msg.Direction)
	}
	if f.notifier.count() != 0 {
		t.Error("outbound echoes must not trigger automation")
	}
}

func TestPipeline_OutboundSelfChatDropped(t *testing.T) {
	f := newFixture()

	evt := inboundEvent("ext-self", "note to self")
	evt.FromMe = true
	evt.ChatNumber = "5511999999999@s.whatsapp.net"
	f.pipeline.HandleOutbound(context.Background(), evt)

	if f.messages.count() != 0 {
		t.Fatalf("self-chat echo was persisted, messages = %d", f.messages.count())
	}
}

func TestPipeline_QuoteSnapshotsTrackedParent(t *testing.T) {
	f := newFixture()

	f.pipeline.HandleInbound(context.Background(), inboundEvent("ext-parent", "original"))

	reply := inboundEvent("ext-reply", "answering you")
	reply.Quote = &ingest.Quote{ExternalID: "ext-parent"}
	f.pipeline.HandleInbound(context.Background(), reply)

	msg := f.messages.last()
	if msg.ParentExternalID == nil || *msg.ParentExternalID != "ext-parent" {
		t.Fatal("parent external id not snapshotted")
	}
	if msg.ParentContent == nil || *msg.ParentContent != "original" {
		t.Fatal("parent content not snapshotted")
	}
	if msg.ParentAuthor == nil || *msg.ParentAuthor != "Alice" {
		t.Fatalf("parent author = %v, want Alice", msg.ParentAuthor)
	}
}

func TestPipeline_UntrackedQuoteLeavesParentNull(t *testing.T) {
	f := newFixture()

	reply := inboundEvent("ext-reply", "answering a ghost")
	reply.Quote = &ingest.Quote{ExternalID: "never-seen"}
	f.pipeline.HandleInbound(context.Background(), reply)

	if f.messages.count() != 1 {
		t.Fatalf("messages = %d, want 1", f.messages.count())
	}
	msg := f.messages.last()
	if msg.ParentExternalID != nil || msg.ParentContent != nil || msg.ParentAuthor != nil {
		t.Fatal("untracked quote must leave all parent fields null")
	}
}

func TestPipeline_MediaPersistedWithMessage(t *testing.T) {
	f := newFixture()

	evt := inboundEvent("ext-media", "look at this")
	evt.Media = &ingest.Media{Data: []byte("image-bytes"), MimeType: "image/jpeg", Filename: "photo.jpg"}
	f.pipeline.HandleInbound(context.Background(), evt)

	msg := f.messages.last()
	if msg == nil {
		t.Fatal("message not persisted")
	}
	if msg.MediaURL == nil {
		t.Fatal("media url not recorded")
	}
	if msg.MediaMimeType == nil || *msg.MediaMimeType != "image/jpeg" {
		t.Fatalf("media mime = %v, want image/jpeg", msg.MediaMimeType)
	}
	if msg.MediaFilename == nil || *msg.MediaFilename != "photo.jpg" {
		t.Fatalf("media filename = %v", msg.MediaFilename)
	}
	if len(f.blobs.keys) != 1 {
		t.Fatalf("blob store received %d objects, want 1", len(f.blobs.keys))
	}
}

func TestPipeline_OversizedMediaDropsEvent(t *testing.T) {
	f := newFixture()

	evt := inboundEvent("ext-big", "huge file")
	evt.Media = &ingest.Media{Data: make([]byte, 2048), MimeType: "application/octet-stream"}
	f.pipeline.HandleInbound(context.Background(), evt)

	if f.messages.count() != 0 {
		t.Fatalf("oversized media event was persisted, messages = %d", f.messages.count())
	}
}

func TestPipeline_ReceiptUpdatesDeliveryStatus(t *testing.T) {
	f := newFixture()

	sent := inboundEvent("ext-out", "hello")
	sent.FromMe = true
	f.pipeline.HandleOutbound(context.Background(), sent)

	f.pipeline.HandleReceipt(context.Background(), ingest.Receipt{
		ConfigID:    "cfg-1",
		ExternalIDs: []string{"ext-out"},
		Kind:        ingest.DeliveryAckRead,
	})

	msg := f.messages.last()
	if msg.DeliveryStatus != chat.DeliveryRead {
		t.Fatalf("delivery status = %s, want read", msg.DeliveryStatus)
	}
}
