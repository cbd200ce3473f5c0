package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink/pkg/wire"
)

var (
	ErrChatEnded     = errors.New("chat ended")
	ErrNotOwnMessage = errors.New("not an own confirmed message")
)

// Message is one entry in the conversation view.
type Message struct {
	// ID is the server-assigned id, empty while the message is optimistic.
	ID        string
	ClientID  string
	Sender    string
	Text      string
	Type      wire.MessageType
	Timestamp int64
	Mine      bool
	Pending   bool
	Edited    bool
	// Deleted messages keep their slot in the sequence with a placeholder
	// body, so nothing below them shifts.
	Deleted bool
	// System marks synthetic entries the client appends itself, like the
	// partner-left notice.
	System bool
	// Expired marks a burned snapshot: the image data is gone and only a
	// placeholder remains.
	Expired bool

	viewing   bool
	ticksLeft int
}

const (
	defaultSnapshotTicks = 10
	defaultTypingIdle    = 2 * time.Second

	// SnapshotExpiredText replaces a snapshot's image data once it burns.
	SnapshotExpiredText = "Snapshot Expired"
	// DeletedMessageText replaces the body of a deleted message.
	DeletedMessageText = "This message was deleted"
)

// Chat is the per-room conversation state. Messages are kept in display
// order with id indexes on the side, so reconciliation never rescans the
// whole history.
type Chat struct {
	mu sync.Mutex

	roomID      string
	selfName    string
	partnerName string

	messages   []*Message
	byID       map[string]*Message
	byClientID map[string]*Message
	// early holds own echoes that arrived before the optimistic insert,
	// keyed by clientId. The send path consults and evicts.
	early map[string]*wire.NewMessage

	partnerTyping bool
	ended         bool
	endedBy       string

	typingActive bool
	typingTimer  *time.Timer

	transport     Transport
	snapshotTicks int
	typingIdle    time.Duration
	newClientID   func() string
}

type ChatOption func(*Chat)

// WithSnapshotTicks overrides how many ticks a snapshot survives.
func WithSnapshotTicks(n int) ChatOption {
	return func(c *Chat) { c.snapshotTicks = n }
}

func WithTypingIdle(d time.Duration) ChatOption {
	return func(c *Chat) { c.typingIdle = d }
}

func NewChat(transport Transport, roomID, selfName, partnerName string, opts ...ChatOption) *Chat {
	c := &Chat{
		roomID:        roomID,
		selfName:      selfName,
		partnerName:   partnerName,
		byID:          make(map[string]*Message),
		byClientID:    make(map[string]*Message),
		early:         make(map[string]*wire.NewMessage),
		transport:     transport,
		snapshotTicks: defaultSnapshotTicks,
		typingIdle:    defaultTypingIdle,
		newClientID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chat) RoomID() string      { return c.roomID }
func (c *Chat) PartnerName() string { return c.partnerName }

// Messages returns a snapshot of the conversation in display order.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = *m
	}
	return out
}

// HasMessage reports whether a confirmed message id is in the view. The
// reaction overlay uses it to drop bursts aimed at bubbles this side never
// got.
func (c *Chat) HasMessage(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byID[id]
	return ok
}

// restore preloads a cached transcript. Only confirmed messages are taken;
// anything optimistic died with the previous process.
func (c *Chat) restore(messages []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range messages {
		if m.ID == "" {
			continue
		}
		m.Mine = m.Sender == c.selfName
		cp := m
		c.messages = append(c.messages, &cp)
		c.byID[cp.ID] = &cp
		if cp.ClientID != "" {
			c.byClientID[cp.ClientID] = &cp
		}
	}
}

func (c *Chat) PartnerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partnerTyping
}

// Ended reports whether the partner left. An ended chat stays readable
// but accepts no more sends.
func (c *Chat) Ended() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended, c.endedBy
}

// Send delivers a text message, optionally preceded by an image snapshot.
// Both go out as independent messages with their own reconciliation ids,
// image first so the conversation reads naturally.
func (c *Chat) Send(text, imageData string) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrChatEnded
	}
	c.mu.Unlock()

	c.stopTypingNow()

	if imageData != "" {
		if err := c.sendOne(imageData, wire.ImageMessage); err != nil {
			return err
		}
	}
	if text != "" {
		return c.sendOne(text, wire.TextMessage)
	}
	return nil
}

func (c *Chat) sendOne(body string, typ wire.MessageType) error {
	clientID := c.newClientID()

	msg := &Message{
		ClientID:  clientID,
		Sender:    c.selfName,
		Text:      body,
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
		Mine:      true,
		Pending:   true,
	}
	if typ == wire.ImageMessage {
		msg.ticksLeft = c.snapshotTicks
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.byClientID[clientID] = msg
	// the echo may have raced the insert
	if echo, ok := c.early[clientID]; ok {
		delete(c.early, clientID)
		c.confirmLocked(msg, echo)
	}
	c.mu.Unlock()

	return c.transport.Send(&wire.SendMessage{
		RoomID:     c.roomID,
		Message:    body,
		SenderName: c.selfName,
		Type:       typ,
		ClientID:   clientID,
	})
}

func (c *Chat) confirmLocked(m *Message, echo *wire.NewMessage) {
	m.ID = echo.ID
	m.Timestamp = echo.Timestamp
	m.Pending = false
	c.byID[echo.ID] = m
}

// ApplyNewMessage reconciles one new-message event against local state.
// The checks run strictly in this order; each one settles the message for
// good.
func (c *Chat) ApplyNewMessage(e *wire.NewMessage) {
	if e.RoomID != c.roomID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// already known by server id
	if _, ok := c.byID[e.ID]; ok {
		return
	}

	if e.ClientID != "" {
		if local, ok := c.byClientID[e.ClientID]; ok {
			// already confirmed: a redelivered echo
			if local.ID != "" {
				return
			}
			// confirm the optimistic copy in place
			c.confirmLocked(local, e)
			return
		}
		// own echo ahead of the optimistic insert
		if e.Sender == c.selfName {
			c.early[e.ClientID] = e
			return
		}
	} else if e.Sender == c.selfName {
		// an own message with no client id cannot be matched to anything
		return
	}

	m := &Message{
		ID:        e.ID,
		ClientID:  e.ClientID,
		Sender:    e.Sender,
		Text:      e.Text,
		Type:      e.Type,
		Timestamp: e.Timestamp,
	}
	if e.Type == wire.ImageMessage {
		m.ticksLeft = c.snapshotTicks
	}
	c.messages = append(c.messages, m)
	c.byID[e.ID] = m
	if e.ClientID != "" {
		c.byClientID[e.ClientID] = m
	}
}

// Edit rewrites an own confirmed text message. Optimistic and partner
// messages cannot be edited; the change lands when message-updated echoes
// back.
func (c *Chat) Edit(messageID, newText string) error {
	c.mu.Lock()
	m, ok := c.byID[messageID]
	if !ok || !m.Mine || m.Pending || m.Deleted || m.Type != wire.TextMessage {
		c.mu.Unlock()
		return ErrNotOwnMessage
	}
	c.mu.Unlock()

	return c.transport.Send(&wire.EditMessage{
		RoomID:    c.roomID,
		MessageID: messageID,
		NewText:   newText,
	})
}

// Delete removes an own confirmed message, settled by the echo.
func (c *Chat) Delete(messageID string) error {
	c.mu.Lock()
	m, ok := c.byID[messageID]
	if !ok || !m.Mine || m.Pending || m.Deleted {
		c.mu.Unlock()
		return ErrNotOwnMessage
	}
	c.mu.Unlock()

	return c.transport.Send(&wire.DeleteMessage{
		RoomID:    c.roomID,
		MessageID: messageID,
	})
}

func (c *Chat) ApplyUpdated(e *wire.MessageUpdated) {
	if e.RoomID != c.roomID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.byID[e.MessageID]; ok {
		m.Text = e.NewText
		m.Edited = true
	}
}

// ApplyDeleted blanks a message in place. The entry keeps its position so
// the conversation does not reflow under the reader.
func (c *Chat) ApplyDeleted(e *wire.MessageDeleted) {
	if e.RoomID != c.roomID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byID[e.MessageID]
	if !ok || m.Deleted {
		return
	}
	m.Deleted = true
	m.Text = DeletedMessageText
}

func (c *Chat) ApplyPartnerTyping(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partnerTyping = on
}

// ApplyPartnerLeft moves the chat to its terminal state and drops a system
// notice into the sequence. Applying it twice is harmless.
func (c *Chat) ApplyPartnerLeft(e *wire.PartnerLeft) {
	if e.RoomID != c.roomID {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.ended = true
	c.endedBy = e.SenderName
	c.partnerTyping = false
	c.messages = append(c.messages, &Message{
		Sender:    e.SenderName,
		Text:      e.SenderName + " left the chat",
		Type:      wire.TextMessage,
		Timestamp: time.Now().UnixMilli(),
		System:    true,
	})
}

// End leaves the chat from this side.
func (c *Chat) End() error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	c.endedBy = c.selfName
	c.mu.Unlock()

	return c.transport.Send(&wire.EndChat{RoomID: c.roomID, SenderName: c.selfName})
}

// View starts a snapshot's self-destruct countdown. Viewing an image that
// is already counting down or already burned is a no-op.
func (c *Chat) View(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byID[messageID]
	if !ok {
		m, ok = c.byClientID[messageID]
	}
	if !ok || m.Type != wire.ImageMessage || m.Expired || m.viewing {
		return
	}
	m.viewing = true
}

// Tick advances every viewed snapshot countdown by one step. Each viewer
// runs its own clock, so the two sides may burn the same snapshot at
// slightly different moments; nothing reconciles that on purpose. Expiry
// is idempotent.
func (c *Chat) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.Type != wire.ImageMessage || m.Expired || !m.viewing {
			continue
		}
		if m.ticksLeft > 0 {
			m.ticksLeft--
		}
		if m.ticksLeft == 0 {
			m.Expired = true
			m.Text = SnapshotExpiredText
		}
	}
}

// RunTicker drives Tick once per interval until the channel is closed.
func (c *Chat) RunTicker(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-stop:
			return
		}
	}
}

// NotifyInput records local keystrokes. The first keystroke of a burst
// sends typing; stop-typing follows after the idle window with no further
// input. A steady typist produces exactly one pair.
func (c *Chat) NotifyInput() {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	wasActive := c.typingActive
	c.typingActive = true
	if c.typingTimer == nil {
		c.typingTimer = time.AfterFunc(c.typingIdle, c.typingIdleFired)
	} else {
		c.typingTimer.Reset(c.typingIdle)
	}
	c.mu.Unlock()

	if !wasActive {
		c.transport.Send(&wire.Typing{RoomID: c.roomID, SenderName: c.selfName})
	}
}

func (c *Chat) typingIdleFired() {
	c.mu.Lock()
	active := c.typingActive
	c.typingActive = false
	c.mu.Unlock()

	if active {
		c.transport.Send(&wire.StopTyping{RoomID: c.roomID})
	}
}

// stopTypingNow ends the burst immediately, used when a message is sent.
func (c *Chat) stopTypingNow() {
	c.mu.Lock()
	active := c.typingActive
	c.typingActive = false
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.mu.Unlock()

	if active {
		c.transport.Send(&wire.StopTyping{RoomID: c.roomID})
	}
}
