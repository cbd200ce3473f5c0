// Package relay implements the server side of the real-time session
// protocol: presence, the request handshake, ephemeral rooms, and the
// in-room channels (chat, game, drawing, reactions) multiplexed over one
// hub connection per session.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/wire"
	"github.com/vibelink/vibelink/pkg/ws"
)

// Broadcaster is the slice of the hub the relay needs. *ws.Hub satisfies it.
type Broadcaster interface {
	SendToClients(env *wire.Envelope, ids ...string)
	Broadcast(env *wire.Envelope)
}

// UsageStore is the slice of the persistent store the relay needs.
type UsageStore interface {
	UserBySession(ctx context.Context, sessionID string) (*store.User, error)
	UsageFor(ctx context.Context, sessionID, day string) (store.Usage, error)
	IncrRequests(ctx context.Context, sessionID, day string) (int, error)
	IncrToggles(ctx context.Context, sessionID, day string) (int, error)
	IncrMonthlyMatches(ctx context.Context, month string) error
}

type Config struct {
	// RequestTTL is the acceptance window for a chat request. The server
	// timer is authoritative; client countdowns only mirror it.
	RequestTTL time.Duration
	// PingLimit and ToggleLimit are daily caps for non-premium users.
	PingLimit   int
	ToggleLimit int
	// EliteEnabled gates premium treatment (priority requests etc).
	EliteEnabled bool
}

type pendingRequest struct {
	senderID     string
	senderName   string
	receiverID   string
	receiverName string
	vibe         string
	isPriority   bool
	timer        *time.Timer
}

type room struct {
	id      string
	members [2]string
	// names maps session id to display name within the room.
	names map[string]string
	// senders maps relayed message ids to the session that sent them, so
	// edit and delete can be checked against the original sender.
	senders  map[string]string
	game     gameState
	drawOpen bool
}

func (r *room) other(sessionID string) (string, bool) {
	switch sessionID {
	case r.members[0]:
		return r.members[1], true
	case r.members[1]:
		return r.members[0], true
	}
	return "", false
}

type Relay struct {
	cfg    Config
	bus    Broadcaster
	store  UsageStore
	logger *slog.Logger

	mu     sync.Mutex
	roster map[string]wire.PresenceRecord
	// pending tracks at most one incoming request per receiver; a newer
	// request supersedes the tracked one.
	pending map[string]*pendingRequest
	rooms   map[string]*room

	now func() time.Time
}

func New(cfg Config, bus Broadcaster, usage UsageStore, opts ...Option) *Relay {
	r := &Relay{
		cfg:     cfg,
		bus:     bus,
		store:   usage,
		roster:  make(map[string]wire.PresenceRecord),
		pending: make(map[string]*pendingRequest),
		rooms:   make(map[string]*room),
		logger: slog.New(slog.NewJSONHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

// Attach registers the relay's handlers on the hub. Must be called before
// the hub starts serving.
func (r *Relay) Attach(hub *ws.Hub) {
	dispatch := func(req *ws.Request) error {
		action, err := wire.DecodeAction(req.Envelope)
		if err != nil {
			return err
		}
		return r.Handle(req.Sender.ID(), action)
	}

	for _, event := range []string{
		wire.ActionRegister, wire.ActionGoFree, wire.ActionGoBusy,
		wire.ActionSendChatRequest, wire.ActionAcceptChat, wire.ActionRejectChat,
		wire.ActionTyping, wire.ActionStopTyping,
		wire.ActionSendMessage, wire.ActionEditMessage, wire.ActionDeleteMessage,
		wire.ActionEndChat, wire.ActionSendReaction,
		wire.ActionGameToggle, wire.ActionGameSelect,
		wire.ActionDrawStart, wire.ActionDrawMove, wire.ActionDrawClear,
		wire.ActionDrawToggle,
	} {
		hub.SetHandle(event, dispatch)
	}

	hub.SetDisconnectHandler(func(_ *ws.Hub, c *ws.Client) error {
		r.DisconnectSession(c.ID())
		return nil
	})
}

// Handle routes one decoded action from the named session.
func (r *Relay) Handle(sessionID string, action wire.Action) error {
	ctx := context.Background()
	switch a := action.(type) {
	case *wire.Register:
		return r.Register(ctx, sessionID)
	case *wire.GoFree:
		return r.GoFree(ctx, sessionID, a)
	case *wire.GoBusy:
		return r.GoBusy(sessionID)
	case *wire.SendChatRequest:
		return r.SendChatRequest(ctx, sessionID, a)
	case *wire.AcceptChat:
		return r.AcceptChat(ctx, sessionID, a)
	case *wire.RejectChat:
		return r.RejectChat(sessionID, a)
	case *wire.Typing:
		return r.Typing(sessionID, a)
	case *wire.StopTyping:
		return r.StopTyping(sessionID, a)
	case *wire.SendMessage:
		return r.SendMessage(sessionID, a)
	case *wire.EditMessage:
		return r.EditMessage(sessionID, a)
	case *wire.DeleteMessage:
		return r.DeleteMessage(sessionID, a)
	case *wire.EndChat:
		return r.EndChat(sessionID, a)
	case *wire.SendReaction:
		return r.SendReaction(sessionID, a)
	case *wire.GameToggle:
		return r.GameToggle(sessionID, a)
	case *wire.GameSelect:
		return r.GameSelect(sessionID, a)
	case *wire.DrawStart:
		return r.DrawStart(sessionID, a)
	case *wire.DrawMove:
		return r.DrawMove(sessionID, a)
	case *wire.DrawClear:
		return r.DrawClear(sessionID, a)
	case *wire.DrawToggle:
		return r.DrawToggle(sessionID, a)
	default:
		return fmt.Errorf("unhandled action %q", action.Action())
	}
}

// emit marshals and sends an event to the named sessions.
func (r *Relay) emit(e wire.Event, ids ...string) {
	env, err := wire.MarshalEvent(e)
	if err != nil {
		r.logger.Error(fmt.Sprintf("marshal %s: %v", e.Event(), err))
		return
	}
	r.bus.SendToClients(env, ids...)
}

func (r *Relay) broadcast(e wire.Event) {
	env, err := wire.MarshalEvent(e)
	if err != nil {
		r.logger.Error(fmt.Sprintf("marshal %s: %v", e.Event(), err))
		return
	}
	r.bus.Broadcast(env)
}

// isPremium reports whether the session belongs to a synced premium user.
// Guests and unknown sessions are not premium.
func (r *Relay) isPremium(ctx context.Context, sessionID string) bool {
	u, err := r.store.UserBySession(ctx, sessionID)
	if err != nil {
		return false
	}
	return u.IsPremium
}

func (r *Relay) isSuspended(ctx context.Context, sessionID string) bool {
	u, err := r.store.UserBySession(ctx, sessionID)
	if err != nil {
		return false
	}
	return u.IsSuspended
}

// pushUsage sends the authoritative quota numbers to one session.
func (r *Relay) pushUsage(ctx context.Context, sessionID string) {
	usage, err := r.store.UsageFor(ctx, sessionID, store.Day(r.now()))
	if err != nil {
		r.logger.Error(fmt.Sprintf("usage for %s: %v", sessionID, err))
		return
	}
	r.emit(&wire.UsageUpdate{
		RequestsToday: usage.Requests,
		GoFreeToday:   usage.Toggles,
		IsPremium:     r.isPremium(ctx, sessionID),
		GlobalConfig: wire.GlobalConfig{
			EliteEnabled: r.cfg.EliteEnabled,
			PingLimit:    r.cfg.PingLimit,
			ToggleLimit:  r.cfg.ToggleLimit,
		},
	}, sessionID)
}

// Register announces a session after (re)connecting. Registration is
// idempotent; a reconnect must not create duplicate presence entries.
func (r *Relay) Register(ctx context.Context, sessionID string) error {
	r.logger.Debug("register", slog.String("session", sessionID))
	r.pushUsage(ctx, sessionID)
	return nil
}

// PushAdminWarning fans a moderation warning out to all clients; each
// client filters by its own email.
func (r *Relay) PushAdminWarning(email, message string) {
	r.broadcast(&wire.AdminWarning{Email: email, Message: message})
}

func (r *Relay) PushAdminSuspension(email string, suspended, needsAck bool) {
	r.broadcast(&wire.AdminSuspension{
		Email:                     email,
		IsSuspended:               suspended,
		NeedsUnsuspendAcknowledge: needsAck,
	})
}

// Close stops all pending request timers and drops all rooms.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.pending {
		p.timer.Stop()
		delete(r.pending, id)
	}
	for id := range r.rooms {
		delete(r.rooms, id)
	}
}
