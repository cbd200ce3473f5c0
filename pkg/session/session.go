// Package session is the client core: one Session per connected user,
// holding the lobby state, at most one live chat with its game, canvas and
// reaction layers, and a small local cache that survives restarts. All
// rendering state is pulled from here; the UI owns no protocol logic.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vibelink/vibelink/pkg/wire"
)

// Moderation is the account-level state pushed by admin events.
type Moderation struct {
	Warning                   string
	Suspended                 bool
	NeedsUnsuspendAcknowledge bool
}

type Session struct {
	mu sync.Mutex

	id    string
	name  string
	email string

	transport Transport
	cache     *Cache
	logger    *slog.Logger

	presence *Presence
	chat     *Chat
	game     *Game
	board    *Board
	overlay  *Overlay

	moderation Moderation

	chatOpts    []ChatOption
	gameOpts    []GameOption
	overlayOpts []OverlayOption
}

type SessionOption func(*Session)

// WithCache enables local persistence of the transcript and active room.
func WithCache(cache *Cache) SessionOption {
	return func(s *Session) { s.cache = cache }
}

// WithEmail lets the session recognize moderation events addressed to it.
func WithEmail(email string) SessionOption {
	return func(s *Session) { s.email = email }
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

func WithChatOptions(opts ...ChatOption) SessionOption {
	return func(s *Session) { s.chatOpts = opts }
}

func WithGameOptions(opts ...GameOption) SessionOption {
	return func(s *Session) { s.gameOpts = opts }
}

func WithOverlayOptions(opts ...OverlayOption) SessionOption {
	return func(s *Session) { s.overlayOpts = opts }
}

func New(transport Transport, id, name string, opts ...SessionOption) *Session {
	s := &Session{
		id:        id,
		name:      name,
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.presence = NewPresence(transport, wire.PresenceRecord{ID: id, Name: name})
	return s
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Name() string        { return s.name }
func (s *Session) Presence() *Presence { return s.presence }

// Chat returns the live conversation, or nil outside one.
func (s *Session) Chat() *Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat
}

func (s *Session) Game() *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

func (s *Session) Board() *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

func (s *Session) Overlay() *Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

func (s *Session) Moderation() Moderation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moderation
}

// Register announces the session. Call after connecting and after every
// reconnect; the server treats it as idempotent.
func (s *Session) Register() error {
	return s.transport.Send(&wire.Register{SessionID: s.id})
}

// GoFree announces availability and remembers the choice across restarts.
func (s *Session) GoFree(ctx context.Context, status string) error {
	if err := s.presence.GoFree(status); err != nil {
		return err
	}
	s.saveAvailability(ctx, true)
	return nil
}

func (s *Session) GoBusy(ctx context.Context) error {
	if err := s.presence.GoBusy(); err != nil {
		return err
	}
	s.saveAvailability(ctx, false)
	return nil
}

func (s *Session) saveAvailability(ctx context.Context, available bool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveAvailability(ctx, available); err != nil {
		s.logger.Warn("cache availability", slog.Any("error", err))
	}
}

// Resume restores the cached room and transcript, so a restart lands back
// in the conversation instead of the lobby.
func (s *Session) Resume(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	room, err := s.cache.ActiveChat(ctx)
	if err != nil || room == nil {
		return err
	}
	messages, err := s.cache.LoadMessages(ctx, room.RoomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.openRoomLocked(room.RoomID, room.PartnerName)
	s.chat.restore(messages)
	return nil
}

// Run dispatches server events until the transport closes or the context
// is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-s.transport.Events():
			if !ok {
				return ErrTransportClosed
			}
			s.dispatch(ctx, e)
		}
	}
}

func (s *Session) openRoomLocked(roomID, partnerName string) {
	s.chat = NewChat(s.transport, roomID, s.name, partnerName, s.chatOpts...)
	s.game = NewGame(s.transport, roomID, s.id, s.gameOpts...)
	s.board = NewBoard(s.transport, roomID)
	s.overlay = NewOverlay(s.transport, roomID, s.chat.HasMessage, s.overlayOpts...)
}

func (s *Session) startChat(ctx context.Context, room wire.RoomData) {
	s.mu.Lock()
	s.openRoomLocked(room.RoomID, room.PartnerName)
	s.mu.Unlock()

	s.presence.ClearOutgoing()

	if s.cache != nil {
		if err := s.cache.SaveActiveChat(ctx, room); err != nil {
			s.logger.Warn("cache active chat", slog.Any("error", err))
		}
	}
	s.logger.Info("chat started", slog.String("room", room.RoomID))
}

// persistChat writes the transcript behind the live room, best effort.
func (s *Session) persistChat(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat == nil {
		return
	}
	if err := s.cache.SaveMessages(ctx, chat.RoomID(), chat.Messages()); err != nil {
		s.logger.Warn("cache messages", slog.Any("error", err))
	}
}

func (s *Session) dispatch(ctx context.Context, event wire.Event) {
	s.mu.Lock()
	chat, game, board, overlay := s.chat, s.game, s.board, s.overlay
	s.mu.Unlock()

	switch e := event.(type) {
	case *wire.UsersUpdate:
		s.presence.ApplyRoster(e)
	case *wire.ReceiveChatRequest:
		s.presence.ApplyIncoming(e)
	case *wire.RequestExpired:
		s.presence.ApplyRequestExpired()
	case *wire.RequestSentSuccess:
		s.presence.ApplyRequestSentSuccess()
	case *wire.RequestIgnored:
		s.presence.ApplyRequestIgnored(e)
	case *wire.RequestRejected:
		s.presence.ApplyRequestRejected(e)
	case *wire.RequestFailed:
		s.presence.ApplyRequestFailed(e)
	case *wire.LimitReached:
		s.presence.ApplyLimitReached(e)
	case *wire.UsageUpdate:
		s.presence.ApplyUsage(e)

	case *wire.ChatStarted:
		s.startChat(ctx, e.RoomData)
	case *wire.ChatInitReceiver:
		s.startChat(ctx, e.RoomData)

	case *wire.NewMessage:
		if chat != nil {
			chat.ApplyNewMessage(e)
			s.persistChat(ctx)
		}
	case *wire.MessageUpdated:
		if chat != nil {
			chat.ApplyUpdated(e)
			s.persistChat(ctx)
		}
	case *wire.MessageDeleted:
		if chat != nil {
			chat.ApplyDeleted(e)
			s.persistChat(ctx)
		}
	case *wire.PartnerTyping:
		if chat != nil && e.RoomID == chat.RoomID() {
			chat.ApplyPartnerTyping(true)
		}
	case *wire.PartnerStopTyping:
		if chat != nil && e.RoomID == chat.RoomID() {
			chat.ApplyPartnerTyping(false)
		}
	case *wire.PartnerLeft:
		if chat != nil {
			chat.ApplyPartnerLeft(e)
			s.clearRoomCache(ctx, e.RoomID)
		}

	case *wire.NewReaction:
		if overlay != nil {
			overlay.Apply(e)
		}

	case *wire.GameToggled:
		if game != nil {
			game.ApplyToggled(e)
		}
	case *wire.GameState:
		if game != nil {
			game.ApplyState(e)
		}
	case *wire.GamePartnerSelected:
		if game != nil {
			game.ApplyPartnerSelected(e)
		}
	case *wire.GameResult:
		if game != nil {
			game.ApplyResult(e)
		}

	case *wire.DrawToggled:
		if board != nil {
			board.ApplyToggled(e)
		}
	case *wire.DrawStarted:
		if board != nil {
			board.ApplyStarted(e)
		}
	case *wire.DrawMoved:
		if board != nil {
			board.ApplyMoved(e)
		}
	case *wire.DrawCleared:
		if board != nil {
			board.ApplyCleared(e)
		}

	case *wire.AdminWarning:
		if s.email != "" && e.Email == s.email {
			s.mu.Lock()
			s.moderation.Warning = e.Message
			s.mu.Unlock()
		}
	case *wire.AdminSuspension:
		if s.email != "" && e.Email == s.email {
			s.mu.Lock()
			s.moderation.Suspended = e.IsSuspended
			s.moderation.NeedsUnsuspendAcknowledge = e.NeedsUnsuspendAcknowledge
			s.mu.Unlock()
		}

	default:
		s.logger.Debug("unhandled event", slog.String("event", event.Event()))
	}
}

// EndChat leaves the current room and forgets its cached transcript.
func (s *Session) EndChat(ctx context.Context) error {
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat == nil {
		return nil
	}
	if err := chat.End(); err != nil {
		return err
	}
	s.clearRoomCache(ctx, chat.RoomID())
	return nil
}

func (s *Session) clearRoomCache(ctx context.Context, roomID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ClearActiveChat(ctx); err != nil {
		s.logger.Warn("clear active chat", slog.Any("error", err))
	}
	if err := s.cache.ClearMessages(ctx, roomID); err != nil {
		s.logger.Warn("clear messages", slog.Any("error", err))
	}
}

// ClearWarning dismisses the on-screen moderation warning locally; the
// durable flag is cleared through the HTTP API.
func (s *Session) ClearWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moderation.Warning = ""
}
