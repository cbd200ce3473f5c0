package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/wire"
)

// fakeBus records everything the relay emits, per recipient, plus the
// broadcasts everyone would see.
type fakeBus struct {
	mu      sync.Mutex
	sent    map[string][]wire.Event
	fanouts []wire.Event
}

func newFakeBus() *fakeBus {
	return &fakeBus{sent: make(map[string][]wire.Event)}
}

func (b *fakeBus) SendToClients(env *wire.Envelope, ids ...string) {
	e, err := wire.DecodeEvent(env)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.sent[id] = append(b.sent[id], e)
	}
}

func (b *fakeBus) Broadcast(env *wire.Envelope) {
	e, err := wire.DecodeEvent(env)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fanouts = append(b.fanouts, e)
}

func (b *fakeBus) eventsFor(id string) []wire.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]wire.Event(nil), b.sent[id]...)
}

// lastOf returns the most recent event of type T sent to id, if any.
func lastOf[T wire.Event](b *fakeBus, id string) (T, bool) {
	var found T
	ok := false
	for _, e := range b.eventsFor(id) {
		if t, is := e.(T); is {
			found, ok = t, true
		}
	}
	return found, ok
}

func countOf[T wire.Event](b *fakeBus, id string) int {
	n := 0
	for _, e := range b.eventsFor(id) {
		if _, is := e.(T); is {
			n++
		}
	}
	return n
}

func (b *fakeBus) lastRoster() ([]wire.PresenceRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.fanouts) - 1; i >= 0; i-- {
		if u, ok := b.fanouts[i].(*wire.UsersUpdate); ok {
			return u.Users, true
		}
	}
	return nil, false
}

// fakeStore is an in-memory UsageStore.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*store.User
	usage   map[string]store.Usage
	matches int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*store.User),
		usage: make(map[string]store.Usage),
	}
}

func (s *fakeStore) UserBySession(_ context.Context, id string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) UsageFor(_ context.Context, id, day string) (store.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[id+day], nil
}

func (s *fakeStore) IncrRequests(_ context.Context, id, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usage[id+day]
	u.Requests++
	s.usage[id+day] = u
	return u.Requests, nil
}

func (s *fakeStore) IncrToggles(_ context.Context, id, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usage[id+day]
	u.Toggles++
	s.usage[id+day] = u
	return u.Toggles, nil
}

func (s *fakeStore) IncrMonthlyMatches(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches++
	return nil
}

func setUp(t *testing.T, cfg Config) (*Relay, *fakeBus, *fakeStore) {
	t.Helper()
	if cfg.RequestTTL == 0 {
		cfg.RequestTTL = time.Second
	}
	bus := newFakeBus()
	fs := newFakeStore()
	r := New(cfg, bus, fs)
	t.Cleanup(r.Close)
	return r, bus, fs
}

func goFree(t *testing.T, r *Relay, id, name string) {
	t.Helper()
	require.NoError(t, r.GoFree(context.Background(), id,
		&wire.GoFree{ID: id, Name: name, Status: "chilling"}))
}

// startChat drives the full handshake and returns the room id.
func startChat(t *testing.T, r *Relay, bus *fakeBus, senderID, receiverID string) string {
	t.Helper()
	goFree(t, r, senderID, "sender "+senderID)
	goFree(t, r, receiverID, "receiver "+receiverID)
	require.NoError(t, r.SendChatRequest(context.Background(), senderID, &wire.SendChatRequest{
		SenderID: senderID, SenderName: "sender " + senderID,
		ReceiverID: receiverID, ReceiverName: "receiver " + receiverID,
	}))
	require.NoError(t, r.AcceptChat(context.Background(), receiverID,
		&wire.AcceptChat{SenderID: senderID, ReceiverID: receiverID}))

	started, ok := lastOf[*wire.ChatStarted](bus, senderID)
	require.True(t, ok)
	return started.RoomID
}

func TestGoFreeRosterAndToggleLimit(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 2})

	goFree(t, r, "a", "Ana")
	goFree(t, r, "b", "Bo")

	roster, ok := bus.lastRoster()
	require.True(t, ok)
	require.Len(t, roster, 2)
	// sorted by name
	assert.Equal(t, "Ana", roster[0].Name)
	assert.Equal(t, "Bo", roster[1].Name)

	// re-announcing while already free costs nothing
	goFree(t, r, "a", "Ana")
	require.NoError(t, r.GoBusy("a"))

	// second real toggle is the last free one
	goFree(t, r, "a", "Ana")
	require.NoError(t, r.GoBusy("a"))

	goFree(t, r, "a", "Ana")
	_, limited := lastOf[*wire.LimitReached](bus, "a")
	assert.True(t, limited)
	roster, _ = bus.lastRoster()
	assert.Len(t, roster, 1)
}

func TestPremiumSkipsToggleLimit(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 5, ToggleLimit: 1, EliteEnabled: true})
	fs.users["a"] = &store.User{SessionID: "a", IsPremium: true}

	for i := 0; i < 3; i++ {
		goFree(t, r, "a", "Ana")
		require.NoError(t, r.GoBusy("a"))
	}
	assert.Zero(t, countOf[*wire.LimitReached](bus, "a"))
}

func TestRequestQuota(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 1, ToggleLimit: 5})
	goFree(t, r, "a", "Ana")
	goFree(t, r, "b", "Bo")

	send := func() {
		require.NoError(t, r.SendChatRequest(context.Background(), "a",
			&wire.SendChatRequest{SenderID: "a", ReceiverID: "b"}))
	}

	send()
	_, ok := lastOf[*wire.RequestSentSuccess](bus, "a")
	assert.True(t, ok)

	send()
	failed, ok := lastOf[*wire.RequestFailed](bus, "a")
	require.True(t, ok)
	assert.True(t, failed.LimitReached)

	// premium ignores the cap
	fs.users["a"] = &store.User{SessionID: "a", IsPremium: true}
	send()
	assert.Equal(t, 2, countOf[*wire.ReceiveChatRequest](bus, "b"))
}

func TestRequestToOfflineReceiver(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	goFree(t, r, "a", "Ana")

	require.NoError(t, r.SendChatRequest(context.Background(), "a",
		&wire.SendChatRequest{SenderID: "a", ReceiverID: "ghost"}))
	failed, ok := lastOf[*wire.RequestFailed](bus, "a")
	require.True(t, ok)
	assert.False(t, failed.LimitReached)
}

func TestAcceptOpensRoomAndClearsRoster(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})

	roomID := startChat(t, r, bus, "a", "b")
	assert.NotEmpty(t, roomID)

	started, _ := lastOf[*wire.ChatStarted](bus, "a")
	initd, ok := lastOf[*wire.ChatInitReceiver](bus, "b")
	require.True(t, ok)
	assert.Equal(t, started.RoomID, initd.RoomID)
	assert.Equal(t, "receiver b", started.PartnerName)
	assert.Equal(t, "sender a", initd.PartnerName)

	roster, _ := bus.lastRoster()
	assert.Empty(t, roster)
	assert.Equal(t, 1, fs.matches)
}

func TestRejectNotifiesSenderOnly(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	goFree(t, r, "a", "Ana")
	goFree(t, r, "b", "Bo")

	require.NoError(t, r.SendChatRequest(context.Background(), "a",
		&wire.SendChatRequest{SenderID: "a", ReceiverID: "b"}))
	require.NoError(t, r.RejectChat("b", &wire.RejectChat{SenderID: "a", ReceiverID: "b"}))

	_, ok := lastOf[*wire.RequestRejected](bus, "a")
	assert.True(t, ok)

	// the request is settled; a late accept opens nothing
	require.NoError(t, r.AcceptChat(context.Background(), "b",
		&wire.AcceptChat{SenderID: "a", ReceiverID: "b"}))
	assert.Zero(t, countOf[*wire.ChatStarted](bus, "a"))
}

func TestRequestExpiresOnce(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5, RequestTTL: 30 * time.Millisecond})
	goFree(t, r, "a", "Ana")
	goFree(t, r, "b", "Bo")

	require.NoError(t, r.SendChatRequest(context.Background(), "a",
		&wire.SendChatRequest{SenderID: "a", ReceiverID: "b"}))

	assert.Eventually(t, func() bool {
		return countOf[*wire.RequestExpired](bus, "b") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, countOf[*wire.RequestIgnored](bus, "a"))

	// accepting after expiry is a no-op
	require.NoError(t, r.AcceptChat(context.Background(), "b",
		&wire.AcceptChat{SenderID: "a", ReceiverID: "b"}))
	assert.Zero(t, countOf[*wire.ChatStarted](bus, "a"))
}

func TestNewRequestSupersedesPending(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	goFree(t, r, "a", "Ana")
	goFree(t, r, "b", "Bo")
	goFree(t, r, "c", "Cy")

	require.NoError(t, r.SendChatRequest(context.Background(), "a",
		&wire.SendChatRequest{SenderID: "a", SenderName: "Ana", ReceiverID: "c"}))
	require.NoError(t, r.SendChatRequest(context.Background(), "b",
		&wire.SendChatRequest{SenderID: "b", SenderName: "Bo", ReceiverID: "c"}))

	// the first sender is told its request went unanswered
	assert.Equal(t, 1, countOf[*wire.RequestIgnored](bus, "a"))

	// accepting settles with the superseding sender
	require.NoError(t, r.AcceptChat(context.Background(), "c",
		&wire.AcceptChat{SenderID: "b", ReceiverID: "c"}))
	assert.Zero(t, countOf[*wire.ChatStarted](bus, "a"))
	assert.Equal(t, 1, countOf[*wire.ChatStarted](bus, "b"))
}

func TestMessageRelay(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.SendMessage("a", &wire.SendMessage{
		RoomID: roomID, Message: "hey", SenderName: "sender a",
		Type: wire.TextMessage, ClientID: "tmp-1",
	}))

	got, ok := lastOf[*wire.NewMessage](bus, "b")
	require.True(t, ok)
	echo, ok := lastOf[*wire.NewMessage](bus, "a")
	require.True(t, ok)

	assert.Equal(t, got.ID, echo.ID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "tmp-1", echo.ClientID)
	assert.Equal(t, "hey", got.Text)
	assert.Equal(t, wire.TextMessage, got.Type)
	assert.NotZero(t, got.Timestamp)

	// a non-member cannot inject into the room
	require.NoError(t, r.SendMessage("intruder", &wire.SendMessage{
		RoomID: roomID, Message: "boo", Type: wire.TextMessage,
	}))
	assert.Equal(t, 1, countOf[*wire.NewMessage](bus, "b"))
}

func TestEditAndDeleteRelay(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.SendMessage("a", &wire.SendMessage{
		RoomID: roomID, Message: "hej", SenderName: "sender a",
		Type: wire.TextMessage, ClientID: "tmp-1",
	}))
	msg, ok := lastOf[*wire.NewMessage](bus, "a")
	require.True(t, ok)

	// only the original sender may edit
	require.NoError(t, r.EditMessage("b", &wire.EditMessage{
		RoomID: roomID, MessageID: msg.ID, NewText: "hax"}))
	assert.Zero(t, countOf[*wire.MessageUpdated](bus, "a"))

	require.NoError(t, r.EditMessage("a", &wire.EditMessage{
		RoomID: roomID, MessageID: msg.ID, NewText: "fixed"}))
	upd, ok := lastOf[*wire.MessageUpdated](bus, "b")
	require.True(t, ok)
	assert.Equal(t, "fixed", upd.NewText)

	// same rule for delete
	require.NoError(t, r.DeleteMessage("b", &wire.DeleteMessage{
		RoomID: roomID, MessageID: msg.ID}))
	assert.Zero(t, countOf[*wire.MessageDeleted](bus, "a"))

	require.NoError(t, r.DeleteMessage("a", &wire.DeleteMessage{
		RoomID: roomID, MessageID: msg.ID}))
	del, ok := lastOf[*wire.MessageDeleted](bus, "b")
	require.True(t, ok)
	assert.Equal(t, msg.ID, del.MessageID)

	// a deleted id cannot be edited back into existence
	require.NoError(t, r.EditMessage("a", &wire.EditMessage{
		RoomID: roomID, MessageID: msg.ID, NewText: "zombie"}))
	assert.Equal(t, 1, countOf[*wire.MessageUpdated](bus, "b"))
}

func TestTypingGoesToPartnerOnly(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.Typing("a", &wire.Typing{RoomID: roomID, SenderName: "sender a"}))
	assert.Equal(t, 1, countOf[*wire.PartnerTyping](bus, "b"))
	assert.Zero(t, countOf[*wire.PartnerTyping](bus, "a"))

	require.NoError(t, r.StopTyping("a", &wire.StopTyping{RoomID: roomID}))
	assert.Equal(t, 1, countOf[*wire.PartnerStopTyping](bus, "b"))
}

func TestReactionMirroredToBoth(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.SendReaction("a", &wire.SendReaction{
		RoomID: roomID, TargetID: "m1", Emoji: "🔥"}))

	got, ok := lastOf[*wire.NewReaction](bus, "b")
	require.True(t, ok)
	assert.Equal(t, "🔥", got.Emoji)
	assert.Equal(t, "sender a", got.Sender)
	assert.Equal(t, 1, countOf[*wire.NewReaction](bus, "a"))
}

func TestEndChatNotifiesPartner(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.EndChat("a", &wire.EndChat{RoomID: roomID, SenderName: "sender a"}))
	left, ok := lastOf[*wire.PartnerLeft](bus, "b")
	require.True(t, ok)
	assert.Equal(t, roomID, left.RoomID)
	assert.Zero(t, countOf[*wire.PartnerLeft](bus, "a"))

	// the room is gone
	require.NoError(t, r.SendMessage("b", &wire.SendMessage{
		RoomID: roomID, Message: "?", Type: wire.TextMessage}))
	assert.Zero(t, countOf[*wire.NewMessage](bus, "a"))
}

func TestGameRound(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.GameToggle("a", &wire.GameToggle{RoomID: roomID, Open: true}))
	assert.Equal(t, 1, countOf[*wire.GameToggled](bus, "b"))

	state, ok := lastOf[*wire.GameState](bus, "b")
	require.True(t, ok)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, "a", state.TurnID)

	// out of turn: b cannot pick before the lead
	require.NoError(t, r.GameSelect("b", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	assert.Zero(t, countOf[*wire.GamePartnerSelected](bus, "a"))

	require.NoError(t, r.GameSelect("a", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	assert.Equal(t, 1, countOf[*wire.GamePartnerSelected](bus, "b"))

	// double pick by the lead is dropped
	require.NoError(t, r.GameSelect("a", &wire.GameSelect{RoomID: roomID, Emoji: "🃏"}))

	require.NoError(t, r.GameSelect("b", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	result, ok := lastOf[*wire.GameResult](bus, "a")
	require.True(t, ok)
	assert.True(t, result.IsMatch)
	assert.Equal(t, map[string]string{"a": "🎲", "b": "🎲"}, result.Selections)

	// the lead alternates for round two
	state, _ = lastOf[*wire.GameState](bus, "a")
	assert.Equal(t, 2, state.Round)
	assert.Equal(t, "b", state.TurnID)
}

func TestGameMismatch(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.GameToggle("a", &wire.GameToggle{RoomID: roomID, Open: true}))
	require.NoError(t, r.GameSelect("a", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	require.NoError(t, r.GameSelect("b", &wire.GameSelect{RoomID: roomID, Emoji: "🃏"}))

	result, ok := lastOf[*wire.GameResult](bus, "b")
	require.True(t, ok)
	assert.False(t, result.IsMatch)
}

func TestGameCloseResetsState(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.GameToggle("a", &wire.GameToggle{RoomID: roomID, Open: true}))
	require.NoError(t, r.GameSelect("a", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	require.NoError(t, r.GameToggle("b", &wire.GameToggle{RoomID: roomID, Open: false}))

	// selecting into a closed game does nothing
	require.NoError(t, r.GameSelect("b", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	assert.Zero(t, countOf[*wire.GameResult](bus, "a"))

	// reopening starts fresh at round one with the opener leading
	require.NoError(t, r.GameToggle("b", &wire.GameToggle{RoomID: roomID, Open: true}))
	state, ok := lastOf[*wire.GameState](bus, "a")
	require.True(t, ok)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, "b", state.TurnID)
}

func TestDrawRelay(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.DrawToggle("a", &wire.DrawToggle{RoomID: roomID, Open: true}))
	assert.Equal(t, 1, countOf[*wire.DrawToggled](bus, "a"))
	assert.Equal(t, 1, countOf[*wire.DrawToggled](bus, "b"))

	require.NoError(t, r.DrawStart("a", &wire.DrawStart{
		RoomID: roomID, X: 0.25, Y: 0.5, Color: "#ff0066"}))
	require.NoError(t, r.DrawMove("a", &wire.DrawMove{RoomID: roomID, X: 0.3, Y: 0.55}))

	start, ok := lastOf[*wire.DrawStarted](bus, "b")
	require.True(t, ok)
	assert.Equal(t, 0.25, start.X)
	assert.Equal(t, "#ff0066", start.Color)
	// strokes never echo to the artist
	assert.Zero(t, countOf[*wire.DrawStarted](bus, "a"))
	assert.Equal(t, 1, countOf[*wire.DrawMoved](bus, "b"))

	require.NoError(t, r.DrawClear("b", &wire.DrawClear{RoomID: roomID}))
	assert.Equal(t, 1, countOf[*wire.DrawCleared](bus, "a"))
}

func TestDisconnectTearsDownEverything(t *testing.T) {
	r, bus, _ := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	roomID := startChat(t, r, bus, "a", "b")

	// c is free and has an open request towards d
	goFree(t, r, "c", "Cy")
	goFree(t, r, "d", "Di")
	require.NoError(t, r.SendChatRequest(context.Background(), "c",
		&wire.SendChatRequest{SenderID: "c", ReceiverID: "d"}))

	r.DisconnectSession("a")
	left, ok := lastOf[*wire.PartnerLeft](bus, "b")
	require.True(t, ok)
	assert.Equal(t, roomID, left.RoomID)

	r.DisconnectSession("d")
	assert.Equal(t, 1, countOf[*wire.RequestIgnored](bus, "c"))

	r.DisconnectSession("c")
	roster, _ := bus.lastRoster()
	assert.Empty(t, roster)
}

func TestUsageUpdateOnRegister(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 5, ToggleLimit: 3, EliteEnabled: true})
	fs.usage["a"+store.Day(time.Now())] = store.Usage{Requests: 2, Toggles: 1}

	require.NoError(t, r.Register(context.Background(), "a"))
	usage, ok := lastOf[*wire.UsageUpdate](bus, "a")
	require.True(t, ok)
	assert.Equal(t, 2, usage.RequestsToday)
	assert.Equal(t, 1, usage.GoFreeToday)
	assert.Equal(t, 5, usage.GlobalConfig.PingLimit)
	assert.True(t, usage.GlobalConfig.EliteEnabled)
}

func TestSuspendedUserCannotGoFree(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	fs.users["a"] = &store.User{SessionID: "a", IsSuspended: true}

	goFree(t, r, "a", "Ana")
	_, ok := lastOf[*wire.LimitReached](bus, "a")
	assert.True(t, ok)
	roster, ok := bus.lastRoster()
	assert.False(t, ok)
	assert.Empty(t, roster)
}

// TestFullSessionFlow drives one whole session: handshake, a few messages,
// a game round, some drawing, then teardown.
func TestFullSessionFlow(t *testing.T) {
	r, bus, fs := setUp(t, Config{PingLimit: 5, ToggleLimit: 5})
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "a"))
	require.NoError(t, r.Register(ctx, "b"))
	roomID := startChat(t, r, bus, "a", "b")

	require.NoError(t, r.Typing("a", &wire.Typing{RoomID: roomID, SenderName: "sender a"}))
	require.NoError(t, r.SendMessage("a", &wire.SendMessage{
		RoomID: roomID, Message: "hey", SenderName: "sender a",
		Type: wire.TextMessage, ClientID: "tmp-1",
	}))
	require.NoError(t, r.StopTyping("a", &wire.StopTyping{RoomID: roomID}))
	require.NoError(t, r.SendMessage("b", &wire.SendMessage{
		RoomID: roomID, Message: "hey yourself", SenderName: "receiver b",
		Type: wire.TextMessage, ClientID: "tmp-2",
	}))

	msg, ok := lastOf[*wire.NewMessage](bus, "a")
	require.True(t, ok)
	require.NoError(t, r.SendReaction("a", &wire.SendReaction{
		RoomID: roomID, TargetID: msg.ID, Emoji: "🔥"}))

	require.NoError(t, r.GameToggle("a", &wire.GameToggle{RoomID: roomID, Open: true}))
	require.NoError(t, r.GameSelect("a", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))
	require.NoError(t, r.GameSelect("b", &wire.GameSelect{RoomID: roomID, Emoji: "🎲"}))

	require.NoError(t, r.DrawToggle("b", &wire.DrawToggle{RoomID: roomID, Open: true}))
	require.NoError(t, r.DrawStart("b", &wire.DrawStart{RoomID: roomID, X: 0.1, Y: 0.1, Color: "#000"}))
	require.NoError(t, r.DrawMove("b", &wire.DrawMove{RoomID: roomID, X: 0.2, Y: 0.2}))

	require.NoError(t, r.EndChat("b", &wire.EndChat{RoomID: roomID, SenderName: "receiver b"}))

	assert.Equal(t, 2, countOf[*wire.NewMessage](bus, "a"))
	assert.Equal(t, 2, countOf[*wire.NewMessage](bus, "b"))
	assert.Equal(t, 1, countOf[*wire.NewReaction](bus, "b"))
	result, ok := lastOf[*wire.GameResult](bus, "a")
	require.True(t, ok)
	assert.True(t, result.IsMatch)
	assert.Equal(t, 1, countOf[*wire.DrawStarted](bus, "a"))
	assert.Equal(t, 1, countOf[*wire.PartnerLeft](bus, "a"))
	assert.Zero(t, countOf[*wire.PartnerLeft](bus, "b"))
	assert.Equal(t, 1, fs.matches)

	// nothing leaks past the end of the chat
	require.NoError(t, r.SendMessage("a", &wire.SendMessage{
		RoomID: roomID, Message: "still there?", Type: wire.TextMessage}))
	assert.Equal(t, 2, countOf[*wire.NewMessage](bus, "b"))
}
