package session

import (
	"errors"
	"sync"
	"time"

	"github.com/vibelink/vibelink/pkg/wire"
)

var ErrNotYourTurn = errors.New("not your turn to pick")

// FallbackGlyph stands in when a result names a pick the client never got,
// e.g. after a reconnect mid-round.
const FallbackGlyph = "❓"

const defaultAnimDuration = 3 * time.Second

type RoundResult struct {
	Round        int
	MyEmoji      string
	PartnerEmoji string
	IsMatch      bool
}

// Animation names the overlay currently playing. Match and miss never
// overlap: a new result replaces the running animation outright.
type Animation string

const (
	AnimationNone  Animation = ""
	AnimationMatch Animation = "match"
	AnimationMiss  Animation = "miss"
)

// Game mirrors the emoji round for one room. The server assigns every
// turn; the client's only judgement call is whether picking is unlocked
// right now.
type Game struct {
	mu sync.Mutex

	transport Transport
	roomID    string
	selfID    string

	open          bool
	round         int
	turnID        string
	myPick        string
	partnerPicked bool

	lastResult *RoundResult
	animation  Animation
	animTimer  *time.Timer

	animDuration time.Duration
}

type GameOption func(*Game)

func WithAnimDuration(d time.Duration) GameOption {
	return func(g *Game) { g.animDuration = d }
}

func NewGame(transport Transport, roomID, selfID string, opts ...GameOption) *Game {
	g := &Game{
		transport:    transport,
		roomID:       roomID,
		selfID:       selfID,
		animDuration: defaultAnimDuration,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Game) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *Game) Round() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round
}

// MyTurn reports whether this side leads the current round.
func (g *Game) MyTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open && g.turnID == g.selfID
}

// CanPick is true for the lead before it picks, and for the other side
// once game-partner-selected unlocked it.
func (g *Game) CanPick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canPickLocked()
}

func (g *Game) canPickLocked() bool {
	if !g.open || g.myPick != "" {
		return false
	}
	return g.turnID == g.selfID || g.partnerPicked
}

// Toggle asks the server to open or close the game. Nothing changes
// locally until game-toggled comes back.
func (g *Game) Toggle(open bool) error {
	return g.transport.Send(&wire.GameToggle{RoomID: g.roomID, Open: open})
}

// Select locks in this side's pick for the round.
func (g *Game) Select(emoji string) error {
	g.mu.Lock()
	if !g.canPickLocked() {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	g.myPick = emoji
	g.mu.Unlock()

	return g.transport.Send(&wire.GameSelect{RoomID: g.roomID, Emoji: emoji})
}

func (g *Game) MyPick() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.myPick
}

func (g *Game) PartnerPicked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.partnerPicked
}

func (g *Game) ApplyToggled(e *wire.GameToggled) {
	if e.RoomID != g.roomID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = e.IsOpen
	if !e.IsOpen {
		g.round = 0
		g.turnID = ""
		g.myPick = ""
		g.partnerPicked = false
		g.animation = AnimationNone
	}
}

// ApplyState starts a round: picks reset and the server's turn assignment
// is taken as-is.
func (g *Game) ApplyState(e *wire.GameState) {
	if e.RoomID != g.roomID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.round = e.Round
	g.turnID = e.TurnID
	g.myPick = ""
	g.partnerPicked = false
}

func (g *Game) ApplyPartnerSelected(e *wire.GamePartnerSelected) {
	if e.RoomID != g.roomID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partnerPicked = true
}

// ApplyResult records the reveal and starts the matching animation. A
// selection the map is missing renders as the fallback glyph instead of
// breaking the reveal.
func (g *Game) ApplyResult(e *wire.GameResult) {
	if e.RoomID != g.roomID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	pick := func(id string) string {
		if v, ok := e.Selections[id]; ok && v != "" {
			return v
		}
		return FallbackGlyph
	}

	mine, partner := FallbackGlyph, FallbackGlyph
	for id := range e.Selections {
		if id != g.selfID {
			partner = pick(id)
		}
	}
	mine = pick(g.selfID)

	g.lastResult = &RoundResult{
		Round:        g.round,
		MyEmoji:      mine,
		PartnerEmoji: partner,
		IsMatch:      e.IsMatch,
	}

	if e.IsMatch {
		g.animation = AnimationMatch
	} else {
		g.animation = AnimationMiss
	}
	if g.animTimer != nil {
		g.animTimer.Stop()
	}
	g.animTimer = time.AfterFunc(g.animDuration, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.animation = AnimationNone
	})
}

func (g *Game) LastResult() *RoundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastResult == nil {
		return nil
	}
	cp := *g.lastResult
	return &cp
}

func (g *Game) CurrentAnimation() Animation {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.animation
}
