package session

import (
	"sync"
	"time"

	"github.com/vibelink/vibelink/pkg/wire"
)

const defaultParticleTTL = 4 * time.Second

// Particle is one floating reaction emoji anchored to a message bubble.
type Particle struct {
	TargetID string
	Emoji    string
	Sender   string
	ExpireAt time.Time
}

// Overlay renders reactions on top of the conversation. A reaction aimed
// at a bubble this client does not have is dropped without a trace; the
// other side still sees its own.
type Overlay struct {
	mu sync.Mutex

	transport Transport
	roomID    string
	hasBubble func(messageID string) bool

	particles []Particle

	ttl time.Duration
	now func() time.Time
}

type OverlayOption func(*Overlay)

func WithParticleTTL(d time.Duration) OverlayOption {
	return func(o *Overlay) { o.ttl = d }
}

// NewOverlay builds the reaction layer. hasBubble answers whether a
// message id is currently on screen; nil means everything is.
func NewOverlay(transport Transport, roomID string, hasBubble func(string) bool, opts ...OverlayOption) *Overlay {
	o := &Overlay{
		transport: transport,
		roomID:    roomID,
		hasBubble: hasBubble,
		ttl:       defaultParticleTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send reacts to a message. The burst shows up when the mirrored
// new-reaction comes back, same as for the partner.
func (o *Overlay) Send(targetID, emoji string) error {
	return o.transport.Send(&wire.SendReaction{
		RoomID:   o.roomID,
		TargetID: targetID,
		Emoji:    emoji,
	})
}

func (o *Overlay) Apply(e *wire.NewReaction) {
	if e.RoomID != o.roomID {
		return
	}
	if o.hasBubble != nil && !o.hasBubble(e.TargetID) {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.particles = append(o.particles, Particle{
		TargetID: e.TargetID,
		Emoji:    e.Emoji,
		Sender:   e.Sender,
		ExpireAt: o.now().Add(o.ttl),
	})
}

// Particles returns the live particles, dropping the ones past their TTL.
func (o *Overlay) Particles() []Particle {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	live := o.particles[:0]
	for _, p := range o.particles {
		if p.ExpireAt.After(now) {
			live = append(live, p)
		}
	}
	o.particles = live
	return append([]Particle(nil), live...)
}
