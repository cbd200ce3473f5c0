package session

import (
	"errors"
	"sync"
	"time"

	"github.com/vibelink/vibelink/pkg/wire"
)

var ErrNoIncomingRequest = errors.New("no incoming request")

// OutgoingState tracks one sent vibe check from the sender's side.
type OutgoingState int

const (
	OutgoingIdle OutgoingState = iota
	OutgoingPending
	OutgoingIgnored
	OutgoingRejected
	OutgoingFailed
)

type Outgoing struct {
	ReceiverID   string
	ReceiverName string
	State        OutgoingState
	// Message carries the server's wording for a settled request.
	Message      string
	LimitReached bool

	timer *time.Timer
}

type Incoming struct {
	Request  wire.ReceiveChatRequest
	Deadline time.Time

	timer *time.Timer
}

const defaultRequestTTL = 15 * time.Second

// Presence is the lobby-side state: own availability, the public roster,
// the request in flight each way, and the pushed quota numbers. The server
// owns every number here; local timers only mirror its request window so
// the UI can render a countdown, and they converge with the server verdict
// exactly once.
type Presence struct {
	mu sync.Mutex

	transport Transport
	self      wire.PresenceRecord

	available bool
	roster    []wire.PresenceRecord

	incoming *Incoming
	outgoing *Outgoing

	usage    wire.UsageUpdate
	hasUsage bool
	limitMsg string

	requestTTL time.Duration
	now        func() time.Time
}

type PresenceOption func(*Presence)

// WithRequestTTL adjusts the mirrored countdown window.
func WithRequestTTL(d time.Duration) PresenceOption {
	return func(p *Presence) { p.requestTTL = d }
}

func NewPresence(transport Transport, self wire.PresenceRecord, opts ...PresenceOption) *Presence {
	p := &Presence{
		transport:  transport,
		self:       self,
		requestTTL: defaultRequestTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Presence) Self() wire.PresenceRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.self
}

func (p *Presence) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Roster returns everyone available except this session.
func (p *Presence) Roster() []wire.PresenceRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wire.PresenceRecord, 0, len(p.roster))
	for _, rec := range p.roster {
		if rec.ID == p.self.ID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// GoFree flips availability on optimistically; a limit-reached push rolls
// it back.
func (p *Presence) GoFree(status string) error {
	p.mu.Lock()
	p.self.Status = status
	p.available = true
	p.limitMsg = ""
	self := p.self
	p.mu.Unlock()

	return p.transport.Send(&wire.GoFree{
		ID:     self.ID,
		Name:   self.Name,
		Status: status,
		Gender: self.Gender,
	})
}

func (p *Presence) GoBusy() error {
	p.mu.Lock()
	p.available = false
	p.mu.Unlock()
	return p.transport.Send(&wire.GoBusy{ID: p.self.ID})
}

// LimitMessage returns the last quota refusal, cleared on the next toggle.
func (p *Presence) LimitMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limitMsg
}

// SendRequest sends a vibe check and arms the local countdown mirror.
func (p *Presence) SendRequest(receiver wire.PresenceRecord, vibe string) error {
	p.mu.Lock()
	if p.outgoing != nil && p.outgoing.timer != nil {
		p.outgoing.timer.Stop()
	}
	out := &Outgoing{
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.Name,
		State:        OutgoingPending,
	}
	out.timer = time.AfterFunc(p.requestTTL, func() {
		p.settleOutgoing(out, OutgoingIgnored, "Your vibe check went unanswered.", false)
	})
	p.outgoing = out
	self := p.self
	p.mu.Unlock()

	return p.transport.Send(&wire.SendChatRequest{
		SenderID:     self.ID,
		SenderName:   self.Name,
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.Name,
		SenderVibe:   vibe,
	})
}

// settleOutgoing moves the tracked request out of pending exactly once;
// whichever of the local timer and the server verdict lands first wins and
// the loser is a no-op.
func (p *Presence) settleOutgoing(out *Outgoing, state OutgoingState, msg string, limit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outgoing != out || out.State != OutgoingPending {
		return
	}
	out.timer.Stop()
	out.State = state
	out.Message = msg
	out.LimitReached = limit
}

func (p *Presence) Outgoing() *Outgoing {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outgoing == nil {
		return nil
	}
	cp := *p.outgoing
	cp.timer = nil
	return &cp
}

// ClearOutgoing drops the tracked request, e.g. once a chat starts or the
// user dismisses the verdict.
func (p *Presence) ClearOutgoing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outgoing != nil && p.outgoing.timer != nil {
		p.outgoing.timer.Stop()
	}
	p.outgoing = nil
}

func (p *Presence) Incoming() *Incoming {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.incoming == nil {
		return nil
	}
	cp := *p.incoming
	cp.timer = nil
	return &cp
}

// Accept answers the incoming request. The room arrives separately as
// chat-init-receiver.
func (p *Presence) Accept() error {
	p.mu.Lock()
	in := p.incoming
	if in == nil {
		p.mu.Unlock()
		return ErrNoIncomingRequest
	}
	in.timer.Stop()
	p.incoming = nil
	p.mu.Unlock()

	return p.transport.Send(&wire.AcceptChat{
		SenderID:     in.Request.SenderID,
		SenderName:   in.Request.SenderName,
		ReceiverID:   in.Request.ReceiverID,
		ReceiverName: in.Request.ReceiverName,
	})
}

func (p *Presence) Reject() error {
	p.mu.Lock()
	in := p.incoming
	if in == nil {
		p.mu.Unlock()
		return ErrNoIncomingRequest
	}
	in.timer.Stop()
	p.incoming = nil
	p.mu.Unlock()

	return p.transport.Send(&wire.RejectChat{
		SenderID:   in.Request.SenderID,
		ReceiverID: in.Request.ReceiverID,
	})
}

// clearIncoming removes the tracked incoming request once, whether the
// local mirror or the server's request-expired fires first.
func (p *Presence) clearIncoming(in *Incoming) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.incoming != in {
		return
	}
	in.timer.Stop()
	p.incoming = nil
}

func (p *Presence) ApplyRoster(e *wire.UsersUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roster = e.Users
	// the server's list is the truth about our own availability too
	p.available = false
	for _, rec := range e.Users {
		if rec.ID == p.self.ID {
			p.available = true
			break
		}
	}
}

// ApplyIncoming replaces whatever request is on screen; the server already
// told the superseded sender.
func (p *Presence) ApplyIncoming(e *wire.ReceiveChatRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.incoming != nil {
		p.incoming.timer.Stop()
	}
	in := &Incoming{Request: *e, Deadline: p.now().Add(p.requestTTL)}
	in.timer = time.AfterFunc(p.requestTTL, func() { p.clearIncoming(in) })
	p.incoming = in
}

func (p *Presence) ApplyRequestExpired() {
	p.mu.Lock()
	in := p.incoming
	p.mu.Unlock()
	if in != nil {
		p.clearIncoming(in)
	}
}

func (p *Presence) ApplyRequestSentSuccess() {
	// the request is already rendered as pending; nothing to change
}

func (p *Presence) ApplyRequestIgnored(e *wire.RequestIgnored) {
	p.mu.Lock()
	out := p.outgoing
	p.mu.Unlock()
	if out != nil {
		p.settleOutgoing(out, OutgoingIgnored, e.Message, false)
	}
}

func (p *Presence) ApplyRequestRejected(e *wire.RequestRejected) {
	p.mu.Lock()
	out := p.outgoing
	p.mu.Unlock()
	if out != nil {
		p.settleOutgoing(out, OutgoingRejected, e.Message, false)
	}
}

func (p *Presence) ApplyRequestFailed(e *wire.RequestFailed) {
	p.mu.Lock()
	out := p.outgoing
	p.mu.Unlock()
	if out != nil {
		p.settleOutgoing(out, OutgoingFailed, e.Message, e.LimitReached)
	}
}

// ApplyLimitReached rolls back the optimistic availability flip.
func (p *Presence) ApplyLimitReached(e *wire.LimitReached) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = false
	p.limitMsg = e.Message
}

func (p *Presence) ApplyUsage(e *wire.UsageUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = *e
	p.hasUsage = true
	p.self.IsPremium = e.IsPremium
}

// Usage returns the last pushed quota numbers and whether any arrived yet.
func (p *Presence) Usage() (wire.UsageUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage, p.hasUsage
}

// CanSendRequest is a display hint only; the server re-checks on send.
func (p *Presence) CanSendRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasUsage || p.usage.IsPremium {
		return true
	}
	return p.usage.RequestsToday < p.usage.GlobalConfig.PingLimit
}
