package relay

import (
	"github.com/vibelink/vibelink/pkg/wire"
)

// Drawing is a pure relay: coordinates arrive normalized to [0,1] and are
// forwarded untouched, so members with different canvas sizes stay in
// proportion. Only the toggle echoes to both members; strokes go to the
// partner alone since the artist already rendered locally.

func (r *Relay) DrawStart(sessionID string, a *wire.DrawStart) error {
	_, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.DrawStarted{
		RoomID: a.RoomID, X: a.X, Y: a.Y, Color: a.Color,
	}, partner)
	return nil
}

func (r *Relay) DrawMove(sessionID string, a *wire.DrawMove) error {
	_, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.DrawMoved{RoomID: a.RoomID, X: a.X, Y: a.Y}, partner)
	return nil
}

func (r *Relay) DrawClear(sessionID string, a *wire.DrawClear) error {
	_, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.DrawCleared{RoomID: a.RoomID}, partner)
	return nil
}

func (r *Relay) DrawToggle(sessionID string, a *wire.DrawToggle) error {
	r.mu.Lock()
	rm, ok := r.rooms[a.RoomID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	partner, ok := rm.other(sessionID)
	if !ok || rm.drawOpen == a.Open {
		r.mu.Unlock()
		return nil
	}
	rm.drawOpen = a.Open
	r.mu.Unlock()

	r.emit(&wire.DrawToggled{RoomID: a.RoomID, IsOpen: a.Open}, sessionID, partner)
	return nil
}
