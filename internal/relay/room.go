package relay

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink/pkg/wire"
)

// memberAndPartner resolves a room action: the room must exist and the
// session must be one of its two members. Anything else is dropped, which
// covers stale actions racing a teardown.
func (r *Relay) memberAndPartner(roomID, sessionID string) (*room, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, "", false
	}
	partner, ok := rm.other(sessionID)
	if !ok {
		return nil, "", false
	}
	return rm, partner, true
}

// SendMessage relays one chat message. The server assigns the canonical id
// and timestamp and echoes to both members; the sender's clientId rides
// along so the optimistic copy can be reconciled.
func (r *Relay) SendMessage(sessionID string, a *wire.SendMessage) error {
	rm, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	if a.Type != wire.TextMessage && a.Type != wire.ImageMessage {
		r.logger.Warn("dropping message with unknown type",
			slog.String("type", string(a.Type)))
		return nil
	}

	msg := &wire.NewMessage{
		ID:        uuid.NewString(),
		ClientID:  a.ClientID,
		RoomID:    rm.id,
		Sender:    a.SenderName,
		Text:      a.Message,
		Type:      a.Type,
		Timestamp: r.now().UnixMilli(),
	}

	r.mu.Lock()
	rm.senders[msg.ID] = sessionID
	r.mu.Unlock()

	r.emit(msg, sessionID, partner)
	return nil
}

// ownMessage resolves an action targeting an existing message: the session
// must be a room member and must be the one that sent the message.
func (r *Relay) ownMessage(roomID, sessionID, messageID string) (*room, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, "", false
	}
	partner, ok := rm.other(sessionID)
	if !ok {
		return nil, "", false
	}
	if rm.senders[messageID] != sessionID {
		return nil, "", false
	}
	return rm, partner, true
}

// EditMessage relays an edit of the session's own message to both members.
func (r *Relay) EditMessage(sessionID string, a *wire.EditMessage) error {
	_, partner, ok := r.ownMessage(a.RoomID, sessionID, a.MessageID)
	if !ok {
		return nil
	}
	r.emit(&wire.MessageUpdated{
		RoomID:    a.RoomID,
		MessageID: a.MessageID,
		NewText:   a.NewText,
	}, sessionID, partner)
	return nil
}

func (r *Relay) DeleteMessage(sessionID string, a *wire.DeleteMessage) error {
	rm, partner, ok := r.ownMessage(a.RoomID, sessionID, a.MessageID)
	if !ok {
		return nil
	}

	r.mu.Lock()
	delete(rm.senders, a.MessageID)
	r.mu.Unlock()

	r.emit(&wire.MessageDeleted{
		RoomID:    a.RoomID,
		MessageID: a.MessageID,
	}, sessionID, partner)
	return nil
}

// Typing forwards a typing burst to the partner only.
func (r *Relay) Typing(sessionID string, a *wire.Typing) error {
	_, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.PartnerTyping{RoomID: a.RoomID, SenderName: a.SenderName}, partner)
	return nil
}

func (r *Relay) StopTyping(sessionID string, a *wire.StopTyping) error {
	_, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.PartnerStopTyping{RoomID: a.RoomID}, partner)
	return nil
}

// SendReaction mirrors a reaction to both members so sender and receiver
// render the same overlay.
func (r *Relay) SendReaction(sessionID string, a *wire.SendReaction) error {
	rm, partner, ok := r.memberAndPartner(a.RoomID, sessionID)
	if !ok {
		return nil
	}
	r.emit(&wire.NewReaction{
		RoomID:   a.RoomID,
		TargetID: a.TargetID,
		Emoji:    a.Emoji,
		Sender:   rm.names[sessionID],
	}, sessionID, partner)
	return nil
}

// EndChat tears the room down. The partner hears partner-left; the leaver
// already acted locally and gets no echo.
func (r *Relay) EndChat(sessionID string, a *wire.EndChat) error {
	r.mu.Lock()
	rm, ok := r.rooms[a.RoomID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	partner, ok := rm.other(sessionID)
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.rooms, a.RoomID)
	r.mu.Unlock()

	r.emit(&wire.PartnerLeft{
		RoomID:     a.RoomID,
		SenderName: rm.names[sessionID],
	}, partner)
	r.logger.Info("chat ended", slog.String("room", a.RoomID))
	return nil
}

// DisconnectSession cleans up everything tied to a dropped connection: the
// roster entry, any request the session sent or was looking at, and every
// room it sat in, whose partner hears partner-left as if the chat was ended.
func (r *Relay) DisconnectSession(sessionID string) {
	r.mu.Lock()

	_, wasFree := r.roster[sessionID]
	delete(r.roster, sessionID)
	if wasFree {
		r.broadcastRosterLocked()
	}

	type notify struct {
		event wire.Event
		to    string
	}
	var out []notify

	for receiverID, req := range r.pending {
		switch sessionID {
		case req.receiverID:
			req.timer.Stop()
			delete(r.pending, receiverID)
			out = append(out, notify{&wire.RequestIgnored{
				Message: "Your vibe check went unanswered.",
			}, req.senderID})
		case req.senderID:
			req.timer.Stop()
			delete(r.pending, receiverID)
			out = append(out, notify{&wire.RequestExpired{}, req.receiverID})
		}
	}

	for id, rm := range r.rooms {
		partner, ok := rm.other(sessionID)
		if !ok {
			continue
		}
		delete(r.rooms, id)
		out = append(out, notify{&wire.PartnerLeft{
			RoomID:     id,
			SenderName: rm.names[sessionID],
		}, partner})
	}
	r.mu.Unlock()

	for _, n := range out {
		r.emit(n.event, n.to)
	}
}
