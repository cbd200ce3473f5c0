package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/wire"
)

// SendChatRequest starts the handshake. The server owns the acceptance
// window: when it lapses the receiver hears request-expired and the sender
// hears request-ignored, exactly once, regardless of any countdown the
// clients render locally.
func (r *Relay) SendChatRequest(ctx context.Context, sessionID string, a *wire.SendChatRequest) error {
	if sessionID != a.SenderID || a.SenderID == a.ReceiverID {
		return nil
	}
	if r.isSuspended(ctx, sessionID) {
		r.emit(&wire.RequestFailed{Message: "Your account is suspended."}, sessionID)
		return nil
	}

	premium := r.isPremium(ctx, sessionID)
	if !premium {
		usage, err := r.store.UsageFor(ctx, sessionID, store.Day(r.now()))
		if err != nil {
			return err
		}
		if usage.Requests >= r.cfg.PingLimit {
			r.emit(&wire.RequestFailed{
				Message:      "You have used all your vibe checks for today.",
				LimitReached: true,
			}, sessionID)
			return nil
		}
	}

	r.mu.Lock()
	if _, online := r.roster[a.ReceiverID]; !online {
		r.mu.Unlock()
		r.emit(&wire.RequestFailed{
			Message: "That user is no longer available.",
		}, sessionID)
		return nil
	}

	// A newer request supersedes the one the receiver is looking at; the
	// superseded sender is told it went unanswered.
	if old, ok := r.pending[a.ReceiverID]; ok {
		old.timer.Stop()
		r.emit(&wire.RequestIgnored{
			Message: "Your vibe check went unanswered.",
		}, old.senderID)
	}

	req := &pendingRequest{
		senderID:     a.SenderID,
		senderName:   a.SenderName,
		receiverID:   a.ReceiverID,
		receiverName: a.ReceiverName,
		vibe:         a.SenderVibe,
		isPriority:   premium && r.cfg.EliteEnabled,
	}
	req.timer = time.AfterFunc(r.cfg.RequestTTL, func() { r.expireRequest(req) })
	r.pending[a.ReceiverID] = req
	r.mu.Unlock()

	if _, err := r.store.IncrRequests(ctx, sessionID, store.Day(r.now())); err != nil {
		return err
	}

	r.emit(&wire.ReceiveChatRequest{
		SenderID:     req.senderID,
		SenderName:   req.senderName,
		ReceiverID:   req.receiverID,
		ReceiverName: req.receiverName,
		SenderVibe:   req.vibe,
		IsPriority:   req.isPriority,
	}, req.receiverID)
	r.emit(&wire.RequestSentSuccess{}, sessionID)
	r.pushUsage(ctx, sessionID)
	return nil
}

// expireRequest fires when the acceptance window lapses. A request that was
// already accepted, rejected, or superseded is left alone.
func (r *Relay) expireRequest(req *pendingRequest) {
	r.mu.Lock()
	if r.pending[req.receiverID] != req {
		r.mu.Unlock()
		return
	}
	delete(r.pending, req.receiverID)
	r.mu.Unlock()

	r.logger.Info("chat request expired",
		slog.String("sender", req.senderID),
		slog.String("receiver", req.receiverID))
	r.emit(&wire.RequestExpired{}, req.receiverID)
	r.emit(&wire.RequestIgnored{
		Message: "Your vibe check went unanswered.",
	}, req.senderID)
}

// AcceptChat settles the handshake and opens a room. The acceptor is the
// receiver of the pending request; acting on a request the server no longer
// tracks is silently ignored.
func (r *Relay) AcceptChat(ctx context.Context, sessionID string, a *wire.AcceptChat) error {
	r.mu.Lock()
	req, ok := r.pending[sessionID]
	if !ok || req.senderID != a.SenderID {
		r.mu.Unlock()
		return nil
	}
	req.timer.Stop()
	delete(r.pending, sessionID)

	rm := &room{
		id:      uuid.NewString(),
		members: [2]string{req.senderID, req.receiverID},
		names: map[string]string{
			req.senderID:   req.senderName,
			req.receiverID: req.receiverName,
		},
		senders: make(map[string]string),
	}
	r.rooms[rm.id] = rm

	// both participants leave the public roster
	delete(r.roster, req.senderID)
	delete(r.roster, req.receiverID)
	r.broadcastRosterLocked()
	r.mu.Unlock()

	// the requester hears chat-started, the acceptor chat-init-receiver
	r.emit(&wire.ChatStarted{RoomData: wire.RoomData{
		RoomID: rm.id, PartnerName: req.receiverName,
	}}, req.senderID)
	r.emit(&wire.ChatInitReceiver{RoomData: wire.RoomData{
		RoomID: rm.id, PartnerName: req.senderName,
	}}, req.receiverID)

	if err := r.store.IncrMonthlyMatches(ctx, store.Month(r.now())); err != nil {
		r.logger.Error("incr monthly matches", slog.Any("error", err))
	}
	r.logger.Info("chat started", slog.String("room", rm.id))
	return nil
}

// RejectChat declines a pending request. Only the tracked receiver can
// reject, and only the tracked sender hears about it.
func (r *Relay) RejectChat(sessionID string, a *wire.RejectChat) error {
	r.mu.Lock()
	req, ok := r.pending[sessionID]
	if !ok || req.senderID != a.SenderID {
		r.mu.Unlock()
		return nil
	}
	req.timer.Stop()
	delete(r.pending, sessionID)
	r.mu.Unlock()

	r.emit(&wire.RequestRejected{
		Message: "Your vibe check was declined.",
	}, req.senderID)
	return nil
}
