package relay

import (
	"context"
	"log/slog"
	"sort"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/wire"
)

// Roster returns the currently available users, sorted by name for a
// stable wire order.
func (r *Relay) Roster() []wire.PresenceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Relay) rosterLocked() []wire.PresenceRecord {
	users := make([]wire.PresenceRecord, 0, len(r.roster))
	for _, rec := range r.roster {
		users = append(users, rec)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (r *Relay) broadcastRosterLocked() {
	r.broadcast(&wire.UsersUpdate{Users: r.rosterLocked()})
}

// GoFree adds the session to the public roster. Non-premium users burn one
// daily toggle; over the cap the roster is left untouched and the client is
// told so. Suspended users cannot appear on the roster at all.
func (r *Relay) GoFree(ctx context.Context, sessionID string, a *wire.GoFree) error {
	if sessionID != a.ID {
		r.logger.Warn("go-free id mismatch",
			slog.String("session", sessionID), slog.String("claimed", a.ID))
		return nil
	}
	if r.isSuspended(ctx, sessionID) {
		r.emit(&wire.LimitReached{Message: "Your account is suspended."}, sessionID)
		return nil
	}

	r.mu.Lock()
	_, alreadyFree := r.roster[sessionID]
	r.mu.Unlock()

	// re-announcing (e.g. after a reconnect) is free
	if !alreadyFree && !r.isPremium(ctx, sessionID) {
		usage, err := r.store.UsageFor(ctx, sessionID, store.Day(r.now()))
		if err != nil {
			return err
		}
		if usage.Toggles >= r.cfg.ToggleLimit {
			r.emit(&wire.LimitReached{
				Message: "You have reached your daily limit for going free.",
			}, sessionID)
			return nil
		}
		if _, err := r.store.IncrToggles(ctx, sessionID, store.Day(r.now())); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.roster[sessionID] = wire.PresenceRecord{
		ID:        a.ID,
		Name:      a.Name,
		Status:    a.Status,
		Gender:    a.Gender,
		IsPremium: r.isPremium(ctx, sessionID),
	}
	r.broadcastRosterLocked()
	r.mu.Unlock()

	r.pushUsage(ctx, sessionID)
	return nil
}

// GoBusy removes the session from the roster. Removing an absent session
// is a no-op and does not re-broadcast.
func (r *Relay) GoBusy(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roster[sessionID]; !ok {
		return nil
	}
	delete(r.roster, sessionID)
	r.broadcastRosterLocked()
	return nil
}
