package relay

import (
	"github.com/vibelink/vibelink/pkg/wire"
)

// gameState tracks one room's emoji mini-game. The server owns the turn
// order completely; clients only react to game-state.
type gameState struct {
	open       bool
	round      int
	turnID     string
	selections map[string]string
}

// GameToggle opens or closes the mini-game for both members. The toggle is
// not optimistic: nothing changes on either screen until game-toggled comes
// back. The opener leads the first round.
func (r *Relay) GameToggle(sessionID string, a *wire.GameToggle) error {
	r.mu.Lock()
	rm, ok := r.rooms[a.RoomID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	partner, ok := rm.other(sessionID)
	if !ok || rm.game.open == a.Open {
		r.mu.Unlock()
		return nil
	}

	if a.Open {
		rm.game = gameState{
			open:       true,
			round:      1,
			turnID:     sessionID,
			selections: make(map[string]string),
		}
	} else {
		rm.game = gameState{}
	}
	state := rm.game
	r.mu.Unlock()

	r.emit(&wire.GameToggled{RoomID: a.RoomID, IsOpen: a.Open}, sessionID, partner)
	if a.Open {
		r.emit(&wire.GameState{
			RoomID: a.RoomID,
			Round:  state.round,
			TurnID: state.turnID,
		}, sessionID, partner)
	}
	return nil
}

// GameSelect records one pick. The leader picks first; the other member is
// unlocked by game-partner-selected. Out-of-turn and duplicate picks are
// dropped. When both picks are in, the result goes to both members and the
// next round starts with the lead alternated.
func (r *Relay) GameSelect(sessionID string, a *wire.GameSelect) error {
	r.mu.Lock()
	rm, ok := r.rooms[a.RoomID]
	if !ok || !rm.game.open {
		r.mu.Unlock()
		return nil
	}
	partner, ok := rm.other(sessionID)
	if !ok {
		r.mu.Unlock()
		return nil
	}
	g := &rm.game

	if _, picked := g.selections[sessionID]; picked {
		r.mu.Unlock()
		return nil
	}
	// first pick of the round belongs to the lead
	if len(g.selections) == 0 && sessionID != g.turnID {
		r.mu.Unlock()
		return nil
	}
	g.selections[sessionID] = a.Emoji

	if len(g.selections) < 2 {
		r.mu.Unlock()
		r.emit(&wire.GamePartnerSelected{RoomID: a.RoomID}, partner)
		return nil
	}

	result := &wire.GameResult{
		RoomID:     a.RoomID,
		Selections: g.selections,
		IsMatch:    g.selections[sessionID] == g.selections[partner],
	}
	next, _ := rm.other(g.turnID)
	rm.game = gameState{
		open:       true,
		round:      g.round + 1,
		turnID:     next,
		selections: make(map[string]string),
	}
	state := rm.game
	r.mu.Unlock()

	r.emit(result, sessionID, partner)
	r.emit(&wire.GameState{
		RoomID: a.RoomID,
		Round:  state.round,
		TurnID: state.turnID,
	}, sessionID, partner)
	return nil
}
