package api

import (
	"net/http"
	"time"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/wire"
)

type ActiveUsersResponse struct {
	Count int                   `json:"count"`
	Users []wire.PresenceRecord `json:"users"`
}

// ActiveUsersHandler returns the live roster, the same list users-update
// pushes over the socket.
func (a *Api) ActiveUsersHandler(w http.ResponseWriter, r *http.Request) error {
	users := a.presence.Roster()
	return WriteJsonResponse(w, ActiveUsersResponse{Count: len(users), Users: users})
}

type MonthlyStatsResponse struct {
	Month   string `json:"month"`
	Matches int    `json:"matches"`
}

func (a *Api) MonthlyStatsHandler(w http.ResponseWriter, r *http.Request) error {
	month := store.Month(time.Now())
	n, err := a.store.MonthlyMatches(r.Context(), month)
	if err != nil {
		return err
	}
	return WriteJsonResponse(w, MonthlyStatsResponse{Month: month, Matches: n})
}
