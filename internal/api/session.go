package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink/pkg/auth"
)

type SessionPayload struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpireAt  time.Time `json:"expireAt"`
}

// SessionHandler mints the token a client presents when dialing the
// websocket. An omitted session id means a fresh anonymous session.
func (a *Api) SessionHandler(w http.ResponseWriter, r *http.Request) error {
	var payload SessionPayload
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("malformed body", http.StatusBadRequest)
	}
	defer r.Body.Close()

	if payload.SessionID == "" {
		payload.SessionID = uuid.NewString()
	}

	token, exp, err := auth.CreateSessionToken(payload.SessionID, payload.Name, a.config.TokenOptions)
	if err != nil {
		return err
	}

	return WriteJsonResponse(w, SessionResponse{
		SessionID: payload.SessionID,
		Token:     token,
		ExpireAt:  exp,
	})
}
