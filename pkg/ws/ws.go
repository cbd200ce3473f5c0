// Package ws provides the websocket hub the relay runs on: one logical
// client per session id, envelope-framed JSON events, and a string-keyed
// handler table dispatched from a single hub goroutine.
package ws

import (
	"errors"
	"net/http"

	"github.com/vibelink/vibelink/pkg/wire"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves an HTTP upgrade request to a session id.
// It must be safe for concurrent use.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// QueryAuthenticator reads the session id straight from a query parameter.
// Test and development use only.
type QueryAuthenticator struct {
	Param string
}

func (a *QueryAuthenticator) Authenticate(r *http.Request) (string, error) {
	id := r.URL.Query().Get(a.Param)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// TokenAuthenticator verifies a token from the "token" query parameter and
// returns the session id embedded in it.
type TokenAuthenticator struct {
	Verify func(token string) (sessionID string, err error)
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", ErrUnauthenticated
	}
	id, err := a.Verify(token)
	if err != nil {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// Request is one inbound envelope together with the client that sent it.
type Request struct {
	Sender   *Client
	Envelope *wire.Envelope
}

// Handler handles one inbound envelope. Handlers run on the hub goroutine,
// one at a time.
type Handler func(req *Request) error
