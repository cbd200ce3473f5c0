// Package auth issues and verifies the short-lived tokens used to open a
// websocket session, plus the bcrypt-checked admin key for moderation
// endpoints. User identity itself comes from the external auth provider;
// this package only binds a provider session id to a wire connection.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type TokenOptions struct {
	Exp    time.Duration
	Secret []byte
}

type SessionClaims struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionClaims(sessionID, name string, exp time.Time) *SessionClaims {
	return &SessionClaims{
		SessionID: sessionID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "vibelink",
		},
	}
}

// CreateSessionToken signs a token binding the session id for the ws dial.
func CreateSessionToken(sessionID, name string, options TokenOptions) (signed string, exp time.Time, err error) {
	exp = time.Now().Add(options.Exp)
	claims := NewSessionClaims(sessionID, name, exp)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err = token.SignedString(options.Secret)
	return signed, exp, err
}

func VerifySessionToken(token string, options TokenOptions) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return options.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	switch {
	case err == nil && parsed.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}
}
