package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibelink/vibelink/pkg/wire"
)

// Transport moves typed protocol frames between the session and the
// server. The session core never sees raw JSON; everything is decoded at
// this boundary.
type Transport interface {
	Send(a wire.Action) error
	// Events yields decoded server events. The channel closes when the
	// transport is closed for good.
	Events() <-chan wire.Event
	Close() error
}

var ErrTransportClosed = errors.New("transport closed")

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// WSTransport is the production Transport over a websocket. It redials
// with exponential backoff when the connection drops and invokes
// OnConnect after every successful (re)dial so the session can
// re-register.
type WSTransport struct {
	endpoint  string
	token     string
	logger    *slog.Logger
	onConnect func()

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	events chan wire.Event
	done   chan struct{}
}

type WSOption func(*WSTransport)

func WithWSLogger(logger *slog.Logger) WSOption {
	return func(t *WSTransport) { t.logger = logger }
}

// WithOnConnect sets the hook run after each successful dial, including
// redials.
func WithOnConnect(f func()) WSOption {
	return func(t *WSTransport) { t.onConnect = f }
}

// DialWS connects to the relay endpoint, presenting token as the "token"
// query parameter.
func DialWS(ctx context.Context, endpoint, token string, opts ...WSOption) (*WSTransport, error) {
	t := &WSTransport{
		endpoint: endpoint,
		token:    token,
		logger:   slog.Default(),
		events:   make(chan wire.Event, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn

	go t.readLoop(ctx)
	if t.onConnect != nil {
		t.onConnect()
	}
	return t, nil
}

func (t *WSTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	q := u.Query()
	q.Set("token", t.token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.endpoint, err)
	}
	return conn, nil
}

func (t *WSTransport) readLoop(ctx context.Context) {
	defer close(t.events)

	for {
		t.mu.Lock()
		conn, closed := t.conn, t.closed
		t.mu.Unlock()
		if closed {
			return
		}

		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !t.redial(ctx) {
				return
			}
			continue
		}

		e, err := wire.DecodeEvent(&env)
		if err != nil {
			// tolerate events from newer servers
			t.logger.Warn("skipping event", slog.String("event", env.Event))
			continue
		}

		select {
		case t.events <- e:
		case <-t.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// redial reconnects with exponential backoff. Returns false when the
// transport was closed or the context cancelled while waiting.
func (t *WSTransport) redial(ctx context.Context) bool {
	backoff := reconnectBase
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return false
		}
		t.conn.Close()
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return false
		case <-t.done:
			return false
		case <-time.After(backoff):
		}

		conn, err := t.dial(ctx)
		if err != nil {
			t.logger.Warn("reconnect failed", slog.Any("error", err))
			if backoff *= 2; backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		t.mu.Lock()
		t.conn = conn
		t.mu.Unlock()

		t.logger.Info("reconnected")
		if t.onConnect != nil {
			t.onConnect()
		}
		return true
	}
}

func (t *WSTransport) Send(a wire.Action) error {
	env, err := wire.MarshalAction(a)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	return t.conn.WriteJSON(env)
}

func (t *WSTransport) Events() <-chan wire.Event {
	return t.events
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return t.conn.Close()
}
