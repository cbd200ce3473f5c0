package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/vibelink/vibelink/pkg/wire"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	connectChan    chan *Client
	disconnectChan chan *Client
	request        chan *Request
	// exit signals the hub goroutine to stop.
	exit chan struct{}

	handlers          map[string]Handler
	connectHandler    func(*Hub, *Client) error
	disconnectHandler func(*Hub, *Client) error

	logger        *slog.Logger
	baseCtx       context.Context
	wg            sync.WaitGroup
	authenticator Authenticator
	closeTimeout  time.Duration
	closeOnce     sync.Once
}

func New(opts ...HubOption) *Hub {
	hub := &Hub{
		clients:        make(map[string]*Client),
		connectChan:    make(chan *Client),
		disconnectChan: make(chan *Client),
		request:        make(chan *Request),
		exit:           make(chan struct{}),
		handlers:       make(map[string]Handler),
		logger: slog.New(slog.NewJSONHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})),
		baseCtx:       context.Background(),
		authenticator: &QueryAuthenticator{Param: "id"},
		closeTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(hub)
	}
	return hub
}

type HubOption func(*Hub)

func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

func WithBaseContext(ctx context.Context) HubOption {
	return func(h *Hub) { h.baseCtx = ctx }
}

func WithAuthenticator(auth Authenticator) HubOption {
	return func(h *Hub) { h.authenticator = auth }
}

func (hub *Hub) Start() {
	hub.wg.Add(1)
	go hub.run()
	hub.logger.Debug("hub started")
}

func (hub *Hub) run() {
	defer func() {
		hub.wg.Done()
		hub.logger.Debug("hub exited")
	}()
	for {
		select {
		case <-hub.exit:
			return
		case c := <-hub.connectChan:
			hub.handleConnect(c)
		case c := <-hub.disconnectChan:
			hub.disconnect(c)
		case req := <-hub.request:
			hub.dispatch(req)
		}
	}
}

func (hub *Hub) handleConnect(c *Client) {
	hub.mu.Lock()
	// A session reconnecting replaces its previous connection; the server
	// must not grow duplicate presence entries on network blips.
	if old, ok := hub.clients[c.id]; ok {
		close(old.send)
	}
	hub.clients[c.id] = c
	hub.mu.Unlock()

	c.logger.Debug("connected")
	if hub.connectHandler != nil {
		if err := hub.connectHandler(hub, c); err != nil {
			c.logger.Error(fmt.Sprintf("connect handler: %v", err))
		}
	}
}

func (hub *Hub) dispatch(req *Request) {
	h, ok := hub.handlers[req.Envelope.Event]
	if !ok {
		req.Sender.logger.Warn(fmt.Sprintf("handler(%s): not found", req.Envelope.Event))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			req.Sender.logger.Error(fmt.Sprintf("handler(%s): panic: %v", req.Envelope.Event, r))
		}
	}()
	if err := h(req); err != nil {
		req.Sender.logger.Error(fmt.Sprintf("handler(%s): %v", req.Envelope.Event, err))
	}
}

// Close disconnects all clients and stops the hub goroutine. Safe to call
// more than once.
func (hub *Hub) Close() {
	hub.closeOnce.Do(func() {
		hub.mu.Lock()
		for _, c := range hub.clients {
			delete(hub.clients, c.id)
			close(c.send)
		}
		hub.mu.Unlock()
		close(hub.exit)
	})
}

// Wait blocks until the hub goroutine and all connection pumps exit, or the
// close timeout elapses.
func (hub *Hub) Wait() {
	timer := time.NewTimer(hub.closeTimeout)
	defer timer.Stop()
	done := make(chan struct{})
	go func() {
		hub.wg.Wait()
		close(done)
	}()
	select {
	case <-timer.C:
		hub.logger.Debug("hub closed with timeout")
	case <-done:
		hub.logger.Debug("hub closed gracefully")
	}
}

func (hub *Hub) SetHandle(event string, h Handler) {
	hub.handlers[event] = h
}

func (hub *Hub) SetConnectHandler(h func(*Hub, *Client) error) {
	hub.connectHandler = h
}

func (hub *Hub) SetDisconnectHandler(h func(*Hub, *Client) error) {
	hub.disconnectHandler = h
}

// ServeHTTP authenticates and upgrades the request, then registers the
// connection with the hub and starts its pumps.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := hub.authenticator.Authenticate(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error(fmt.Sprintf("upgrade: %v", err))
		return
	}

	c := newClient(hub, conn, id,
		hub.logger.With(slog.String("client.id", id)))

	select {
	case hub.connectChan <- c:
	case <-hub.exit:
		conn.Close()
		return
	}

	hub.wg.Add(2)
	go c.readPump()
	go c.writePump()
}

// Connected reports whether a session currently has a live connection.
func (hub *Hub) Connected(id string) bool {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	_, ok := hub.clients[id]
	return ok
}

// SendToClients delivers an envelope to each of the named sessions that is
// currently connected. Safe to call from any goroutine.
func (hub *Hub) SendToClients(env *wire.Envelope, ids ...string) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, id := range ids {
		c, ok := hub.clients[id]
		if !ok {
			continue
		}
		hub.sendOrDrop(c, env)
	}
}

// Broadcast delivers an envelope to every connected client.
func (hub *Hub) Broadcast(env *wire.Envelope) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		hub.sendOrDrop(c, env)
	}
}

// sendOrDrop writes to the client send buffer without blocking the hub; a
// client that cannot keep up loses the envelope and is disconnected by its
// own pump on the next deadline.
func (hub *Hub) sendOrDrop(c *Client, env *wire.Envelope) {
	select {
	case c.send <- env:
	default:
		c.logger.Warn("send buffer full, dropping envelope")
	}
}

func (hub *Hub) Disconnect(c *Client) {
	select {
	case hub.disconnectChan <- c:
	case <-hub.exit:
	}
}

func (hub *Hub) disconnect(c *Client) {
	hub.mu.Lock()
	cur, ok := hub.clients[c.id]
	// Only drop the registration if it still belongs to this connection; a
	// reconnect may already have replaced it.
	if ok && cur == c {
		delete(hub.clients, c.id)
		close(c.send)
	} else {
		ok = false
	}
	hub.mu.Unlock()

	if ok && hub.disconnectHandler != nil {
		if err := hub.disconnectHandler(hub, c); err != nil {
			c.logger.Error(fmt.Sprintf("disconnect handler: %v", err))
		}
	}
}
