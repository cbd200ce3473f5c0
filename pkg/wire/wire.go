// Package wire defines the named-event protocol spoken between the session
// client and the relay server. Payloads are decoded once at the transport
// boundary into typed values; the rest of the code never matches on raw
// event strings.
package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the unit framed on the websocket. Data holds the payload of
// the event named by Event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Action is a client-to-server payload.
type Action interface {
	Action() string
}

// Event is a server-to-client payload.
type Event interface {
	Event() string
}

func Marshal(event string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	return &Envelope{Event: event, Data: data}, nil
}

// MarshalAction wraps an action payload in an envelope.
func MarshalAction(a Action) (*Envelope, error) {
	return Marshal(a.Action(), a)
}

// MarshalEvent wraps an event payload in an envelope.
func MarshalEvent(e Event) (*Envelope, error) {
	return Marshal(e.Event(), e)
}

// DecodeAction decodes an inbound envelope on the server side.
// Unknown events return ErrUnknownEvent so the hub can drop them.
func DecodeAction(env *Envelope) (Action, error) {
	f, ok := actionRegistry[env.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	a := f()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
	}
	return a, nil
}

// DecodeEvent decodes an inbound envelope on the client side.
func DecodeEvent(env *Envelope) (Event, error) {
	f, ok := eventRegistry[env.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	e := f()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
	}
	return e, nil
}

func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

func WriteEnvelope(w io.Writer, env *Envelope) error {
	if err := json.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return nil
}
