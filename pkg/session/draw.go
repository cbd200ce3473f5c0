package session

import (
	"sync"

	"github.com/vibelink/vibelink/pkg/wire"
)

// Point is a normalized canvas coordinate in [0,1].
type Point struct {
	X float64
	Y float64
}

type Stroke struct {
	Color  string
	Mine   bool
	Points []Point
}

// Board mirrors the shared drawing canvas. All coordinates cross the wire
// normalized to [0,1], so peers with different canvas sizes render the
// same picture in proportion.
type Board struct {
	mu sync.Mutex

	transport Transport
	roomID    string

	open    bool
	strokes []*Stroke
	// current points at the stroke the local pointer is extending
	current *Stroke
	// remote points at the stroke the partner is extending
	remote *Stroke
}

func NewBoard(transport Transport, roomID string) *Board {
	return &Board{transport: transport, roomID: roomID}
}

func (b *Board) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Toggle asks the server to show or hide the canvas for both sides; the
// flip lands with draw-toggled.
func (b *Board) Toggle(open bool) error {
	return b.transport.Send(&wire.DrawToggle{RoomID: b.roomID, Open: open})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Normalize maps a pixel position on a w×h canvas into [0,1] space.
func Normalize(px, py float64, w, h int) Point {
	if w <= 0 || h <= 0 {
		return Point{}
	}
	return Point{X: clamp01(px / float64(w)), Y: clamp01(py / float64(h))}
}

// Denormalize maps a stored point back to pixels for a w×h canvas.
func (p Point) Denormalize(w, h int) (float64, float64) {
	return p.X * float64(w), p.Y * float64(h)
}

// StartStroke begins a local stroke at a pixel position and relays it.
func (b *Board) StartStroke(px, py float64, w, h int, color string) error {
	pt := Normalize(px, py, w, h)

	b.mu.Lock()
	s := &Stroke{Color: color, Mine: true, Points: []Point{pt}}
	b.strokes = append(b.strokes, s)
	b.current = s
	b.mu.Unlock()

	return b.transport.Send(&wire.DrawStart{
		RoomID: b.roomID, X: pt.X, Y: pt.Y, Color: color,
	})
}

// ExtendStroke adds a pixel position to the running local stroke.
func (b *Board) ExtendStroke(px, py float64, w, h int) error {
	pt := Normalize(px, py, w, h)

	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return nil
	}
	b.current.Points = append(b.current.Points, pt)
	b.mu.Unlock()

	return b.transport.Send(&wire.DrawMove{RoomID: b.roomID, X: pt.X, Y: pt.Y})
}

// EndStroke finishes the local stroke; nothing crosses the wire, the
// partner just stops receiving moves.
func (b *Board) EndStroke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
}

// Clear wipes the canvas on both sides.
func (b *Board) Clear() error {
	b.mu.Lock()
	b.strokes = nil
	b.current = nil
	b.remote = nil
	b.mu.Unlock()
	return b.transport.Send(&wire.DrawClear{RoomID: b.roomID})
}

func (b *Board) ApplyToggled(e *wire.DrawToggled) {
	if e.RoomID != b.roomID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = e.IsOpen
}

func (b *Board) ApplyStarted(e *wire.DrawStarted) {
	if e.RoomID != b.roomID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Stroke{Color: e.Color, Points: []Point{{X: e.X, Y: e.Y}}}
	b.strokes = append(b.strokes, s)
	b.remote = s
}

func (b *Board) ApplyMoved(e *wire.DrawMoved) {
	if e.RoomID != b.roomID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remote == nil {
		return
	}
	b.remote.Points = append(b.remote.Points, Point{X: e.X, Y: e.Y})
}

func (b *Board) ApplyCleared(e *wire.DrawCleared) {
	if e.RoomID != b.roomID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strokes = nil
	b.current = nil
	b.remote = nil
}

// Strokes returns a snapshot of the canvas in normalized space.
func (b *Board) Strokes() []Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Stroke, len(b.strokes))
	for i, s := range b.strokes {
		out[i] = Stroke{
			Color:  s.Color,
			Mine:   s.Mine,
			Points: append([]Point(nil), s.Points...),
		}
	}
	return out
}
