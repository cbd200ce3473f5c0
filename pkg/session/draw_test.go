package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelink/vibelink/pkg/wire"
)

func TestNormalizeClampsAndScales(t *testing.T) {
	pt := Normalize(200, 100, 400, 200)
	assert.Equal(t, Point{X: 0.5, Y: 0.5}, pt)

	// off-canvas input clamps into [0,1]
	pt = Normalize(-10, 500, 400, 200)
	assert.Equal(t, Point{X: 0, Y: 1}, pt)

	x, y := Point{X: 0.5, Y: 0.5}.Denormalize(800, 600)
	assert.Equal(t, 400.0, x)
	assert.Equal(t, 300.0, y)
}

func TestStrokesStayProportionalAcrossCanvasSizes(t *testing.T) {
	ft := newFakeTransport()
	artist := NewBoard(ft, "room-1")
	viewer := NewBoard(newFakeTransport(), "room-1")

	// drawn on a 400×200 canvas
	require.NoError(t, artist.StartStroke(200, 100, 400, 200, "#ff0066"))
	require.NoError(t, artist.ExtendStroke(300, 150, 400, 200))
	artist.EndStroke()

	starts := sentOf[*wire.DrawStart](ft)
	require.Len(t, starts, 1)
	assert.Equal(t, 0.5, starts[0].X)

	viewer.ApplyStarted(&wire.DrawStarted{
		RoomID: "room-1", X: starts[0].X, Y: starts[0].Y, Color: starts[0].Color})
	moves := sentOf[*wire.DrawMove](ft)
	require.Len(t, moves, 1)
	viewer.ApplyMoved(&wire.DrawMoved{RoomID: "room-1", X: moves[0].X, Y: moves[0].Y})

	// rendered on an 800×600 canvas the stroke keeps its proportions
	strokes := viewer.Strokes()
	require.Len(t, strokes, 1)
	require.Len(t, strokes[0].Points, 2)
	x, y := strokes[0].Points[0].Denormalize(800, 600)
	assert.Equal(t, 400.0, x)
	assert.Equal(t, 300.0, y)
	assert.Equal(t, "#ff0066", strokes[0].Color)
	assert.False(t, strokes[0].Mine)
}

func TestMoveWithoutStartIsDropped(t *testing.T) {
	b := NewBoard(newFakeTransport(), "room-1")
	b.ApplyMoved(&wire.DrawMoved{RoomID: "room-1", X: 0.5, Y: 0.5})
	assert.Empty(t, b.Strokes())

	// local extend without a running stroke is a no-op too
	require.NoError(t, b.ExtendStroke(10, 10, 100, 100))
	assert.Empty(t, b.Strokes())
}

func TestClearWipesBothSides(t *testing.T) {
	ft := newFakeTransport()
	b := NewBoard(ft, "room-1")

	require.NoError(t, b.StartStroke(10, 10, 100, 100, "#000"))
	b.ApplyStarted(&wire.DrawStarted{RoomID: "room-1", X: 0.1, Y: 0.1, Color: "#fff"})
	require.Len(t, b.Strokes(), 2)

	require.NoError(t, b.Clear())
	assert.Empty(t, b.Strokes())
	assert.Len(t, sentOf[*wire.DrawClear](ft), 1)

	b.ApplyStarted(&wire.DrawStarted{RoomID: "room-1", X: 0.2, Y: 0.2, Color: "#fff"})
	b.ApplyCleared(&wire.DrawCleared{RoomID: "room-1"})
	assert.Empty(t, b.Strokes())
}

func TestBoardToggleWaitsForEcho(t *testing.T) {
	ft := newFakeTransport()
	b := NewBoard(ft, "room-1")

	require.NoError(t, b.Toggle(true))
	assert.False(t, b.Open())
	b.ApplyToggled(&wire.DrawToggled{RoomID: "room-1", IsOpen: true})
	assert.True(t, b.Open())
}

func TestReactionDroppedWithoutBubble(t *testing.T) {
	ft := newFakeTransport()
	known := map[string]bool{"srv-1": true}
	o := NewOverlay(ft, "room-1", func(id string) bool { return known[id] })

	o.Apply(&wire.NewReaction{RoomID: "room-1", TargetID: "srv-1", Emoji: "🔥", Sender: "partner"})
	o.Apply(&wire.NewReaction{RoomID: "room-1", TargetID: "missing", Emoji: "🔥", Sender: "partner"})

	particles := o.Particles()
	require.Len(t, particles, 1)
	assert.Equal(t, "srv-1", particles[0].TargetID)
}

func TestParticlesExpire(t *testing.T) {
	o := NewOverlay(newFakeTransport(), "room-1", nil, WithParticleTTL(20*time.Millisecond))

	o.Apply(&wire.NewReaction{RoomID: "room-1", TargetID: "srv-1", Emoji: "✨"})
	require.Len(t, o.Particles(), 1)

	assert.Eventually(t, func() bool {
		return len(o.Particles()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestOverlaySendGoesThroughTransport(t *testing.T) {
	ft := newFakeTransport()
	o := NewOverlay(ft, "room-1", nil)

	require.NoError(t, o.Send("srv-1", "💜"))
	sends := sentOf[*wire.SendReaction](ft)
	require.Len(t, sends, 1)
	assert.Equal(t, "srv-1", sends[0].TargetID)

	// nothing renders locally until the mirror comes back
	assert.Empty(t, o.Particles())
}
