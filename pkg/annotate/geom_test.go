package annotate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRect(t *testing.T) {
	r := NormalizeRect(Rect{0.4, 0.9, 0.1, 0.2})
	require.Equal(t, Rect{0.1, 0.2, 0.4, 0.9}, r)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		r := Rect{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		once := NormalizeRect(r)
		require.Equal(t, once, NormalizeRect(once))
		require.LessOrEqual(t, once.X1, once.X2)
		require.LessOrEqual(t, once.Y1, once.Y2)
	}
}

func TestClampAndContains(t *testing.T) {
	require.Equal(t, 0.0, Clamp(-1, 0, 1))
	require.Equal(t, 1.0, Clamp(2, 0, 1))
	require.Equal(t, 0.5, Clamp(0.5, 0, 1))

	r := Rect{0.2, 0.2, 0.4, 0.4}
	require.True(t, r.Contains(Point{0.2, 0.2}))
	require.True(t, r.Contains(Point{0.4, 0.4}))
	require.True(t, r.Contains(Point{0.3, 0.3}))
	require.False(t, r.Contains(Point{0.41, 0.3}))

	require.Equal(t, Rect{0, 0.1, 1, 1}, Rect{1.5, 0.1, -0.5, 3}.Clamped())
}

func TestNearHandle(t *testing.T) {
	r := Rect{0.2, 0.2, 0.4, 0.4}
	// 1000x1000 overlay: corners at 200 and 400 px, edge midpoints at 300 px
	near := func(x, y, zoom float64) Handle {
		return NearHandle(Point{x / 1000, y / 1000}, r, 1000, 1000, 10, zoom)
	}
	require.Equal(t, HandleNW, near(200, 200, 1))
	require.Equal(t, HandleNE, near(405, 195, 1))
	require.Equal(t, HandleSW, near(200, 400, 1))
	require.Equal(t, HandleSE, near(409, 409, 1))
	require.Equal(t, HandleN, near(300, 200, 1))
	require.Equal(t, HandleS, near(300, 400, 1))
	require.Equal(t, HandleW, near(200, 300, 1))
	require.Equal(t, HandleE, near(400, 300, 1))
	require.Equal(t, HandleNone, near(300, 300, 1))
	require.Equal(t, HandleNone, near(415, 415, 1))

	// At zoom 2, the tolerance shrinks to 5 overlay pixels
	require.Equal(t, HandleSE, near(404, 404, 2))
	require.Equal(t, HandleNone, near(408, 408, 2))
	// At zoom 0.5, it grows to 20
	require.Equal(t, HandleSE, near(418, 418, 0.5))

	// Unknown overlay size
	require.Equal(t, HandleNone, NearHandle(Point{0.2, 0.2}, r, 0, 0, 10, 1))
}

func TestNearHandleCornersWinOverEdges(t *testing.T) {
	// A tiny box: every handle is within tolerance of every other
	r := Rect{0.5, 0.5, 0.502, 0.502}
	h := NearHandle(Point{0.501, 0.501}, r, 1000, 1000, 10, 1)
	require.Equal(t, HandleNW, h)
}

func TestHandleEdges(t *testing.T) {
	require.True(t, HandleNE.MovesRight())
	require.True(t, HandleNE.MovesTop())
	require.False(t, HandleNE.MovesLeft())
	require.False(t, HandleNE.MovesBottom())
	require.True(t, HandleW.MovesLeft())
	require.False(t, HandleW.MovesTop())
	require.False(t, HandleNone.MovesLeft() || HandleNone.MovesRight() || HandleNone.MovesTop() || HandleNone.MovesBottom())
	require.Equal(t, "se", HandleSE.String())
}
