package signature

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(c *Canvas, points ...Point) {
	c.Begin(points[0])
	for _, p := range points[1:] {
		c.Extend(p)
	}
	c.End()
}

func TestEmptyCanvasRasterizesToNil(t *testing.T) {
	c := NewCanvas()
	png, err := c.Rasterize()
	require.NoError(t, err)
	assert.Nil(t, png)
	assert.False(t, c.Signed())

	b64, err := c.RasterizeBase64()
	require.NoError(t, err)
	assert.Empty(t, b64)
}

func TestBareClickDoesNotCommit(t *testing.T) {
	c := NewCanvas()
	c.Begin(Point{X: 10, Y: 10})
	c.End()
	assert.False(t, c.Signed())
	assert.Equal(t, 0, c.StrokeCount())

	out, err := c.Rasterize()
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestExtendWithoutBeginIsNoop(t *testing.T) {
	c := NewCanvas()
	c.Extend(Point{X: 10, Y: 10})
	c.End()
	assert.False(t, c.Signed())
	assert.Equal(t, 0, c.StrokeCount())
}

func TestStrokeCommitFlipsSignedAndNotifies(t *testing.T) {
	c := NewCanvas()
	var events []bool
	c.OnChange(func(signed bool) { events = append(events, signed) })

	draw(c, Point{X: 10, Y: 50}, Point{X: 200, Y: 60}, Point{X: 400, Y: 40})
	assert.True(t, c.Signed())
	assert.Equal(t, 1, c.StrokeCount())
	assert.Equal(t, []bool{true}, events)

	c.Clear()
	assert.False(t, c.Signed())
	assert.Equal(t, []bool{true, false}, events)
}

func TestRasterizeIsDeterministic(t *testing.T) {
	c := NewCanvas()
	draw(c, Point{X: 20, Y: 100}, Point{X: 250, Y: 80}, Point{X: 480, Y: 120})
	draw(c, Point{X: 50, Y: 150}, Point{X: 300, Y: 140})

	first, err := c.Rasterize()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := c.Rasterize()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "rasterizar duas vezes sem desenhar deve dar bytes idênticos")
}

func TestRasterizeProducesValidPNGWithCanvasSize(t *testing.T) {
	c := NewCanvas()
	draw(c, Point{X: 10, Y: 10}, Point{X: 490, Y: 190})

	data, err := c.Rasterize()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Equal(t, DefaultHeight, img.Bounds().Dy())
}

func TestReplayMatchesDirectDrawing(t *testing.T) {
	strokes := []Stroke{
		{{X: 20, Y: 100}, {X: 250, Y: 80}, {X: 480, Y: 120}},
		{{X: 50, Y: 150}, {X: 300, Y: 140}},
	}

	direct := NewCanvas()
	for _, s := range strokes {
		draw(direct, s...)
	}
	replayed := NewCanvas()
	replayed.Replay(strokes)

	want, err := direct.Rasterize()
	require.NoError(t, err)
	got, err := replayed.Rasterize()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReplaySkipsDegenerateStrokes(t *testing.T) {
	c := NewCanvas()
	c.Replay([]Stroke{{}, {{X: 5, Y: 5}}})
	assert.False(t, c.Signed(), "traços vazios ou de um só ponto não contam")
}

func TestPairCanConfirm(t *testing.T) {
	p := NewPair()
	assert.False(t, p.CanConfirm())

	// Só o paciente assina: chega para confirmar.
	draw(p.Patient, Point{X: 10, Y: 50}, Point{X: 100, Y: 60})
	assert.True(t, p.CanConfirm())

	p.Clear()
	assert.False(t, p.CanConfirm())

	// Só o terapeuta também serve.
	draw(p.Practitioner, Point{X: 10, Y: 50}, Point{X: 100, Y: 60})
	assert.True(t, p.CanConfirm())
}
