package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestSVGStartPosition(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, board.NewPosition(), Options{Coordinates: true}))
	out := buf.String()

	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, `viewBox="0 0 480 480"`)
	assert.Equal(t, 64, strings.Count(out, "<rect"))
	assert.Equal(t, 32, strings.Count(out, "<circle"))
	assert.Contains(t, out, board.StartFEN)
	assert.Contains(t, out, ">K</text>")
	assert.Contains(t, out, ">h</text>")
	assert.Contains(t, out, ">8</text>")
}

func TestSVGHighlightAndFlip(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, pos, Options{SquareSize: 10, Highlight: []board.Square{board.E1}}))
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, highlightSquare))
	assert.Equal(t, 2, strings.Count(out, "<circle"))
	// e1 sits on the bottom row when white is at the bottom
	assert.Contains(t, out, `<rect x="40" y="70" width="10" height="10" style="fill:`+highlightSquare+`"`)

	buf.Reset()
	require.NoError(t, SVG(&buf, pos, Options{SquareSize: 10, Flipped: true, Highlight: []board.Square{board.E1}}))
	assert.Contains(t, buf.String(), `<rect x="30" y="0" width="10" height="10" style="fill:`+highlightSquare+`"`)
}

func TestPNG(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, pos, 160, Options{}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())

	// Centre of a1 (dark) and b1 (light) squares, 20px each
	r, g, b, _ := img.At(10, 150).RGBA()
	assert.InDelta(t, 0xb5, r>>8, 3)
	assert.InDelta(t, 0x88, g>>8, 3)
	assert.InDelta(t, 0x63, b>>8, 3)

	r, g, b, _ = img.At(30, 150).RGBA()
	assert.InDelta(t, 0xf0, r>>8, 3)
	assert.InDelta(t, 0xd9, g>>8, 3)
	assert.InDelta(t, 0xb5, b>>8, 3)

	// White king disc on e1
	r, g, b, _ = img.At(90, 150).RGBA()
	assert.InDelta(t, 0xff, r>>8, 3)
	assert.InDelta(t, 0xff, g>>8, 3)
	assert.InDelta(t, 0xff, b>>8, 3)
}

func TestImageRejectsTinySize(t *testing.T) {
	_, err := Image(board.NewPosition(), 4, Options{})
	assert.Error(t, err)
}
