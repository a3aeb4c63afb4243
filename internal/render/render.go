// Package render draws board diagrams as SVG and PNG.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/hailam/chesscore/internal/board"
)

const (
	lightSquare     = "#f0d9b5"
	darkSquare      = "#b58863"
	highlightSquare = "#cdd26a"
)

// Options controls the diagram layout.
type Options struct {
	SquareSize  int            // pixels per square in the SVG, 0 means 60
	Flipped     bool           // black at the bottom
	Highlight   []board.Square // squares to tint, e.g. the last move
	Coordinates bool           // file letters and rank numbers
	noText      bool
}

func (o Options) squareSize() int {
	if o.SquareSize <= 0 {
		return 60
	}
	return o.SquareSize
}

// pieceRadius scales the piece disc by piece type, as a fraction of a square.
var pieceRadius = [6]float64{
	board.Pawn:   0.26,
	board.Knight: 0.33,
	board.Bishop: 0.33,
	board.Rook:   0.35,
	board.Queen:  0.39,
	board.King:   0.42,
}

// squareOrigin returns the top-left pixel of sq.
func squareOrigin(sq board.Square, size int, flipped bool) (int, int) {
	col, row := sq.File(), 7-sq.Rank()
	if flipped {
		col, row = 7-col, 7-row
	}
	return col * size, row * size
}

// SVG writes a diagram of pos.
func SVG(w io.Writer, pos *board.Position, opts Options) error {
	var buf bytes.Buffer
	writeSVG(&buf, pos, opts)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeSVG(w io.Writer, pos *board.Position, opts Options) {
	size := opts.squareSize()
	total := 8 * size

	highlighted := make(map[board.Square]bool, len(opts.Highlight))
	for _, sq := range opts.Highlight {
		highlighted[sq] = true
	}

	canvas := svg.New(w)
	canvas.Startview(total, total, 0, 0, total, total)
	if !opts.noText {
		canvas.Title(pos.ToFEN())
	}

	canvas.Gid("squares")
	for sq := board.A1; sq <= board.H8; sq++ {
		x, y := squareOrigin(sq, size, opts.Flipped)
		fill := lightSquare
		if (sq.File()+sq.Rank())%2 == 0 {
			fill = darkSquare
		}
		if highlighted[sq] {
			fill = highlightSquare
		}
		canvas.Rect(x, y, size, size, "fill:"+fill)
	}
	canvas.Gend()

	canvas.Gid("pieces")
	for sq := board.A1; sq <= board.H8; sq++ {
		piece := pos.PieceAt(sq)
		if piece == board.NoPiece {
			continue
		}
		x, y := squareOrigin(sq, size, opts.Flipped)
		cx, cy := x+size/2, y+size/2
		r := int(pieceRadius[piece.Type()] * float64(size))

		fill, ink := "#ffffff", "#000000"
		if piece.Color() == board.Black {
			fill, ink = "#222222", "#ffffff"
		}
		canvas.Circle(cx, cy, r, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", fill, ink, max(1, size/30)))
		if !opts.noText {
			canvas.Text(cx, cy+size/8, string(piece.Type().Char()-'a'+'A'),
				fmt.Sprintf("fill:%s;font-family:sans-serif;font-size:%dpx;text-anchor:middle", ink, size*2/5))
		}
	}
	canvas.Gend()

	if opts.Coordinates && !opts.noText {
		canvas.Gstyle(fmt.Sprintf("font-family:sans-serif;font-size:%dpx;fill:#555555", size/5))
		for i := 0; i < 8; i++ {
			file := board.NewSquare(i, 0)
			rank := board.NewSquare(0, i)
			if opts.Flipped {
				file = board.NewSquare(i, 7)
				rank = board.NewSquare(7, i)
			}
			fx, fy := squareOrigin(file, size, opts.Flipped)
			canvas.Text(fx+size-size/8, fy+size-size/12, string(rune('a'+i)))
			rx, ry := squareOrigin(rank, size, opts.Flipped)
			canvas.Text(rx+size/12, ry+size/4, string(rune('1'+i)))
		}
		canvas.Gend()
	}

	canvas.End()
}

// renderScale is the supersampling factor used before scaling down to
// the requested PNG size.
const renderScale = 2

// Image rasterizes a size x size diagram of pos.
func Image(pos *board.Position, size int, opts Options) (image.Image, error) {
	if size < 8 {
		return nil, fmt.Errorf("render: image size %d too small", size)
	}

	// oksvg does not draw text, so the raster diagram is shapes only.
	opts.noText = true
	var buf bytes.Buffer
	writeSVG(&buf, pos, opts)

	icon, err := oksvg.ReadIconStream(&buf)
	if err != nil {
		return nil, fmt.Errorf("render: parse diagram: %w", err)
	}

	renderSize := size * renderScale
	icon.SetTarget(0, 0, float64(renderSize), float64(renderSize))

	rgba := image.NewRGBA(image.Rect(0, 0, renderSize, renderSize))
	scanner := rasterx.NewScannerGV(renderSize, renderSize, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(renderSize, renderSize, scanner)
	icon.Draw(raster, 1.0)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), rgba, rgba.Bounds(), draw.Over, nil)
	return dst, nil
}

// PNG writes a size x size PNG diagram of pos.
func PNG(w io.Writer, pos *board.Position, size int, opts Options) error {
	img, err := Image(pos, size, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
