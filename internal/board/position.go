package board

import (
	"errors"
	"fmt"
	"strings"
)

// DebugMoveValidation makes move generation and application verify the
// position first and panic with a *PreconditionError when it is corrupt.
var DebugMoveValidation = false

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

func castleRight(c Color, kingSide bool) CastlingRights {
	switch {
	case c == White && kingSide:
		return WhiteKingSideCastle
	case c == White:
		return WhiteQueenSideCastle
	case kingSide:
		return BlackKingSideCastle
	default:
		return BlackQueenSideCastle
	}
}

// Position represents a complete chess position. It is a plain value:
// copying it yields an independent position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards (cached)
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Plies since last pawn move or capture
	FullMoveNumber int    // Starts at 1, incremented after Black moves

	// Zobrist key, maintained incrementally
	Hash uint64

	// King positions (cached for check detection)
	KingSquare [2]Square

	// Pieces giving check to the side to move
	Checkers Bitboard
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// setPiece places a piece on an empty square (does not update hash).
func (p *Position) setPiece(piece Piece, sq Square) {
	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes whatever stands on sq (does not update hash).
func (p *Position) removePiece(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}

	c := piece.Color()
	bb := SquareBB(sq)
	p.Pieces[c][piece.Type()] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	return piece
}

// movePiece moves a piece to an empty square (does not update hash).
func (p *Position) movePiece(piece Piece, from, to Square) {
	c := piece.Color()
	pt := piece.Type()
	moveBB := SquareBB(from) | SquareBB(to)

	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB

	if pt == King {
		p.KingSquare[c] = to
	}
}

// String returns a diagram of the position followed by its state fields.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(" |")
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			sb.WriteByte(' ')
			if piece == NoPiece {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(piece.String())
			}
			sb.WriteString(" |")
		}
		fmt.Fprintf(&sb, " %d\n +---+---+---+---+---+---+---+---+\n", rank+1)
	}
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Key: %016X\n", p.Hash)
	sb.WriteString("Checkers:")
	for _, sq := range p.Checkers.Squares() {
		sb.WriteByte(' ')
		sb.WriteString(sq.String())
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Validate checks the structural invariants the move generator relies on.
func (p *Position) Validate() error {
	var seen Bitboard
	for c := White; c <= Black; c++ {
		var union Bitboard
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			if seen&bb != 0 {
				return fmt.Errorf("%s %s bitboard overlaps another piece", c, pt)
			}
			seen |= bb
			union |= bb
		}
		if union != p.Occupied[c] {
			return fmt.Errorf("%s occupancy out of sync with piece bitboards", c)
		}
		if p.Pieces[c][King].PopCount() != 1 {
			return fmt.Errorf("%s must have exactly one king", strings.ToLower(c.String()))
		}
		if p.KingSquare[c] != p.Pieces[c][King].LSB() {
			return fmt.Errorf("%s king square cache is stale", strings.ToLower(c.String()))
		}
	}
	if seen != p.AllOccupied {
		return errors.New("combined occupancy out of sync with piece bitboards")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return errors.New("pawns cannot be on rank 1 or 8")
	}
	if p.SideToMove > Black {
		return errors.New("side to move out of range")
	}
	if p.EnPassant != NoSquare && !p.EnPassant.IsValid() {
		return errors.New("en passant square out of range")
	}
	return nil
}

// mustBeValid panics with a *PreconditionError when debug validation is on
// and the position is corrupt.
func (p *Position) mustBeValid(op string) {
	if !DebugMoveValidation {
		return
	}
	if err := p.Validate(); err != nil {
		panic(&PreconditionError{Op: op, Err: err})
	}
}
