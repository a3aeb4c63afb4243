package board

import (
	"errors"
	"fmt"
)

// Move encodes a chess move in 32 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-14: promotion piece type (Knight..Queen, 0 when not promoting)
// bits 16-21: flags (capture, double push, en passant, castles, promotion)
type Move uint32

// Move flags. A move with none of them set is a quiet move.
const (
	FlagNormal          Move = 0
	FlagCapture         Move = 1 << 16
	FlagDoublePush      Move = 1 << 17
	FlagEnPassant       Move = 1 << 18
	FlagCastleKingside  Move = 1 << 19
	FlagCastleQueenside Move = 1 << 20
	FlagPromotion       Move = 1 << 21

	flagMask  Move = 0x3F << 16
	promoMask Move = 0x7 << 12
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// ErrIllegalMove is returned when a move string does not name a legal move.
var ErrIllegalMove = errors.New("illegal move")

// NewMove creates a move with the given flags.
func NewMove(from, to Square, flags Move) Move {
	return Move(from) | Move(to)<<6 | flags&flagMask
}

// NewPromotion creates a promotion move, optionally a capturing one.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	m := Move(from) | Move(to)<<6 | Move(promo)<<12 | FlagPromotion
	if capture {
		m |= FlagCapture
	}
	return m
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return PieceType((m & promoMask) >> 12)
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m&FlagPromotion != 0
}

// IsCapture returns true if this move captures a piece, en passant included.
func (m Move) IsCapture() bool {
	return m&(FlagCapture|FlagEnPassant) != 0
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m&FlagEnPassant != 0
}

// IsDoublePush returns true if this is a two-square pawn advance.
func (m Move) IsDoublePush() bool {
	return m&FlagDoublePush != 0
}

// IsCastling returns true if this is a castling move (king's movement).
func (m Move) IsCastling() bool {
	return m&(FlagCastleKingside|FlagCastleQueenside) != 0
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// FlagNames returns readable names of the move's flags.
func (m Move) FlagNames() []string {
	var names []string
	if m&FlagCapture != 0 {
		names = append(names, "capture")
	}
	if m&FlagDoublePush != 0 {
		names = append(names, "double-push")
	}
	if m&FlagEnPassant != 0 {
		names = append(names, "en-passant")
	}
	if m&FlagCastleKingside != 0 {
		names = append(names, "castle-kingside")
	}
	if m&FlagCastleQueenside != 0 {
		names = append(names, "castle-queenside")
	}
	if m&FlagPromotion != 0 {
		names = append(names, "promotion")
	}
	if len(names) == 0 {
		names = append(names, "normal")
	}
	return names
}

// ParseMove resolves a UCI move string against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	promo := NoPieceType
	if len(s) == 5 {
		promo = PieceTypeFromChar(s[4])
		if promo == NoPieceType {
			return NoMove, fmt.Errorf("%w: invalid promotion piece %q", ErrIllegalMove, s[4])
		}
	}

	moves := pos.GenerateLegalMoves()
	for _, m := range moves.Slice() {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores everything MakeMove changes, so UnmakeMove can restore
// the position exactly.
type UndoInfo struct {
	CapturedPiece  Piece
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int
	Hash           uint64
	Checkers       Bitboard
	KingSquare     [2]Square
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
}
