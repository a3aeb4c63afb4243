package board

import (
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position. The half-move clock
// and full-move number may be omitted, as in EPD. Every failure is a
// *FENError wrapping ErrInvalidFEN.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return nil, fenError("position", fen, "need 4 to 6 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}
	if err := checkMaterial(pos); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fenError("side", parts[1], "must be w or b")
	}

	// Parse castling rights (field 2)
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	// Parse en passant square (field 3)
	if err := parseEnPassant(pos, parts[3]); err != nil {
		return nil, err
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		n, err := parseCounter("halfmove", parts[4])
		if err != nil {
			return nil, err
		}
		pos.HalfMoveClock = n
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		n, err := parseCounter("fullmove", parts[5])
		if err != nil {
			return nil, err
		}
		pos.FullMoveNumber = n
	}

	// The side that just moved cannot have left its king attacked.
	them := pos.SideToMove.Other()
	if pos.IsSquareAttacked(pos.KingSquare[them], pos.SideToMove) {
		return nil, fenError("position", "", "%s king is in check but it is %s to move",
			strings.ToLower(them.String()), strings.ToLower(pos.SideToMove.String()))
	}

	pos.Hash = pos.ComputeHash()
	pos.UpdateCheckers()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fenError("placement", placement, "need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if file > 7 {
				return fenError("placement", rankStr, "too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}

			piece := PieceFromChar(c)
			if piece == NoPiece {
				return fenError("placement", rankStr, "invalid piece character %q", c)
			}
			pos.setPiece(piece, NewSquare(file, rank))
			file++
		}

		if file != 8 {
			return fenError("placement", rankStr, "rank %d covers %d squares, want 8", rank+1, file)
		}
	}

	return nil
}

// checkMaterial enforces the piece counts a legal game can reach.
func checkMaterial(pos *Position) error {
	for c := White; c <= Black; c++ {
		name := strings.ToLower(c.String())
		if n := pos.Pieces[c][King].PopCount(); n != 1 {
			return fenError("placement", "", "%s has %d kings, want 1", name, n)
		}
		if n := pos.Pieces[c][Pawn].PopCount(); n > 8 {
			return fenError("placement", "", "%s has %d pawns, at most 8 allowed", name, n)
		}
		if n := pos.Occupied[c].PopCount(); n > 16 {
			return fenError("placement", "", "%s has %d pieces, at most 16 allowed", name, n)
		}
	}
	if (pos.Pieces[White][Pawn]|pos.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fenError("placement", "", "pawns cannot stand on rank 1 or 8")
	}
	return nil
}

// castlingHome lists the king and rook squares each castling right needs.
var castlingHome = [...]struct {
	right CastlingRights
	char  byte
	color Color
	king  Square
	rook  Square
}{
	{WhiteKingSideCastle, 'K', White, E1, H1},
	{WhiteQueenSideCastle, 'Q', White, E1, A1},
	{BlackKingSideCastle, 'k', Black, E8, H8},
	{BlackQueenSideCastle, 'q', Black, E8, A8},
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for i := 0; i < len(castling); i++ {
		found := false
		for _, h := range castlingHome {
			if castling[i] != h.char {
				continue
			}
			found = true
			if pos.CastlingRights&h.right != 0 {
				return fenError("castling", castling, "duplicate right %q", h.char)
			}
			if pos.PieceAt(h.king) != NewPiece(King, h.color) || pos.PieceAt(h.rook) != NewPiece(Rook, h.color) {
				return fenError("castling", castling, "right %q needs king on %s and rook on %s", h.char, h.king, h.rook)
			}
			pos.CastlingRights |= h.right
		}
		if !found {
			return fenError("castling", castling, "invalid castling character %q", castling[i])
		}
	}

	return nil
}

// parseEnPassant parses the en passant target and checks that a double
// push by the side not to move could have produced it.
func parseEnPassant(pos *Position, field string) error {
	if field == "-" {
		return nil
	}

	sq, err := ParseSquare(field)
	if err != nil {
		return fenError("en passant", field, "not a square")
	}

	mover := pos.SideToMove.Other()
	if sq.RelativeRank(mover) != 2 {
		want := 6
		if pos.SideToMove == Black {
			want = 3
		}
		return fenError("en passant", field, "target must be on rank %d", want)
	}
	if pos.PieceAt(pawnPush(sq, mover)) != NewPiece(Pawn, mover) {
		return fenError("en passant", field, "no %s pawn in front of the target", strings.ToLower(mover.String()))
	}
	if !pos.IsEmpty(sq) || !pos.IsEmpty(pawnBehind(sq, mover)) {
		return fenError("en passant", field, "squares passed by the double push must be empty")
	}

	pos.EnPassant = sq
	return nil
}

func parseCounter(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strings.ContainsAny(s, "+-") {
		return 0, fenError(field, s, "must be a non-negative integer")
	}
	return n, nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())

	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}
