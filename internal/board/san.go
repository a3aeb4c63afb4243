package board

import (
	"strings"
)

// SAN returns the Standard Algebraic Notation of a legal move in pos,
// including the check or mate suffix.
func (m Move) SAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}

	from := m.From()
	to := m.To()
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder

	switch {
	case m&FlagCastleKingside != 0:
		sb.WriteString("O-O")
	case m&FlagCastleQueenside != 0:
		sb.WriteString("O-O-O")
	default:
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(pos, m, pt))
		}
		if m.IsCapture() {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	next := pos.Apply(m)
	if next.IsCheckmate() {
		sb.WriteByte('#')
	} else if next.InCheck() {
		sb.WriteByte('+')
	}

	return sb.String()
}

// disambiguation returns the file, rank or square needed to tell m apart
// from other legal moves of the same piece type to the same square.
func disambiguation(pos *Position, m Move, pt PieceType) string {
	from := m.From()
	pieces := pos.Pieces[pos.SideToMove][pt]

	var candidates []Square
	for _, other := range pos.GenerateLegalMoves().Slice() {
		if other.To() != m.To() || other.From() == from {
			continue
		}
		if pieces.IsSet(other.From()) {
			candidates = append(candidates, other.From())
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sameFile, sameRank := false, false
	for _, sq := range candidates {
		if sq.File() == from.File() {
			sameFile = true
		}
		if sq.Rank() == from.Rank() {
			sameRank = true
		}
	}

	if !sameFile {
		return string(rune('a' + from.File()))
	}
	if !sameRank {
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}
