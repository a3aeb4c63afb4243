package board

// Pre-computed attack tables. They are filled once by init and only read
// afterwards, so they are safe to share between goroutines.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]

	betweenBB [64][64]Bitboard // Squares strictly between two aligned squares
)

func init() {
	initKnightAttacks()
	initKingAttacks()
	initPawnAttacks()
	initBetween()
	initMagics()
}

func initKnightAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		attacks := Empty
		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA
		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB

		knightAttacks[sq] = attacks
	}
}

func initKingAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		attacks := bb.North() | bb.South()
		attacks |= bb.East() | bb.West()
		attacks |= bb.NorthEast() | bb.NorthWest()
		attacks |= bb.SouthEast() | bb.SouthWest()
		kingAttacks[sq] = attacks
	}
}

func initPawnAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

// initBetween fills betweenBB for every pair of squares sharing a rank,
// file or diagonal.
func initBetween() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			if sq1 == sq2 {
				continue
			}

			f1, r1 := sq1.File(), sq1.Rank()
			f2, r2 := sq2.File(), sq2.Rank()
			if f1 != f2 && r1 != r2 && abs(f2-f1) != abs(r2-r1) {
				continue
			}
			df, dr := sign(f2-f1), sign(r2-r1)

			var between Bitboard
			for f, r := f1+df, r1+dr; f != f2 || r != r2; f, r = f+df, r+dr {
				between |= SquareBB(NewSquare(f, r))
			}
			betweenBB[sq1][sq2] = between
		}
	}
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return getRookAttacks(sq, occupied)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Between returns the squares strictly between two squares.
// Returns empty if the squares are not on a common rank, file or diagonal.
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// AttackersByColor returns the pieces of color c attacking sq, given occupancy.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	return (pawnAttacks[c.Other()][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}

// IsSquareAttacked returns true if the square is attacked by the given color.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}

// UpdateCheckers recomputes the pieces giving check to the side to move.
func (p *Position) UpdateCheckers() {
	ksq := p.KingSquare[p.SideToMove]
	if ksq == NoSquare {
		p.Checkers = Empty
		return
	}
	p.Checkers = p.AttackersByColor(ksq, p.SideToMove.Other(), p.AllOccupied)
}
