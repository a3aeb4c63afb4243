package board

// GenerateLegalMoves generates all legal moves for the position.
//
// Moves come out in a fixed order: pawns (pushes, double pushes, captures,
// promotions, en passant), knights, bishops, rooks, queens, king, castling.
// Legality is decided by playing each pseudo-legal move and checking the
// mover's king, so p is briefly mutated and must not be shared with other
// goroutines during the call.
func (p *Position) GenerateLegalMoves() *MoveList {
	p.mustBeValid("GenerateLegalMoves")
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	p.mustBeValid("GeneratePseudoLegalMoves")
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// generateAllMoves generates all pseudo-legal moves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	enemies := p.Occupied[them]
	targets := ^p.Occupied[us]

	p.generatePawnMoves(ml, us, enemies, occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		addMoves(ml, from, KnightAttacks(from)&targets, enemies)
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		addMoves(ml, from, BishopAttacks(from, occupied)&targets, enemies)
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		addMoves(ml, from, RookAttacks(from, occupied)&targets, enemies)
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		addMoves(ml, from, QueenAttacks(from, occupied)&targets, enemies)
	}

	// King moves
	if kingBB := p.Pieces[us][King]; kingBB != 0 {
		from := kingBB.LSB()
		addMoves(ml, from, KingAttacks(from)&targets, enemies)
	}

	p.generateCastlingMoves(ml, us)
}

// addMoves adds a move from sq to every target, flagging captures.
func addMoves(ml *MoveList, from Square, attacks, enemies Bitboard) {
	for attacks != 0 {
		to := attacks.PopLSB()
		if enemies&SquareBB(to) != 0 {
			ml.Add(NewMove(from, to, FlagCapture))
		} else {
			ml.Add(NewMove(from, to, FlagNormal))
		}
	}
}

// generatePawnMoves generates all pawn moves.
func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	// Single pushes
	nonPromo := push1 &^ promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to, FlagNormal))
	}

	// Double pushes
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to, FlagDoublePush))
	}

	// Captures. attackL moved one file west, so the origin is one file east.
	capL := attackL &^ promotionRank
	for capL != 0 {
		to := capL.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to, FlagCapture))
	}
	capR := attackR &^ promotionRank
	for capR != 0 {
		to := capR.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to, FlagCapture))
	}

	// Promotions
	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to, false)
	}
	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to, true)
	}
	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to, true)
	}

	// En passant
	if p.EnPassant != NoSquare {
		epAttackers := PawnAttacks(p.EnPassant, us.Other()) & pawns
		for epAttackers != 0 {
			from := epAttackers.PopLSB()
			ml.Add(NewMove(from, p.EnPassant, FlagEnPassant))
		}
	}
}

// addPromotions adds all four promotion moves.
func addPromotions(ml *MoveList, from, to Square, capture bool) {
	for _, pt := range PromotionTypes {
		ml.Add(NewPromotion(from, to, pt, capture))
	}
}

// castlingMove describes one castling option.
type castlingMove struct {
	right            CastlingRights
	flag             Move
	kingFrom, kingTo Square
	rookFrom, rookTo Square
	transit          Square
}

var castlingMoves = [2][2]castlingMove{
	White: {
		{WhiteKingSideCastle, FlagCastleKingside, E1, G1, H1, F1, F1},
		{WhiteQueenSideCastle, FlagCastleQueenside, E1, C1, A1, D1, D1},
	},
	Black: {
		{BlackKingSideCastle, FlagCastleKingside, E8, G8, H8, F8, F8},
		{BlackQueenSideCastle, FlagCastleQueenside, E8, C8, A8, D8, D8},
	},
}

// castlingFor returns the castling description matching a castling move.
func castlingFor(us Color, m Move) castlingMove {
	if m&FlagCastleKingside != 0 {
		return castlingMoves[us][0]
	}
	return castlingMoves[us][1]
}

// generateCastlingMoves generates castling moves. The king may not castle
// out of, through or into check; every square between king and rook must
// be empty.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	for _, cm := range castlingMoves[us] {
		if p.CastlingRights&cm.right == 0 {
			continue
		}
		if p.Pieces[us][King]&SquareBB(cm.kingFrom) == 0 || p.Pieces[us][Rook]&SquareBB(cm.rookFrom) == 0 {
			continue
		}
		if p.AllOccupied&Between(cm.kingFrom, cm.rookFrom) != 0 {
			continue
		}
		if p.IsSquareAttacked(cm.kingFrom, them) || p.IsSquareAttacked(cm.transit, them) || p.IsSquareAttacked(cm.kingTo, them) {
			continue
		}
		ml.Add(NewMove(cm.kingFrom, cm.kingTo, cm.flag))
	}
}

// filterLegalMoves keeps the moves that do not leave the mover's king attacked.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			result.Add(m)
		}
	}
	return result
}

// IsLegal returns true if the pseudo-legal move m does not leave the
// mover's king in check. It plays the move and takes it back.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(p.KingSquare[us], us.Other())
	p.UnmakeMove(m, undo)
	return !attacked
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
