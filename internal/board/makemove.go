package board

// MakeMove applies a move to the position and returns undo information.
// The move must be pseudo-legal for p; UnmakeMove with the returned value
// restores p exactly.
func (p *Position) MakeMove(m Move) UndoInfo {
	p.mustBeValid("MakeMove")

	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		SideToMove:     p.SideToMove,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		FullMoveNumber: p.FullMoveNumber,
		Hash:           p.Hash,
		Checkers:       p.Checkers,
		KingSquare:     p.KingSquare,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece || piece.Color() != us {
		if DebugMoveValidation {
			panic(&PreconditionError{Op: "MakeMove", Err: ErrIllegalMove})
		}
		return undo
	}
	pt := piece.Type()

	// Side to move, old castling rights and old en passant leave the key
	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	// Captures
	if m.IsEnPassant() {
		capturedSq := pawnBehind(to, us)
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
	}

	p.movePiece(piece, from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
	}

	if m.IsCastling() {
		cm := castlingFor(us, m)
		p.movePiece(NewPiece(Rook, us), cm.rookFrom, cm.rookTo)
		p.Hash ^= zobristPiece[us][Rook][cm.rookFrom]
		p.Hash ^= zobristPiece[us][Rook][cm.rookTo]
	}

	// Castling rights: king moves, and any move from or to a rook home square
	if pt == King {
		p.CastlingRights &^= castleRight(us, true) | castleRight(us, false)
	}
	p.CastlingRights &^= castlingLoss(from) | castlingLoss(to)
	p.Hash ^= zobristCastling[p.CastlingRights]

	if m.IsDoublePush() {
		p.EnPassant = pawnPush(from, us)
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()

	return undo
}

// castlingLoss returns the rights lost when a piece leaves or lands on sq.
func castlingLoss(sq Square) CastlingRights {
	switch sq {
	case A1:
		return WhiteQueenSideCastle
	case H1:
		return WhiteKingSideCastle
	case A8:
		return BlackQueenSideCastle
	case H8:
		return BlackKingSideCastle
	}
	return NoCastling
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	p.SideToMove = undo.SideToMove
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.FullMoveNumber = undo.FullMoveNumber
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
}

// Apply returns the position after m, leaving p untouched.
func (p *Position) Apply(m Move) Position {
	next := *p
	next.MakeMove(m)
	return next
}
