package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t testing.TB, fen string) *Position {
	t.Helper()
	pos, err := ParseFEN(fen)
	require.NoError(t, err, fen)
	return pos
}

func mustMove(t testing.TB, pos *Position, uci string) Move {
	t.Helper()
	m, err := ParseMove(uci, pos)
	require.NoError(t, err, uci)
	return m
}

// walkRestore plays every legal move to the given depth and checks that
// each unmake restores the exact position and the incremental hash.
func walkRestore(t *testing.T, pos *Position, depth int) {
	if depth == 0 {
		return
	}
	for _, m := range pos.GenerateLegalMoves().Slice() {
		before := *pos
		fen := pos.ToFEN()

		undo := pos.MakeMove(m)
		if pos.Hash != pos.ComputeHash() {
			t.Fatalf("%s after %s: incremental hash %x, recomputed %x", fen, m, pos.Hash, pos.ComputeHash())
		}
		if pos.IsSquareAttacked(pos.KingSquare[before.SideToMove], pos.SideToMove) {
			t.Fatalf("%s: legal move %s leaves the king in check", fen, m)
		}
		walkRestore(t, pos, depth-1)
		pos.UnmakeMove(m, undo)

		if *pos != before {
			t.Fatalf("%s: unmake of %s gave %s", fen, m, pos.ToFEN())
		}
	}
}

func TestMakeUnmakeRestores(t *testing.T) {
	for _, fen := range []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	} {
		walkRestore(t, mustParse(t, fen), 3)
	}
}

func TestMakeMoveUpdatesState(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		moves []string
		want  string
	}{
		{
			name:  "double push sets en passant",
			fen:   StartFEN,
			moves: []string{"e2e4"},
			want:  "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		},
		{
			name:  "full move after black",
			fen:   StartFEN,
			moves: []string{"g1f3", "g8f6"},
			want:  "rnbqkb1r/pppppppp/5n2/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 2 2",
		},
		{
			name:  "en passant capture removes pawn",
			fen:   "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
			moves: []string{"e5f6"},
			want:  "rnbqkbnr/ppp1p1pp/5P2/3p4/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3",
		},
		{
			name:  "kingside castling moves rook",
			fen:   "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
			moves: []string{"e1g1"},
			want:  "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1",
		},
		{
			name:  "queenside castling moves rook",
			fen:   "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1",
			moves: []string{"e8c8"},
			want:  "2kr3r/8/8/8/8/8/8/R3K2R w KQ - 1 2",
		},
		{
			name:  "rook move drops one right",
			fen:   "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
			moves: []string{"a1b1"},
			want:  "r3k2r/8/8/8/8/8/8/1R2K2R b Kkq - 1 1",
		},
		{
			name:  "capturing rook on home square drops right",
			fen:   "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
			moves: []string{"h1h8"},
			want:  "r3k2R/8/8/8/8/8/8/R3K3 b Qq - 0 1",
		},
		{
			name:  "promotion replaces pawn",
			fen:   "8/P6k/8/8/8/8/8/K7 w - - 0 1",
			moves: []string{"a7a8n"},
			want:  "N7/7k/8/8/8/8/8/K7 b - - 0 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParse(t, tc.fen)
			for _, uci := range tc.moves {
				pos.MakeMove(mustMove(t, pos, uci))
			}
			assert.Equal(t, tc.want, pos.ToFEN())
			assert.Equal(t, pos.ComputeHash(), pos.Hash)
			assert.Equal(t, *mustParse(t, tc.want), *pos)
		})
	}
}

func TestApplyLeavesReceiverUntouched(t *testing.T) {
	pos := NewPosition()
	before := *pos

	next := pos.Apply(mustMove(t, pos, "e2e4"))
	assert.Equal(t, before, *pos)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", next.ToFEN())
}

func TestPromotionsExpandToFour(t *testing.T) {
	pos := mustParse(t, "1n5k/P7/8/8/8/8/8/K7 w - - 0 1")

	var pushes, captures []PieceType
	for _, m := range pos.GenerateLegalMoves().Slice() {
		if !m.IsPromotion() {
			continue
		}
		if m.IsCapture() {
			captures = append(captures, m.Promotion())
		} else {
			pushes = append(pushes, m.Promotion())
		}
	}
	want := []PieceType{Queen, Rook, Bishop, Knight}
	assert.Equal(t, want, pushes)
	assert.Equal(t, want, captures)
}

func TestCastlingRules(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		ok   bool
	}{
		{"both sides open", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", true},
		{"in check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", "e1g1", false},
		{"through check", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", "e1g1", false},
		{"into check", "r3k2r/8/8/8/8/8/6r1/R3K2R w KQkq - 0 1", "e1g1", false},
		{"b-file attack does not matter", "r3k2r/8/8/8/8/8/1r6/R3K2R w KQkq - 0 1", "e1c1", true},
		{"blocked b1", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", "e1c1", false},
		{"no right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", "e1g1", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParse(t, tc.fen)
			_, err := ParseMove(tc.move, pos)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrIllegalMove)
			}
		})
	}
}

func TestParseMove(t *testing.T) {
	pos := NewPosition()

	m := mustMove(t, pos, "e2e4")
	assert.Equal(t, E2, m.From())
	assert.Equal(t, E4, m.To())
	assert.True(t, m.IsDoublePush())
	assert.Equal(t, []string{"double-push"}, m.FlagNames())

	for _, bad := range []string{"", "e2", "e2e5", "e7e5", "i2i4", "e2e4x", "e1g1"} {
		_, err := ParseMove(bad, pos)
		assert.ErrorIs(t, err, ErrIllegalMove, bad)
	}

	promo := mustParse(t, "8/P6k/8/8/8/8/8/K7 w - - 0 1")
	_, err := ParseMove("a7a8", promo)
	assert.ErrorIs(t, err, ErrIllegalMove, "promotion without piece")
	m = mustMove(t, promo, "a7a8r")
	assert.Equal(t, Rook, m.Promotion())
	assert.Equal(t, "a7a8r", m.String())
}

func TestMoveStrings(t *testing.T) {
	assert.Equal(t, "0000", NoMove.String())
	assert.Equal(t, "e1g1", NewMove(E1, G1, FlagCastleKingside).String())
	assert.Equal(t, "b7a8n", NewPromotion(B7, A8, Knight, true).String())
	assert.Equal(t, []string{"capture", "promotion"}, NewPromotion(B7, A8, Knight, true).FlagNames())
	assert.Equal(t, []string{"normal"}, NewMove(G1, F3, FlagNormal).FlagNames())
}
