package board

import "testing"

// perft counts the leaf nodes at the given depth with make/unmake.
func perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for _, m := range moves.Slice() {
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// perftApply counts the same tree using copy-per-move.
func perftApply(p Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	for _, m := range p.GenerateLegalMoves().Slice() {
		nodes += perftApply(p.Apply(m), depth-1)
	}
	return nodes
}

type perftCase struct {
	depth    int
	expected uint64
	slow     bool
}

func runPerftCases(t *testing.T, fen string, tests []perftCase) {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}
	before := *pos

	for _, tc := range tests {
		if tc.slow && testing.Short() {
			continue
		}
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
		if *pos != before {
			t.Fatalf("perft(%d) left the position modified: %s", tc.depth, pos.ToFEN())
		}
	}
}

func TestPerftStartingPosition(t *testing.T) {
	runPerftCases(t, StartFEN, []perftCase{
		{0, 1, false},
		{1, 20, false},
		{2, 400, false},
		{3, 8902, false},
		{4, 197281, false},
		{5, 4865609, true},
	})
}

// Kiwipete exercises castling, pins and promotions in one position.
func TestPerftKiwipete(t *testing.T) {
	runPerftCases(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", []perftCase{
		{1, 48, false},
		{2, 2039, false},
		{3, 97862, false},
		{4, 4085603, true},
	})
}

// TestPerftPosition3 tests en passant edge cases.
func TestPerftPosition3(t *testing.T) {
	runPerftCases(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []perftCase{
		{1, 14, false},
		{2, 191, false},
		{3, 2812, false},
		{4, 43238, false},
		{5, 674624, true},
	})
}

func TestPerftPosition4(t *testing.T) {
	runPerftCases(t, "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []perftCase{
		{1, 6, false},
		{2, 264, false},
		{3, 9467, false},
		{4, 422333, true},
	})
}

func TestPerftPosition5(t *testing.T) {
	runPerftCases(t, "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []perftCase{
		{1, 44, false},
		{2, 1486, false},
		{3, 62379, false},
		{4, 2103487, true},
	})
}

func TestPerftPosition6(t *testing.T) {
	runPerftCases(t, "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", []perftCase{
		{1, 46, false},
		{2, 2079, false},
		{3, 89890, false},
	})
}

// TestPerftEnPassantPin tests the en passant horizontal pin edge case.
// The black pawn on e4 could capture d3 en passant, but that would expose
// the black king on a4 to the white rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.IsEnPassant() {
			t.Errorf("En passant move %v should be illegal (horizontal pin)", m)
		}
	}

	// Ka3, Ka5, Kb3, Kb4, Kb5, e3
	runPerftCases(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []perftCase{
		{1, 6, false},
		{2, 94, false},
	})
}

func TestPerftApplyMatchesMakeUnmake(t *testing.T) {
	for _, fen := range []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
	} {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("Failed to parse FEN: %v", err)
		}
		if got, want := perftApply(*pos, 3), perft(pos, 3); got != want {
			t.Errorf("%s: copy-per-move perft(3) = %d, make/unmake = %d", fen, got, want)
		}
	}
}

func BenchmarkPerftStart4(b *testing.B) {
	pos := NewPosition()
	for i := 0; i < b.N; i++ {
		perft(pos, 4)
	}
}
