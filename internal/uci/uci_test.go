package uci

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

// session feeds script to a fresh interpreter and returns its output.
func session(t *testing.T, script ...string) (string, *UCI) {
	t.Helper()
	var out bytes.Buffer
	u := New(strings.NewReader(strings.Join(script, "\n")+"\n"), &out, Config{Threads: 2})
	require.NoError(t, u.Run(context.Background()))
	return out.String(), u
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestHandshake(t *testing.T) {
	out, _ := session(t, "uci", "isready")
	got := lines(out)
	assert.Equal(t, "id name chesscore", got[0])
	assert.Contains(t, out, "option name Threads type spin")
	assert.Contains(t, out, "option name Hash type spin")
	assert.Equal(t, "uciok", got[len(got)-2])
	assert.Equal(t, "readyok", got[len(got)-1])
}

func TestGoPerftBeforePosition(t *testing.T) {
	// No position command: the start position is used.
	out, _ := session(t, "go perft 2")
	got := lines(out)
	require.Len(t, got, 22)
	assert.Equal(t, "a2a3: 20", got[0])
	assert.Equal(t, "", got[20])
	assert.Equal(t, "Nodes searched: 400", got[21])
}

func TestGoPerftDivideOrder(t *testing.T) {
	out, u := session(t, "position startpos", "go perft 1")
	got := lines(out)
	require.Len(t, got, 22)

	legal := u.Position().GenerateLegalMoves().Slice()
	for i, m := range legal {
		assert.Equal(t, m.String()+": 1", got[i])
	}
	assert.Equal(t, "Nodes searched: 20", got[21])
}

func TestGoPerftDepthZero(t *testing.T) {
	out, _ := session(t, "position startpos", "go perft 0")
	assert.Equal(t, "Nodes searched: 1\n", out)
}

func TestGoPerftBadDepth(t *testing.T) {
	out, _ := session(t, "go perft -1", "go perft x", "go perft", "isready")
	got := lines(out)
	require.Len(t, got, 4)
	assert.True(t, strings.HasPrefix(got[0], "info string go perft: "), got[0])
	assert.Contains(t, got[1], `invalid depth "x"`)
	assert.Contains(t, got[2], "missing depth")
	assert.Equal(t, "readyok", got[3])
}

func TestGoPerftInlineFEN(t *testing.T) {
	out, u := session(t,
		"go perft 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1 2",
		"go perft 1",
	)
	assert.Contains(t, out, "Nodes searched: 191\n")
	assert.Contains(t, out, "Nodes searched: 20\n")
	assert.Equal(t, board.StartFEN, u.Position().ToFEN(), "inline FEN must not replace the position")
}

func TestPositionFEN(t *testing.T) {
	const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	out, u := session(t, "position fen "+kiwipete, "go perft 2")
	assert.Contains(t, out, "Nodes searched: 2039\n")
	assert.Equal(t, kiwipete, u.Position().ToFEN())
}

func TestPositionWithMoves(t *testing.T) {
	_, u := session(t, "position startpos moves e2e4 e7e5 g1f3")
	assert.Equal(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2", u.Position().ToFEN())

	_, u = session(t, "position fen 4k3/P7/8/8/8/8/8/4K3 w - - 0 1 moves a7a8n")
	assert.Equal(t, board.WhiteKnight, u.Position().PieceAt(board.A8))
}

func TestPositionErrorsKeepPrevious(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4K2R w K - 0 1"
	tests := []struct {
		name    string
		command string
		message string
	}{
		{"bad placement", "position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1", "invalid FEN placement"},
		{"bad side", "position fen 4k3/8/8/8/8/8/8/4K3 x - - 0 1", "invalid FEN side"},
		{"illegal move", "position startpos moves e2e5", "illegal move"},
		{"bad keyword", "position middlegame", "expected startpos or fen"},
		{"missing argument", "position", "missing startpos or fen"},
		{"trailing junk", "position startpos e2e4", "unexpected"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, u := session(t, "position fen "+fen, tc.command)
			assert.Contains(t, out, "info string ")
			assert.Contains(t, out, tc.message)
			assert.Equal(t, fen, u.Position().ToFEN())
		})
	}
}

func TestUnknownCommands(t *testing.T) {
	out, _ := session(t, "xyzzy", "go depth 10", "isready")
	got := lines(out)
	require.Len(t, got, 3)
	assert.Equal(t, "info string unknown command xyzzy", got[0])
	assert.Contains(t, got[1], "unsupported go command")
	assert.Equal(t, "readyok", got[2])
}

func TestQuitStopsReading(t *testing.T) {
	out, _ := session(t, "isready", "quit", "isready")
	assert.Equal(t, "readyok\n", out)
}

func TestDisplayAndNewGame(t *testing.T) {
	out, u := session(t, "position startpos moves e2e4", "ucinewgame", "d")
	assert.Contains(t, out, "Fen: "+board.StartFEN)
	assert.Equal(t, board.StartFEN, u.Position().ToFEN())
}

func TestSetOption(t *testing.T) {
	t.Cleanup(func() { board.DebugMoveValidation = false })

	out, u := session(t,
		"setoption name Threads value 3",
		"setoption name Hash value 1",
		"setoption name Threads value 0",
		"setoption name Hash value lots",
		"setoption name Debug value true",
		"setoption name Ponder value true",
		"go perft 3",
	)
	assert.Equal(t, 3, u.driver.Workers())
	assert.NotNil(t, u.driver.HashTable())
	assert.True(t, board.DebugMoveValidation)
	assert.Contains(t, out, `invalid Threads value "0"`)
	assert.Contains(t, out, `invalid Hash value "lots"`)
	assert.Contains(t, out, "Debug mode enabled")
	assert.Contains(t, out, `unknown option "Ponder"`)
	assert.Contains(t, out, "Nodes searched: 8902\n")
}

func TestPerftCommand(t *testing.T) {
	out, _ := session(t, "perft 3")
	assert.Contains(t, out, "Nodes: 8902\n")
	assert.Contains(t, out, "Time: ")
	assert.NotContains(t, out, "hashfull", "no table, no table stats")
}

func TestPerftCommandHashStats(t *testing.T) {
	// The second run finds the root children stored by the first.
	out, _ := session(t, "setoption name Hash value 1", "perft 4", "perft 4")
	assert.Equal(t, 2, strings.Count(out, "Nodes: 197281\n"))

	var hashfull int
	var hitrate float64
	found := false
	for _, line := range lines(out) {
		if _, err := fmt.Sscanf(line, "info string hashfull %d hitrate %f", &hashfull, &hitrate); err == nil {
			found = true
		}
	}
	require.True(t, found, out)
	assert.Greater(t, hashfull, 0)
	assert.LessOrEqual(t, hashfull, 1000)
	assert.Greater(t, hitrate, 0.0)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	u := New(strings.NewReader("isready\n"), &out, Config{})
	assert.ErrorIs(t, u.Run(ctx), context.Canceled)
	assert.Empty(t, out.String())
}
