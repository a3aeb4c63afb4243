// Package uci implements the text command interpreter: position setup and
// perft over a UCI-style line protocol.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
)

// Defaults reported by the "uci" command.
const (
	DefaultHashMB  = 16
	MaxHashMB      = 4096
	MaxThreads     = 256
	defaultPerftTo = 5
)

// Config holds the settings a UCI session starts with.
type Config struct {
	Threads int               // root-move workers, 0 means one per CPU
	HashMB  int               // perft hash table size, 0 disables it
	Store   perft.ResultStore // optional persistent results
}

// UCI implements the command interpreter.
type UCI struct {
	in  io.Reader
	out io.Writer

	position *board.Position
	driver   *perft.Driver
	cfg      Config
}

// New creates an interpreter reading commands from in and writing replies
// to out. The current position starts as the standard starting position.
func New(in io.Reader, out io.Writer, cfg Config) *UCI {
	u := &UCI{
		in:       in,
		out:      out,
		position: board.NewPosition(),
		cfg:      cfg,
	}
	u.rebuildDriver()
	return u
}

// Position returns a copy of the current position.
func (u *UCI) Position() *board.Position {
	return u.position.Copy()
}

func (u *UCI) rebuildDriver() {
	opts := []perft.Option{
		perft.WithHashTable(u.cfg.HashMB),
		perft.WithStore(u.cfg.Store),
	}
	if u.cfg.Threads > 0 {
		opts = append(opts, perft.WithWorkers(u.cfg.Threads))
	}
	u.driver = perft.NewDriver(opts...)
}

func (u *UCI) println(a ...any) {
	fmt.Fprintln(u.out, a...)
}

func (u *UCI) printf(format string, a ...any) {
	fmt.Fprintf(u.out, format, a...)
}

func (u *UCI) infof(format string, a ...any) {
	fmt.Fprintf(u.out, "info string "+format+"\n", a...)
}

// Run reads commands until quit, end of input or ctx is done.
func (u *UCI) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(u.in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(ctx, args)
		case "setoption":
			u.handleSetOption(args)
		case "quit":
			return nil
		// Debug commands
		case "d":
			u.println(u.position.String())
		case "perft":
			u.handlePerft(ctx, args)
		default:
			u.infof("unknown command %s", cmd)
		}
	}
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name chesscore")
	u.println("id author chesscore developers")
	u.println()
	u.printf("option name Hash type spin default %d min 0 max %d\n", DefaultHashMB, MaxHashMB)
	u.printf("option name Threads type spin default %d min 1 max %d\n", u.driver.Workers(), MaxThreads)
	u.println("option name Debug type check default false")
	u.println("uciok")
}

// handleNewGame resets the position and clears the hash table.
func (u *UCI) handleNewGame() {
	u.position = board.NewPosition()
	if ht := u.driver.HashTable(); ht != nil {
		ht.Clear()
	}
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// On any error the previous position is kept.
func (u *UCI) handlePosition(args []string) {
	pos, err := parsePosition(args)
	if err != nil {
		u.infof("%v", err)
		return
	}
	u.position = pos

	if board.DebugMoveValidation {
		if err := pos.Validate(); err != nil {
			u.infof("DEBUG: %v", err)
		}
		u.infof("DEBUG: position key=%016X inCheck=%v legal=%d",
			pos.Hash, pos.InCheck(), pos.GenerateLegalMoves().Len())
	}
}

func parsePosition(args []string) (*board.Position, error) {
	if len(args) == 0 {
		return nil, errors.New("position: missing startpos or fen")
	}

	// Find "moves" keyword
	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		if movesAt != 1 {
			return nil, fmt.Errorf("position: unexpected %q after startpos", args[1])
		}
		pos = board.NewPosition()
	case "fen":
		fen := strings.Join(args[1:movesAt], " ")
		p, err := board.ParseFEN(fen)
		if err != nil {
			return nil, err
		}
		pos = p
	default:
		return nil, fmt.Errorf("position: expected startpos or fen, got %q", args[0])
	}

	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := board.ParseMove(s, pos)
			if err != nil {
				return nil, err
			}
			pos.MakeMove(m)
		}
	}
	return pos, nil
}

// handleGo handles "go perft [fen] <depth>". Search is not supported.
func (u *UCI) handleGo(ctx context.Context, args []string) {
	if len(args) == 0 || args[0] != "perft" {
		u.infof("unsupported go command: only go perft is available")
		return
	}
	args = args[1:]
	if len(args) == 0 {
		u.infof("go perft: missing depth")
		return
	}

	depth, err := parseDepth(args[len(args)-1])
	if err != nil {
		u.infof("go perft: %v", err)
		return
	}

	pos := u.position
	if len(args) > 1 {
		// An inline FEN does not replace the current position.
		p, err := board.ParseFEN(strings.Join(args[:len(args)-1], " "))
		if err != nil {
			u.infof("%v", err)
			return
		}
		pos = p
	}

	res, err := u.driver.Run(ctx, pos, depth)
	if err != nil {
		u.infof("go perft: %v", err)
		return
	}

	for _, e := range res.Divide {
		u.printf("%s: %d\n", e.Move, e.Nodes)
	}
	if len(res.Divide) > 0 {
		u.println()
	}
	u.printf("Nodes searched: %d\n", res.Nodes)
}

func parseDepth(s string) (int, error) {
	depth, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid depth %q", s)
	}
	if depth < 0 {
		return 0, fmt.Errorf("%w: %d", perft.ErrNegativeDepth, depth)
	}
	return depth, nil
}

// handleSetOption handles "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 0 || mb > MaxHashMB {
			u.infof("invalid Hash value %q", value)
			return
		}
		u.cfg.HashMB = mb
		u.rebuildDriver()
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > MaxThreads {
			u.infof("invalid Threads value %q", value)
			return
		}
		u.cfg.Threads = n
		u.rebuildDriver()
	case "debug":
		enabled := strings.ToLower(value) == "true"
		board.DebugMoveValidation = enabled
		if enabled {
			u.infof("Debug mode enabled")
		}
	default:
		u.infof("unknown option %q", name)
	}
}

// handlePerft runs "perft <depth>" and prints totals with timing.
func (u *UCI) handlePerft(ctx context.Context, args []string) {
	depth := defaultPerftTo
	if len(args) > 0 {
		d, err := parseDepth(args[0])
		if err != nil {
			u.infof("perft: %v", err)
			return
		}
		depth = d
	}

	start := time.Now()
	res, err := u.driver.Run(ctx, u.position, depth)
	if err != nil {
		u.infof("perft: %v", err)
		return
	}
	elapsed := time.Since(start)

	u.printf("Nodes: %d\n", res.Nodes)
	u.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(res.Nodes)/elapsed.Seconds())
	}
	if ht := u.driver.HashTable(); ht != nil {
		u.infof("hashfull %d hitrate %.1f", ht.HashFull(), ht.HitRate())
	}
}
