// Package perft counts the leaf nodes of the legal move tree, the standard
// correctness check for a move generator.
package perft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// ErrNegativeDepth is returned for depths below zero.
var ErrNegativeDepth = errors.New("perft depth must be non-negative")

// DivideEntry is the node count below one root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// Result is the outcome of a perft run.
type Result struct {
	Nodes   uint64
	Divide  []DivideEntry // one entry per legal root move, in generation order
	Elapsed time.Duration
	Cached  bool // served from the result store
}

// NPS returns nodes per second, or 0 when no time was measured.
func (r Result) NPS() uint64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return uint64(float64(r.Nodes) / r.Elapsed.Seconds())
}

// ResultStore persists whole perft results across runs.
type ResultStore interface {
	// Load returns the stored result for pos at depth, if any.
	Load(pos *board.Position, depth int) (Result, bool, error)
	// Save records a result for pos at depth.
	Save(pos *board.Position, depth int, res Result) error
}

// Count returns the number of leaf nodes depth plies below pos.
// Count(pos, 0) is 1; negative depths count as 0. pos is not modified.
func Count(pos *board.Position, depth int) uint64 {
	if depth < 0 {
		return 0
	}
	p := *pos
	return count(&p, depth, nil)
}

// Divide returns the node count below each legal root move, in the order
// GenerateLegalMoves produces them. It returns nil for depth < 1.
func Divide(pos *board.Position, depth int) []DivideEntry {
	if depth < 1 {
		return nil
	}
	p := *pos
	moves := p.GenerateLegalMoves().Slice()
	entries := make([]DivideEntry, 0, len(moves))
	for _, m := range moves {
		undo := p.MakeMove(m)
		entries = append(entries, DivideEntry{Move: m, Nodes: count(&p, depth-1, nil)})
		p.UnmakeMove(m, undo)
	}
	return entries
}

// count walks the tree with make/unmake on p, which it owns exclusively.
func count(p *board.Position, depth int, ht *HashTable) uint64 {
	if depth == 0 {
		return 1
	}
	if ht != nil && depth > 1 {
		if nodes, ok := ht.Probe(p.Hash, depth); ok {
			return nodes
		}
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for _, m := range moves.Slice() {
		undo := p.MakeMove(m)
		nodes += count(p, depth-1, ht)
		p.UnmakeMove(m, undo)
	}

	if ht != nil {
		ht.Store(p.Hash, depth, nodes)
	}
	return nodes
}

// Option configures a Driver.
type Option func(*Driver)

// WithHashTable gives the driver a shared subtree cache of sizeMB megabytes.
// Zero disables the cache.
func WithHashTable(sizeMB int) Option {
	return func(d *Driver) {
		if sizeMB <= 0 {
			d.table = nil
			return
		}
		d.table = NewHashTable(sizeMB)
	}
}

// WithStore makes the driver consult and fill a persistent result store.
func WithStore(s ResultStore) Option {
	return func(d *Driver) {
		d.store = s
	}
}

// WithWorkers bounds the number of root moves counted concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n < 1 {
			n = 1
		}
		d.workers = n
	}
}

// WithLogger sets the logger used for run summaries and store failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// Driver runs perft with parallel root moves, an optional hash table and
// an optional persistent store. A Driver is safe for concurrent use.
type Driver struct {
	table   *HashTable
	store   ResultStore
	workers int
	logger  *slog.Logger
}

// NewDriver creates a driver. By default it uses one worker per CPU, no
// hash table and no store.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("package", "perft"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Workers returns the configured worker count.
func (d *Driver) Workers() int {
	return d.workers
}

// HashTable returns the driver's hash table, or nil.
func (d *Driver) HashTable() *HashTable {
	return d.table
}

// Run counts the tree below pos to depth. See Stream.
func (d *Driver) Run(ctx context.Context, pos *board.Position, depth int) (Result, error) {
	return d.Stream(ctx, pos, depth, nil)
}

// Stream counts the tree below pos to depth, calling onMove once per root
// move as soon as its count is known. Calls to onMove are serialized but
// arrive in completion order; Result.Divide is always in generation order.
// Cancellation is checked between root moves.
func (d *Driver) Stream(ctx context.Context, pos *board.Position, depth int, onMove func(DivideEntry)) (Result, error) {
	if depth < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrNegativeDepth, depth)
	}
	start := time.Now()
	root := *pos

	if res, ok := d.load(&root, depth); ok {
		if onMove != nil {
			for _, e := range res.Divide {
				onMove(e)
			}
		}
		res.Elapsed = time.Since(start)
		res.Cached = true
		return res, nil
	}

	if depth == 0 {
		return Result{Nodes: 1, Elapsed: time.Since(start)}, nil
	}

	moves := root.GenerateLegalMoves().Slice()
	divide := make([]DivideEntry, len(moves))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, m := range moves {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			child := root.Apply(m)
			entry := DivideEntry{Move: m, Nodes: count(&child, depth-1, d.table)}
			divide[i] = entry
			if onMove != nil {
				mu.Lock()
				onMove(entry)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Divide: divide}
	for _, e := range divide {
		res.Nodes += e.Nodes
	}
	res.Elapsed = time.Since(start)

	d.logger.Debug("perft finished",
		"fen", root.ToFEN(),
		"depth", depth,
		"nodes", res.Nodes,
		"elapsed", res.Elapsed,
		"workers", d.workers)

	d.save(&root, depth, res)
	return res, nil
}

func (d *Driver) load(pos *board.Position, depth int) (Result, bool) {
	if d.store == nil || depth == 0 {
		return Result{}, false
	}
	res, ok, err := d.store.Load(pos, depth)
	if err != nil {
		d.logger.Warn("perft store lookup failed", "depth", depth, "error", err)
		return Result{}, false
	}
	return res, ok
}

func (d *Driver) save(pos *board.Position, depth int, res Result) {
	if d.store == nil {
		return
	}
	if err := d.store.Save(pos, depth, res); err != nil {
		d.logger.Warn("perft store save failed", "depth", depth, "error", err)
	}
}
