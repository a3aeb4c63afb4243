package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
)

// Key prefix for perft results: prefix | zobrist key (8 bytes) | depth (1 byte)
const keyPerftPrefix = "perft/"

// perftRecord is the stored form of a perft result.
type perftRecord struct {
	Position  string         `json:"position"` // FEN without move counters
	Depth     int            `json:"depth"`
	Nodes     uint64         `json:"nodes"`
	Divide    []divideRecord `json:"divide"`
	ElapsedMS int64          `json:"elapsed_ms"`
	SavedAt   time.Time      `json:"saved_at"`
}

type divideRecord struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

// PerftStore wraps BadgerDB to keep perft results across runs.
// It implements perft.ResultStore.
type PerftStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ perft.ResultStore = (*PerftStore)(nil)

// Open opens (or creates) a store in dir.
func Open(dir string) (*PerftStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*PerftStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

// OpenDefault opens the store in the platform cache directory.
func OpenDefault() (*PerftStore, error) {
	dir, err := GetCacheDir()
	if err != nil {
		return nil, err
	}
	return Open(dir)
}

// DefaultDirName selects the platform cache directory in OpenDir.
const DefaultDirName = "auto"

// OpenDir opens the store named by a -cache-dir setting: "" means no store
// (nil, nil), DefaultDirName the platform cache directory, anything else a
// directory path.
func OpenDir(dir string) (*PerftStore, error) {
	switch dir {
	case "":
		return nil, nil
	case DefaultDirName:
		return OpenDefault()
	default:
		return Open(dir)
	}
}

func open(opts badger.Options) (*PerftStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open perft store: %w", err)
	}
	return &PerftStore{
		db:     db,
		logger: slog.Default().With("package", "storage"),
	}, nil
}

// Close closes the database
func (s *PerftStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func perftKey(pos *board.Position, depth int) []byte {
	key := make([]byte, 0, len(keyPerftPrefix)+9)
	key = append(key, keyPerftPrefix...)
	key = binary.BigEndian.AppendUint64(key, pos.Hash)
	return append(key, byte(depth))
}

// positionID is the FEN without the move counters, which perft ignores.
func positionID(pos *board.Position) string {
	fields := strings.Fields(pos.ToFEN())
	return strings.Join(fields[:4], " ")
}

// Save records a perft result for pos at depth.
func (s *PerftStore) Save(pos *board.Position, depth int, res perft.Result) error {
	rec := perftRecord{
		Position:  positionID(pos),
		Depth:     depth,
		Nodes:     res.Nodes,
		Divide:    make([]divideRecord, 0, len(res.Divide)),
		ElapsedMS: res.Elapsed.Milliseconds(),
		SavedAt:   time.Now(),
	}
	for _, e := range res.Divide {
		rec.Divide = append(rec.Divide, divideRecord{Move: e.Move.String(), Nodes: e.Nodes})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(perftKey(pos, depth), data)
	})
	if err != nil {
		return fmt.Errorf("save perft result: %w", err)
	}
	return nil
}

// Load returns the stored result for pos at depth. A record whose position
// differs from pos (a key collision) is reported as a miss.
func (s *PerftStore) Load(pos *board.Position, depth int) (perft.Result, bool, error) {
	var rec perftRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(perftKey(pos, depth))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return perft.Result{}, false, fmt.Errorf("load perft result: %w", err)
	}
	if !found {
		return perft.Result{}, false, nil
	}

	if id := positionID(pos); rec.Position != id || rec.Depth != depth {
		s.logger.Warn("perft store key collision", "want", id, "stored", rec.Position)
		return perft.Result{}, false, nil
	}

	p := *pos
	legal := make(map[string]board.Move)
	for _, m := range p.GenerateLegalMoves().Slice() {
		legal[m.String()] = m
	}

	res := perft.Result{
		Nodes:  rec.Nodes,
		Divide: make([]perft.DivideEntry, 0, len(rec.Divide)),
	}
	for _, d := range rec.Divide {
		m, ok := legal[d.Move]
		if !ok {
			return perft.Result{}, false, fmt.Errorf("load perft result: stored move %q is not legal in %s", d.Move, rec.Position)
		}
		res.Divide = append(res.Divide, perft.DivideEntry{Move: m, Nodes: d.Nodes})
	}
	return res, true, nil
}

// Count returns the number of stored perft results.
func (s *PerftStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPerftPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Clear removes every stored perft result.
func (s *PerftStore) Clear() error {
	return s.db.DropPrefix([]byte(keyPerftPrefix))
}
