package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
)

func openMemory(t *testing.T) *PerftStore {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPerftStoreRoundTrip(t *testing.T) {
	s := openMemory(t)
	pos := board.NewPosition()

	_, ok, err := s.Load(pos, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	res := perft.Result{Nodes: 400, Divide: perft.Divide(pos, 2)}
	require.NoError(t, s.Save(pos, 2, res))

	got, ok, err := s.Load(pos, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Nodes, got.Nodes)
	assert.Equal(t, res.Divide, got.Divide)

	_, ok, err = s.Load(pos, 3)
	require.NoError(t, err)
	assert.False(t, ok, "depth is part of the key")

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Clear())
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPerftStoreIgnoresMoveCounters(t *testing.T) {
	s := openMemory(t)
	a, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	b, err := board.ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 17 42")
	require.NoError(t, err)

	require.NoError(t, s.Save(a, 1, perft.Result{Nodes: 26, Divide: perft.Divide(a, 1)}))
	got, ok, err := s.Load(b, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(26), got.Nodes)
}

func TestPerftStoreRejectsCollision(t *testing.T) {
	s := openMemory(t)
	start := board.NewPosition()
	other, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)

	// Pretend the two positions share a key.
	forged := *other
	forged.Hash = start.Hash
	require.NoError(t, s.Save(&forged, 1, perft.Result{Nodes: 5}))

	_, ok, err := s.Load(start, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPerftStoreWithDriver(t *testing.T) {
	s := openMemory(t)
	d := perft.NewDriver(perft.WithStore(s), perft.WithWorkers(2))
	pos, err := board.ParseFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1")
	require.NoError(t, err)

	first, err := d.Run(context.Background(), pos, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2812), first.Nodes)
	assert.False(t, first.Cached)

	second, err := d.Run(context.Background(), pos, 3)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Divide, second.Divide)
}

func TestPerftStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	pos := board.NewPosition()

	s, err := Open(filepath.Join(dir, "db"))
	require.NoError(t, err)
	require.NoError(t, s.Save(pos, 1, perft.Result{Nodes: 20, Divide: perft.Divide(pos, 1)}))
	require.NoError(t, s.Close())

	s, err = Open(filepath.Join(dir, "db"))
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Load(pos, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Divide, 20)
}

func TestGetCacheDir(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_DATA_HOME only applies on Unix-like systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	cacheDir, err := GetCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, appName, "perft-cache"), cacheDir)

	info, err := os.Stat(cacheDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenDir(t *testing.T) {
	s, err := OpenDir("")
	require.NoError(t, err)
	assert.Nil(t, s)

	dir := filepath.Join(t.TempDir(), "cache")
	s, err = OpenDir(dir)
	require.NoError(t, err)
	defer s.Close()
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
