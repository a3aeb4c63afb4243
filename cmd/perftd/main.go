// Command perftd serves perft counts, legal move lists and board diagrams
// over HTTP.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hailam/chesscore/internal/perft"
	"github.com/hailam/chesscore/internal/server"
	"github.com/hailam/chesscore/internal/storage"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

// run serves until the listener fails. The store is closed on return.
func run(args []string) error {
	fs := flag.NewFlagSet("perftd", flag.ContinueOnError)
	addr := fs.String("addr", envOr("PERFTD_ADDR", ":8080"), "listen address")
	maxDepth := fs.Int("max-depth", server.DefaultMaxDepth, "deepest perft a request may ask for")
	threads := fs.Int("threads", 0, "root moves counted in parallel (0 = one per CPU)")
	hashMB := fs.Int("hash", 64, "hash table size in MB (0 disables)")
	cacheDir := fs.String("cache-dir", os.Getenv("CHESSCORE_CACHE_DIR"), `directory for persistent results ("" disables, "auto" uses the data directory)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []perft.Option{perft.WithHashTable(*hashMB)}
	if *threads > 0 {
		opts = append(opts, perft.WithWorkers(*threads))
	}
	store, err := storage.OpenDir(*cacheDir)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, perft.WithStore(store))
	}

	srv := server.New(perft.NewDriver(opts...), server.Config{
		MaxDepth:  *maxDepth,
		AccessLog: os.Stdout,
	})

	log.Printf("Starting server on %s", *addr)
	return server.ListenAndServe(*addr, srv)
}
