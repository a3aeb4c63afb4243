package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", uci.DefaultHashMB, "perft hash table size in MB (0 disables)")
	threads    = flag.Int("threads", 0, "root moves counted in parallel (0 = one per CPU)")
	cacheDir   = flag.String("cache-dir", os.Getenv("CHESSCORE_CACHE_DIR"),
		`directory for persistent perft results ("" disables, "auto" uses the data directory)`)
)

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	cfg := uci.Config{Threads: *threads, HashMB: *hashMB}

	store, err := storage.OpenDir(*cacheDir)
	if err != nil {
		log.Printf("Warning: perft cache not opened: %v", err)
	} else if store != nil {
		defer store.Close()
		cfg.Store = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	protocol := uci.New(os.Stdin, os.Stdout, cfg)
	if err := protocol.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("input error: %v", err)
	}
}
