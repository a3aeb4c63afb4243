// Command perft counts leaf nodes below a position, for checking move
// generation against reference counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
	"github.com/hailam/chesscore/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Print(err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("perft", flag.ContinueOnError)
	fen := fs.String("fen", board.StartFEN, "position to count from")
	depth := fs.Int("depth", 5, "perft depth")
	divide := fs.Bool("divide", false, "print the count below each root move, in generation order")
	sortMoves := fs.Bool("sort", false, "with -divide, order root moves alphabetically")
	threads := fs.Int("threads", 0, "root moves counted in parallel (0 = one per CPU)")
	hashMB := fs.Int("hash", 0, "hash table size in MB (0 disables)")
	cacheDir := fs.String("cache-dir", os.Getenv("CHESSCORE_CACHE_DIR"), `directory for persistent results ("" disables, "auto" uses the data directory)`)
	repeat := fs.Int("repeat", 1, "number of runs, for timing")
	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pos, err := board.ParseFEN(*fen)
	if err != nil {
		return err
	}

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
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
	driver := perft.NewDriver(opts...)

	var total time.Duration
	for i := 1; i <= max(*repeat, 1); i++ {
		res, err := driver.Run(ctx, pos, *depth)
		if err != nil {
			return err
		}
		total += res.Elapsed

		if *divide && i == 1 {
			printDivide(out, res.Divide, *sortMoves)
		}
		cached := ""
		if res.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(out, "Nodes: %d  Time: %v  NPS: %d%s\n", res.Nodes, res.Elapsed.Round(time.Microsecond), res.NPS(), cached)
	}
	if *repeat > 1 {
		fmt.Fprintf(out, "Average time: %v\n", (total / time.Duration(*repeat)).Round(time.Microsecond))
	}
	return nil
}

// printDivide prints root move counts, optionally sorted by move.
func printDivide(out io.Writer, entries []perft.DivideEntry, sorted bool) {
	if sorted {
		entries = slices.Clone(entries)
		slices.SortFunc(entries, func(a, b perft.DivideEntry) int {
			return strings.Compare(a.Move.String(), b.Move.String())
		})
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s: %d\n", e.Move, e.Nodes)
	}
	fmt.Fprintln(out)
}
