// Command tsengine-bench opens a store, appends synthetic points for a
// number of series concurrently, then runs rollup queries over the
// resulting data and reports cache hit/miss behavior across a cold and a
// warm pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/ts-rollup-store/pkg/tsengine"
	"golang.org/x/sync/errgroup"
)

var (
	flagDataDir  string
	flagSeries   int
	flagPoints   int
	flagWorkers  int
	flagLogLevel string
)

func cliInit() {
	flag.StringVar(&flagDataDir, "data-dir", "", "Directory for the on-disk database; empty runs in memory")
	flag.IntVar(&flagSeries, "series", 8, "Number of distinct series keys to seed")
	flag.IntVar(&flagPoints, "points", 3600, "Number of points to append per series")
	flag.IntVar(&flagWorkers, "workers", 4, "Number of concurrent append workers")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.Parse()
}

func main() {
	cliInit()
	cclog.Init(flagLogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := tsengine.Config{RunInMemory: flagDataDir == "", DataDirectory: flagDataDir}
	store, err := tsengine.Open(ctx, cfg)
	if err != nil {
		cclog.Fatalf("tsengine-bench: open store: %s", err)
	}
	defer store.Close()

	if err := store.CreatePrefixConfiguration(ctx, "bench", 1); err != nil {
		if kind, ok := tsengine.KindOf(err); !ok || kind != tsengine.KindAlreadyExists {
			cclog.Fatalf("tsengine-bench: create prefix configuration: %s", err)
		}
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := seed(ctx, store, start); err != nil {
		cclog.Fatalf("tsengine-bench: seed: %s", err)
	}

	end := start.Add(time.Duration(flagPoints) * time.Second)
	cold := runRollupPass(ctx, store, start, end)
	warm := runRollupPass(ctx, store, start, end)
	cclog.Infof("tsengine-bench: cold pass %s, warm pass %s (warm should be faster: buckets are cached)", cold, warm)
}

// seed appends flagPoints points to flagSeries series keys, flagWorkers
// writers at a time, propagating the first error via errgroup.
func seed(ctx context.Context, store *tsengine.Store, start time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flagWorkers)

	for s := 0; s < flagSeries; s++ {
		key := fmt.Sprintf("bench-%02d", s)
		g.Go(func() error {
			wr, err := store.Writer(gctx, 1)
			if err != nil {
				return err
			}
			for i := 0; i < flagPoints; i++ {
				at := start.Add(time.Duration(i) * time.Second)
				if err := wr.Append(key, at, []float64{float64(i % 100)}); err != nil {
					wr.Dispose()
					return err
				}
			}
			return wr.Commit()
		})
	}
	return g.Wait()
}

func runRollupPass(ctx context.Context, store *tsengine.Store, start, end time.Time) time.Duration {
	t0 := time.Now()
	for s := 0; s < flagSeries; s++ {
		key := fmt.Sprintf("bench-%02d", s)
		rd, err := store.Reader(ctx, 1)
		if err != nil {
			cclog.Errorf("tsengine-bench: open reader: %s", err)
			continue
		}
		q := tsengine.TimeSeriesRollupQuery{Key: key, Start: start, End: end, Duration: tsengine.PeriodDuration{Type: tsengine.Minutes, Duration: 1}}
		for _, err := range rd.QueryRollup(ctx, q) {
			if err != nil {
				cclog.Errorf("tsengine-bench: query rollup: %s", err)
				break
			}
		}
		rd.Close()
	}
	return time.Since(t0)
}
