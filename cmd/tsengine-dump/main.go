// Command tsengine-dump opens an on-disk store and prints its server id,
// size, and configured prefixes, then optionally dumps the raw points
// stored under one series key. The store is opened through tsengine.Open,
// which opens the database read-write and creates the bootstrap trees and
// server id if they are missing; the dump itself writes nothing else.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/ts-rollup-store/pkg/tsengine"
)

var (
	flagDataDir  string
	flagPrefix   string
	flagKey      string
	flagArity    int
	flagLogLevel string
)

func cliInit() {
	flag.StringVar(&flagDataDir, "data-dir", "", "Directory containing tsengine.db")
	flag.StringVar(&flagPrefix, "prefix", "", "If set, look up only this prefix's configured arity")
	flag.StringVar(&flagKey, "key", "", "If set, dump raw points stored under this series key")
	flag.IntVar(&flagArity, "arity", 1, "Series arity to use when -key is set")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.Parse()
}

func main() {
	cliInit()
	cclog.Init(flagLogLevel, true)

	if flagDataDir == "" {
		cclog.Fatal("tsengine-dump: -data-dir is required")
	}

	ctx := context.Background()
	store, err := tsengine.Open(ctx, tsengine.Config{DataDirectory: flagDataDir})
	if err != nil {
		cclog.Fatalf("tsengine-dump: open store: %s", err)
	}
	defer store.Close()

	h, err := store.Health(ctx)
	if err != nil {
		cclog.Fatalf("tsengine-dump: health: %s", err)
	}

	if flagPrefix != "" {
		w, ok := h.Prefixes[flagPrefix]
		if !ok {
			cclog.Fatalf("tsengine-dump: prefix %q is not configured", flagPrefix)
		}
		fmt.Printf("%s: arity %d\n", flagPrefix, w)
		return
	}

	summary := struct {
		ServerID string         `json:"server_id"`
		SizeInGB float64        `json:"size_in_gb"`
		Prefixes map[string]int `json:"prefixes"`
	}{
		ServerID: fmt.Sprintf("%x", h.ServerID),
		SizeInGB: h.SizeInGB(),
		Prefixes: make(map[string]int, len(h.Prefixes)),
	}
	for p, w := range h.Prefixes {
		summary.Prefixes[p] = int(w)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		cclog.Fatalf("tsengine-dump: encode summary: %s", err)
	}

	if flagKey == "" {
		return
	}

	rd, err := store.Reader(ctx, byte(flagArity))
	if err != nil {
		cclog.Fatalf("tsengine-dump: open reader: %s", err)
	}
	defer rd.Close()

	q := tsengine.TimeSeriesQuery{Key: flagKey, Start: time.Unix(0, 0).UTC(), End: time.Now().UTC()}
	for p, err := range rd.QueryRaw(ctx, q) {
		if err != nil {
			cclog.Fatalf("tsengine-dump: query raw: %s", err)
		}
		fmt.Printf("%s\t%v\n", p.At.Format(time.RFC3339), p.Values)
	}
}
