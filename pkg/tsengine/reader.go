package tsengine

import (
	"context"
	"iter"
	"time"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
)

// Point is one raw sample: an instant and w parallel values.
type Point struct {
	At     time.Time
	Values []float64
}

// TimeSeriesQuery selects a raw point range for one key.
type TimeSeriesQuery struct {
	Key   string
	Start time.Time
	End   time.Time
}

// TimeSeriesRollupQuery selects a rollup range for one key at a given
// period granularity.
type TimeSeriesRollupQuery struct {
	Key      string
	Start    time.Time
	End      time.Time
	Duration PeriodDuration
}

// Reader answers raw-point and rollup queries against a fixed series
// arity. It holds a read transaction for its lifetime; Close releases it.
// Not safe for concurrent use.
type Reader struct {
	db      storage.Storage
	w       byte
	rtx     storage.ReadTx
	closed  bool
	onClose func()
}

func newReader(db storage.Storage, rtx storage.ReadTx, w byte) *Reader {
	return &Reader{db: db, w: w, rtx: rtx}
}

// Close releases the underlying read transaction. Safe to call more than
// once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.rtx.Rollback()
	if r.onClose != nil {
		r.onClose()
	}
	return err
}

// QueryRaw returns a lazy, finite, single-pass sequence of the points
// stored for q.Key with ticks in [q.Start, q.End]. If the series-w tree,
// or the per-key fixed tree, was never created, the sequence is empty.
func (r *Reader) QueryRaw(ctx context.Context, q TimeSeriesQuery) iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		if r.closed {
			yield(Point{}, ErrClosed)
			return
		}

		series, err := r.rtx.Tree(seriesTreeName(r.w))
		if err != nil {
			yield(Point{}, wrapErr(KindStorageError, "read series tree", err))
			return
		}
		if series == nil {
			return
		}

		ft, err := series.FixedTreeFor([]byte(q.Key), int(r.w)*8)
		if err != nil {
			yield(Point{}, wrapErr(KindStorageError, "read series fixed tree", err))
			return
		}
		if ft == nil {
			return
		}

		it, err := ft.Iterate()
		if err != nil {
			yield(Point{}, wrapErr(KindStorageError, "iterate series fixed tree", err))
			return
		}

		endTick := tickFromTime(q.End)
		for ok := it.Seek(tickFromTime(q.Start)); ok; ok = it.MoveNext() {
			if err := ctx.Err(); err != nil {
				yield(Point{}, newErr(KindCancelled, "queryRaw cancelled"))
				return
			}
			k := it.CurrentKey()
			if k > endTick {
				return
			}
			raw, err := it.CurrentValue()
			if err != nil {
				yield(Point{}, wrapErr(KindStorageError, "read raw point", err))
				return
			}
			p := Point{At: timeFromTick(k), Values: decodePoint(raw, int(r.w), nil)}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// QueryRollup returns a lazy, finite, single-pass sequence of the rollup
// ranges covering [q.Start, q.End) at q.Duration's granularity. Cached
// buckets are served directly; missing ones are computed from raw points
// and written back before being yielded, so the cache is warm for
// subsequent callers. The write transaction opened for the cache fill
// commits once the whole sequence has been consumed, or rolls back if the
// caller stops early or an error occurs.
func (r *Reader) QueryRollup(ctx context.Context, q TimeSeriesRollupQuery) iter.Seq2[Range, error] {
	return func(yield func(Range, error) bool) {
		if r.closed {
			yield(Range{}, ErrClosed)
			return
		}

		if err := validateAligned(q.Start, q.End, q.Duration); err != nil {
			yield(Range{}, err)
			return
		}

		series, err := r.rtx.Tree(seriesTreeName(r.w))
		if err != nil {
			yield(Range{}, wrapErr(KindStorageError, "read series tree", err))
			return
		}
		if series == nil {
			return
		}

		windows, err := getRanges(q.Start, q.End, q.Duration)
		if err != nil {
			yield(Range{}, err)
			return
		}

		wtx, err := r.db.BeginWrite(ctx)
		if err != nil {
			yield(Range{}, wrapErr(KindStorageError, "begin rollup cache write", err))
			return
		}
		committed := false
		defer func() {
			if !committed {
				wtx.Rollback()
			}
		}()

		periods, err := wtx.CreateTreeIfNotExists(periodsTreeName(r.w))
		if err != nil {
			yield(Range{}, wrapErr(KindStorageError, "create periods tree", err))
			return
		}
		rollupFT, err := periods.FixedTreeFor(periodTreeName(q.Key, q.Duration), int(r.w)*rangeSlotWidth)
		if err != nil {
			yield(Range{}, wrapErr(KindStorageError, "create rollup fixed tree", err))
			return
		}

		for _, startAt := range windows {
			if err := ctx.Err(); err != nil {
				yield(Range{}, newErr(KindCancelled, "queryRollup cancelled"))
				return
			}
			rng, err := r.resolveRange(series, rollupFT, q.Key, startAt, q.Duration)
			if err != nil {
				yield(Range{}, err)
				return
			}
			if !yield(rng, nil) {
				return
			}
		}

		if err := wtx.Commit(); err != nil {
			yield(Range{}, wrapErr(KindStorageError, "commit rollup cache write", err))
			return
		}
		committed = true
	}
}

// resolveRange serves startAt's bucket from the rollup cache if present,
// otherwise computes it from raw points and writes it back.
func (r *Reader) resolveRange(series storage.Tree, rollupFT storage.FixedTree, key string, startAt time.Time, d PeriodDuration) (Range, error) {
	startTick := tickFromTime(startAt)

	rit, err := rollupFT.Iterate()
	if err != nil {
		return Range{}, wrapErr(KindStorageError, "iterate rollup fixed tree", err)
	}
	if rit.Seek(startTick) && rit.CurrentKey() == startTick {
		raw, err := rit.CurrentValue()
		if err != nil {
			return Range{}, wrapErr(KindStorageError, "read cached rollup bucket", err)
		}
		return Range{StartAt: startAt, Duration: d, Values: decodeRangeValues(raw, int(r.w))}, nil
	}

	values := make([]RangeValue, r.w)

	ft, err := series.FixedTreeFor([]byte(key), int(r.w)*8)
	if err != nil {
		return Range{}, wrapErr(KindStorageError, "read series fixed tree", err)
	}
	if ft != nil {
		endTick := tickFromTime(add(startAt, d))
		it, err := ft.Iterate()
		if err != nil {
			return Range{}, wrapErr(KindStorageError, "iterate series fixed tree", err)
		}
		for ok := it.Seek(startTick); ok && it.CurrentKey() < endTick; ok = it.MoveNext() {
			raw, err := it.CurrentValue()
			if err != nil {
				return Range{}, wrapErr(KindStorageError, "read raw point", err)
			}
			pv := decodePoint(raw, int(r.w), nil)
			for i, v := range pv {
				values[i].observe(v)
			}
		}
	}

	buf := make([]byte, int(r.w)*rangeSlotWidth)
	encodeRangeValues(buf, values)
	if err := rollupFT.Add(startTick, buf); err != nil {
		return Range{}, wrapErr(KindStorageError, "write rollup bucket", err)
	}

	return Range{StartAt: startAt, Duration: d, Values: values}, nil
}

// getRanges enumerates the half-open windows of length d covering
// [start, end), failing with MisalignedRange if stepping by d overshoots
// end instead of landing on it exactly.
func getRanges(start, end time.Time, d PeriodDuration) ([]time.Time, error) {
	var windows []time.Time
	cur := start
	for !cur.Equal(end) {
		if cur.After(end) {
			return nil, newErr(KindMisalignedRange, "range enumeration overshot query end")
		}
		windows = append(windows, cur)
		cur = add(cur, d)
	}
	return windows, nil
}
