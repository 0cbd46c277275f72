package tsengine

import (
	"fmt"
	"time"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
)

// touchedSpan is the [start, end] of timestamps appended for one key within
// an open Writer, used to bound rollup invalidation on commit.
type touchedSpan struct {
	start time.Time
	end   time.Time
}

func (s *touchedSpan) extend(at time.Time) {
	if at.Before(s.start) {
		s.start = at
	}
	if at.After(s.end) {
		s.end = at
	}
}

// Writer appends raw points for a fixed series arity and, on Commit,
// invalidates every cached rollup bucket whose window overlaps the spans
// it touched. A Writer holds a write transaction for its lifetime and is
// not safe to share across goroutines.
type Writer struct {
	wtx            storage.WriteTx
	w              byte
	valBuf         []byte
	rollupsToClear map[string]*touchedSpan
	done           bool
	onClose        func()
}

func newWriter(wtx storage.WriteTx, w byte) *Writer {
	return &Writer{
		wtx:            wtx,
		w:              w,
		valBuf:         make([]byte, int(w)*8),
		rollupsToClear: make(map[string]*touchedSpan),
	}
}

// Append stores one sample for key at instant at. values must have exactly
// w entries, matching this Writer's series arity.
func (wr *Writer) Append(key string, at time.Time, values []float64) error {
	if wr.done {
		return ErrClosed
	}
	if len(values) != int(wr.w) {
		return newErr(KindInvalidArgument, fmt.Sprintf("values length %d does not match series arity %d", len(values), wr.w))
	}

	encodePoint(wr.valBuf, values)

	series, err := wr.wtx.CreateTreeIfNotExists(seriesTreeName(wr.w))
	if err != nil {
		return wrapErr(KindStorageError, "create series tree", err)
	}
	ft, err := series.FixedTreeFor([]byte(key), int(wr.w)*8)
	if err != nil {
		return wrapErr(KindStorageError, "create series fixed tree", err)
	}

	payload := make([]byte, len(wr.valBuf))
	copy(payload, wr.valBuf)
	if err := ft.Add(tickFromTime(at), payload); err != nil {
		return wrapErr(KindStorageError, "append raw point", err)
	}

	if span, ok := wr.rollupsToClear[key]; ok {
		span.extend(at)
	} else {
		wr.rollupsToClear[key] = &touchedSpan{start: at, end: at}
	}
	return nil
}

// Commit invalidates every rollup bucket whose window overlaps the spans
// touched by this Writer's appends, then commits the underlying
// transaction.
func (wr *Writer) Commit() error {
	if wr.done {
		return ErrClosed
	}
	if err := wr.invalidateRollups(); err != nil {
		wr.wtx.Rollback()
		wr.done = true
		if wr.onClose != nil {
			wr.onClose()
		}
		return err
	}
	err := wr.wtx.Commit()
	wr.done = true
	if wr.onClose != nil {
		wr.onClose()
	}
	if err != nil {
		return wrapErr(KindStorageError, "commit write transaction", err)
	}
	return nil
}

// Dispose releases the write transaction without committing, if Commit was
// never called. Safe to call more than once.
func (wr *Writer) Dispose() error {
	if wr.done {
		return nil
	}
	wr.done = true
	err := wr.wtx.Rollback()
	if wr.onClose != nil {
		wr.onClose()
	}
	return err
}

// Delete and DeleteRange are reserved: raw deletion is not yet specified
// (see the open question on extending rollup invalidation to cover a
// deletion span).
func (wr *Writer) Delete(key string, at time.Time) error {
	return newErr(KindNotImplemented, "Writer.Delete is not implemented")
}

func (wr *Writer) DeleteRange(key string, start, end time.Time) error {
	return newErr(KindNotImplemented, "Writer.DeleteRange is not implemented")
}

func (wr *Writer) invalidateRollups() error {
	if len(wr.rollupsToClear) == 0 {
		return nil
	}

	periods, err := wr.wtx.Tree(periodsTreeName(wr.w))
	if err != nil {
		return wrapErr(KindStorageError, "read periods tree", err)
	}
	if periods == nil {
		return nil
	}

	for key, span := range wr.rollupsToClear {
		prefix := periodTreePrefix(key)
		it, err := periods.Iterate(prefix)
		if err != nil {
			return wrapErr(KindStorageError, "iterate periods tree", err)
		}

		var names [][]byte
		for ok := it.Seek(it.RequiredPrefix()); ok; ok = it.Next() {
			name := make([]byte, len(it.Current()))
			copy(name, it.Current())
			names = append(names, name)
		}

		for _, name := range names {
			if err := wr.invalidateOne(periods, name, span); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wr *Writer) invalidateOne(periods storage.Tree, name []byte, span *touchedSpan) error {
	d, err := parsePeriodSuffix(name)
	if err != nil {
		return wrapErr(KindStorageError, "parse period tree name", err)
	}

	lo := tickFromTime(startOfRange(span.start, d))
	hi := tickFromTime(startOfRange(span.end, d))

	ft, err := periods.FixedTreeFor(name, int(wr.w)*rangeSlotWidth)
	if err != nil {
		return wrapErr(KindStorageError, "open rollup fixed tree", err)
	}
	if ft == nil {
		return nil
	}

	fit, err := ft.Iterate()
	if err != nil {
		return wrapErr(KindStorageError, "iterate rollup fixed tree", err)
	}

	var stale []storage.Tick
	for ok := fit.Seek(lo); ok && fit.CurrentKey() <= hi; ok = fit.MoveNext() {
		stale = append(stale, fit.CurrentKey())
	}

	// Deletion happens after iteration completes, never interleaved with
	// it, to avoid invalidating the cursor mid-walk.
	for _, tick := range stale {
		if err := ft.Delete(tick); err != nil {
			return wrapErr(KindStorageError, "delete stale rollup bucket", err)
		}
	}
	return nil
}
