// Package tsengine implements a durable, transactional time-series storage
// engine: raw point storage keyed by series and timestamp, plus cached
// OHLC+Volume+Sum rollups over arbitrary time periods, invalidated on
// write. See Store, Reader, and Writer for the external surface.
package tsengine

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/ts-rollup-store/internal/boltkv"
	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
)

// drainPollInterval and drainTimeout bound how long Close waits for
// in-flight readers/writers before releasing the storage substrate out
// from under them.
const (
	drainPollInterval = 100 * time.Millisecond
	drainTimeout      = 3 * time.Second
)

// Store owns the storage substrate for every series arity. Create one with
// Open; release it with Close.
type Store struct {
	db       storage.Storage
	serverID [16]byte
	inFlight int64
	closed   atomic.Bool
}

// Open creates or opens the store described by cfg: ensures the bootstrap
// tree and $metadata/id exist (generating a fresh server id on first
// open), and returns a ready-to-use Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := openStorage(cfg)
	if err != nil {
		return nil, wrapErr(KindStorageError, "open storage substrate", err)
	}

	id, err := bootstrapMetadata(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	cclog.Infof("tsengine: store opened, server id %x", id)
	return &Store{db: db, serverID: id}, nil
}

func openStorage(cfg Config) (storage.Storage, error) {
	if cfg.RunInMemory {
		return boltkv.Open("", true)
	}
	return boltkv.Open(filepath.Join(cfg.DataDirectory, "tsengine.db"), false)
}

// ServerID returns the store's 16-byte identifier, stable for the life of
// the underlying storage.
func (s *Store) ServerID() [16]byte { return s.serverID }

// SizeInBytes reports the approximate size of the backing storage.
func (s *Store) SizeInBytes() (int64, error) {
	return s.db.SizeInBytes()
}

// CreatePrefixConfiguration registers prefix as having series arity w.
func (s *Store) CreatePrefixConfiguration(ctx context.Context, prefix string, w byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if w < 1 {
		return newErr(KindInvalidArgument, "arity must be in [1,255]")
	}
	return createPrefixConfiguration(ctx, s.db, prefix, w)
}

// DeletePrefixConfiguration unregisters prefix.
func (s *Store) DeletePrefixConfiguration(ctx context.Context, prefix string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return deletePrefixConfiguration(ctx, s.db, prefix)
}

// GetPrefixConfiguration is reserved (see the open question on reading
// prefix records back).
func (s *Store) GetPrefixConfiguration(ctx context.Context, prefix string) (byte, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return getPrefixConfiguration(ctx, s.db, prefix)
}

// Reader opens a Reader scoped to series arity w. The caller must Close it.
func (s *Store) Reader(ctx context.Context, w byte) (*Reader, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if w < 1 {
		return nil, newErr(KindInvalidArgument, "arity must be in [1,255]")
	}

	atomic.AddInt64(&s.inFlight, 1)
	rtx, err := s.db.BeginRead(ctx)
	if err != nil {
		atomic.AddInt64(&s.inFlight, -1)
		return nil, wrapErr(KindStorageError, "begin read transaction", err)
	}

	r := newReader(s.db, rtx, w)
	r.onClose = func() { atomic.AddInt64(&s.inFlight, -1) }
	return r, nil
}

// Writer opens a Writer scoped to series arity w. The caller must Commit
// or Dispose it.
func (s *Store) Writer(ctx context.Context, w byte) (*Writer, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if w < 1 {
		return nil, newErr(KindInvalidArgument, "arity must be in [1,255]")
	}

	atomic.AddInt64(&s.inFlight, 1)
	wtx, err := s.db.BeginWrite(ctx)
	if err != nil {
		atomic.AddInt64(&s.inFlight, -1)
		return nil, wrapErr(KindStorageError, "begin write transaction", err)
	}

	w2 := newWriter(wtx, w)
	w2.onClose = func() { atomic.AddInt64(&s.inFlight, -1) }
	return w2, nil
}

// Close drains in-flight requests for up to drainTimeout before releasing
// the storage substrate. A request still open after the deadline does not
// block Close indefinitely; the substrate is released regardless and any
// operation still in flight will observe a storage error.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	deadline := time.Now().Add(drainTimeout)
	for atomic.LoadInt64(&s.inFlight) > 0 && time.Now().Before(deadline) {
		time.Sleep(drainPollInterval)
	}
	if n := atomic.LoadInt64(&s.inFlight); n > 0 {
		cclog.Warnf("tsengine: closing store with %d request(s) still in flight after %s drain", n, drainTimeout)
	}

	if err := s.db.Close(); err != nil {
		return wrapErr(KindStorageError, "close storage substrate", err)
	}
	return nil
}
