// Package boltkv implements internal/storage's transactional contract on
// top of go.etcd.io/bbolt, an embedded, memory-mapped, B+tree-backed
// key/value store with MVCC transactions. bbolt buckets map directly onto
// the spec's "named tree" concept, and bbolt's nested-bucket support maps
// directly onto "fixed-size tree nested within a parent tree" — the same
// shape erigon's kv layer builds on top of mdbx-go/bbolt for its table
// hierarchy.
package boltkv

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
	bolt "go.etcd.io/bbolt"
)

// Store wraps a *bbolt.DB as a storage.Storage.
type Store struct {
	db   *bolt.DB
	path string
	// tmp holds the backing file path when the store was opened RunInMemory,
	// so Close can remove it. bbolt has no true in-memory mode; a temp file
	// that is deleted on close gives the same externally-visible behavior.
	tmp string
}

// Open opens (creating if necessary) a bbolt-backed store at path. If
// inMemory is true, path is ignored and a private temp file is used
// instead, removed again on Close.
func Open(path string, inMemory bool) (*Store, error) {
	dbPath := path
	tmp := ""
	if inMemory {
		f, err := os.CreateTemp("", "tsengine-*.db")
		if err != nil {
			return nil, fmt.Errorf("boltkv: creating temp db: %w", err)
		}
		dbPath = f.Name()
		tmp = dbPath
		_ = f.Close()
	}

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		if tmp != "" {
			os.Remove(tmp)
		}
		return nil, fmt.Errorf("boltkv: opening %q: %w", dbPath, err)
	}

	return &Store{db: db, path: dbPath, tmp: tmp}, nil
}

func (s *Store) BeginRead(ctx context.Context) (storage.ReadTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("boltkv: begin read: %w", err)
	}
	return &readTx{tx: tx}, nil
}

func (s *Store) BeginWrite(ctx context.Context) (storage.WriteTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("boltkv: begin write: %w", err)
	}
	return &writeTx{tx: tx}, nil
}

func (s *Store) Close() error {
	err := s.db.Close()
	if s.tmp != "" {
		if rmErr := os.Remove(s.tmp); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *Store) SizeInBytes() (int64, error) {
	if s.tmp != "" {
		// In-memory mode: report the database size as seen by a read
		// transaction; the backing file is scratch space only.
		var size int64
		err := s.db.View(func(tx *bolt.Tx) error {
			size = tx.Size()
			return nil
		})
		return size, err
	}
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

type readTx struct{ tx *bolt.Tx }

func (r *readTx) Tree(name string) (storage.Tree, error) {
	b := r.tx.Bucket([]byte(name))
	if b == nil {
		return nil, nil
	}
	return &tree{bucket: b}, nil
}

func (r *readTx) Rollback() error { return r.tx.Rollback() }

type writeTx struct{ tx *bolt.Tx }

func (w *writeTx) Tree(name string) (storage.Tree, error) {
	b := w.tx.Bucket([]byte(name))
	if b == nil {
		return nil, nil
	}
	return &tree{bucket: b}, nil
}

func (w *writeTx) CreateTreeIfNotExists(name string) (storage.Tree, error) {
	b, err := w.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("boltkv: create tree %q: %w", name, err)
	}
	return &tree{bucket: b}, nil
}

func (w *writeTx) Commit() error   { return w.tx.Commit() }
func (w *writeTx) Rollback() error { return w.tx.Rollback() }

type tree struct{ bucket *bolt.Bucket }

func (t *tree) Get(key []byte) ([]byte, error) {
	v := t.bucket.Get(key)
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *tree) Put(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *tree) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

func (t *tree) FixedTreeFor(key []byte, valueWidth int) (storage.FixedTree, error) {
	if t.bucket.Writable() {
		b, err := t.bucket.CreateBucketIfNotExists(key)
		if err != nil {
			return nil, fmt.Errorf("boltkv: create fixed tree: %w", err)
		}
		return &fixedTree{bucket: b, width: valueWidth}, nil
	}
	b := t.bucket.Bucket(key)
	if b == nil {
		return nil, nil
	}
	return &fixedTree{bucket: b, width: valueWidth}, nil
}

func (t *tree) Iterate(requiredPrefix []byte) (storage.NameIterator, error) {
	return &nameIter{cursor: t.bucket.Cursor(), prefix: requiredPrefix}, nil
}

type nameIter struct {
	cursor  *bolt.Cursor
	prefix  []byte
	key     []byte
	started bool
}

func (it *nameIter) Seek(k []byte) bool {
	key, _ := it.cursor.Seek(k)
	it.started = true
	it.key = key
	return it.positioned()
}

func (it *nameIter) positioned() bool {
	return it.key != nil && bytes.HasPrefix(it.key, it.prefix)
}

func (it *nameIter) Current() []byte { return it.key }

func (it *nameIter) Next() bool {
	if !it.started {
		return it.Seek(it.prefix)
	}
	key, _ := it.cursor.Next()
	it.key = key
	return it.positioned()
}

func (it *nameIter) RequiredPrefix() []byte { return it.prefix }

type fixedTree struct {
	bucket *bolt.Bucket
	width  int
}

func (f *fixedTree) Add(key storage.Tick, value []byte) error {
	if len(value) != f.width {
		return fmt.Errorf("boltkv: value width %d != expected %d", len(value), f.width)
	}
	return f.bucket.Put(encodeTick(key), value)
}

func (f *fixedTree) Delete(key storage.Tick) error {
	return f.bucket.Delete(encodeTick(key))
}

func (f *fixedTree) Iterate() (storage.FixedIterator, error) {
	return &fixedIter{cursor: f.bucket.Cursor()}, nil
}

type fixedIter struct {
	cursor *bolt.Cursor
	key    []byte
	value  []byte
}

func (it *fixedIter) Seek(k storage.Tick) bool {
	key, value := it.cursor.Seek(encodeTick(k))
	it.key, it.value = key, value
	return it.key != nil
}

func (it *fixedIter) CurrentKey() storage.Tick {
	return decodeTick(it.key)
}

func (it *fixedIter) CurrentValue() ([]byte, error) {
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (it *fixedIter) MoveNext() bool {
	key, value := it.cursor.Next()
	it.key, it.value = key, value
	return it.key != nil
}

// encodeTick maps an int64 tick onto 8 big-endian bytes such that byte-wise
// ordering matches numeric ordering across the full int64 range (including
// negative ticks, which a pre-epoch instant could in principle produce).
func encodeTick(t storage.Tick) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t)^signBit)
	return buf
}

func decodeTick(buf []byte) storage.Tick {
	return storage.Tick(binary.BigEndian.Uint64(buf) ^ signBit)
}

const signBit = uint64(1) << 63
