// Package storage defines the thin transactional contract the time-series
// engine is built on: named trees, and within each tree, fixed-size trees
// keyed by a 64-bit tick with fixed-width byte payloads.
//
// The contract is deliberately narrow so that it can be satisfied by an
// embedded transactional key/value store such as bbolt (see
// internal/boltkv), or, for tests, an in-memory stand-in. Nothing above
// this package knows that buckets, not B+trees-of-B+trees, sit underneath.
package storage

import "context"

// Tick is a 64-bit integer timestamp (100-ns units since a fixed epoch).
type Tick int64

// Storage is the transactional substrate: it hands out scoped read and
// write transaction acquisitions, each of which must be released on every
// exit path (success, error, or cancellation).
type Storage interface {
	// BeginRead opens a new read transaction. The returned ReadTx observes
	// a snapshot as of this call and must be released via Rollback.
	BeginRead(ctx context.Context) (ReadTx, error)

	// BeginWrite opens a new write transaction. Acquiring it may block
	// until a prior writer commits or aborts: write transactions are
	// serialized.
	BeginWrite(ctx context.Context) (WriteTx, error)

	// Close releases the underlying substrate. Safe to call once.
	Close() error

	// SizeInBytes reports the approximate size of the backing store.
	SizeInBytes() (int64, error)
}

// ReadTx is a read-only transaction scoped to a snapshot of the store.
type ReadTx interface {
	// Tree returns the named tree, or nil if it has never been created.
	Tree(name string) (Tree, error)

	// Rollback releases the transaction. Always safe to call, including
	// after a prior Rollback.
	Rollback() error
}

// WriteTx is a read/write transaction. Only one WriteTx may be open at a
// time against a given Storage; BeginWrite blocks until any prior writer
// has committed or rolled back.
type WriteTx interface {
	// Tree returns the named tree, or nil if it has never been created.
	Tree(name string) (Tree, error)

	// CreateTreeIfNotExists returns the named tree, creating it first if
	// necessary. Idempotent.
	CreateTreeIfNotExists(name string) (Tree, error)

	// Commit persists all operations performed through this transaction.
	Commit() error

	// Rollback discards all operations performed through this transaction.
	// Safe to call after Commit (a no-op in that case).
	Rollback() error
}

// Tree is a named, byte-keyed namespace. In this engine it is used two
// ways: directly, for small fixed records ($metadata), and as the parent
// of per-key FixedTrees (series-w, periods-w).
type Tree interface {
	// Get returns the raw value stored at key, or nil if absent.
	Get(key []byte) ([]byte, error)

	// Put stores value at key, overwriting any existing entry. Only valid
	// on a tree obtained through a WriteTx.
	Put(key, value []byte) error

	// Delete removes key, if present. Only valid on a tree obtained
	// through a WriteTx. Deleting an absent key is not an error.
	Delete(key []byte) error

	// FixedTreeFor returns the fixed-size tree nested under key, with the
	// given fixed value width, creating it on first access within a write
	// transaction. Lookups against a ReadTx-derived Tree return nil if the
	// fixed tree does not exist yet.
	FixedTreeFor(key []byte, valueWidth int) (FixedTree, error)

	// Iterate returns a prefix-bounded cursor over the keys directly under
	// this tree: the *names* of nested fixed trees and the keys of plain
	// records alike (used for rollup invalidation, which must enumerate
	// every period duration cached for one series key without scanning
	// unrelated keys, and for listing $metadata prefix records).
	Iterate(requiredPrefix []byte) (NameIterator, error)
}

// NameIterator walks the names of fixed trees nested under a parent Tree,
// restricted to those sharing a required prefix.
type NameIterator interface {
	// Seek positions the cursor at the first name >= k (k is compared as
	// raw bytes). Returns false if no such name exists.
	Seek(k []byte) bool

	// Current returns the name at the cursor's current position.
	Current() []byte

	// Next advances the cursor. Returns false when exhausted or when the
	// next name no longer shares RequiredPrefix.
	Next() bool

	// RequiredPrefix is the prefix this iterator was constrained to.
	RequiredPrefix() []byte
}

// FixedTree is an ordered map from Tick to a fixed-width byte blob.
type FixedTree interface {
	// Add stores value (len(value) == the tree's configured width) at key,
	// overwriting any existing entry at that tick.
	Add(key Tick, value []byte) error

	// Delete removes the entry at key, if any. Deleting an absent key is
	// not an error.
	Delete(key Tick) error

	// Iterate returns a cursor over this fixed tree's entries in strictly
	// ascending key order.
	Iterate() (FixedIterator, error)
}

// FixedIterator walks a FixedTree's entries in ascending Tick order.
type FixedIterator interface {
	// Seek positions the cursor at the first entry with key >= k. Returns
	// false if no such entry exists.
	Seek(k Tick) bool

	// CurrentKey returns the tick at the cursor's current position.
	CurrentKey() Tick

	// CurrentValue returns a reader over the value at the cursor's
	// current position. The returned bytes must not be retained past the
	// next cursor movement.
	CurrentValue() ([]byte, error)

	// MoveNext advances the cursor. Returns false when exhausted.
	MoveNext() bool
}
