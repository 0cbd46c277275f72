package tsengine

import (
	"context"
	"fmt"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
	"github.com/google/uuid"
)

const (
	metadataTree    = "$metadata"
	bootstrapTree   = "data"
	metadataIDKey   = "id"
	prefixKeyPrefix = "prefixes-"
)

func prefixMetadataKey(prefix string) []byte {
	return []byte(prefixKeyPrefix + prefix)
}

// seriesTreeName and periodsTreeName name the per-arity parent trees.
func seriesTreeName(w byte) string  { return fmt.Sprintf("series-%d", w) }
func periodsTreeName(w byte) string { return fmt.Sprintf("periods-%d", w) }

// bootstrapMetadata creates the reserved "data" tree and the server id
// under $metadata if this is the store's first open, or reads the
// existing id otherwise. The id, once written, never changes for the
// life of the store.
func bootstrapMetadata(ctx context.Context, db storage.Storage) (serverID [16]byte, err error) {
	wtx, err := db.BeginWrite(ctx)
	if err != nil {
		return serverID, wrapErr(KindStorageError, "begin bootstrap write", err)
	}
	defer wtx.Rollback()

	if _, err := wtx.CreateTreeIfNotExists(bootstrapTree); err != nil {
		return serverID, wrapErr(KindStorageError, "create bootstrap tree", err)
	}

	meta, err := wtx.CreateTreeIfNotExists(metadataTree)
	if err != nil {
		return serverID, wrapErr(KindStorageError, "create metadata tree", err)
	}

	existing, err := meta.Get([]byte(metadataIDKey))
	if err != nil {
		return serverID, wrapErr(KindStorageError, "read server id", err)
	}
	if existing != nil {
		copy(serverID[:], existing)
		if err := wtx.Commit(); err != nil {
			return serverID, wrapErr(KindStorageError, "commit bootstrap", err)
		}
		return serverID, nil
	}

	id := uuid.New()
	copy(serverID[:], id[:])
	if err := meta.Put([]byte(metadataIDKey), serverID[:]); err != nil {
		return serverID, wrapErr(KindStorageError, "write server id", err)
	}
	if err := wtx.Commit(); err != nil {
		return serverID, wrapErr(KindStorageError, "commit bootstrap", err)
	}
	return serverID, nil
}

// createPrefixConfiguration registers prefix as having series arity w,
// failing with AlreadyExists if prefix is already registered.
func createPrefixConfiguration(ctx context.Context, db storage.Storage, prefix string, w byte) error {
	wtx, err := db.BeginWrite(ctx)
	if err != nil {
		return wrapErr(KindStorageError, "begin write", err)
	}
	defer wtx.Rollback()

	meta, err := wtx.CreateTreeIfNotExists(metadataTree)
	if err != nil {
		return wrapErr(KindStorageError, "create metadata tree", err)
	}

	existing, err := meta.Get(prefixMetadataKey(prefix))
	if err != nil {
		return wrapErr(KindStorageError, "read prefix configuration", err)
	}
	if existing != nil {
		return newErr(KindAlreadyExists, fmt.Sprintf("prefix configuration %q already exists", prefix))
	}

	if err := meta.Put(prefixMetadataKey(prefix), []byte{w}); err != nil {
		return wrapErr(KindStorageError, "write prefix configuration", err)
	}
	if err := wtx.Commit(); err != nil {
		return wrapErr(KindStorageError, "commit prefix configuration", err)
	}
	return nil
}

// deletePrefixConfiguration unregisters prefix, failing with NotFound if it
// was never registered, or HasData if raw series data exists under it.
func deletePrefixConfiguration(ctx context.Context, db storage.Storage, prefix string) error {
	wtx, err := db.BeginWrite(ctx)
	if err != nil {
		return wrapErr(KindStorageError, "begin write", err)
	}
	defer wtx.Rollback()

	meta, err := wtx.CreateTreeIfNotExists(metadataTree)
	if err != nil {
		return wrapErr(KindStorageError, "create metadata tree", err)
	}

	wBytes, err := meta.Get(prefixMetadataKey(prefix))
	if err != nil {
		return wrapErr(KindStorageError, "read prefix configuration", err)
	}
	if wBytes == nil {
		return newErr(KindNotFound, fmt.Sprintf("prefix configuration %q not found", prefix))
	}
	w := wBytes[0]

	series, err := wtx.Tree(seriesTreeName(w))
	if err != nil {
		return wrapErr(KindStorageError, "read series tree", err)
	}
	if series != nil {
		it, err := series.Iterate([]byte(prefix))
		if err != nil {
			return wrapErr(KindStorageError, "iterate series tree", err)
		}
		if it.Seek(it.RequiredPrefix()) {
			return newErr(KindHasData, fmt.Sprintf("prefix %q still has series data", prefix))
		}
	}

	if err := meta.Delete(prefixMetadataKey(prefix)); err != nil {
		return wrapErr(KindStorageError, "delete prefix configuration", err)
	}
	if err := wtx.Commit(); err != nil {
		return wrapErr(KindStorageError, "commit prefix configuration delete", err)
	}
	return nil
}

// getPrefixConfiguration is left unimplemented per the deferred design
// decision on reading prefix records back (spec open question).
func getPrefixConfiguration(_ context.Context, _ storage.Storage, _ string) (byte, error) {
	return 0, newErr(KindNotImplemented, "GetPrefixConfiguration is not implemented")
}
