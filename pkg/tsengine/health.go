package tsengine

import (
	"context"
	"strings"
)

// HealthReport is a read-only snapshot of a Store's diagnostic state:
// server identity, on-disk size, and every registered prefix configuration
// with its series arity.
type HealthReport struct {
	ServerID    [16]byte
	SizeInBytes int64
	Prefixes    map[string]byte
}

// SizeInGB is SizeInBytes converted for human-readable reporting.
func (h HealthReport) SizeInGB() float64 {
	return float64(h.SizeInBytes) / 1e9
}

// Health reports the store's current server id, approximate on-disk size,
// and registered prefix configurations. Read-only; takes no transactional
// lock beyond a single read transaction over $metadata.
func (s *Store) Health(ctx context.Context) (HealthReport, error) {
	if s.closed.Load() {
		return HealthReport{}, ErrClosed
	}

	size, err := s.db.SizeInBytes()
	if err != nil {
		return HealthReport{}, wrapErr(KindStorageError, "read storage size", err)
	}

	rtx, err := s.db.BeginRead(ctx)
	if err != nil {
		return HealthReport{}, wrapErr(KindStorageError, "begin read transaction", err)
	}
	defer rtx.Rollback()

	report := HealthReport{ServerID: s.serverID, SizeInBytes: size, Prefixes: make(map[string]byte)}

	meta, err := rtx.Tree(metadataTree)
	if err != nil {
		return HealthReport{}, wrapErr(KindStorageError, "read metadata tree", err)
	}
	if meta == nil {
		return report, nil
	}

	it, err := meta.Iterate([]byte(prefixKeyPrefix))
	if err != nil {
		return HealthReport{}, wrapErr(KindStorageError, "iterate metadata tree", err)
	}
	for ok := it.Seek(it.RequiredPrefix()); ok; ok = it.Next() {
		name := it.Current()
		val, err := meta.Get(name)
		if err != nil {
			return HealthReport{}, wrapErr(KindStorageError, "read prefix configuration", err)
		}
		if len(val) != 1 {
			continue
		}
		prefix := strings.TrimPrefix(string(name), prefixKeyPrefix)
		report.Prefixes[prefix] = val[0]
	}

	return report, nil
}
