package tsengine

import (
	"bytes"
	"encoding/json"

	tsconfig "github.com/ClusterCockpit/ts-rollup-store/internal/config"
)

// Config controls how a Store's storage substrate is opened.
//
// Fields:
//   - RunInMemory: back the store with a private temporary file that is
//     removed on Close, instead of a file under DataDirectory (default
//     false). The data still passes through that file on disk.
//   - DataDirectory: directory the primary database file lives in.
//   - TempPath, JournalPath, AllowIncrementalBackups: accepted and
//     decoded, but not read by Open; they have no effect on the store.
type Config struct {
	RunInMemory             bool   `json:"run-in-memory"`
	DataDirectory           string `json:"data-directory"`
	TempPath                string `json:"temp-path"`
	JournalPath             string `json:"journal-path"`
	AllowIncrementalBackups bool   `json:"allow-incremental-backups"`
}

// DecodeConfig validates raw against configSchema and decodes it into a
// Config, rejecting unknown fields. A schema violation or malformed
// document is returned to the caller as InvalidArgument; nothing here
// terminates the process.
func DecodeConfig(raw json.RawMessage) (Config, error) {
	if err := tsconfig.Validate(configSchema, raw); err != nil {
		return Config{}, wrapErr(KindInvalidArgument, "validate config", err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, wrapErr(KindInvalidArgument, "decode config", err)
	}
	return cfg, nil
}
