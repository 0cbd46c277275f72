package tsengine

import (
	"encoding/json"
	"testing"
)

func TestDecodeConfigRunInMemory(t *testing.T) {
	raw := json.RawMessage(`{"run-in-memory": true}`)
	cfg, err := DecodeConfig(raw)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if !cfg.RunInMemory {
		t.Error("RunInMemory = false, want true")
	}
}

func TestDecodeConfigOnDisk(t *testing.T) {
	raw := json.RawMessage(`{
		"data-directory": "/var/lib/tsengine",
		"temp-path": "/tmp/tsengine",
		"journal-path": "/var/lib/tsengine/journal",
		"allow-incremental-backups": true
	}`)
	cfg, err := DecodeConfig(raw)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.DataDirectory != "/var/lib/tsengine" {
		t.Errorf("DataDirectory = %q", cfg.DataDirectory)
	}
	if !cfg.AllowIncrementalBackups {
		t.Error("AllowIncrementalBackups = false, want true")
	}
}

func TestDecodeConfigMissingDataDirectoryRejected(t *testing.T) {
	raw := json.RawMessage(`{"run-in-memory": false}`)
	_, err := DecodeConfig(raw)
	if kind, ok := KindOf(err); !ok || kind != KindInvalidArgument {
		t.Fatalf("DecodeConfig err = %v, want InvalidArgument", err)
	}
}

func TestDecodeConfigWrongFieldTypeRejected(t *testing.T) {
	raw := json.RawMessage(`{"run-in-memory": true, "allow-incremental-backups": "yes"}`)
	_, err := DecodeConfig(raw)
	if kind, ok := KindOf(err); !ok || kind != KindInvalidArgument {
		t.Fatalf("DecodeConfig err = %v, want InvalidArgument", err)
	}
}

func TestDecodeConfigUnknownFieldRejected(t *testing.T) {
	raw := json.RawMessage(`{"run-in-memory": true, "bogus-field": 1}`)
	_, err := DecodeConfig(raw)
	if kind, ok := KindOf(err); !ok || kind != KindInvalidArgument {
		t.Fatalf("DecodeConfig err = %v, want InvalidArgument", err)
	}
}
