// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of ts-rollup-store, adapted from
// cc-backend's internal/config package.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks instance against schema, returning an error describing
// the first violation rather than terminating the process: unlike
// cc-backend's own startup-time config, this schema guards a library entry
// point that can be called many times over a process's life, so a bad
// config document must be rejected back to the caller, not treated as
// fatal.
func Validate(schema string, instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("schema.json", schema)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("unmarshal config document: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("validate config document: %w", err)
	}
	return nil
}
