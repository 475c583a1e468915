package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds the creation-time parameters a config file can pin down
// so they don't have to be retyped as flags on every invocation.
type Config struct {
	TableSize    uint32 `json:"table_size,omitempty"`
	MaxKeyLen    uint16 `json:"max_key_len,omitempty"`
	NodeAttrSize uint16 `json:"node_attr_size,omitempty"`
	EdgeAttrSize uint16 `json:"edge_attr_size,omitempty"`
	AdvisoryLock bool   `json:"advisory_lock,omitempty"`
}

// loadConfig reads a JSONC (JSON-with-comments) config file at path. A
// missing path is not an error — callers fall back to the library
// defaults in pkg/options.
func loadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config JSON in %s: %w", path, err)
	}
	return cfg, nil
}
