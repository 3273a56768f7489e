// Package config decodes the optional tegdb.toml describing engine tuning
// and a list of extension names.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/minifish-org/tegdb-sub001/internal/storage"
)

// tomlConfig is the top-level TOML document.
type tomlConfig struct {
	Engine     tomlEngine `toml:"engine"`
	Extensions []string   `toml:"extensions"`
}

type tomlEngine struct {
	MaxKeySize           uint32 `toml:"max_key_size"`
	MaxValueSize         uint32 `toml:"max_value_size"`
	InlineValueThreshold uint32 `toml:"inline_value_threshold"`
	PreallocateSize      int64  `toml:"preallocate_size"`
}

// Config is the resolved, defaulted configuration tegdb.Open consumes.
type Config struct {
	Storage    storage.Options
	Extensions []string // names from the "extensions" key; OpenWithConfig does not read them
}

// Default returns the configuration used when no tegdb.toml is present.
func Default() Config {
	return Config{Storage: storage.DefaultOptions()}
}

// Load reads and decodes a tegdb.toml file at path, applying
// storage.DefaultOptions() for any field left unset (zero).
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes TOML content from r into a Config, applying
// storage.DefaultOptions() for any field left unset.
func Parse(r io.Reader) (Config, error) {
	var tc tomlConfig
	if _, err := toml.NewDecoder(r).Decode(&tc); err != nil {
		return Config{}, fmt.Errorf("config: decode error: %w", err)
	}

	opts := storage.DefaultOptions()
	if tc.Engine.MaxKeySize != 0 {
		opts.MaxKeySize = tc.Engine.MaxKeySize
	}
	if tc.Engine.MaxValueSize != 0 {
		opts.MaxValueSize = tc.Engine.MaxValueSize
	}
	if tc.Engine.InlineValueThreshold != 0 {
		opts.InlineValueThreshold = tc.Engine.InlineValueThreshold
	}
	if tc.Engine.PreallocateSize != 0 {
		opts.PreallocateSize = tc.Engine.PreallocateSize
	}

	return Config{Storage: opts, Extensions: tc.Extensions}, nil
}
