// Package config loads rowgend's TOML configuration file, grounded on the
// toml-decode style of the teacher pack's schema-file parser
// (internal/parser/toml/parser.go).
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/corvid-labs/rowgen/internal/model"
)

// Config is the top-level TOML document rowgend reads at startup.
type Config struct {
	Server    Server    `toml:"server"`
	Store     Store     `toml:"store"`
	Inference Inference `toml:"inference"`
}

// Server maps [server].
type Server struct {
	Addr string `toml:"addr"`
}

// Store maps [store]. Driver is "sqlite" or "postgres"; DSN is the sqlite
// file path or the postgres connection string respectively.
type Store struct {
	Driver    string `toml:"driver"`
	DSN       string `toml:"dsn"`
	ModelsDir string `toml:"models_dir"`
}

// Inference maps [inference], overriding model.DefaultInferenceConfig()
// field by field. Zero values mean "use the default".
type Inference struct {
	MaxTokens   int     `toml:"max_tokens"`
	TopK        int     `toml:"top_k"`
	TopP        float32 `toml:"top_p"`
	Temperature float32 `toml:"temperature"`
	BatchSize   int     `toml:"batch_size"`
	ContextSize uint32  `toml:"context_size"`
	AddBOS      *bool   `toml:"add_bos"`
}

// Default returns the configuration rowgend runs with if no file is
// supplied: an in-process sqlite store and the documented inference
// defaults.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Store:  Store{Driver: "sqlite", DSN: "rowgen.db", ModelsDir: "./models"},
	}
}

// Load reads and decodes path as a Config, starting from Default() so a
// partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads TOML content from r, starting from Default().
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// InferenceConfig resolves c.Inference on top of model.DefaultInferenceConfig(),
// treating each zero-valued numeric field as "not set".
func (c Config) InferenceConfig() model.InferenceConfig {
	cfg := model.DefaultInferenceConfig()
	if c.Inference.MaxTokens > 0 {
		cfg.MaxTokens = c.Inference.MaxTokens
	}
	if c.Inference.TopK > 0 {
		cfg.TopK = c.Inference.TopK
	}
	if c.Inference.TopP > 0 {
		cfg.TopP = c.Inference.TopP
	}
	if c.Inference.Temperature > 0 {
		cfg.Temperature = c.Inference.Temperature
	}
	if c.Inference.BatchSize > 0 {
		cfg.BatchSize = c.Inference.BatchSize
	}
	if c.Inference.ContextSize > 0 {
		cfg.ContextSize = c.Inference.ContextSize
	}
	if c.Inference.AddBOS != nil {
		cfg.AddBOS = *c.Inference.AddBOS
	}
	return cfg
}
