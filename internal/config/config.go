// Package config loads tagstorm configuration from a CUE file validated
// against an embedded schema.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/tagstorm/internal/tags"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Database Database `json:"database"`
	Tags     TagFiles `json:"tags"`
	Log      Log      `json:"log"`
	Search   Search   `json:"search"`
}

// Database selects the store backend.
type Database struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// TagFiles names the tag reference data files.
type TagFiles struct {
	Aliases      string `json:"aliases,omitempty"`
	Implications string `json:"implications,omitempty"`
	Blacklist    string `json:"blacklist,omitempty"`
	Deprecations string `json:"deprecations,omitempty"`
}

// Log configures the process logger.
type Log struct {
	Level string `json:"level"`
}

// Search holds search limits.
type Search struct {
	MaxLimit int64 `json:"max_limit"`
}

// Default returns the configuration used when no file is given: a local
// SQLite store and no tag reference data.
func Default() *Config {
	return &Config{
		Database: Database{Driver: "sqlite", DSN: "tagstorm.db"},
		Log:      Log{Level: "info"},
	}
}

// Load reads and validates the config file at path. Relative file paths
// inside it resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse validates CUE source against the schema and decodes it. filename
// is used in error positions only.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse config: %s", details(err))
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %s", details(err))
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func details(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	c.Tags.Aliases = resolve(c.Tags.Aliases)
	c.Tags.Implications = resolve(c.Tags.Implications)
	c.Tags.Blacklist = resolve(c.Tags.Blacklist)
	c.Tags.Deprecations = resolve(c.Tags.Deprecations)

	// SQLite DSNs that are plain file paths follow the same rule.
	if c.Database.Driver == "sqlite" && c.Database.DSN != ":memory:" && !strings.HasPrefix(c.Database.DSN, "file:") {
		c.Database.DSN = resolve(c.Database.DSN)
	}
}

// TagFiles returns the reference data paths for tags.Load.
func (c *Config) TagFiles() tags.Files {
	return tags.Files{
		Aliases:      c.Tags.Aliases,
		Implications: c.Tags.Implications,
		Blacklist:    c.Tags.Blacklist,
		Deprecations: c.Tags.Deprecations,
	}
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
