// Package config loads the settings shared by the arbor commands.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file, a .env file next to it, the process environment and finally
// command line flags, which the caller applies to the returned Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no path is given.
const FileName = ".arbor.yaml"

type Config struct {
	Verbosity     int    `yaml:"verbosity"`
	LogFile       string `yaml:"log_file"`
	TimeoutMicros uint64 `yaml:"timeout_micros"`
	// MatchLimit and MaxStartDepth are left to the query cursor when 0.
	MatchLimit    uint32 `yaml:"match_limit"`
	MaxStartDepth uint32 `yaml:"max_start_depth"`

	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
	Database string   `yaml:"database"`

	// Extensions maps file extensions to language names. Files with other
	// extensions are classified by content.
	Extensions map[string]string `yaml:"extensions"`
	// Tables maps language names to table files written by `arbor table
	// dump`. They are loaded next to the built-in languages.
	Tables map[string]string `yaml:"tables"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Include:  []string{"**/*"},
		Exclude:  []string{"**/.git/**", "**/node_modules/**"},
		Database: ".arbor/index.db",
		Extensions: map[string]string{
			".calc": "calc",
			".json": "json",
			".lisp": "lisp",
		},
	}
}

// Load reads the configuration at path. An empty path means FileName in
// the working directory, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	dotenv, err := godotenv.Read(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	if err := cfg.applyEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ARBOR_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARBOR_VERBOSITY: %w", err)
		}
		c.Verbosity = n
	}
	if v := getenv("ARBOR_LOG"); v != "" {
		c.LogFile = v
	}
	if v := getenv("ARBOR_TIMEOUT_MICROS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ARBOR_TIMEOUT_MICROS: %w", err)
		}
		c.TimeoutMicros = n
	}
	if v := getenv("ARBOR_MATCH_LIMIT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("ARBOR_MATCH_LIMIT: %w", err)
		}
		c.MatchLimit = uint32(n)
	}
	if v := getenv("ARBOR_DATABASE"); v != "" {
		c.Database = v
	}
	return nil
}
