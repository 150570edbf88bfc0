// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scanner/scanner/internal/log"
)

// DefaultStreamURL is the Wikimedia EventStreams recentchange feed.
const DefaultStreamURL = "https://stream.wikimedia.org/v2/stream/recentchange"

// Duration wraps time.Duration so YAML values like "10s" decode directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Stream holds the event feed connection settings.
type Stream struct {
	URL            string   `yaml:"url"`
	ConnectTimeout Duration `yaml:"connectTimeout"`
	BackoffInitial Duration `yaml:"backoffInitial"`
	BackoffMax     Duration `yaml:"backoffMax"`
}

// Log holds the match-log settings.
type Log struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Metrics holds the optional prometheus listener settings. An empty Addr
// disables the listener; counters are maintained either way.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Filter is one named filter definition as it appears in the config file.
// Field is a convenience for single-field selectors; Fields takes precedence
// when both are set.
type Filter struct {
	Field           string   `yaml:"field"`
	Fields          []string `yaml:"fields"`
	Pattern         string   `yaml:"pattern"`
	CaseInsensitive bool     `yaml:"caseInsensitive"`
	Keywords        []string `yaml:"keywords"`
	MaxEditCount    int      `yaml:"maxEditCount"`
}

// Type is the in-memory representation of the loaded configuration. It is
// treated as validated and immutable once Load returns.
type Type struct {
	Source  string            `yaml:"-"`
	Stream  Stream            `yaml:"stream"`
	Site    string            `yaml:"site"`
	Log     Log               `yaml:"log"`
	Metrics Metrics           `yaml:"metrics"`
	Filters map[string]Filter `yaml:"filters"`
}

// Load reads the YAML configuration file and validates it. If cfgFilePath is
// provided it overrides the standard path selection.
func Load(cfgFilePath ...string) (Type, error) {
	var path string
	var err error
	if len(cfgFilePath) == 1 && cfgFilePath[0] != "" {
		path = cfgFilePath[0]
	} else if path, err = getConfigFile(); err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{}, err
	}

	var cfg Type
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return Type{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Source = path

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Type{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (cfg *Type) applyDefaults() {
	if cfg.Stream.URL == "" {
		cfg.Stream.URL = DefaultStreamURL
	}
	if cfg.Stream.ConnectTimeout == 0 {
		cfg.Stream.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.Stream.BackoffInitial == 0 {
		cfg.Stream.BackoffInitial = Duration(time.Second)
	}
	if cfg.Stream.BackoffMax == 0 {
		cfg.Stream.BackoffMax = Duration(30 * time.Second)
	}
	if cfg.Site == "" {
		cfg.Site = "en.wikipedia.org"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "match"
	}
}

func (cfg *Type) validate() error {
	switch cfg.Log.Level {
	case "none", "match", "all":
	default:
		return fmt.Errorf("log.level must be none, match or all, got %q", cfg.Log.Level)
	}
	if len(cfg.Filters) == 0 {
		return fmt.Errorf("no filters configured")
	}
	for name, f := range cfg.Filters {
		if f.Pattern == "" {
			return fmt.Errorf("filter %q has no pattern", name)
		}
		if f.Field == "" && len(f.Fields) == 0 {
			return fmt.Errorf("filter %q selects no fields", name)
		}
		if f.MaxEditCount < 0 {
			return fmt.Errorf("filter %q: maxEditCount must be >= 0", name)
		}
	}
	return nil
}

// getConfigFile returns the absolute path to the YAML config file. If the
// SCANNER_CFG_FILE environment variable is set, it is treated as the full
// path to the config file. Otherwise, the OS-specific user configuration
// directory returned by os.UserConfigDir is used with the filename
// "scanner.yaml". The file must exist and not be a directory.
func getConfigFile() (string, error) {
	if cfgPath := os.Getenv("SCANNER_CFG_FILE"); cfgPath != "" {
		if fileInfo, err := os.Stat(cfgPath); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file from SCANNER_CFG_FILE: %s", cfgPath)
				return cfgPath, nil
			}
			return "", fmt.Errorf("SCANNER_CFG_FILE points to a directory: %s", cfgPath)
		}
		return "", fmt.Errorf("config file not found at SCANNER_CFG_FILE path: %s", cfgPath)
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	file := filepath.Join(dir, "scanner.yaml")
	if fileInfo, err := os.Stat(file); err == nil {
		if !fileInfo.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, nil
		}
	}

	return "", fmt.Errorf("no config file found in standard locations")
}
