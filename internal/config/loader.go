package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultWorkers          = 5
	DefaultFailureThreshold = 10
	DefaultBackoffFloor     = time.Second
	DefaultBackoffCeiling   = 60 * time.Second
	DefaultStatsInterval    = 3 * time.Second
	DefaultTemplateName     = "global(lfg)"
	DefaultContractHeader   = "x-contract-version"
	DefaultContractVersion  = "107"
	DefaultUserAgent        = "volley/0.1.0"
	DefaultLocale           = "en-US"
	DefaultConfirmedTarget  = 15
	DefaultCredentialsFile  = "tokens.txt"
	DefaultLogFile          = "debug_log.txt"
	DefaultLogLevel         = "info"
)

// LoadConfig loads a configuration from a file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//   - .toml -> TOML
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read config file")
	}

	return ParseConfig(data, path)
}

// ParseConfig parses configuration data. The format follows the extension
// of path and falls back to YAML.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, errors.Annotate(err, "failed to parse JSON config")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.Annotate(err, "failed to parse TOML config")
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Annotate(err, "failed to parse YAML config")
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Annotatef(err, "failed to parse config (unknown format %s)", ext)
		}
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "volley"
	}

	t := &cfg.Target
	if t.Timeout == 0 {
		t.Timeout = Duration(DefaultTimeout)
	}
	if t.TemplateName == "" {
		t.TemplateName = DefaultTemplateName
	}
	if t.ContractHeader == "" {
		t.ContractHeader = DefaultContractHeader
	}
	if t.ContractVersion == "" {
		t.ContractVersion = DefaultContractVersion
	}
	if t.UserAgent == "" {
		t.UserAgent = DefaultUserAgent
	}

	r := &cfg.Run
	if r.Workers == 0 {
		r.Workers = DefaultWorkers
	}
	if r.Locale == "" {
		r.Locale = DefaultLocale
	}
	if r.ConfirmedTarget == 0 {
		r.ConfirmedTarget = DefaultConfirmedTarget
	}
	if r.DrainTimeout == 0 {
		r.DrainTimeout = r.Delay + t.Timeout
	}

	if cfg.Credentials.File == "" {
		cfg.Credentials.File = DefaultCredentialsFile
	}
	if cfg.Credentials.FailureThreshold == 0 {
		cfg.Credentials.FailureThreshold = DefaultFailureThreshold
	}

	if cfg.Backoff.Floor == 0 {
		cfg.Backoff.Floor = Duration(DefaultBackoffFloor)
	}
	if cfg.Backoff.Ceiling == 0 {
		cfg.Backoff.Ceiling = Duration(DefaultBackoffCeiling)
	}

	if cfg.Stats.Interval == 0 {
		cfg.Stats.Interval = Duration(DefaultStatsInterval)
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
}
