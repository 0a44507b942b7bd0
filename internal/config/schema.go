// Package config provides configuration parsing and validation for volley runs.
package config

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a run.
//
// Example YAML:
//
//	name: "session churn"
//	target:
//	  baseUrl: "http://localhost:8080"
//	  createServiceId: "svc-create"
//	  deleteServiceId: "svc-delete"
//	  templateName: "global(lfg)"
//	run:
//	  workers: 5
//	  delay: 500        # bare integers are milliseconds
//	  description: "hello"
//	  subjectId: "1000"
//	credentials:
//	  file: tokens.txt
type Config struct {
	// Name of the run (for console output)
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name"`

	Target      TargetConfig      `json:"target" yaml:"target" toml:"target"`
	Run         RunConfig         `json:"run" yaml:"run" toml:"run"`
	Credentials CredentialsConfig `json:"credentials" yaml:"credentials" toml:"credentials"`
	Backoff     BackoffConfig     `json:"backoff,omitempty" yaml:"backoff,omitempty" toml:"backoff"`
	Stats       StatsConfig       `json:"stats,omitempty" yaml:"stats,omitempty" toml:"stats"`
	Logging     LoggingConfig     `json:"logging,omitempty" yaml:"logging,omitempty" toml:"logging"`
	Metrics     MetricsConfig     `json:"metrics,omitempty" yaml:"metrics,omitempty" toml:"metrics"`
}

// TargetConfig describes the remote API the workers talk to.
type TargetConfig struct {
	// BaseURL is the scheme and host every path is resolved against
	BaseURL string `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`

	// Timeout bounds every remote call
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`

	// CreateServiceID scopes the create call.
	CreateServiceID string `json:"createServiceId" yaml:"createServiceId" toml:"createServiceId"`

	// DeleteServiceID scopes the delete call and the announce reference.
	// It is deliberately independent of CreateServiceID.
	DeleteServiceID string `json:"deleteServiceId" yaml:"deleteServiceId" toml:"deleteServiceId"`

	// TemplateName is shared by the create and delete paths
	TemplateName string `json:"templateName,omitempty" yaml:"templateName,omitempty" toml:"templateName"`

	ContractHeader  string `json:"contractHeader,omitempty" yaml:"contractHeader,omitempty" toml:"contractHeader"`
	ContractVersion string `json:"contractVersion,omitempty" yaml:"contractVersion,omitempty" toml:"contractVersion"`
	UserAgent       string `json:"userAgent,omitempty" yaml:"userAgent,omitempty" toml:"userAgent"`

	// Headers are extra headers sent on every call
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers"`
}

// RunConfig controls the worker pool and the payloads it sends.
type RunConfig struct {
	Workers int `json:"workers" yaml:"workers" toml:"workers"`

	// Delay between announcing a resource and deleting it
	Delay Duration `json:"delay" yaml:"delay" toml:"delay"`

	// Description is embedded into every create payload
	Description string `json:"description" yaml:"description" toml:"description"`

	Locale          string   `json:"locale,omitempty" yaml:"locale,omitempty" toml:"locale"`
	SubjectID       string   `json:"subjectId" yaml:"subjectId" toml:"subjectId"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags"`
	ConfirmedTarget int      `json:"confirmedTarget,omitempty" yaml:"confirmedTarget,omitempty" toml:"confirmedTarget"`

	// SearchVisibility and RoleType shape the create payload; empty values
	// fall back to "public" and "lfg".
	SearchVisibility string `json:"searchVisibility,omitempty" yaml:"searchVisibility,omitempty" toml:"searchVisibility"`
	RoleType         string `json:"roleType,omitempty" yaml:"roleType,omitempty" toml:"roleType"`

	// MaxRate caps iteration starts per second across all workers; zero
	// means unlimited. MaxBurst lets that many starts bunch up after a stall.
	MaxRate  float64 `json:"maxRate,omitempty" yaml:"maxRate,omitempty" toml:"maxRate"`
	MaxBurst float64 `json:"maxBurst,omitempty" yaml:"maxBurst,omitempty" toml:"maxBurst"`

	// DrainTimeout bounds how long shutdown waits for scheduled deletes.
	// Zero means delay plus the target timeout.
	DrainTimeout Duration `json:"drainTimeout,omitempty" yaml:"drainTimeout,omitempty" toml:"drainTimeout"`
}

// CredentialsConfig points at the credential source.
type CredentialsConfig struct {
	File             string `json:"file" yaml:"file" toml:"file"`
	FailureThreshold int    `json:"failureThreshold,omitempty" yaml:"failureThreshold,omitempty" toml:"failureThreshold"`
}

// BackoffConfig bounds the per-worker fault delay.
type BackoffConfig struct {
	Floor   Duration `json:"floor,omitempty" yaml:"floor,omitempty" toml:"floor"`
	Ceiling Duration `json:"ceiling,omitempty" yaml:"ceiling,omitempty" toml:"ceiling"`
}

// StatsConfig controls the throughput reporter.
type StatsConfig struct {
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval"`
}

// LoggingConfig controls the persistent log sink.
type LoggingConfig struct {
	File       string `json:"file,omitempty" yaml:"file,omitempty" toml:"file"`
	Level      string `json:"level,omitempty" yaml:"level,omitempty" toml:"level"`
	MaxSizeMB  int    `json:"maxSizeMb,omitempty" yaml:"maxSizeMb,omitempty" toml:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups,omitempty" yaml:"maxBackups,omitempty" toml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays,omitempty" yaml:"maxAgeDays,omitempty" toml:"maxAgeDays"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty" toml:"compress"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr"`
}

// Duration is a time.Duration that can be unmarshaled from JSON, YAML and
// TOML. Strings use Go duration syntax; bare integers are milliseconds.
type Duration time.Duration

// ParseDuration parses "500ms", "2s", "1m30s" or a bare integer of milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid duration format: %s", s)
	}
	return d, nil
}

// GetDuration returns the duration or a default if zero.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = 0
		return nil
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: duration must be a scalar", value.Line)
	}
	dur, err := ParseDuration(value.Value)
	if err != nil {
		return errors.Annotatef(err, "line %d", value.Line)
	}
	*d = Duration(dur)
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (d *Duration) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		dur, err := ParseDuration(val)
		if err != nil {
			return err
		}
		*d = Duration(dur)
	case int64:
		*d = Duration(time.Duration(val) * time.Millisecond)
	default:
		return errors.Errorf("unsupported duration value %v", v)
	}
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
