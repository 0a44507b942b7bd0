package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Target: TargetConfig{
			BaseURL:         "http://localhost:8080",
			CreateServiceID: "svc-create",
			DeleteServiceID: "svc-delete",
		},
		Run: RunConfig{
			Workers:   2,
			Delay:     Duration(100 * time.Millisecond),
			SubjectID: "1",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func fieldsOf(err error) []string {
	verrs, ok := err.(*ValidationErrors)
	if !ok {
		return nil
	}
	var fields []string
	for _, e := range verrs.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidate_MinimalValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Target(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"missing base url", func(c *Config) { c.Target.BaseURL = "" }, "target.baseUrl"},
		{"relative base url", func(c *Config) { c.Target.BaseURL = "localhost" }, "target.baseUrl"},
		{"unsupported scheme", func(c *Config) { c.Target.BaseURL = "ftp://host" }, "target.baseUrl"},
		{"missing create service", func(c *Config) { c.Target.CreateServiceID = "" }, "target.createServiceId"},
		{"missing delete service", func(c *Config) { c.Target.DeleteServiceID = "" }, "target.deleteServiceId"},
		{"slash in template", func(c *Config) { c.Target.TemplateName = "a/b" }, "target.templateName"},
		{"zero timeout", func(c *Config) { c.Target.Timeout = 0 }, "target.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldsOf(err), tt.field)
		})
	}
}

func TestValidate_RunAndCredentials(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }, "run.workers"},
		{"negative delay", func(c *Config) { c.Run.Delay = Duration(-time.Second) }, "run.delay"},
		{"missing subject", func(c *Config) { c.Run.SubjectID = "" }, "run.subjectId"},
		{"negative max rate", func(c *Config) { c.Run.MaxRate = -1 }, "run.maxRate"},
		{"zero threshold", func(c *Config) { c.Credentials.FailureThreshold = 0 }, "credentials.failureThreshold"},
		{"ceiling below floor", func(c *Config) { c.Backoff.Ceiling = Duration(time.Millisecond) }, "backoff.ceiling"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldsOf(err), tt.field)
		})
	}
}

func TestValidationErrors(t *testing.T) {
	errs := &ValidationErrors{}
	assert.Equal(t, "no validation errors", errs.Error())
	assert.False(t, errs.HasErrors())

	errs.Add("a", "first")
	assert.Equal(t, "validation error on field 'a': first", errs.Error())

	errs.Add("", "second")
	assert.Contains(t, errs.Error(), "2 validation errors")
	assert.Contains(t, errs.Error(), "validation error: second")
}
