package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the entire configuration. Defaults are expected to be
// applied already.
//
// Returns nil if valid, or a *ValidationErrors containing every problem found.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateTarget(&c.Target, errs)
	validateRun(&c.Run, errs)

	if c.Credentials.File == "" {
		errs.Add("credentials.file", "credentials file is required")
	}
	if c.Credentials.FailureThreshold < 1 {
		errs.Add("credentials.failureThreshold", "failureThreshold must be at least 1")
	}

	if c.Backoff.Floor <= 0 {
		errs.Add("backoff.floor", "floor must be greater than 0")
	}
	if c.Backoff.Ceiling < c.Backoff.Floor {
		errs.Add("backoff.ceiling", "ceiling cannot be lower than floor")
	}

	if c.Stats.Interval <= 0 {
		errs.Add("stats.interval", "interval must be greater than 0")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", fmt.Sprintf("invalid level: %s", c.Logging.Level))
	}
	if c.Logging.MaxBackups < 0 {
		errs.Add("logging.maxBackups", "maxBackups cannot be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateTarget(t *TargetConfig, errs *ValidationErrors) {
	if t.BaseURL == "" {
		errs.Add("target.baseUrl", "baseUrl is required")
	} else if u, err := url.Parse(t.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("target.baseUrl", fmt.Sprintf("invalid base URL: %s", t.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("target.baseUrl", fmt.Sprintf("unsupported scheme: %s", u.Scheme))
	}

	if t.Timeout <= 0 {
		errs.Add("target.timeout", "timeout must be greater than 0")
	}
	if t.CreateServiceID == "" {
		errs.Add("target.createServiceId", "createServiceId is required")
	}
	if t.DeleteServiceID == "" {
		errs.Add("target.deleteServiceId", "deleteServiceId is required")
	}
	if strings.Contains(t.TemplateName, "/") {
		errs.Add("target.templateName", "templateName cannot contain '/'")
	}

	for key := range t.Headers {
		if strings.TrimSpace(key) == "" {
			errs.Add("target.headers", "header names cannot be empty")
			break
		}
	}
}

func validateRun(r *RunConfig, errs *ValidationErrors) {
	if r.Workers < 1 {
		errs.Add("run.workers", "workers must be at least 1")
	}
	if r.Delay < 0 {
		errs.Add("run.delay", "delay cannot be negative")
	}
	if r.SubjectID == "" {
		errs.Add("run.subjectId", "subjectId is required")
	}
	if r.ConfirmedTarget < 0 {
		errs.Add("run.confirmedTarget", "confirmedTarget cannot be negative")
	}
	if r.MaxRate < 0 {
		errs.Add("run.maxRate", "maxRate cannot be negative")
	}
	if r.MaxBurst < 0 {
		errs.Add("run.maxBurst", "maxBurst cannot be negative")
	}
	if r.DrainTimeout < 0 {
		errs.Add("run.drainTimeout", "drainTimeout cannot be negative")
	}
}
