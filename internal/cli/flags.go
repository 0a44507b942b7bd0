package cli

import (
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/payload"
)

// addConfigFlags registers the flags that override configuration values.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "Configuration file (.yaml, .json or .toml)")
	f.String("base-url", "", "Base URL of the remote API")
	f.String("create-service", "", "Service id used by the create call")
	f.String("delete-service", "", "Service id used by the delete call and announce reference")
	f.String("tokens", "", "Credential file, one token per line")
	f.IntP("workers", "w", 0, "Number of workers")
	f.String("delay", "", "Delay before each delete (e.g. 500ms, 2s; bare numbers are milliseconds)")
	f.StringP("text", "t", "", "Description embedded into every create payload")
	f.String("subject", "", "Subject id set on the creating member")
	f.Int("threshold", 0, "Consecutive authorization failures before rotating credentials")
	f.Float64("max-rate", 0, "Cap iteration starts per second across all workers (0 is unlimited)")
	f.String("log-file", "", "Path of the persistent log")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

// loadConfig reads --config when given and applies flag overrides. It does
// not apply defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	stringFlags := map[string]*string{
		"base-url":       &cfg.Target.BaseURL,
		"create-service": &cfg.Target.CreateServiceID,
		"delete-service": &cfg.Target.DeleteServiceID,
		"tokens":         &cfg.Credentials.File,
		"text":           &cfg.Run.Description,
		"subject":        &cfg.Run.SubjectID,
		"log-file":       &cfg.Logging.File,
		"log-level":      &cfg.Logging.Level,
		"metrics-addr":   &cfg.Metrics.Addr,
	}
	for name, dst := range stringFlags {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	if f.Changed("workers") {
		cfg.Run.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("threshold") {
		cfg.Credentials.FailureThreshold, _ = f.GetInt("threshold")
	}
	if f.Changed("max-rate") {
		cfg.Run.MaxRate, _ = f.GetFloat64("max-rate")
	}
	if f.Changed("delay") {
		raw, _ := f.GetString("delay")
		d, err := config.ParseDuration(raw)
		if err != nil {
			return errors.Annotate(err, "--delay")
		}
		cfg.Run.Delay = config.Duration(d)
	}
	return nil
}

func payloadOptions(cfg *config.Config) payload.Options {
	return payload.Options{
		Description:      cfg.Run.Description,
		Locale:           cfg.Run.Locale,
		SubjectID:        cfg.Run.SubjectID,
		Tags:             cfg.Run.Tags,
		ConfirmedTarget:  cfg.Run.ConfirmedTarget,
		SearchVisibility: cfg.Run.SearchVisibility,
		RoleType:         cfg.Run.RoleType,
		DeleteServiceID:  cfg.Target.DeleteServiceID,
		TemplateName:     cfg.Target.TemplateName,
	}
}
