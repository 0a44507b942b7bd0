package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/credentials"
	"github.com/wesleyorama2/volley/internal/payload"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration without sending anything",
		Args:  cobra.NoArgs,
		RunE:  validateCommand,
	}
	addConfigFlags(cmd)
	cmd.Flags().Bool("check-credentials", false, "Also load the credential file")
	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := payload.NewBuilder(payloadOptions(cfg)); err != nil {
		return err
	}

	if check, _ := cmd.Flags().GetBool("check-credentials"); check {
		tokens, err := credentials.LoadFile(cfg.Credentials.File)
		if err != nil {
			return err
		}
		if _, err := credentials.NewPool(tokens, cfg.Credentials.FailureThreshold); err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d credentials\n", len(tokens))
	}

	fmt.Fprintln(out, "Configuration is valid")
	return nil
}
