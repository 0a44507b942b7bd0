// Package cli implements the volley command line.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the command tree. Each call returns fresh commands so
// flag state never leaks between invocations.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "volley",
		Short:   "Drive a create, announce and delete cycle against a session API",
		Version: version,
		Long: `Volley runs a fixed pool of workers that repeatedly create a session,
announce it, and delete it again after a delay. Workers share a pool of
bearer credentials and rotate to the next one after a run of authorization
failures.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
