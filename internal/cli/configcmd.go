package cli

import (
	"github.com/jzx17/goexecutor/internal/output"
	"github.com/spf13/cobra"
)

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as yaml",
		Long: `Config prints the configuration after merging defaults, the config file,
STEXEC_ environment variables and flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.FormatYAML(cmd.OutOrStdout(), a.config)
		},
	}
}
