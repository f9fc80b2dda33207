package cli

import (
	"fmt"

	"github.com/jzx17/goexecutor/pkg/executor"
	"github.com/spf13/cobra"
)

// newPropsCmd creates the props command
func newPropsCmd(a *app) *cobra.Command {
	var withStack bool

	cmd := &cobra.Command{
		Use:   "props",
		Short: "Show the properties of an executor's loop goroutine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProps(cmd, withStack)
		},
	}
	cmd.Flags().BoolVar(&withStack, "stack", false, "include the loop goroutine's stack")

	return cmd
}

func (a *app) runProps(cmd *cobra.Command, withStack bool) error {
	ctx := cmd.Context()

	execConfig, err := a.config.ExecutorConfig(a.logger)
	if err != nil {
		return err
	}
	exec, err := executor.NewSingleThreadExecutor(execConfig)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}
	defer func() {
		exec.ShutdownGracefully(0, 0)
		_ = exec.AwaitTermination(ctx)
	}()

	props, err := exec.ThreadProperties(ctx)
	if err != nil {
		return fmt.Errorf("failed to read thread properties: %w", err)
	}
	return a.formatter().FormatProperties(cmd.OutOrStdout(), props, withStack)
}
