// Package cli implements the stexec command line
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jzx17/goexecutor/internal/config"
	"github.com/jzx17/goexecutor/internal/logging"
	"github.com/jzx17/goexecutor/internal/output"
	"github.com/spf13/cobra"
)

// app holds state shared by the subcommands of one root command
type app struct {
	manager *config.Manager
	config  *config.Config
	logger  *logging.Logger
	cfgFile string
	verbose bool
	noColor bool
}

func (a *app) formatter() *output.TableFormatter {
	return output.NewTableFormatter(&output.Options{NoColor: a.noColor})
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{manager: config.NewManager("")}

	rootCmd := &cobra.Command{
		Use:   "stexec",
		Short: "stexec - single goroutine event loop executor",
		Long: `stexec drives a single goroutine event loop executor.
It runs synthetic workloads against the executor, reports the properties of its
loop goroutine and prints the effective configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./.stexec.yaml or $HOME/.stexec.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output with debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error, off)")
	flags.String("name", "stexec", "executor name")
	flags.Int("queue-capacity", 0, "pending task limit, 0 means unbounded")
	flags.String("saturation", "reject", "full queue policy (reject, block)")
	flags.Duration("submit-timeout", 0, "how long a blocked submission may wait, 0 waits until shutdown")
	flags.Bool("reject-while-shutting-down", false, "refuse submissions once graceful shutdown starts")
	flags.Duration("idle-poll", 0, "wake an idle loop on this interval, 0 disables")
	flags.Duration("quiet-period", 2*time.Second, "graceful shutdown quiet period")
	flags.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown ceiling")
	flags.Bool("lock-os-thread", false, "pin the loop goroutine to its OS thread")
	flags.Int("priority", 5, "loop thread priority (1-10)")

	a.bind(rootCmd, map[string]string{
		"log.level":                        "log-level",
		"executor.name":                    "name",
		"executor.queueCapacity":           "queue-capacity",
		"executor.saturationPolicy":        "saturation",
		"executor.submitTimeout":           "submit-timeout",
		"executor.rejectWhileShuttingDown": "reject-while-shutting-down",
		"executor.idlePollInterval":        "idle-poll",
		"executor.quietPeriod":             "quiet-period",
		"executor.shutdownTimeout":         "shutdown-timeout",
		"executor.lockOSThread":            "lock-os-thread",
		"executor.priority":                "priority",
	}, true)

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newPropsCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// bind maps config keys onto flags of cmd
func (a *app) bind(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := a.manager.Viper().BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// initConfig initializes configuration and logging
func (a *app) initConfig(cmd *cobra.Command) error {
	a.manager.SetConfigPath(a.cfgFile)

	cfg, err := a.manager.Load()
	if err != nil {
		return err
	}
	a.config = cfg

	a.setupLogging(cmd.ErrOrStderr())

	if a.verbose {
		a.logger.Debug().Log("verbose logging enabled")
		if used := a.manager.ConfigFileUsed(); used != "" {
			a.logger.Debug().Str("file", used).Log("loaded configuration")
		}
	}
	return nil
}

// setupLogging configures structured logging
func (a *app) setupLogging(w io.Writer) {
	level := logging.ParseLevel(a.config.Log.Level)
	if a.verbose {
		level = logging.ParseLevel("debug")
	}

	opts := logging.DefaultOptions()
	opts.Writer = w
	opts.Level = level
	a.logger = logging.New(opts)
}
