package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-minixfs/internal/device"
	"github.com/deploymenttheory/go-minixfs/pkg/app"
	"github.com/deploymenttheory/go-minixfs/pkg/app/report"
)

var (
	// Global output flags only
	debug        bool
	quiet        bool
	outputFormat string
	configFile   string

	config *device.Config
	logger = logrus.New()

	// exitStatus is what the process exits with when a command succeeds.
	// fsck sets it from the outcome of the check.
	exitStatus app.ExitStatus
)

var rootCmd = &cobra.Command{
	Use:   "go-minixfs",
	Short: "Create and check Minix file systems",
	Long: `go-minixfs creates, checks and repairs Minix file systems on block
devices and image files.

All three on-disk revisions are supported: v1 and v2 with 14 or 30
character names, and v3 with 60 character names.

Commands:
  fsck    Check and optionally repair a file system
  mkfs    Create a file system
  probe   Detect a file system and describe its superblock`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !report.ValidFormat(outputFormat) {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unsupported output format: %s", outputFormat), nil)
		}
		setupLogging()

		cfg, err := device.LoadConfig(configFile)
		if err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid configuration", err)
		}
		config = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and exits with the
// status of the command that ran
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(app.ExitStatusFor(err)))
	}
	os.Exit(int(exitStatus))
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default minixfs-config.yaml)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return app.NewError(app.ErrCodeInvalidInput, "invalid flags", err)
	})
}

func setupLogging() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case quiet:
		logger.SetLevel(logrus.ErrorLevel)
	case debug:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
}

// newContext creates the application context for a command. Structured
// output keeps stdout for the report, so diagnostics move to stderr.
func newContext(cmd *cobra.Command) *app.Context {
	ctx := app.NewContext()
	ctx.Context = cmd.Context()
	ctx.OutputFormat = outputFormat
	ctx.Verbose = debug
	ctx.Quiet = quiet
	ctx.Logger = logger
	if config != nil {
		ctx.Config = config
	}
	if outputFormat != "table" {
		ctx.Stdout = os.Stderr
	}
	return ctx
}

// deviceArgs accepts the device followed by up to extra optional arguments
func deviceArgs(extra int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return app.NewError(app.ErrCodeInvalidInput, "no device specified", nil)
		}
		if len(args) > 1+extra {
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("too many arguments: %d", len(args)), nil)
		}
		return nil
	}
}

// writeReport prints the result unless quiet
func writeReport(w io.Writer, result report.Tabular) error {
	if quiet {
		return nil
	}
	return report.Write(w, outputFormat, result)
}
