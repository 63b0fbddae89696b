package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/config"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/metrics"
	"github.com/ajitpratap0/arbor/pkg/observability"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

var version = "0.1.0"

// app carries the state shared by every command.
type app struct {
	configFile  string
	logLevel    string
	metricsFile string
	trace       bool

	cfg   *config.Config
	ctx   context.Context
	runID string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "arbor",
		Short: "arbor - columnar tree sequence tables",
		Long: `arbor reads, checks, sorts, simplifies and converts tree sequence
table collections stored in the kastore-based .trees format.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to YAML configuration file (default .arbor.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics", "", "Write prometheus metrics to this file on exit")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Export trace spans to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "arbor v%s\n", version)
				fmt.Fprintf(out, "File format: %s %d.%d\n", tables.FormatName, tables.FormatVersionMajor, tables.FormatVersionMinor)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
		a.infoCommand(),
		a.checkCommand(),
		a.sortCommand(),
		a.simplifyCommand(),
		a.subsetCommand(),
		a.unionCommand(),
		a.convertCommand(),
		a.exportCommand(),
	)
	return root
}

// setup loads configuration and starts logging, tracing and metrics. Flags
// override the configuration file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsFile != "" {
		cfg.Metrics.Textfile = a.metricsFile
	}
	if a.trace {
		cfg.Tracing.Enabled = true
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	if cfg.Tracing.Enabled {
		tc := observability.DefaultConfig()
		tc.ServiceVersion = version
		tc.SamplingRate = cfg.Tracing.SamplingRate
		tc.PrettyPrint = cfg.Tracing.PrettyPrint
		tc.BatchTimeout = cfg.Tracing.BatchTimeout
		if err := observability.Initialize(tc); err != nil {
			return err
		}
	}

	a.runID = uuid.NewString()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWith(ctx, logger.RunIDKey, a.runID)
	a.ctx = logger.ContextWith(ctx, logger.OperationKey, cmd.Name())

	logger.WithContext(a.ctx).Debug("starting command",
		zap.Strings("args", args),
		zap.Int("workers", cfg.GetWorkers()))
	return nil
}

func (a *app) teardown() error {
	var err error
	if a.cfg == nil {
		return nil
	}
	if a.cfg.Metrics.Textfile != "" {
		err = multierr.Append(err, metrics.WriteTextfile(a.cfg.Metrics.Textfile))
	}
	if a.cfg.Tracing.Enabled {
		err = multierr.Append(err, observability.Shutdown(context.Background()))
	}
	_ = logger.Sync()
	return err
}
