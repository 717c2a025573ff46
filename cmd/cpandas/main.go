// Command cpandas inspects, converts and queries table files.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cpandas/pkg/config"
	"github.com/ajitpratap0/cpandas/pkg/formats"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/ajitpratap0/cpandas/pkg/metrics"
)

var version = "0.1.0"

// app carries state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	output      string
	showMetrics bool
	prof        profiler

	cfg     *config.Config
	restore func()
	out     io.Writer
	errOut  io.Writer
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "cpandas",
		Short: "cpandas - columnar tables on the command line",
		Long: `cpandas reads Parquet, CPD, Arrow, Avro, CSV/TSV and JSON tables, optionally
compressed (.gz, .zst, .lz4, .s2, .snappy, .deflate), and converts, filters,
summarises and groups them.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML configuration file (CPANDAS_* variables override it)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	pf.StringVarP(&a.output, "output", "o", "table", "Output style for tables: table, csv or ndjson")
	pf.BoolVar(&a.showMetrics, "metrics", false, "Print codec metrics to stderr on exit")
	pf.StringVar(&a.prof.cpuFile, "cpuprofile", "", "Write a CPU profile to this file")
	pf.StringVar(&a.prof.memFile, "memprofile", "", "Write a heap profile to this file on exit")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "cpandas v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		a.infoCmd(),
		a.headCmd(),
		a.queryCmd(),
		a.describeCmd(),
		a.groupByCmd(),
		a.joinCmd(),
		a.convertCmd(),
		a.configCmd(),
		a.importSQLCmd(),
		a.exportSQLCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	l, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.restore = logger.Replace(l.With(zap.String("component", "cpandas-cli")))
	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("config", a.configPath),
		zap.String("parquet_codec", cfg.Parquet.Codec))
	return a.prof.start()
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if err := a.prof.stop(); err != nil {
		return err
	}
	if a.showMetrics {
		if err := metrics.WriteText(a.errOut); err != nil {
			return err
		}
	}
	_ = logger.Sync()
	if a.restore != nil {
		a.restore()
	}
	return nil
}

// formatOptions builds codec options from the loaded configuration.
func (a *app) formatOptions() (*formats.Options, error) {
	pq, err := a.cfg.ParquetWriterConfig()
	if err != nil {
		return nil, err
	}
	return &formats.Options{
		Parquet: pq,
		CSV:     a.cfg.CSVOptions(),
	}, nil
}
