// Command fsbench-graphs turns recorded file system benchmark results into
// charts and tables.
//
// Everything except the benchmark family is configured through FSBENCH_*
// environment variables, e.g. FSBENCH_OUTPUT_DIR or FSBENCH_MOUNT_BTRFS.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	bench "github.com/fsdedup/fsbench"
	"github.com/fsdedup/fsbench/archive"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FSBENCH"

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	v := viper.New()
	rc := &cobra.Command{
		Use:           "fsbench-graphs",
		Short:         "Generate benchmark graphs and tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(v, cmd.Flags()); err != nil {
				return err
			}
			err := run(cmd.Context(), v, stderr)
			if err != nil {
				fmt.Fprintln(stderr, "error:", err)
			}
			return err
		},
	}
	rc.Flags().String("test", string(bench.FamilyAll), "benchmark to process (bonnie, fio, dedup or all)")
	rc.SetOut(stderr)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig layers flags over FSBENCH_* environment variables over the
// built-in defaults.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	bench.SetDefaults(v)
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return nil
}

func run(ctx context.Context, v *viper.Viper, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	families, err := bench.ParseFamily(v.GetString("test"))
	if err != nil {
		return err
	}
	cfg, err := bench.LoadConfig(v)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "can't create output dir")
	}
	arch, err := archive.Open(filepath.Join(cfg.OutputDir, "archive"))
	if err != nil {
		return err
	}
	defer arch.Close()

	return bench.NewRunner(cfg, log, arch).Run(ctx, families...)
}

// newLogger logs to cfg.LogFile and, human readable, to stderr.
func newLogger(cfg bench.Config, stderr io.Writer) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return zerolog.Logger{}, nil, errors.Wrap(err, "can't create log dir")
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Logger{}, nil, errors.Wrap(err, "can't open log file")
	}
	out := zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05"})
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}
