package bench

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func (cfg Config) fioLogDir() string     { return filepath.Join(cfg.OutputDir, "fio", "logs") }
func (cfg Config) fioGnuplotDir() string { return filepath.Join(cfg.OutputDir, "fio", "gnuplot") }

// StageFioLogs copies the fio logs of every file system into one directory,
// prefixing each name with the file system. Copies run on up to cfg.Workers
// goroutines; every copy writes its own destination file.
func StageFioLogs(ctx context.Context, cfg Config, log zerolog.Logger) (int, error) {
	dst := cfg.fioLogDir()
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, errors.Wrap(err, "can't create fio log dir")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	n := 0
	for _, fs := range FileSystems() {
		logs, err := filepath.Glob(filepath.Join(cfg.fsDir(fs), "out", "fio", "*.log"))
		if err != nil {
			return 0, err
		}
		if len(logs) == 0 {
			log.Warn().Str("fs", fs.String()).Msg("No fio logs found")
		}
		for _, src := range logs {
			src, target := src, filepath.Join(dst, fs.String()+"_"+filepath.Base(src))
			n++
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return copyFile(target, src)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, errors.Wrap(err, "staging fio logs")
	}
	log.Info().Int("files", n).Str("dir", dst).Msg("Staged fio logs")
	return n, nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "can't copy %s", src)
	}
	return out.Close()
}

// GeneratePlotData runs the gnuplot data generator for each fio test on the
// staged logs. A failing test is logged and does not affect the others.
func GeneratePlotData(ctx context.Context, cfg Config, log zerolog.Logger, tests []string) error {
	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, test := range tests {
		test := test
		out := filepath.Join(cfg.fioGnuplotDir(), test)
		if err := os.MkdirAll(out, 0755); err != nil {
			return errors.Wrapf(err, "can't create gnuplot dir for %s", test)
		}
		g.Go(func() error {
			cmd := exec.CommandContext(ctx, cfg.GnuplotCmd, "-t", test, "-p", "*"+test+"*bw*.log", "-d", out, "-g")
			cmd.Dir = cfg.fioLogDir()
			if output, err := cmd.CombinedOutput(); err != nil {
				log.Error().Err(err).Str("test", test).Bytes("output", output).Msg("Gnuplot data generation failed")
				return nil
			}
			log.Debug().Str("test", test).Str("dir", out).Msg("Generated gnuplot data")
			return nil
		})
	}
	return g.Wait()
}

// fio stages the fio logs, converts them to gnuplot averages and charts
// the results.
func (r *Runner) fio(ctx context.Context) error {
	if _, err := StageFioLogs(ctx, r.cfg, r.log); err != nil {
		return err
	}
	tests, err := ReadFioTests(r.cfg.FioJobs)
	if err != nil {
		r.log.Warn().Err(err).Msg("No fio tests configured, using existing gnuplot data")
	}
	if err := GeneratePlotData(ctx, r.cfg, r.log, tests); err != nil {
		return err
	}
	dir := r.cfg.fioGnuplotDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.log.Warn().Str("dir", dir).Msg("No gnuplot data, skipping fio graphs")
		return nil
	}
	return r.throughput(dir)
}
