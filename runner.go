package bench

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristanetworks/goarista/monotime"
	"github.com/fsdedup/fsbench/chart"
	"github.com/fsdedup/fsbench/report"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Family is a group of benchmarks processed together.
type Family string

const (
	FamilyBonnie Family = "bonnie" // disk throughput and metadata tests
	FamilyFio    Family = "fio"    // I/O tests
	FamilyDedup  Family = "dedup"  // deduplication tests
	FamilyAll    Family = "all"
)

// Families returns the individual families in processing order.
func Families() []Family {
	return []Family{FamilyBonnie, FamilyFio, FamilyDedup}
}

// ParseFamily resolves a family name. "all" expands to every family.
func ParseFamily(s string) ([]Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FamilyAll:
		return Families(), nil
	case FamilyBonnie, FamilyFio, FamilyDedup:
		return []Family{f}, nil
	}
	return nil, errors.Errorf("unknown test %q (want bonnie, fio, dedup or all)", s)
}

// Runner turns benchmark results into charts and tables.
type Runner struct {
	cfg    Config
	log    zerolog.Logger
	charts *chart.Renderer
	tables report.Writer
}

// NewRunner creates a runner writing below cfg.OutputDir.
// recorder may be nil.
func NewRunner(cfg Config, log zerolog.Logger, recorder chart.Recorder) *Runner {
	r := chart.NewRenderer(cfg.OutputDir, log.With().Str("component", "chart").Logger())
	r.DPI = cfg.DPI
	r.Recorder = recorder
	return &Runner{
		cfg:    cfg,
		log:    log,
		charts: r,
		tables: report.Writer{Dir: cfg.OutputDir},
	}
}

func (cfg Config) fsDir(fs FileSystem) string {
	return filepath.Join(cfg.InputDir, "fs", fs.String())
}

// Run processes the given families in order. A failing family does not stop
// the others; the returned error lists every family that failed.
func (r *Runner) Run(ctx context.Context, families ...Family) error {
	r.log.Info().Msg("START")
	var failed []string
	for _, f := range families {
		start := mononow()
		err := r.runFamily(ctx, f)
		elapsed := mononow() - start
		if err != nil {
			r.log.Error().Err(err).Str("family", string(f)).Dur("elapsed", elapsed).Msg("Benchmark family failed")
			failed = append(failed, string(f))
			continue
		}
		r.log.Info().Str("family", string(f)).Dur("elapsed", elapsed).Msg("Benchmark family done")
	}
	r.log.Info().Msg("END")
	if len(failed) > 0 {
		return errors.Errorf("failed benchmark families: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (r *Runner) runFamily(ctx context.Context, f Family) error {
	switch f {
	case FamilyBonnie:
		if err := r.bonnie(); err != nil {
			return err
		}
		return r.diskUsage(bonnieDfTests)
	case FamilyFio:
		if err := r.diskUsage(fioDfTests); err != nil {
			return err
		}
		return r.fio(ctx)
	case FamilyDedup:
		return r.dedup()
	}
	return errors.Errorf("unknown family %q", f)
}

func mononow() time.Duration {
	return time.Duration(monotime.Now())
}
