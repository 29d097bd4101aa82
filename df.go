package bench

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsdedup/fsbench/chart"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// ReadUsage returns the used space reported by a df snapshot for the device
// mount. Lines are matched on their first column, the used count is the
// third. Several matching lines are averaged.
func ReadUsage(r io.Reader, mount string) (float64, error) {
	var used []float64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 3 || f[0] != mount {
			continue
		}
		v, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return 0, errors.Errorf("invalid used space %q for %s", f[2], mount)
		}
		used = append(used, v)
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if len(used) == 0 {
		return 0, errors.Errorf("no df line for %s", mount)
	}
	return stat.Mean(used, nil), nil
}

func readUsageFile(file, mount string) (float64, error) {
	fd, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer fd.Close()
	v, err := ReadUsage(fd, mount)
	return v, errors.Wrap(err, file)
}

// UsageDelta is the space a test added on one file system.
type UsageDelta struct {
	FileSystem FileSystem
	Before     float64
	After      float64
}

// GB returns the delta in the report's display unit.
func (d UsageDelta) GB() float64 {
	return (d.After - d.Before) / 1e6
}

// DfTest names the df snapshots taken around one benchmark, relative to the
// file system's result directory.
type DfTest struct {
	Before string
	After  string
	Name   string
	Title  string
}

var (
	bonnieDfTests = []DfTest{
		{"out/bonnie/df_before_bonnie.txt", "out/bonnie/df_after_bonnie.txt", "bonnie_metadata_size", "Space occupied after bonnie++ test"},
		{"out/delete/df_before_delete_test.txt", "out/delete/df_after_delete_test.txt", "delete_metadata_size", "Space occupied after deletion test"},
	}
	fioDfTests = []DfTest{
		fioDfTest("file_append_read_test", "append read"),
		fioDfTest("file_append_write_test", "append write"),
		fioDfTest("random_read_test", "read"),
		fioDfTest("random_write_test", "write"),
	}
)

func fioDfTest(test, desc string) DfTest {
	return DfTest{
		Before: "out/fio/df_before_fio_" + test + ".txt",
		After:  "out/fio/df_after_fio_" + test + ".txt",
		Name:   "fio_" + strings.TrimSuffix(test, "_test") + "_metadata_size",
		Title:  "Space occupied after fio " + desc + " test",
	}
}

// DiffUsage computes the usage delta of t for every file system not excluded.
// File systems whose snapshots are missing or unusable are skipped with a warning.
func DiffUsage(cfg Config, log zerolog.Logger, t DfTest, exclude []FileSystem) []UsageDelta {
	var deltas []UsageDelta
	for _, fs := range without(FileSystems(), exclude) {
		dir := cfg.fsDir(fs)
		mount := cfg.MountPoint(fs)
		before, err := readUsageFile(filepath.Join(dir, t.Before), mount)
		if err == nil {
			var after float64
			after, err = readUsageFile(filepath.Join(dir, t.After), mount)
			if err == nil {
				deltas = append(deltas, UsageDelta{FileSystem: fs, Before: before, After: after})
				continue
			}
		}
		log.Warn().Err(err).Str("fs", fs.String()).Str("test", t.Name).Msg("Cannot read df file, skipping")
	}
	return deltas
}

func usageChart(name, title string, deltas []UsageDelta) chart.Chart {
	x := make([]string, len(deltas))
	y := make([]float64, len(deltas))
	for i, d := range deltas {
		x[i], y[i] = d.FileSystem.String(), d.GB()
	}
	return chart.Bar("df", name, title, "File system", "Space used (GB)", x, y)
}

// diskUsage renders every df test twice, without the dedup variant of nilfs
// and with all file systems.
func (r *Runner) diskUsage(tests []DfTest) error {
	r.log.Info().Int("tests", len(tests)).Msg("Generating df graphs")
	for _, t := range tests {
		variants := []struct {
			name    string
			exclude []FileSystem
		}{
			{t.Name, []FileSystem{NilfsDedup}},
			{t.Name + "_all", nil},
		}
		for _, v := range variants {
			deltas := DiffUsage(r.cfg, r.log, t, v.exclude)
			if err := r.charts.Render(usageChart(v.name, t.Title, deltas)); err != nil {
				return err
			}
		}
	}
	return nil
}
