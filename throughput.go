package bench

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsdedup/fsbench/chart"
	"github.com/pkg/errors"
)

// Point is one labeled throughput sample.
type Point struct {
	Label string
	Value float64 // MB/s
}

// Throughput holds the samples of one gnuplot average file.
type Throughput struct {
	Name    string // test name, e.g. "random read test"
	All     []Point
	NoDedup []Point // without nilfs-dedup
}

// ReadThroughput scans a gnuplot average file. A line of six fields is a
// legend whose last field starts with the file system name; the next line of
// two fields containing a number is that file system's sample in KB/s.
func ReadThroughput(r io.Reader) (all, noDedup []Point, err error) {
	var (
		label     string
		haveLabel bool
		skipNext  bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		switch {
		case len(f) == 2 && anyDigits(f):
			v, err := strconv.ParseFloat(f[1], 64)
			if err != nil {
				return nil, nil, errors.Errorf("invalid throughput %q", f[1])
			}
			p := Point{Label: label, Value: v / 1000}
			if haveLabel {
				all = append(all, p)
				if !skipNext {
					noDedup = append(noDedup, p)
				}
			}
			haveLabel, skipNext = false, false
		case len(f) == 6:
			label = strings.SplitN(f[5], "_", 2)[0]
			haveLabel = true
			skipNext = label == NilfsDedup.String()
		}
	}
	return all, noDedup, sc.Err()
}

func anyDigits(fields []string) bool {
	for _, f := range fields {
		if isDigits(f) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ThroughputTestName derives the test name from an average file name:
// "random_read_test_bw.average" -> "random read test".
func ThroughputTestName(file string) string {
	base := filepath.Base(file)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	parts := strings.Split(base, "_")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, " ")
}

// ReadThroughputFile reads one gnuplot average file.
func ReadThroughputFile(file string) (Throughput, error) {
	fd, err := os.Open(file)
	if err != nil {
		return Throughput{}, err
	}
	defer fd.Close()
	all, noDedup, err := ReadThroughput(fd)
	if err != nil {
		return Throughput{}, errors.Wrap(err, file)
	}
	return Throughput{Name: ThroughputTestName(file), All: all, NoDedup: noDedup}, nil
}

// FindAverageFiles returns the gnuplot average files below dir.
func FindAverageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), "average") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func throughputChart(name, test string, points []Point) chart.Chart {
	x := make([]string, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i], y[i] = p.Label, p.Value
	}
	return chart.Bar("fio", name, "I/O Bandwidth for "+test, "File system", "Throughput (MB/s)", x, y)
}

// throughput renders the bandwidth charts of every average file in dir.
// Files that cannot be read are logged and skipped.
func (r *Runner) throughput(dir string) error {
	r.log.Info().Str("dir", dir).Msg("Generating fio graphs")
	files, err := FindAverageFiles(dir)
	if err != nil {
		return errors.Wrapf(err, "can't scan %s", dir)
	}
	for _, file := range files {
		r.log.Info().Str("file", file).Msg("Processing fio result file")
		t, err := ReadThroughputFile(file)
		if err != nil {
			r.log.Warn().Err(err).Msg("Cannot read fio result file, skipping")
			continue
		}
		name := strings.ReplaceAll(t.Name, " ", "_") + "_average_bandwidth"
		if err := r.charts.Render(throughputChart(name+"_all", t.Name, t.All)); err != nil {
			return err
		}
		if err := r.charts.Render(throughputChart(name, t.Name, t.NoDedup)); err != nil {
			return err
		}
	}
	return nil
}
