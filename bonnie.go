package bench

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsdedup/fsbench/report"
	"github.com/pkg/errors"
)

const bonnieInput = "out/bonnie/out.csv"

// bonnieTableColumns are the bonnie++ 1.98 CSV columns shown in result tables.
var bonnieTableColumns = []struct {
	index int
	title string
}{
	{11, "Block write (K/s)"},
	{13, "Rewrite (K/s)"},
	{17, "Block read (K/s)"},
	{19, "Seeks (/s)"},
	{26, "Seq create (/s)"},
	{30, "Seq delete (/s)"},
	{32, "Rand create (/s)"},
	{36, "Rand delete (/s)"},
	{39, "Block write latency"},
	{42, "Block read latency"},
}

// bonnieNameColumn holds the machine label given to bonnie++, the file system
// name in our runs.
const bonnieNameColumn = 2

// ReadBonnieRuns reads the runs recorded in one bonnie++ CSV file up to the
// first blank line and normalizes their durations.
func ReadBonnieRuns(r io.Reader) ([]Record, error) {
	var (
		rows []Record
		line int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if text == "" {
			break
		}
		rec := ParseRecord(text)
		if !strings.Contains(text, headerMarker) {
			var err error
			if rec, err = NormalizeRecord(rec); err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
		}
		rows = append(rows, rec)
	}
	return rows, sc.Err()
}

func readBonnieFile(file string) ([]Record, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	rows, err := ReadBonnieRuns(fd)
	return rows, errors.Wrap(err, file)
}

// bonnie averages the bonnie++ runs of every file system and exports the
// results with and without the dedup variant of nilfs.
func (r *Runner) bonnie() error {
	outDir := filepath.Join(r.cfg.OutputDir, "bonnie")
	r.log.Info().Str("input", bonnieInput).Str("output", outDir).Msg("Initializing bonnie graphing")
	params := r.benchParams()

	averaged := make(map[FileSystem]Record)
	for _, fs := range FileSystems() {
		file := filepath.Join(r.cfg.fsDir(fs), bonnieInput)
		rows, err := readBonnieFile(file)
		if os.IsNotExist(errors.Cause(err)) {
			r.log.Warn().Str("fs", fs.String()).Str("file", file).Msg("Cannot read bonnie++ results. Skipping")
			continue
		} else if err != nil {
			return err
		}
		avg, n, err := AverageRecords(rows)
		if err != nil {
			return errors.Wrap(err, file)
		}
		if params.RunCount > 0 && n != params.RunCount {
			r.log.Warn().Str("fs", fs.String()).Int("runs", n).Int("expected", params.RunCount).Msg("Unexpected number of bonnie++ runs")
		}
		averaged[fs] = avg
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Wrap(err, "can't create bonnie output dir")
	}
	variants := []struct {
		name    string
		exclude []FileSystem
	}{
		{"bonnie++_all", nil},
		{"bonnie++", []FileSystem{NilfsDedup}},
	}
	for _, v := range variants {
		var out strings.Builder
		for _, fs := range without(FileSystems(), v.exclude) {
			if rec, ok := averaged[fs]; ok {
				out.WriteString(rec.String())
			}
		}
		file := filepath.Join(outDir, v.name+".csv")
		if err := os.WriteFile(file, []byte(out.String()), 0644); err != nil {
			return errors.Wrapf(err, "can't write %s", file)
		}
		// A broken aggregate only costs the table, not the rest of the family.
		t, err := bonnieTable(file, v.name, params)
		if err != nil {
			r.log.Warn().Err(err).Str("file", file).Msg("Cannot parse bonnie++ results, skipping table")
			continue
		}
		if err := r.tables.Write(t); err != nil {
			return err
		}
	}
	return nil
}

// bonnieTable loads an averaged bonnie++ CSV file as a result table.
func bonnieTable(file, name string, params BenchParams) (report.Table, error) {
	fd, err := os.Open(file)
	if err != nil {
		return report.Table{}, err
	}
	defer fd.Close()
	rows, err := csv.NewReader(fd).ReadAll()
	if err != nil {
		return report.Table{}, errors.Wrap(err, file)
	}

	t := report.Table{
		Tool:   "bonnie",
		Name:   name,
		Title:  "bonnie++ results",
		Header: []string{"File system"},
	}
	if params.RunCount > 0 {
		t.Title += fmt.Sprintf(" (file size %s, block size %s, %d runs)", params.FileSize, params.BlockSize, params.RunCount)
	}
	for _, c := range bonnieTableColumns {
		t.Header = append(t.Header, c.title)
	}
	last := bonnieTableColumns[len(bonnieTableColumns)-1].index
	for i, row := range rows {
		if len(row) <= last {
			return report.Table{}, errors.Errorf("%s: row %d has %d columns, want at least %d", file, i+1, len(row), last+1)
		}
		cells := []string{row[bonnieNameColumn]}
		for _, c := range bonnieTableColumns {
			cells = append(cells, tableCell(row[c.index]))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func tableCell(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return v
}

// benchParams loads the benchmark parameters. They only decorate the report,
// so a missing file is not an error.
func (r *Runner) benchParams() BenchParams {
	p, err := ReadBenchParams(r.cfg.BenchConf)
	if err != nil {
		r.log.Debug().Err(err).Msg("No benchmark parameters")
	}
	return p
}
