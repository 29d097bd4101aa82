package bench

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fsdedup/fsbench/chart"
	"github.com/pkg/errors"
)

// ResourceUsage is one row of a GNU time style log.
type ResourceUsage struct {
	Size        string
	Index       int
	Real        float64 // seconds
	User        float64
	Sys         float64
	MaxMemoryMB float64
}

// Header aliases, matched case-insensitively.
var (
	sizeColumns      = []string{"file_size", "size"}
	sizeFallbacks    = []string{"file", "filename", "command"}
	realColumns      = []string{"real", "elapsed"}
	userColumns      = []string{"user"}
	sysColumns       = []string{"sys", "system"}
	maxMemoryColumns = []string{"max_memory_kb", "max_memory", "maxrss", "max_rss"}
)

var sizeFragmentRE = regexp.MustCompile(`(?i)(?:^|[^0-9a-z])([0-9]+[kmg]b?)(?:$|[^0-9a-z])`)

type resourceColumns struct {
	size, sizeFallback, real, user, sys, mem int
}

func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

func resolveColumns(header []string) (resourceColumns, error) {
	c := resourceColumns{
		size:         findColumn(header, sizeColumns),
		sizeFallback: findColumn(header, sizeFallbacks),
		real:         findColumn(header, realColumns),
		user:         findColumn(header, userColumns),
		sys:          findColumn(header, sysColumns),
		mem:          findColumn(header, maxMemoryColumns),
	}
	switch {
	case c.size < 0 && c.sizeFallback < 0:
		return c, errors.New("no file size column")
	case c.user < 0 || c.sys < 0:
		return c, errors.New("no user/sys time columns")
	case c.mem < 0:
		return c, errors.New("no max memory column")
	}
	return c, nil
}

// ReadResourceUsage parses a resource usage CSV log and returns its rows
// ordered by file size.
func ReadResourceUsage(r io.Reader) ([]ResourceUsage, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty resource usage log")
	} else if err != nil {
		return nil, err
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []ResourceUsage
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		row, err := cols.parse(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows, nil
}

func (c resourceColumns) parse(rec []string) (ResourceUsage, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var (
		u   ResourceUsage
		err error
	)
	if u.Size = field(c.size); u.Size == "" {
		m := sizeFragmentRE.FindStringSubmatch(field(c.sizeFallback))
		if m == nil {
			return u, errors.Errorf("no file size in %q", field(c.sizeFallback))
		}
		u.Size = m[1]
	}
	if u.Index, err = sizeIndex(u.Size); err != nil {
		return u, err
	}
	if c.real >= 0 {
		if u.Real, err = parseSeconds(field(c.real)); err != nil {
			return u, err
		}
	}
	if u.User, err = parseSeconds(field(c.user)); err != nil {
		return u, err
	}
	if u.Sys, err = parseSeconds(field(c.sys)); err != nil {
		return u, err
	}
	kb, err := strconv.ParseFloat(field(c.mem), 64)
	if err != nil {
		return u, errors.Errorf("invalid max memory %q", field(c.mem))
	}
	u.MaxMemoryMB = kb / 1024
	return u, nil
}

// parseSeconds accepts plain seconds ("1.25") and clock notation
// ("1:02.50", "1:00:02").
func parseSeconds(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errors.Errorf("invalid time %q", s)
	}
	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, errors.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	return total, nil
}

func readResourceFile(file string) ([]ResourceUsage, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	rows, err := ReadResourceUsage(fd)
	return rows, errors.Wrap(err, file)
}

// ResourceCharts returns the CPU time and peak memory charts of rows.
func ResourceCharts(prefix, title string, rows []ResourceUsage) []chart.Chart {
	var (
		x    = make([]string, len(rows))
		sys  = make([]float64, len(rows))
		user = make([]float64, len(rows))
		mem  = make([]float64, len(rows))
	)
	for i, u := range rows {
		x[i] = u.Size
		sys[i], user[i], mem[i] = u.Sys, u.User, u.MaxMemoryMB
	}
	memory := chart.Bar("time", prefix+"_dedup_memory", title+" peak memory usage", "File size", "Memory (MB)", x, mem)
	memory.MaxLine = true
	return []chart.Chart{
		{
			Tool:       "time",
			Name:       prefix + "_dedup_time",
			Title:      title + " CPU time",
			XLabel:     "File size",
			YLabel:     "Time (s)",
			Categories: x,
			Series: []chart.Series{
				{Label: "sys", Values: sys},
				{Label: "user", Values: user},
			},
			Stacked: true,
		},
		memory,
	}
}

// resourceUsage charts the time log of one deduplication tool, if present.
func (r *Runner) resourceUsage(e DedupExtractor) error {
	file := filepath.Join(r.cfg.dedupDir(e.FileSystem), "time_"+e.Tool+".csv")
	rows, err := readResourceFile(file)
	if os.IsNotExist(errors.Cause(err)) {
		r.log.Warn().Str("tool", e.Tool).Str("file", file).Msg("No resource usage log, skipping")
		return nil
	} else if err != nil {
		return err
	}
	for _, c := range ResourceCharts(e.Prefix, e.Title, rows) {
		if err := r.charts.Render(c); err != nil {
			return err
		}
	}
	return nil
}
