package bench

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fsdedup/fsbench/chart"
	"github.com/fsdedup/fsbench/report"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Phase tells whether a df snapshot was taken before or after deduplication.
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseAfter
)

func (p Phase) String() string {
	if p == PhaseAfter {
		return "after"
	}
	return "before"
}

const dedupMarker = "deduplication"

// DedupFile is a df snapshot around one deduplication run.
type DedupFile struct {
	Phase Phase
	Tool  string
	Size  string // file size label, e.g. "16M"
	Path  string
	Used  float64
}

// splitDedupName splits a dedup snapshot name into its phase, tool and size
// tokens without validating them.
func splitDedupName(name string) (phase, tool, size string, ok bool) {
	stem := strings.TrimPrefix(filepath.Base(name), "df_")
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	parts := strings.Split(stem, "_")
	if len(parts) < 4 || parts[1] != dedupMarker {
		return "", "", "", false
	}
	return parts[0], strings.Join(parts[2:len(parts)-1], "_"), parts[len(parts)-1], true
}

// ParseDedupFilename decodes names of the form
// [df_]{before|after}_deduplication_{tool}_{size}.ext.
func ParseDedupFilename(name string) (DedupFile, error) {
	base := filepath.Base(name)
	phase, tool, size, ok := splitDedupName(base)
	if !ok {
		return DedupFile{}, errors.Errorf("%s: not a dedup snapshot name", base)
	}
	f := DedupFile{Path: name, Tool: tool, Size: size}
	switch phase {
	case "before":
		f.Phase = PhaseBefore
	case "after":
		f.Phase = PhaseAfter
	default:
		return DedupFile{}, errors.Errorf("%s: invalid phase %q", base, phase)
	}
	if _, err := ParseSize(f.Size); err != nil {
		return DedupFile{}, errors.Wrap(err, base)
	}
	return f, nil
}

// DedupResult holds the measurements of one file size.
type DedupResult struct {
	Size        string
	Ratio       float64 // before/after
	Reduction   float64 // 1 - after/before
	ReclaimedMB float64
	ExpectedMB  float64
	OK          bool // false if the before/after pair was incomplete
}

// ComputeDedup groups snapshots by file size and evaluates every complete
// before/after pair. Incomplete groups produce a zero result and a warning.
func ComputeDedup(files []DedupFile, log zerolog.Logger) []DedupResult {
	groups := make(map[string][]DedupFile)
	for _, f := range files {
		groups[f.Size] = append(groups[f.Size], f)
	}
	sizes := make([]string, 0, len(groups))
	for s := range groups {
		sizes = append(sizes, s)
	}
	sort.Slice(sizes, func(i, j int) bool {
		a, _ := ParseSize(sizes[i])
		b, _ := ParseSize(sizes[j])
		if a != b {
			return a < b
		}
		return sizes[i] < sizes[j]
	})

	results := make([]DedupResult, 0, len(sizes))
	for _, size := range sizes {
		res := DedupResult{Size: size}
		res.ExpectedMB, _ = sizeMB(size)
		before, after, ok := dedupPair(groups[size])
		switch {
		case !ok:
			log.Warn().Str("size", size).Int("files", len(groups[size])).Msg("Need exactly one before and one after df file")
		case before.Used == 0:
			log.Warn().Str("size", size).Str("file", before.Path).Msg("Zero space used before deduplication")
		case after.Used == 0:
			log.Warn().Str("size", size).Str("file", after.Path).Msg("Zero space used after deduplication")
		default:
			res.Ratio = before.Used / after.Used
			res.Reduction = 1 - after.Used/before.Used
			res.ReclaimedMB = (before.Used - after.Used) / 1000
			res.OK = true
		}
		results = append(results, res)
	}
	return results
}

func dedupPair(files []DedupFile) (before, after DedupFile, ok bool) {
	if len(files) != 2 || files[0].Phase == files[1].Phase {
		return before, after, false
	}
	if files[0].Phase == PhaseBefore {
		return files[0], files[1], true
	}
	return files[1], files[0], true
}

// DedupExtractor evaluates the snapshots of one deduplication tool.
type DedupExtractor struct {
	FileSystem FileSystem
	Tool       string
	Prefix     string // chart name prefix
	Title      string // tool name in chart titles
}

var dedupExtractors = []DedupExtractor{
	{NilfsDedup, "dedup", "nilfs_dedup", "Nilfs dedup"},
	{Btrfs, "dduper", "dduper", "Dduper"},
	{Btrfs, "duperemove", "duperemove", "Duperemove"},
}

func (cfg Config) dedupDir(fs FileSystem) string {
	return filepath.Join(cfg.fsDir(fs), "out", "dedup")
}

// Files loads the snapshots of e.Tool from dir. Files that do not name a
// dedup snapshot are ignored; a malformed snapshot name is an error.
func (e DedupExtractor) Files(dir, mount string) ([]DedupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []DedupFile
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		// other tools' snapshots are not validated here
		if _, tool, _, ok := splitDedupName(ent.Name()); !ok || tool != e.Tool {
			continue
		}
		f, err := ParseDedupFilename(filepath.Join(dir, ent.Name()))
		if err != nil {
			return nil, err
		}
		if f.Used, err = readUsageFile(f.Path, mount); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Charts returns the ratio, reduction and reclaim charts of results.
func (e DedupExtractor) Charts(results []DedupResult) []chart.Chart {
	var (
		x         = make([]string, len(results))
		ratio     = make([]float64, len(results))
		reduction = make([]float64, len(results))
		reclaimed = make([]float64, len(results))
		expected  = make([]float64, len(results))
	)
	for i, r := range results {
		x[i] = r.Size
		ratio[i], reduction[i] = r.Ratio, r.Reduction
		reclaimed[i], expected[i] = r.ReclaimedMB, r.ExpectedMB
	}
	ratioChart := chart.Bar("dedup", e.Prefix+"_dedup_ratio", e.Title+" deduplication ratio for different file sizes", "File size", "Deduplication ratio", x, ratio)
	ratioChart.Mode = chart.Percent
	reductionChart := chart.Bar("dedup", e.Prefix+"_data_reduction", e.Title+" data reduction for different file sizes", "File size", "Data reduction", x, reduction)
	reductionChart.Mode = chart.Percent
	return []chart.Chart{
		ratioChart,
		reductionChart,
		chart.Bar("dedup", e.Prefix+"_storage_reclaimed", e.Title+" storage reclaimed for different file sizes", "File size", "Reclaimed (MB)", x, reclaimed),
		{
			Tool:       "dedup",
			Name:       e.Prefix + "_reclaimed_vs_expected",
			Title:      e.Title + " reclaimed vs expected storage",
			XLabel:     "File size",
			YLabel:     "Storage (MB)",
			Categories: x,
			Series: []chart.Series{
				{Label: "Reclaimed", Values: reclaimed},
				{Label: "Expected", Values: expected},
			},
		},
	}
}

// Table returns results as a report table.
func (e DedupExtractor) Table(results []DedupResult) report.Table {
	t := report.Table{
		Tool:   "dedup",
		Name:   e.Prefix + "_results",
		Title:  e.Title + " deduplication results",
		Header: []string{"File size", "Ratio", "Reduction (%)", "Reclaimed (MB)", "Expected (MB)"},
	}
	for _, r := range results {
		if !r.OK {
			t.Rows = append(t.Rows, []string{r.Size, "-", "-", "-", formatFixed(r.ExpectedMB, 1)})
			continue
		}
		t.Rows = append(t.Rows, []string{
			r.Size,
			formatFixed(r.Ratio, 2),
			formatFixed(r.Reduction*100, 1),
			formatFixed(r.ReclaimedMB, 1),
			formatFixed(r.ExpectedMB, 1),
		})
	}
	return t
}

func formatFixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func (r *Runner) runExtractor(e DedupExtractor) error {
	dir := r.cfg.dedupDir(e.FileSystem)
	files, err := e.Files(dir, r.cfg.MountPoint(e.FileSystem))
	if err != nil {
		return err
	}
	results := ComputeDedup(files, r.log.With().Str("tool", e.Tool).Logger())
	for _, c := range e.Charts(results) {
		if err := r.charts.Render(c); err != nil {
			return err
		}
	}
	if len(results) == 0 {
		return nil
	}
	return r.tables.Write(e.Table(results))
}

// dedup evaluates every deduplication tool. A failing tool is logged and
// the next one still runs.
func (r *Runner) dedup() error {
	r.log.Info().Msg("Generating df graphs from dedup tests")
	for _, e := range dedupExtractors {
		if err := r.runExtractor(e); err != nil {
			r.log.Error().Err(err).Str("tool", e.Tool).Msg("Dedup extraction failed")
		}
		if err := r.resourceUsage(e); err != nil {
			r.log.Error().Err(err).Str("tool", e.Tool).Msg("Resource usage extraction failed")
		}
	}
	return nil
}
