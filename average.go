package bench

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FormatVersion is written to field 0 of every averaged record.
const FormatVersion = "1.98"

// headerMarker identifies bonnie++ CSV header lines.
const headerMarker = "format_version"

type columnKind int

const (
	colEmpty columnKind = iota
	colMetadata
	colSentinel
	colDuration
	colNumeric
)

// column accumulates one CSV column across runs.
type column struct {
	kind columnKind
	text string  // metadata or sentinel value
	sum  float64 // milliseconds for colDuration
}

// merge folds one field into the column.
func (c *column) merge(field string) error {
	if isSentinel(field) {
		// a sentinel never replaces an accumulated number
		if c.kind == colEmpty || c.kind == colSentinel {
			c.kind, c.text = colSentinel, field
		}
		return nil
	}
	num, unit, isDuration := splitDuration(field)
	if isDuration && unit != "ms" {
		return errors.Errorf("unnormalized duration %q", field)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return errors.Errorf("invalid metric %q", field)
	}
	switch c.kind {
	case colEmpty, colSentinel:
		c.sum = v
		c.kind = colNumeric
	default:
		c.sum += v
	}
	if isDuration {
		c.kind = colDuration
	}
	return nil
}

func (c *column) average(n int) string {
	switch c.kind {
	case colMetadata, colSentinel:
		return c.text
	case colDuration:
		return formatFloat(c.sum/float64(n)) + "ms"
	case colNumeric:
		return formatFloat(c.sum / float64(n))
	}
	return ""
}

// AverageRecords merges repeated runs of one file system into a single record.
// Records must be normalized. Header and blank rows are skipped, metadata
// columns keep the value of the last row and metric columns are divided by the
// number of data rows folded in, which is also returned.
func AverageRecords(rows []Record) (Record, int, error) {
	var (
		cols []column
		n    int
	)
	for _, row := range rows {
		if isBlankRecord(row) || strings.Contains(strings.Join(row, ","), headerMarker) {
			continue
		}
		n++
		for len(cols) < len(row) {
			cols = append(cols, column{})
		}
		for i, field := range row {
			if i < metadataFields {
				cols[i] = column{kind: colMetadata, text: field}
				continue
			}
			if err := cols[i].merge(strings.TrimSpace(field)); err != nil {
				return nil, 0, errors.Wrapf(err, "run %d, column %d", n, i)
			}
		}
	}
	if n == 0 {
		return nil, 0, errors.New("no benchmark runs")
	}
	out := make(Record, len(cols))
	for i := range cols {
		out[i] = cols[i].average(n)
	}
	out[0] = FormatVersion
	return out, n, nil
}

func isBlankRecord(r Record) bool {
	return len(r) == 0 || (len(r) == 1 && strings.TrimSpace(r[0]) == "")
}
