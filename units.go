package bench

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// metadataFields is the number of leading bonnie++ CSV fields describing the
// run configuration. They are never converted or averaged.
const metadataFields = 10

// Sentinels written by bonnie++ when a test ran too fast to be measured.
const (
	sentinelLong  = "+++++"
	sentinelShort = "+++"
)

// Record is one row of bonnie++ CSV output.
type Record []string

// String renders the record as a CSV line, including the trailing newline.
func (r Record) String() string {
	return strings.Join(r, ",") + "\n"
}

// ParseRecord splits one CSV line into fields.
func ParseRecord(line string) Record {
	return Record(strings.Split(strings.TrimRight(line, "\r\n"), ","))
}

func isSentinel(field string) bool {
	return field == "" || field == sentinelLong || field == sentinelShort
}

// splitDuration splits a duration field into its number and unit.
// ok is false if the field carries no duration unit.
func splitDuration(field string) (num string, unit string, ok bool) {
	for _, u := range []string{"us", "ms", "s"} {
		if strings.HasSuffix(field, u) {
			return field[:len(field)-len(u)], u, true
		}
	}
	return field, "", false
}

// NormalizeRecord converts every duration metric of rec to milliseconds.
// Microsecond and second values are rescaled, millisecond values are kept as is,
// so normalizing a normalized record is a no-op.
func NormalizeRecord(rec Record) (Record, error) {
	out := make(Record, len(rec))
	copy(out, rec)
	for i := metadataFields; i < len(out); i++ {
		field := strings.TrimSpace(out[i])
		if isSentinel(field) {
			out[i] = field
			continue
		}
		num, unit, ok := splitDuration(field)
		if !ok || unit == "ms" {
			out[i] = field
			continue
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "column %d: invalid duration %q", i, field)
		}
		switch unit {
		case "us":
			v /= 1000
		case "s":
			v *= 1000
		}
		out[i] = formatFloat(v) + "ms"
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
