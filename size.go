package bench

import (
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var sizeRE = regexp.MustCompile(`(?i)^([0-9]+)([kmg]?)(b?)$`)

// ParseSize parses a size with B, K(B), M(B), G(B) unit and returns its value in bytes.
// Dedup test files are labeled like "16M", benchmark configs use "500mb".
func ParseSize(s string) (uint64, error) {
	m := sizeRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errors.Errorf("invalid size %q", s)
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	var mult uint64 = 1
	switch strings.ToLower(m[2]) {
	case "k":
		mult = 1 << 10
	case "m":
		mult = 1 << 20
	case "g":
		mult = 1 << 30
	}
	hi, lo := bits.Mul64(v, mult)
	if hi != 0 {
		return 0, errors.Errorf("size %q out of range", s)
	}
	return lo, nil
}

// sizeIndex strips the unit suffix of a size label and returns the number, "16M" -> 16.
func sizeIndex(label string) (int, error) {
	m := sizeRE.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, errors.Errorf("invalid size %q", label)
	}
	n, err := strconv.Atoi(m[1])
	return n, errors.Wrapf(err, "invalid size %q", label)
}

// sizeMB converts a size label to megabytes.
func sizeMB(label string) (float64, error) {
	v, err := ParseSize(label)
	if err != nil {
		return 0, err
	}
	return float64(v) / (1024 * 1024), nil
}
