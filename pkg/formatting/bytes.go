// Package formatting converts byte sizes between counts and human-readable strings.
package formatting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n with base-1024 units, e.g. 1536 at precision 1 is "1.5 KB".
// Negative counts keep their sign; negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	if n < 0 {
		return "-" + FormatBytes(-n, precision)
	}
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes such as "64MB", "512 kb", "1.5GiB" or a bare byte count.
// Units are base-1024 and case-insensitive; "KiB" style suffixes are accepted.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})

	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if number == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	exp, err := unitExponent(unit)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	bytes := value * math.Pow(1024, float64(exp))
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("invalid byte size %q: overflows int64", s)
	}

	return int64(bytes), nil
}

func unitExponent(unit string) (int, error) {
	u := strings.ToUpper(unit)
	if u == "" || u == "B" {
		return 0, nil
	}

	u = strings.TrimSuffix(strings.Replace(u, "IB", "B", 1), "B") + "B"
	for i, candidate := range units {
		if candidate == u {
			return i, nil
		}
	}

	return 0, fmt.Errorf("unknown unit %q", unit)
}
