package trends

import (
	"strconv"
	"strings"
)

// NormalizeVolume converts a volume value of unknown type into an integer.
// Numbers pass through (truncated). Strings may carry shorthand magnitude
// suffixes ("1.2M", "450K", "2B"); everything except digits, '.' and the
// suffix letters is stripped first. Anything unparseable degrades to 0 —
// volume is advisory metadata, and a garbled volume must never sink an
// otherwise good record.
func NormalizeVolume(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		return normalizeVolumeString(n)
	default:
		return 0
	}
}

func normalizeVolumeString(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == 'K' || r == 'M' || r == 'B' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return 0
	}

	mult := 1.0
	switch {
	case strings.Contains(s, "K"):
		mult = 1_000
		s = strings.ReplaceAll(s, "K", "")
	case strings.Contains(s, "M"):
		mult = 1_000_000
		s = strings.ReplaceAll(s, "M", "")
	case strings.Contains(s, "B"):
		mult = 1_000_000_000
		s = strings.ReplaceAll(s, "B", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f * mult)
}

// ParseTraffic converts a SerpAPI traffic string ("200K+", "1,000,000",
// "Unknown") into an integer volume. Unknown or malformed values become 0.
func ParseTraffic(s string) int {
	if s == "" || s == "Unknown" {
		return 0
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "+", "")
	s = strings.ReplaceAll(s, ",", "")

	switch {
	case strings.Contains(s, "M"):
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "M", ""), 64)
		if err != nil {
			return 0
		}
		return int(f * 1_000_000)
	case strings.Contains(s, "K"):
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "K", ""), 64)
		if err != nil {
			return 0
		}
		return int(f * 1_000)
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}
}
