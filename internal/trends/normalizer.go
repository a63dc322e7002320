package trends

import (
	"fmt"
	"strconv"
	"strings"
)

// requiredFields per platform. A record missing or blank-stringing any of
// these is rejected outright; no normalized output is produced for it.
var requiredFields = map[Platform][]string{
	PlatformSearch:  {"region", "rank", "keyword", "search_volume", "category", "velocity"},
	PlatformMention: {"region", "rank", "keyword", "mention_volume", "category", "velocity"},
}

// sentimentTranslation maps generic sentiment labels from upstream models
// onto the dashboard's vocabulary. Labels outside this table pass through
// lower-cased.
var sentimentTranslation = map[string]string{
	"positive": "excited",
	"negative": "concerned",
	"neutral":  "curious",
	"mixed":    "controversial",
}

// defaultBreakdowns synthesizes a five-bucket sentiment split when the
// upstream record carries none. Keyed by primary sentiment; every entry
// sums to 100. Heuristic configuration data, not a business rule.
var defaultBreakdowns = map[string]SentimentBreakdown{
	"excited":       {Excited: 70, Curious: 20, Celebrating: 10},
	"concerned":     {Concerned: 70, Curious: 20, Controversial: 10},
	"celebrating":   {Celebrating: 70, Excited: 20, Curious: 10},
	"controversial": {Controversial: 60, Concerned: 20, Curious: 20},
}

// fallbackBreakdown is used for sentiments with no dedicated table entry.
var fallbackBreakdown = SentimentBreakdown{Curious: 60, Excited: 20, Concerned: 20}

// ValidateTrend validates and normalizes a single raw record.
//
// Required-field failures accumulate (one message per field) rather than
// failing fast, so the ledger shows the complete diagnostic. On any hard
// failure the normalized result is nil — a record is either fully
// normalized or fully rejected. Soft fields (volumes, sentiments, lists)
// degrade to defaults instead of failing the record.
func ValidateTrend(raw RawTrend, platform Platform) (bool, []string, *Trend) {
	var errs []string

	for _, field := range requiredFields[platform] {
		v, ok := raw[field]
		if !ok || v == nil || strings.TrimSpace(stringify(v)) == "" {
			errs = append(errs, "Missing or empty: "+field)
		}
	}
	if len(errs) > 0 {
		return false, errs, nil
	}

	region := stringify(raw["region"])
	if !ValidRegion(region) {
		errs = append(errs, fmt.Sprintf("Invalid region: %s", region))
	}

	rank, err := coerceInt(raw["rank"])
	if err != nil {
		errs = append(errs, fmt.Sprintf("Invalid rank: %v", raw["rank"]))
	}

	if len(errs) > 0 {
		return false, errs, nil
	}

	t := &Trend{
		Platform:    platform,
		Region:      region,
		Rank:        rank,
		Keyword:     strings.TrimSpace(stringify(raw["keyword"])),
		Category:    stringOr(raw, "category", "Unknown"),
		Velocity:    NormalizeVelocity(stringOr(raw, "velocity", "steady")),
		Context:     stringOr(raw, "context", ""),
		WhyTrending: stringOr(raw, "why_trending", ""),
	}

	switch platform {
	case PlatformSearch:
		t.Search = normalizeSearchFields(raw)
	case PlatformMention:
		t.Mention = normalizeMentionFields(raw)
	}

	return true, nil, t
}

func normalizeSearchFields(raw RawTrend) *SearchFields {
	f := &SearchFields{
		SearchVolume:    NormalizeVolume(raw["search_volume"]),
		TrendType:       stringOr(raw, "trend_type", "search"),
		PublicSentiment: strings.ToLower(stringOr(raw, "public_sentiment", "curious")),
		SentimentScore:  intOr(raw, "sentiment_score", 50),
		RelatedSearches: stringList(raw["related_searches"]),
	}
	return f
}

func normalizeMentionFields(raw RawTrend) *MentionFields {
	primary := strings.ToLower(stringOr(raw, "primary_sentiment", "curious"))
	if mapped, ok := sentimentTranslation[primary]; ok {
		primary = mapped
	}

	breakdown, ok := parseBreakdown(raw["sentiment_breakdown"])
	if !ok {
		breakdown, ok = defaultBreakdowns[primary]
		if !ok {
			breakdown = fallbackBreakdown
		}
	}

	f := &MentionFields{
		MentionVolume:      NormalizeVolume(raw["mention_volume"]),
		HashtagType:        stringOr(raw, "hashtag_type", "keyword"),
		PrimarySentiment:   primary,
		SentimentIntensity: strings.ToLower(stringOr(raw, "sentiment_intensity", "moderate")),
		Breakdown:          breakdown,
		RelatedHashtags:    stringList(raw["related_hashtags"]),
	}

	// Three-way aggregate kept alongside the five buckets for persistence.
	f.SentimentPositive = breakdown.Excited + breakdown.Celebrating
	f.SentimentNeutral = breakdown.Curious
	f.SentimentNegative = breakdown.Concerned + breakdown.Controversial

	return f
}

// NormalizeBatch validates every record in raws independently and returns
// the normalized survivors, in input order, plus a report. A malformed
// record — including one that panics the validator — becomes a ledger
// entry; it can never abort the batch.
func NormalizeBatch(raws []RawTrend, platform Platform) ([]Trend, *ValidationReport) {
	valid := make([]Trend, 0, len(raws))
	report := &ValidationReport{Total: len(raws)}

	for i, raw := range raws {
		ok, errs, t := validateIsolated(raw, platform)
		if ok && t != nil {
			valid = append(valid, *t)
			report.Valid++
			continue
		}
		report.Invalid++
		report.Errors = append(report.Errors, RecordError{
			Index:   i,
			Keyword: stringOr(raw, "keyword", "Unknown"),
			Errors:  errs,
		})
	}

	return valid, report
}

// validateIsolated converts a validator panic into a plain error entry so
// one poisoned record cannot take down the batch.
func validateIsolated(raw RawTrend, platform Platform) (ok bool, errs []string, t *Trend) {
	defer func() {
		if r := recover(); r != nil {
			ok, errs, t = false, []string{fmt.Sprintf("Validation error: %v", r)}, nil
		}
	}()
	return ValidateTrend(raw, platform)
}

// NormalizeVelocity canonicalizes a velocity label: lower case, spaces and
// hyphens become underscores ("Rising Fast" → "rising_fast").
func NormalizeVelocity(v string) string {
	v = strings.ToLower(v)
	v = strings.ReplaceAll(v, " ", "_")
	v = strings.ReplaceAll(v, "-", "_")
	return v
}

// ── raw value coercion helpers ──

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".0".
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringOr(raw RawTrend, key, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	s := stringify(v)
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func intOr(raw RawTrend, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	n, err := coerceInt(v)
	if err != nil {
		return def
	}
	return n
}

func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}

// stringList accepts a JSON list or a comma-separated string and returns a
// trimmed string slice; anything else becomes an empty list.
func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, stringify(item))
		}
		return out
	case string:
		parts := strings.Split(l, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{}
}

func parseBreakdown(v any) (SentimentBreakdown, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return SentimentBreakdown{}, false
	}
	b := SentimentBreakdown{
		Excited:       intFromMap(m, "excited"),
		Concerned:     intFromMap(m, "concerned"),
		Curious:       intFromMap(m, "curious"),
		Celebrating:   intFromMap(m, "celebrating"),
		Controversial: intFromMap(m, "controversial"),
	}
	return b, true
}

func intFromMap(m map[string]any, key string) int {
	n, err := coerceInt(m[key])
	if err != nil {
		return 0
	}
	return n
}
