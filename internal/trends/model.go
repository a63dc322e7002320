// Package trends implements validation and normalization for raw trend
// records collected from search and social platforms. Records arrive as
// loosely-typed JSON bags (SerpAPI responses, LLM enrichment output,
// manual paste) and leave as fully-typed Trend values or entries in a
// per-batch error ledger — never anything in between.
package trends

import (
	"errors"
	"fmt"
)

// Platform identifies which upstream produced a batch of raw trends.
type Platform string

const (
	// PlatformSearch is Google Trends style data keyed by search volume.
	PlatformSearch Platform = "search"
	// PlatformMention is Twitter/X style data keyed by mention volume.
	PlatformMention Platform = "mention"
)

// ErrUnknownPlatform is returned when a platform tag from an ingestion
// boundary does not name a supported platform. This is a caller bug, not
// dirty data, and is deliberately not swallowed anywhere.
var ErrUnknownPlatform = errors.New("trends: unknown platform")

// ParsePlatform validates a raw platform tag. Accepts the canonical names
// plus the upstream source aliases used by the collection layer.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "search", "google":
		return PlatformSearch, nil
	case "mention", "twitter":
		return PlatformMention, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// Regions accepted by the validator. Closed, case-sensitive set.
const (
	RegionUSA   = "USA"
	RegionIndia = "India"
)

// ValidRegion reports whether region is one of the supported regions.
func ValidRegion(region string) bool {
	return region == RegionUSA || region == RegionIndia
}

// RawTrend is an untyped trend record as received from an upstream source.
// Values may be strings, JSON numbers, lists, or nested maps.
type RawTrend map[string]any

// Trend is a fully normalized trend record. Exactly one of Search or
// Mention is non-nil, matching Platform.
type Trend struct {
	Platform    Platform `json:"platform"`
	Region      string   `json:"region"`
	Rank        int      `json:"rank"`
	Keyword     string   `json:"keyword"`
	Category    string   `json:"category"`
	Velocity    string   `json:"velocity"`
	Context     string   `json:"context"`
	WhyTrending string   `json:"why_trending"`

	Search  *SearchFields  `json:"search,omitempty"`
	Mention *MentionFields `json:"mention,omitempty"`
}

// SearchFields holds the search-platform specific portion of a Trend.
type SearchFields struct {
	SearchVolume    int      `json:"search_volume"`
	TrendType       string   `json:"trend_type"`
	PublicSentiment string   `json:"public_sentiment"`
	SentimentScore  int      `json:"sentiment_score"`
	RelatedSearches []string `json:"related_searches"`
}

// MentionFields holds the mention-platform specific portion of a Trend.
type MentionFields struct {
	MentionVolume      int                `json:"mention_volume"`
	HashtagType        string             `json:"hashtag_type"`
	PrimarySentiment   string             `json:"primary_sentiment"`
	SentimentIntensity string             `json:"sentiment_intensity"`
	Breakdown          SentimentBreakdown `json:"sentiment_breakdown"`

	// Aggregates derived from Breakdown, stored separately because the
	// persistence schema keeps three columns.
	SentimentPositive int `json:"sentiment_positive"`
	SentimentNeutral  int `json:"sentiment_neutral"`
	SentimentNegative int `json:"sentiment_negative"`

	RelatedHashtags []string `json:"related_hashtags"`
}

// SentimentBreakdown is the five-bucket sentiment split, in percent.
type SentimentBreakdown struct {
	Excited       int `json:"excited"`
	Concerned     int `json:"concerned"`
	Curious       int `json:"curious"`
	Celebrating   int `json:"celebrating"`
	Controversial int `json:"controversial"`
}

// Sum returns the total of all five buckets. A well-formed breakdown sums
// to 100.
func (b SentimentBreakdown) Sum() int {
	return b.Excited + b.Concerned + b.Curious + b.Celebrating + b.Controversial
}

// Volume returns the platform volume of the trend regardless of kind.
func (t *Trend) Volume() int {
	switch {
	case t.Search != nil:
		return t.Search.SearchVolume
	case t.Mention != nil:
		return t.Mention.MentionVolume
	}
	return 0
}

// Sentiment returns the dominant sentiment label of the trend.
func (t *Trend) Sentiment() string {
	switch {
	case t.Search != nil:
		return t.Search.PublicSentiment
	case t.Mention != nil:
		return t.Mention.PrimarySentiment
	}
	return ""
}

// RecordError describes why a single raw record was rejected.
type RecordError struct {
	Index   int      `json:"index"`
	Keyword string   `json:"keyword"`
	Errors  []string `json:"errors"`
}

// ValidationReport summarizes one NormalizeBatch run.
// Invariant: Valid + Invalid == Total and len(Errors) == Invalid.
type ValidationReport struct {
	Total   int           `json:"total"`
	Valid   int           `json:"valid"`
	Invalid int           `json:"invalid"`
	Errors  []RecordError `json:"errors"`
}
