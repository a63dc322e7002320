package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pivotnote/pulse/internal/trends"
)

const (
	tableSearchTrends  = "google_trends"
	tableMentionTrends = "twitter_trends"
	tableEntities      = "trend_entities"
)

// SearchTrendRow is a google_trends table row.
type SearchTrendRow struct {
	CollectionDate      string   `json:"collection_date"`
	CollectionTimestamp string   `json:"collection_timestamp"`
	Region              string   `json:"region"`
	Rank                int      `json:"rank"`
	Keyword             string   `json:"keyword"`
	SearchVolume        int      `json:"search_volume"`
	Category            string   `json:"category"`
	TrendType           string   `json:"trend_type"`
	Velocity            string   `json:"velocity"`
	Context             string   `json:"context"`
	WhyTrending         string   `json:"why_trending"`
	PublicSentiment     string   `json:"public_sentiment"`
	SentimentScore      int      `json:"sentiment_score"`
	RelatedSearches     []string `json:"related_searches"`
	ViralScore          int      `json:"viral_score"`
}

// MentionTrendRow is a twitter_trends table row.
type MentionTrendRow struct {
	CollectionDate      string         `json:"collection_date"`
	CollectionTimestamp string         `json:"collection_timestamp"`
	Region              string         `json:"region"`
	Rank                int            `json:"rank"`
	Keyword             string         `json:"keyword"`
	MentionVolume       int            `json:"mention_volume"`
	Category            string         `json:"category"`
	HashtagType         string         `json:"hashtag_type"`
	Velocity            string         `json:"velocity"`
	Context             string         `json:"context"`
	WhyTrending         string         `json:"why_trending"`
	PrimarySentiment    string         `json:"primary_sentiment"`
	SentimentIntensity  string         `json:"sentiment_intensity"`
	SentimentBreakdown  map[string]int `json:"sentiment_breakdown"`
	SentimentPositive   int            `json:"sentiment_positive"`
	SentimentNeutral    int            `json:"sentiment_neutral"`
	SentimentNegative   int            `json:"sentiment_negative"`
	RelatedHashtags     []string       `json:"related_hashtags"`
	ViralScore          int            `json:"viral_score"`
}

// EntityRow is a trend_entities table row.
type EntityRow struct {
	AnalysisDate string `json:"analysis_date"`
	trends.Entity
}

// SaveTrends writes a normalized batch, splitting search and mention
// trends into their tables. Rows for the same collection date are
// replaced, so re-running a collection is idempotent.
func (c *Client) SaveTrends(ctx context.Context, date string, batch []trends.Trend) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var search []SearchTrendRow
	var mention []MentionTrendRow
	for _, t := range batch {
		switch t.Platform {
		case trends.PlatformSearch:
			search = append(search, searchRow(t, date, now))
		case trends.PlatformMention:
			mention = append(mention, mentionRow(t, date, now))
		}
	}

	if len(search) > 0 {
		if err := c.replaceForDate(ctx, tableSearchTrends, date, search); err != nil {
			return fmt.Errorf("store: save search trends: %w", err)
		}
	}
	if len(mention) > 0 {
		if err := c.replaceForDate(ctx, tableMentionTrends, date, mention); err != nil {
			return fmt.Errorf("store: save mention trends: %w", err)
		}
	}
	return nil
}

// replaceForDate deletes a date's rows then inserts the new batch.
// PostgREST has no multi-row replace, and the trend tables carry no
// unique constraint to upsert against.
func (c *Client) replaceForDate(ctx context.Context, table, date string, rows any) error {
	if err := c.Delete(ctx, table, map[string]string{"collection_date": eq(date)}); err != nil {
		return err
	}
	return c.Insert(ctx, table, rows, nil)
}

// TrendsByDate reads both platforms' rows for a collection date, ranked.
func (c *Client) TrendsByDate(ctx context.Context, date string) ([]SearchTrendRow, []MentionTrendRow, error) {
	q := url.Values{}
	q.Set("collection_date", eq(date))
	q.Set("order", "region.asc,rank.asc")

	var search []SearchTrendRow
	if err := c.Select(ctx, tableSearchTrends, q, &search); err != nil {
		return nil, nil, fmt.Errorf("store: load search trends: %w", err)
	}
	var mention []MentionTrendRow
	if err := c.Select(ctx, tableMentionTrends, q, &mention); err != nil {
		return nil, nil, fmt.Errorf("store: load mention trends: %w", err)
	}
	return search, mention, nil
}

// LatestTrendDate returns the most recent collection date with data, or
// "" when the tables are empty.
func (c *Client) LatestTrendDate(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("select", "collection_date")
	q.Set("order", "collection_date.desc")
	q.Set("limit", "1")

	var rows []struct {
		CollectionDate string `json:"collection_date"`
	}
	if err := c.Select(ctx, tableSearchTrends, q, &rows); err != nil {
		return "", fmt.Errorf("store: latest trend date: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].CollectionDate, nil
}

// SaveEntities replaces the extracted entities for an analysis date.
func (c *Client) SaveEntities(ctx context.Context, date string, entities []trends.Entity) error {
	if err := c.Delete(ctx, tableEntities, map[string]string{"analysis_date": eq(date)}); err != nil {
		return fmt.Errorf("store: clear entities: %w", err)
	}
	if len(entities) == 0 {
		return nil
	}
	rows := make([]EntityRow, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, EntityRow{AnalysisDate: date, Entity: e})
	}
	if err := c.Insert(ctx, tableEntities, rows, nil); err != nil {
		return fmt.Errorf("store: save entities: %w", err)
	}
	return nil
}

// Trend converts a stored row back into a normalized trend.
func (r SearchTrendRow) Trend() trends.Trend {
	return trends.Trend{
		Platform:    trends.PlatformSearch,
		Region:      r.Region,
		Rank:        r.Rank,
		Keyword:     r.Keyword,
		Category:    r.Category,
		Velocity:    r.Velocity,
		Context:     r.Context,
		WhyTrending: r.WhyTrending,
		Search: &trends.SearchFields{
			SearchVolume:    r.SearchVolume,
			TrendType:       r.TrendType,
			PublicSentiment: r.PublicSentiment,
			SentimentScore:  r.SentimentScore,
			RelatedSearches: r.RelatedSearches,
		},
	}
}

// Trend converts a stored row back into a normalized trend.
func (r MentionTrendRow) Trend() trends.Trend {
	return trends.Trend{
		Platform:    trends.PlatformMention,
		Region:      r.Region,
		Rank:        r.Rank,
		Keyword:     r.Keyword,
		Category:    r.Category,
		Velocity:    r.Velocity,
		Context:     r.Context,
		WhyTrending: r.WhyTrending,
		Mention: &trends.MentionFields{
			MentionVolume:      r.MentionVolume,
			HashtagType:        r.HashtagType,
			PrimarySentiment:   r.PrimarySentiment,
			SentimentIntensity: r.SentimentIntensity,
			Breakdown: trends.SentimentBreakdown{
				Excited:       r.SentimentBreakdown["excited"],
				Concerned:     r.SentimentBreakdown["concerned"],
				Curious:       r.SentimentBreakdown["curious"],
				Celebrating:   r.SentimentBreakdown["celebrating"],
				Controversial: r.SentimentBreakdown["controversial"],
			},
			SentimentPositive: r.SentimentPositive,
			SentimentNeutral:  r.SentimentNeutral,
			SentimentNegative: r.SentimentNegative,
			RelatedHashtags:   r.RelatedHashtags,
		},
	}
}

func searchRow(t trends.Trend, date, ts string) SearchTrendRow {
	f := t.Search
	return SearchTrendRow{
		CollectionDate:      date,
		CollectionTimestamp: ts,
		Region:              t.Region,
		Rank:                t.Rank,
		Keyword:             t.Keyword,
		SearchVolume:        f.SearchVolume,
		Category:            t.Category,
		TrendType:           f.TrendType,
		Velocity:            t.Velocity,
		Context:             t.Context,
		WhyTrending:         t.WhyTrending,
		PublicSentiment:     f.PublicSentiment,
		SentimentScore:      f.SentimentScore,
		RelatedSearches:     f.RelatedSearches,
		ViralScore:          t.Score(),
	}
}

func mentionRow(t trends.Trend, date, ts string) MentionTrendRow {
	f := t.Mention
	return MentionTrendRow{
		CollectionDate:      date,
		CollectionTimestamp: ts,
		Region:              t.Region,
		Rank:                t.Rank,
		Keyword:             t.Keyword,
		MentionVolume:       f.MentionVolume,
		Category:            t.Category,
		HashtagType:         f.HashtagType,
		Velocity:            t.Velocity,
		Context:             t.Context,
		WhyTrending:         t.WhyTrending,
		PrimarySentiment:    f.PrimarySentiment,
		SentimentIntensity:  f.SentimentIntensity,
		SentimentBreakdown:  breakdownMap(f.Breakdown),
		SentimentPositive:   f.SentimentPositive,
		SentimentNeutral:    f.SentimentNeutral,
		SentimentNegative:   f.SentimentNegative,
		RelatedHashtags:     f.RelatedHashtags,
		ViralScore:          t.Score(),
	}
}

func breakdownMap(b trends.SentimentBreakdown) map[string]int {
	return map[string]int{
		"excited":       b.Excited,
		"concerned":     b.Concerned,
		"curious":       b.Curious,
		"celebrating":   b.Celebrating,
		"controversial": b.Controversial,
	}
}
