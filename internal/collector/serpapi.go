// Package collector gathers raw trend data for the dashboard: SerpAPI
// Google Trends (fetched), Twitter/X trends (pasted from an X-connected
// model), and RSS headline context used to ground enrichment. It hands
// loosely-typed records to the trends package for validation.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pivotnote/pulse/internal/trends"
)

// breakoutVolume is the search volume above which a trend is flagged as a
// breakout regardless of what SerpAPI labels it.
const breakoutVolume = 500_000

// geoRegions maps SerpAPI geo codes to dashboard region names.
var geoRegions = map[string]string{
	"US": trends.RegionUSA,
	"IN": trends.RegionIndia,
}

// RawSearchTrend is one Google trend as fetched from SerpAPI, before
// enrichment. SearchVolumeRaw keeps the original traffic string for the
// enrichment CSV and operator display.
type RawSearchTrend struct {
	Region          string   `json:"region"`
	Rank            int      `json:"rank"`
	Keyword         string   `json:"keyword"`
	SearchVolumeRaw string   `json:"search_volume_raw"`
	SearchVolume    int      `json:"search_volume"`
	IsBreakout      bool     `json:"is_breakout"`
	RelatedSearches []string `json:"related_searches"`
}

// SerpAPIClient fetches real-time trending searches from SerpAPI's
// google_trends_trending_now engine.
type SerpAPIClient struct {
	apiKey  string
	baseURL string
	hours   int
	client  *http.Client
}

// SerpAPIOption configures the client.
type SerpAPIOption func(*SerpAPIClient)

// WithSerpAPIBaseURL sets a custom base URL (used in tests).
func WithSerpAPIBaseURL(u string) SerpAPIOption {
	return func(c *SerpAPIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithSerpAPIWindow sets the trailing collection window in hours.
func WithSerpAPIWindow(hours int) SerpAPIOption {
	return func(c *SerpAPIClient) { c.hours = hours }
}

// WithSerpAPIHTTPClient sets a custom HTTP client.
func WithSerpAPIHTTPClient(client *http.Client) SerpAPIOption {
	return func(c *SerpAPIClient) { c.client = client }
}

// NewSerpAPIClient creates a SerpAPI client.
func NewSerpAPIClient(apiKey string, opts ...SerpAPIOption) *SerpAPIClient {
	c := &SerpAPIClient{
		apiKey:  apiKey,
		baseURL: "https://serpapi.com",
		hours:   24,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTrending returns the top count trending searches for a SerpAPI geo
// code ("US", "IN"), ranked by position.
func (c *SerpAPIClient) FetchTrending(ctx context.Context, geo string, count int) ([]RawSearchTrend, error) {
	region, ok := geoRegions[geo]
	if !ok {
		return nil, fmt.Errorf("collector: unsupported geo %q", geo)
	}

	q := url.Values{}
	q.Set("engine", "google_trends_trending_now")
	q.Set("geo", geo)
	q.Set("hours", fmt.Sprint(c.hours))
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector: serpapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector: serpapi status %d", resp.StatusCode)
	}

	var result serpTrendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("collector: decode serpapi response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("collector: serpapi error: %s", result.Error)
	}
	if len(result.TrendingSearches) == 0 {
		return nil, fmt.Errorf("collector: no trending searches for %s", geo)
	}

	searches := result.TrendingSearches
	if count > 0 && len(searches) > count {
		searches = searches[:count]
	}

	out := make([]RawSearchTrend, 0, len(searches))
	for i, ts := range searches {
		volRaw := ts.volumeString()
		vol := trends.ParseTraffic(volRaw)

		out = append(out, RawSearchTrend{
			Region:          region,
			Rank:            i + 1,
			Keyword:         ts.Query,
			SearchVolumeRaw: volRaw,
			SearchVolume:    vol,
			IsBreakout:      vol > breakoutVolume || strings.Contains(strings.ToLower(volRaw), "breakout"),
			RelatedSearches: ts.relatedQueries(5),
		})
	}
	return out, nil
}

// FetchAll fetches all configured regions concurrently. Results are keyed
// by region name; one failed region fails the whole fetch so the operator
// never publishes a half-day's data unknowingly.
func (c *SerpAPIClient) FetchAll(ctx context.Context, geos []string, count int) (map[string][]RawSearchTrend, error) {
	var mu sync.Mutex
	byRegion := make(map[string][]RawSearchTrend, len(geos))

	g, ctx := errgroup.WithContext(ctx)
	for _, geo := range geos {
		g.Go(func() error {
			batch, err := c.FetchTrending(ctx, geo, count)
			if err != nil {
				return fmt.Errorf("%s: %w", geo, err)
			}
			mu.Lock()
			byRegion[batch[0].Region] = batch
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byRegion, nil
}

// EnrichmentCSV renders raw trends from both regions into the CSV block
// the enrichment prompt expects.
func EnrichmentCSV(batches ...[]RawSearchTrend) string {
	var b strings.Builder
	b.WriteString("Rank,Region,Keyword,Search Volume,Is Breakout,Related\n")
	for _, batch := range batches {
		for _, t := range batch {
			related := t.RelatedSearches
			if len(related) > 3 {
				related = related[:3]
			}
			fmt.Fprintf(&b, "%d,%s,%s,%s,%t,%s\n",
				t.Rank, t.Region, t.Keyword, t.SearchVolumeRaw, t.IsBreakout,
				strings.Join(related, "; "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ── SerpAPI wire types ──

type serpTrendingResponse struct {
	Error            string       `json:"error"`
	TrendingSearches []serpSearch `json:"trending_searches"`
}

type serpSearch struct {
	Query          string          `json:"query"`
	SearchVolume   json.RawMessage `json:"search_volume"`
	RelatedQueries []serpRelated   `json:"related_queries"`
}

type serpRelated struct {
	Query string `json:"query"`
}

// volumeString renders the search_volume field, which SerpAPI returns as
// either a number or a formatted string, as a traffic string.
func (s serpSearch) volumeString() string {
	if len(s.SearchVolume) == 0 {
		return "Unknown"
	}
	var asString string
	if err := json.Unmarshal(s.SearchVolume, &asString); err == nil {
		if asString == "" {
			return "Unknown"
		}
		return asString
	}
	var asNumber int64
	if err := json.Unmarshal(s.SearchVolume, &asNumber); err == nil {
		return fmt.Sprint(asNumber)
	}
	return "Unknown"
}

func (s serpSearch) relatedQueries(limit int) []string {
	out := make([]string, 0, limit)
	for _, r := range s.RelatedQueries {
		if r.Query == "" {
			continue
		}
		out = append(out, r.Query)
		if len(out) == limit {
			break
		}
	}
	return out
}
