package collector

import (
	"context"
	"fmt"

	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/prompts"
	"github.com/pivotnote/pulse/internal/trends"
)

// EnrichSearchTrends sends both regions' raw SerpAPI trends to the model
// in a single call and merges the returned context, category, velocity
// and sentiment back onto the raw records, keyed by region and rank.
//
// Enriched rows that do not match a raw record are dropped; raw records
// the model skipped are dropped too. The result is loosely-typed on
// purpose — NormalizeBatch is the single gate to typed data.
func EnrichSearchTrends(ctx context.Context, provider llm.Provider, opts *llm.Options, usa, india []RawSearchTrend) ([]trends.RawTrend, []trends.RawTrend, error) {
	prompt := prompts.GoogleEnrichment("USA and India", EnrichmentCSV(usa, india))

	resp, err := provider.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("collector: enrichment call: %w", err)
	}

	payload, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("collector: enrichment response: %w", err)
	}

	enriched, ok := payload["trends"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("collector: enrichment response missing trends list")
	}

	var usaOut, indiaOut []trends.RawTrend
	for _, item := range enriched {
		e, ok := item.(map[string]any)
		if !ok {
			continue
		}
		region, _ := e["region"].(string)
		rank := intField(e, "rank")

		switch region {
		case trends.RegionUSA:
			if match := findByRank(usa, rank); match != nil {
				usaOut = append(usaOut, mergeEnrichment(*match, e))
			}
		case trends.RegionIndia:
			if match := findByRank(india, rank); match != nil {
				indiaOut = append(indiaOut, mergeEnrichment(*match, e))
			}
		}
	}
	return usaOut, indiaOut, nil
}

// mergeEnrichment combines a raw SerpAPI record with the model's
// enrichment fields into one record ready for normalization.
func mergeEnrichment(raw RawSearchTrend, e map[string]any) trends.RawTrend {
	merged := trends.RawTrend{
		"region":            raw.Region,
		"rank":              raw.Rank,
		"keyword":           raw.Keyword,
		"search_volume":     raw.SearchVolume,
		"search_volume_raw": raw.SearchVolumeRaw,
		"is_breakout":       raw.IsBreakout,
		"related_searches":  raw.RelatedSearches,

		"category":         fieldOr(e, "category", "Unknown"),
		"velocity":         fieldOr(e, "velocity", "steady"),
		"context":          fieldOr(e, "context", ""),
		"why_trending":     fieldOr(e, "why_trending", ""),
		"public_sentiment": fieldOr(e, "public_sentiment", "curious"),
		"sentiment_score":  e["sentiment_score"],
	}
	if merged["sentiment_score"] == nil {
		merged["sentiment_score"] = 50
	}
	return merged
}

func findByRank(batch []RawSearchTrend, rank int) *RawSearchTrend {
	for i := range batch {
		if batch[i].Rank == rank {
			return &batch[i]
		}
	}
	return nil
}

func fieldOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
