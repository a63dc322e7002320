package collector

import (
	"errors"
	"fmt"

	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/trends"
)

// ErrNoTrends is returned when a pasted payload parses but carries no
// trends list.
var ErrNoTrends = errors.New("collector: payload has no trends list")

// ParseManualPaste ingests a JSON payload pasted by the operator — the
// output of running the Twitter collection prompt in an X-connected
// model, or the enrichment prompt when the API quota is exhausted. The
// paste goes through the same extraction as a live model response, so
// fences and surrounding prose are tolerated.
func ParseManualPaste(text string) ([]trends.RawTrend, error) {
	payload, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("collector: manual paste: %w", err)
	}
	if payload == nil {
		return nil, ErrNoTrends
	}

	list, ok := payload["trends"].([]any)
	if !ok {
		return nil, ErrNoTrends
	}

	out := make([]trends.RawTrend, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, trends.RawTrend(m))
		}
	}
	if len(out) == 0 {
		return nil, ErrNoTrends
	}
	return out, nil
}

// SplitByRegion partitions raw records by their region tag. Records with
// no usable region stay in the batch for their region's normalization run
// to reject, rather than being silently dropped here.
func SplitByRegion(raws []trends.RawTrend) (usa, india, other []trends.RawTrend) {
	for _, r := range raws {
		switch r["region"] {
		case trends.RegionUSA:
			usa = append(usa, r)
		case trends.RegionIndia:
			india = append(india, r)
		default:
			other = append(other, r)
		}
	}
	return usa, india, other
}
