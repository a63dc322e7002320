package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pivotnote/pulse/internal/collector"
	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/prompts"
	"github.com/pivotnote/pulse/internal/trends"
)

// Generator is the slice of the LLM router the analyzer needs. The
// router satisfies it; tests supply a canned implementation.
type Generator interface {
	GenerateTier(ctx context.Context, tier llm.Tier, prompt string, opts *llm.Options) (*llm.Response, error)
}

// Analyzer runs the pro-tier analysis calls: intelligence grid,
// regional script assembly, and the two deep-dive phases.
type Analyzer struct {
	gen  Generator
	opts *llm.Options
}

// NewAnalyzer creates an analyzer. A nil opts uses the defaults.
func NewAnalyzer(gen Generator, opts *llm.Options) *Analyzer {
	if opts == nil {
		opts = llm.DefaultOptions()
	}
	return &Analyzer{gen: gen, opts: opts}
}

// BuildSummary digests a day's normalized trends and context headlines
// into the compact per-region, per-platform text blocks the analysis
// prompt consumes. Keeping the digest under a few hundred tokens per
// block is what lets both regions fit a single pro-tier call.
func BuildSummary(date string, batch []trends.Trend, headlines []collector.Headline) prompts.DataSummary {
	s := prompts.DataSummary{Date: date}

	var breakouts []string
	for _, t := range batch {
		line := summaryLine(t)
		switch {
		case t.Region == trends.RegionUSA && t.Platform == trends.PlatformSearch:
			s.USAGoogleSummary = joinLine(s.USAGoogleSummary, line)
		case t.Region == trends.RegionUSA && t.Platform == trends.PlatformMention:
			s.USATwitterSummary = joinLine(s.USATwitterSummary, line)
		case t.Region == trends.RegionIndia && t.Platform == trends.PlatformSearch:
			s.IndiaGoogleSummary = joinLine(s.IndiaGoogleSummary, line)
		case t.Region == trends.RegionIndia && t.Platform == trends.PlatformMention:
			s.IndiaTwitterSummary = joinLine(s.IndiaTwitterSummary, line)
		}
		if t.Velocity == "breakout" || t.Velocity == "spike" {
			breakouts = append(breakouts, fmt.Sprintf("%s (%s, %s)", t.Keyword, t.Region, t.Velocity))
		}
	}
	s.BreakoutTrends = strings.Join(breakouts, "; ")

	if digest := collector.HeadlineDigest(headlines); digest != "" {
		// Headlines ride along in the breakout block so the model can
		// verify why_trending claims against real events.
		if s.BreakoutTrends != "" {
			s.BreakoutTrends += "\n"
		}
		s.BreakoutTrends += "HEADLINES:\n" + digest
	}
	return s
}

func summaryLine(t trends.Trend) string {
	return fmt.Sprintf("%s (vol %d, %s, %s)", t.Keyword, t.Volume(), t.Velocity, t.Sentiment())
}

func joinLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "; " + line
}

// GenerateReport runs the intelligence-grid analysis on a pro-tier
// model and returns the typed report plus the raw JSON object for
// storage.
func (a *Analyzer) GenerateReport(ctx context.Context, s prompts.DataSummary) (*Report, json.RawMessage, error) {
	resp, err := a.gen.GenerateTier(ctx, llm.TierPro, prompts.Analysis(s), a.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("intel: analysis call: %w", err)
	}

	body, err := llm.ExtractJSONString(resp.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("intel: analysis response: %w", err)
	}
	if body == "" {
		return nil, nil, fmt.Errorf("intel: analysis response: %w", llm.ErrEmptyResponse)
	}

	var report Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, nil, fmt.Errorf("intel: decode analysis report: %w", err)
	}
	if err := validateReport(&report); err != nil {
		return nil, nil, err
	}
	return &report, json.RawMessage(body), nil
}

// validateReport enforces the grid contract the prompt demands. A model
// that drops a slot produces an unusable dashboard day, so it fails
// loudly here instead of at render time.
func validateReport(r *Report) error {
	for _, check := range []struct {
		region string
		ri     *RegionalIntelligence
	}{
		{trends.RegionIndia, &r.India},
		{trends.RegionUSA, &r.USA},
	} {
		if len(check.ri.WeatherGrid) < 2 {
			return fmt.Errorf("intel: %s grid has %d themes, want 2", check.region, len(check.ri.WeatherGrid))
		}
		if len(check.ri.Anomalies) < 2 {
			return fmt.Errorf("intel: %s grid has %d anomalies, want 2", check.region, len(check.ri.Anomalies))
		}
	}
	return nil
}

// AssembleScript turns one region's intelligence into the 60-second
// production package.
func (a *Analyzer) AssembleScript(ctx context.Context, region string, ri *RegionalIntelligence) (*ScriptPackage, error) {
	grid, err := json.Marshal(ri.WeatherGrid)
	if err != nil {
		return nil, err
	}
	mood, err := json.Marshal(ri.ProductionMood)
	if err != nil {
		return nil, err
	}

	prompt := prompts.Assembly(region, grid, mood, ri.ProductionMood.OverallSentiment)
	resp, err := a.gen.GenerateTier(ctx, llm.TierPro, prompt, a.opts)
	if err != nil {
		return nil, fmt.Errorf("intel: assembly call for %s: %w", region, err)
	}

	var pkg ScriptPackage
	if err := llm.DecodeInto(resp.Content, &pkg); err != nil {
		return nil, fmt.Errorf("intel: decode %s script package: %w", region, err)
	}
	if pkg.ScriptAssembly.FullScript() == "" {
		return nil, fmt.Errorf("intel: %s script package has no script segments", region)
	}
	return &pkg, nil
}

// ResearchTrend runs deep-dive phase 1 for a single trend and returns
// the typed research plus the raw JSON for storage.
func (a *Analyzer) ResearchTrend(ctx context.Context, in prompts.DeepdiveInput) (*Research, json.RawMessage, error) {
	resp, err := a.gen.GenerateTier(ctx, llm.TierPro, prompts.DeepdiveResearch(in), a.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("intel: deepdive research call: %w", err)
	}

	body, err := llm.ExtractJSONString(resp.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("intel: deepdive research response: %w", err)
	}
	if body == "" {
		return nil, nil, fmt.Errorf("intel: deepdive research response: %w", llm.ErrEmptyResponse)
	}

	var research Research
	if err := json.Unmarshal([]byte(body), &research); err != nil {
		return nil, nil, fmt.Errorf("intel: decode deepdive research: %w", err)
	}
	if research.Keyword == "" {
		research.Keyword = in.Keyword
	}
	if research.Region == "" {
		research.Region = in.Region
	}
	return &research, json.RawMessage(body), nil
}

// WriteDeepdiveScript runs deep-dive phase 2, converting stored research
// into the 120-second production package.
func (a *Analyzer) WriteDeepdiveScript(ctx context.Context, research json.RawMessage, keyword, region string) (*DeepdiveScriptPackage, error) {
	prompt := prompts.DeepdiveScript(research, keyword, region)
	resp, err := a.gen.GenerateTier(ctx, llm.TierPro, prompt, a.opts)
	if err != nil {
		return nil, fmt.Errorf("intel: deepdive script call: %w", err)
	}

	var pkg DeepdiveScriptPackage
	if err := llm.DecodeInto(resp.Content, &pkg); err != nil {
		return nil, fmt.Errorf("intel: decode deepdive script: %w", err)
	}
	if pkg.Script.FullScript() == "" {
		return nil, fmt.Errorf("intel: deepdive script for %s is empty", keyword)
	}
	return &pkg, nil
}

// DeepdiveCandidates picks the trends worth a deep dive: high viral
// score first, breakouts always included.
func DeepdiveCandidates(batch []trends.Trend, limit int) []prompts.DeepdiveInput {
	type scored struct {
		t     trends.Trend
		score int
	}
	ranked := make([]scored, 0, len(batch))
	for _, t := range batch {
		ranked = append(ranked, scored{t, t.Score()})
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]prompts.DeepdiveInput, 0, limit)
	for _, r := range ranked[:limit] {
		t := r.t
		out = append(out, prompts.DeepdiveInput{
			Keyword:     t.Keyword,
			Region:      t.Region,
			Context:     t.Context,
			WhyTrending: t.WhyTrending,
			Volume:      t.Volume(),
			Velocity:    t.Velocity,
			Sentiment:   t.Sentiment(),
		})
	}
	return out
}
