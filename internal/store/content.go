package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pivotnote/pulse/internal/intel"
)

const (
	tableInsights = "daily_insights"
	tableContent  = "daily_content_records"
	tableDeepdive = "deep_dive_research"
)

// Deep-dive lifecycle statuses.
const (
	StatusNeedsFinetuning = "needs_finetuning"
	StatusFinalized       = "finalized"
)

// InsightRow is one region's daily_insights row. The schema flattens the
// two themes and two anomalies into suffixed columns.
type InsightRow struct {
	AnalysisDate string `json:"analysis_date"`
	Region       string `json:"region"`

	// Column name carries a typo from the original schema migration.
	ExecutiveSummary string `json:"excecutive_summary"`

	Theme1Title      string `json:"theme_1_title"`
	Theme1Category   string `json:"theme_1_category"`
	Theme1Keywords   string `json:"theme_1_keywords"`
	Theme1Mood       string `json:"theme_1_mood"`
	Theme1DataSignal string `json:"theme_1_data_signal"`
	Theme1Context    string `json:"theme_1_context"`
	Theme1DeepWhy    string `json:"theme_1_deep_why"`
	Theme1Question   string `json:"theme_1_big_question"`

	Theme2Title      string `json:"theme_2_title"`
	Theme2Category   string `json:"theme_2_category"`
	Theme2Keywords   string `json:"theme_2_keywords"`
	Theme2Mood       string `json:"theme_2_mood"`
	Theme2DataSignal string `json:"theme_2_data_signal"`
	Theme2Context    string `json:"theme_2_context"`
	Theme2DeepWhy    string `json:"theme_2_deep_why"`
	Theme2Question   string `json:"theme_2_big_question"`

	Anomaly1Keyword     string `json:"anomaly_1_keyword"`
	Anomaly1Velocity    string `json:"anomaly_1_velocity"`
	Anomaly1Explanation string `json:"anomaly_1_explanation"`
	Anomaly1Question    string `json:"anomaly_1_big_question"`

	Anomaly2Keyword     string `json:"anomaly_2_keyword"`
	Anomaly2Velocity    string `json:"anomaly_2_velocity"`
	Anomaly2Explanation string `json:"anomaly_2_explanation"`
	Anomaly2Question    string `json:"anomaly_2_big_question"`

	OverallSentiment       float64 `json:"overall_sentiment"`
	VibeColorHex           string  `json:"vibe_color_hex"`
	VocalTone              string  `json:"vocal_tone"`
	VisualBackgroundPrompt string  `json:"visual_background_prompt"`
}

// SaveInsights writes the daily intelligence report as one row per
// region, upserting on (analysis_date, region).
func (c *Client) SaveInsights(ctx context.Context, date string, report *intel.Report) error {
	rows := []InsightRow{
		insightRow(date, "India", report.ExecutiveSummary, &report.India),
		insightRow(date, "USA", report.ExecutiveSummary, &report.USA),
	}
	if err := c.Upsert(ctx, tableInsights, rows, nil); err != nil {
		return fmt.Errorf("store: save insights: %w", err)
	}
	return nil
}

// InsightsByDate reads both regions' insight rows for a date.
func (c *Client) InsightsByDate(ctx context.Context, date string) ([]InsightRow, error) {
	q := url.Values{}
	q.Set("analysis_date", eq(date))
	q.Set("order", "region.asc")

	var rows []InsightRow
	if err := c.Select(ctx, tableInsights, q, &rows); err != nil {
		return nil, fmt.Errorf("store: load insights: %w", err)
	}
	return rows, nil
}

func insightRow(date, region, summary string, ri *intel.RegionalIntelligence) InsightRow {
	row := InsightRow{
		AnalysisDate:     date,
		Region:           region,
		ExecutiveSummary: summary,

		OverallSentiment:       ri.ProductionMood.OverallSentiment,
		VibeColorHex:           ri.ProductionMood.VibeColorHex,
		VocalTone:              ri.ProductionMood.VocalTone,
		VisualBackgroundPrompt: ri.ProductionMood.VisualBackgroundPrompt,
	}

	if len(ri.WeatherGrid) > 0 {
		t := ri.WeatherGrid[0]
		row.Theme1Title = t.Theme
		row.Theme1Category = t.Category
		row.Theme1Keywords = strings.Join(t.Keywords, ", ")
		row.Theme1Mood = t.Mood
		row.Theme1DataSignal = t.DataSignal
		row.Theme1Context = t.Context
		row.Theme1DeepWhy = t.DeepWhy
		row.Theme1Question = t.BigQuestion
	}
	if len(ri.WeatherGrid) > 1 {
		t := ri.WeatherGrid[1]
		row.Theme2Title = t.Theme
		row.Theme2Category = t.Category
		row.Theme2Keywords = strings.Join(t.Keywords, ", ")
		row.Theme2Mood = t.Mood
		row.Theme2DataSignal = t.DataSignal
		row.Theme2Context = t.Context
		row.Theme2DeepWhy = t.DeepWhy
		row.Theme2Question = t.BigQuestion
	}
	if len(ri.Anomalies) > 0 {
		a := ri.Anomalies[0]
		row.Anomaly1Keyword = a.Keyword
		row.Anomaly1Velocity = a.Velocity
		row.Anomaly1Explanation = a.Explanation
		row.Anomaly1Question = a.BigQuestion
	}
	if len(ri.Anomalies) > 1 {
		a := ri.Anomalies[1]
		row.Anomaly2Keyword = a.Keyword
		row.Anomaly2Velocity = a.Velocity
		row.Anomaly2Explanation = a.Explanation
		row.Anomaly2Question = a.BigQuestion
	}
	return row
}

// Regional reconstructs the intelligence structure from a flattened
// insight row, splitting the joined keyword strings back into lists.
func (r InsightRow) Regional() *intel.RegionalIntelligence {
	return &intel.RegionalIntelligence{
		WeatherGrid: []intel.Theme{
			{
				Slot:        1,
				Category:    r.Theme1Category,
				Theme:       r.Theme1Title,
				Keywords:    splitKeywords(r.Theme1Keywords),
				Mood:        r.Theme1Mood,
				DataSignal:  r.Theme1DataSignal,
				Context:     r.Theme1Context,
				DeepWhy:     r.Theme1DeepWhy,
				BigQuestion: r.Theme1Question,
			},
			{
				Slot:        2,
				Category:    r.Theme2Category,
				Theme:       r.Theme2Title,
				Keywords:    splitKeywords(r.Theme2Keywords),
				Mood:        r.Theme2Mood,
				DataSignal:  r.Theme2DataSignal,
				Context:     r.Theme2Context,
				DeepWhy:     r.Theme2DeepWhy,
				BigQuestion: r.Theme2Question,
			},
		},
		Anomalies: []intel.Anomaly{
			{
				Rank:        1,
				Keyword:     r.Anomaly1Keyword,
				Velocity:    r.Anomaly1Velocity,
				Explanation: r.Anomaly1Explanation,
				BigQuestion: r.Anomaly1Question,
			},
			{
				Rank:        2,
				Keyword:     r.Anomaly2Keyword,
				Velocity:    r.Anomaly2Velocity,
				Explanation: r.Anomaly2Explanation,
				BigQuestion: r.Anomaly2Question,
			},
		},
		ProductionMood: intel.ProductionMood{
			OverallSentiment:       r.OverallSentiment,
			VibeColorHex:           r.VibeColorHex,
			VocalTone:              r.VocalTone,
			VisualBackgroundPrompt: r.VisualBackgroundPrompt,
		},
	}
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ContentRecord is a daily_content_records row: one row per publish
// date holding both regions' production packages in suffixed columns.
type ContentRecord struct {
	PublishDate string `json:"publish_date"`

	ScriptUSA           string `json:"script_usa,omitempty"`
	IntelligenceGridUSA any    `json:"intelligence_grid_usa,omitempty"`
	ScriptAssemblyUSA   any    `json:"script_assembly_usa,omitempty"`
	VisualPromptsUSA    any    `json:"visual_prompts_usa,omitempty"`
	YouTubeMetadataUSA  any    `json:"youtube_metadata_usa,omitempty"`

	ScriptIndia           string `json:"script_india,omitempty"`
	IntelligenceGridIndia any    `json:"intelligence_grid_india,omitempty"`
	ScriptAssemblyIndia   any    `json:"script_assembly_india,omitempty"`
	VisualPromptsIndia    any    `json:"visual_prompts_india,omitempty"`
	YouTubeMetadataIndia  any    `json:"youtube_metadata_india,omitempty"`
}

// SaveScriptPackage writes one region's assembled script package into
// the publish date's content record, upserting on publish_date so the
// two regions fill in the same row.
func (c *Client) SaveScriptPackage(ctx context.Context, date, region string, grid json.RawMessage, pkg *intel.ScriptPackage) error {
	rec := ContentRecord{PublishDate: date}

	assembly, err := json.Marshal(pkg.ScriptAssembly)
	if err != nil {
		return err
	}
	visuals, err := json.Marshal(pkg.VisualPrompts)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(pkg.YouTubeMetadata)
	if err != nil {
		return err
	}

	switch region {
	case "USA":
		rec.ScriptUSA = pkg.ScriptAssembly.FullScript()
		rec.IntelligenceGridUSA = nullable(grid)
		rec.ScriptAssemblyUSA = nullable(assembly)
		rec.VisualPromptsUSA = nullable(visuals)
		rec.YouTubeMetadataUSA = nullable(meta)
	case "India":
		rec.ScriptIndia = pkg.ScriptAssembly.FullScript()
		rec.IntelligenceGridIndia = nullable(grid)
		rec.ScriptAssemblyIndia = nullable(assembly)
		rec.VisualPromptsIndia = nullable(visuals)
		rec.YouTubeMetadataIndia = nullable(meta)
	default:
		return fmt.Errorf("store: unknown region %q", region)
	}

	if err := c.Upsert(ctx, tableContent, []ContentRecord{rec}, nil); err != nil {
		return fmt.Errorf("store: save %s script package: %w", region, err)
	}
	return nil
}

// DeepdiveRow is a deep_dive_research table row.
type DeepdiveRow struct {
	ID           int    `json:"id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	Status       string `json:"status"`
	FinalizedAt  string `json:"finalized_at,omitempty"`
	Keyword      string `json:"keyword"`
	Region       string `json:"region"`
	Platform     string `json:"platform"`
	SearchVolume int    `json:"search_volume"`
	Velocity     string `json:"velocity"`
	Sentiment    string `json:"sentiment"`
	Category     string `json:"category"`

	ResearchData any `json:"research_data,omitempty"`

	Title           string `json:"title,omitempty"`
	ScriptFinal     string `json:"script_final,omitempty"`
	YouTubeTitle    string `json:"youtube_title,omitempty"`
	YouTubeDesc     string `json:"youtube_description,omitempty"`
	Hashtags        string `json:"hashtags,omitempty"`
	ThumbnailPrompt string `json:"thumbnail_prompt,omitempty"`
}

// SaveDeepdive inserts a freshly researched deep dive with its script
// package. New rows land as needs_finetuning for operator review.
func (c *Client) SaveDeepdive(ctx context.Context, research json.RawMessage, r *intel.Research, pkg *intel.DeepdiveScriptPackage, platform string, volume int, velocity, sentiment, category string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	row := DeepdiveRow{
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       StatusNeedsFinetuning,
		Keyword:      r.Keyword,
		Region:       r.Region,
		Platform:     platform,
		SearchVolume: volume,
		Velocity:     velocity,
		Sentiment:    sentiment,
		Category:     category,
		ResearchData: nullable(research),
	}
	if pkg != nil {
		row.Title = pkg.YouTubeMetadata.Title
		row.ScriptFinal = pkg.Script.FullScript()
		row.YouTubeTitle = pkg.YouTubeMetadata.Title
		row.YouTubeDesc = pkg.YouTubeMetadata.Description
		row.Hashtags = strings.Join(pkg.YouTubeMetadata.Hashtags, " ")
		row.ThumbnailPrompt = pkg.VisualPrompts["thumbnail"]
	}

	if err := c.Insert(ctx, tableDeepdive, []DeepdiveRow{row}, nil); err != nil {
		return fmt.Errorf("store: save deepdive %s: %w", r.Keyword, err)
	}
	return nil
}

// FinalizeDeepdive marks a deep dive ready for production, optionally
// replacing its script text with the operator's edit.
func (c *Client) FinalizeDeepdive(ctx context.Context, id int, script string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	patch := map[string]any{
		"status":       StatusFinalized,
		"finalized_at": now,
		"updated_at":   now,
	}
	if script != "" {
		patch["script_final"] = script
	}
	filters := map[string]string{"id": fmt.Sprintf("eq.%d", id)}
	if err := c.Update(ctx, tableDeepdive, filters, patch); err != nil {
		return fmt.Errorf("store: finalize deepdive %d: %w", id, err)
	}
	return nil
}

// DeepdivesByStatus lists deep dives in a lifecycle state, newest first.
func (c *Client) DeepdivesByStatus(ctx context.Context, status string, limit int) ([]DeepdiveRow, error) {
	q := url.Values{}
	q.Set("status", eq(status))
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}

	var rows []DeepdiveRow
	if err := c.Select(ctx, tableDeepdive, q, &rows); err != nil {
		return nil, fmt.Errorf("store: load deepdives: %w", err)
	}
	return rows, nil
}
