package intel

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pivotnote/pulse/internal/collector"
	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/prompts"
	"github.com/pivotnote/pulse/internal/trends"
)

// mockGenerator returns a canned response and records the last call.
type mockGenerator struct {
	content string
	err     error
	tier    llm.Tier
	prompt  string
}

func (m *mockGenerator) GenerateTier(_ context.Context, tier llm.Tier, prompt string, _ *llm.Options) (*llm.Response, error) {
	m.tier = tier
	m.prompt = prompt
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.content, Provider: "mock"}, nil
}

func regionFixture() string {
	return `{
		"weather_grid": [
			{"slot": 1, "category": "Politics", "theme": "Budget Day Shock", "keywords": ["budget", "tax slabs"],
			 "mood": "Critical", "data_signal": "+300% search spike", "context": "Annual budget dropped.",
			 "deep_why": "Household anxiety.", "big_question": "Who really wins?"},
			{"slot": 2, "category": "Sports", "theme": "Final Over Drama", "keywords": ["world cup"],
			 "mood": "Electric", "data_signal": "2M mentions", "context": "Final went to the last over.",
			 "deep_why": "National identity ritual.", "big_question": "Is cricket the last shared event?"}
		],
		"anomalies": [
			{"rank": 1, "keyword": "monsoon app", "velocity": "+5000% Breakout", "explanation": "Weather panic.", "big_question": "Fad or reset?"},
			{"rank": 2, "keyword": "quiet firing", "velocity": "+800%", "explanation": "Workplace unease.", "big_question": "Hidden pulse?"}
		],
		"production_mood": {
			"overall_sentiment": -0.2,
			"vibe_color_hex": "#FFBF00",
			"vocal_tone": "Measured but pointed",
			"visual_background_prompt": "Rain over a stock ticker"
		}
	}`
}

func reportFixture() string {
	region := regionFixture()
	return `{"executive_summary": "USA chases spectacle while India counts rupees.",
		"india_intelligence": ` + region + `,
		"usa_intelligence": ` + region + `}`
}

// ── Summary digest ──

func TestBuildSummary(t *testing.T) {
	batch := []trends.Trend{
		{Platform: trends.PlatformSearch, Region: trends.RegionUSA, Keyword: "solar eclipse",
			Velocity: "breakout", Search: &trends.SearchFields{SearchVolume: 2_000_000, PublicSentiment: "excited"}},
		{Platform: trends.PlatformMention, Region: trends.RegionUSA, Keyword: "#GameDay",
			Velocity: "steady", Mention: &trends.MentionFields{MentionVolume: 150_000, PrimarySentiment: "excited"}},
		{Platform: trends.PlatformSearch, Region: trends.RegionIndia, Keyword: "monsoon",
			Velocity: "rising", Search: &trends.SearchFields{SearchVolume: 500_000, PublicSentiment: "concerned"}},
		{Platform: trends.PlatformMention, Region: trends.RegionIndia, Keyword: "#WorldCupFinal",
			Velocity: "spike", Mention: &trends.MentionFields{MentionVolume: 900_000, PrimarySentiment: "celebrating"}},
	}
	headlines := []collector.Headline{{Title: "Eclipse sweeps the southwest", Source: "Feed A"}}

	s := BuildSummary("2026-08-31", batch, headlines)

	if s.Date != "2026-08-31" {
		t.Errorf("date = %q", s.Date)
	}
	if s.USAGoogleSummary != "solar eclipse (vol 2000000, breakout, excited)" {
		t.Errorf("usa google = %q", s.USAGoogleSummary)
	}
	if !strings.Contains(s.USATwitterSummary, "#GameDay") ||
		!strings.Contains(s.IndiaGoogleSummary, "monsoon") ||
		!strings.Contains(s.IndiaTwitterSummary, "#WorldCupFinal") {
		t.Errorf("summary routing: %+v", s)
	}

	// Breakout and spike velocities both land in the breakout block, and
	// headlines ride along after them.
	if !strings.Contains(s.BreakoutTrends, "solar eclipse (USA, breakout)") ||
		!strings.Contains(s.BreakoutTrends, "#WorldCupFinal (India, spike)") {
		t.Errorf("breakouts = %q", s.BreakoutTrends)
	}
	if !strings.Contains(s.BreakoutTrends, "HEADLINES:\n- [Feed A] Eclipse sweeps the southwest") {
		t.Errorf("headlines missing: %q", s.BreakoutTrends)
	}
}

func TestBuildSummaryJoinsMultipleLines(t *testing.T) {
	batch := []trends.Trend{
		{Platform: trends.PlatformSearch, Region: trends.RegionUSA, Keyword: "a",
			Velocity: "steady", Search: &trends.SearchFields{PublicSentiment: "curious"}},
		{Platform: trends.PlatformSearch, Region: trends.RegionUSA, Keyword: "b",
			Velocity: "steady", Search: &trends.SearchFields{PublicSentiment: "curious"}},
	}

	s := BuildSummary("2026-08-31", batch, nil)
	if !strings.Contains(s.USAGoogleSummary, "; ") {
		t.Errorf("lines not joined: %q", s.USAGoogleSummary)
	}
	if s.BreakoutTrends != "" {
		t.Errorf("breakouts = %q, want empty", s.BreakoutTrends)
	}
}

// ── Intelligence grid ──

func TestGenerateReport(t *testing.T) {
	gen := &mockGenerator{content: "```json\n" + reportFixture() + "\n```"}
	a := NewAnalyzer(gen, nil)

	report, raw, err := a.GenerateReport(context.Background(), prompts.DataSummary{Date: "2026-08-31"})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if gen.tier != llm.TierPro {
		t.Errorf("tier = %v, want pro", gen.tier)
	}
	if !strings.Contains(gen.prompt, "2026-08-31") {
		t.Error("prompt must carry the summary date")
	}

	if report.ExecutiveSummary == "" {
		t.Error("executive summary missing")
	}
	if len(report.India.WeatherGrid) != 2 || len(report.USA.Anomalies) != 2 {
		t.Errorf("grid shape: india=%d usa anomalies=%d",
			len(report.India.WeatherGrid), len(report.USA.Anomalies))
	}
	if report.India.ProductionMood.VibeColorHex != "#FFBF00" {
		t.Errorf("mood = %+v", report.India.ProductionMood)
	}

	// Raw JSON must stay decodable for storage.
	var check map[string]any
	if err := json.Unmarshal(raw, &check); err != nil {
		t.Errorf("raw payload not valid JSON: %v", err)
	}
}

func TestGenerateReportRejectsShortGrid(t *testing.T) {
	short := `{"executive_summary": "x",
		"india_intelligence": {"weather_grid": [{"slot": 1}], "anomalies": [{"rank": 1}, {"rank": 2}]},
		"usa_intelligence": ` + regionFixture() + `}`

	gen := &mockGenerator{content: short}
	a := NewAnalyzer(gen, nil)

	_, _, err := a.GenerateReport(context.Background(), prompts.DataSummary{})
	if err == nil || !strings.Contains(err.Error(), "India grid has 1 themes") {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateReportBadJSON(t *testing.T) {
	gen := &mockGenerator{content: "Sorry, the data was insufficient."}
	a := NewAnalyzer(gen, nil)

	if _, _, err := a.GenerateReport(context.Background(), prompts.DataSummary{}); err == nil {
		t.Error("prose response must fail")
	}
}

func TestReportForRegion(t *testing.T) {
	var report Report
	if err := json.Unmarshal([]byte(reportFixture()), &report); err != nil {
		t.Fatal(err)
	}

	if ri := report.ForRegion(trends.RegionUSA); ri != &report.USA {
		t.Error("ForRegion(USA) must point at the USA block")
	}
	if ri := report.ForRegion(trends.RegionIndia); ri != &report.India {
		t.Error("ForRegion(India) must point at the India block")
	}
}

// ── Script assembly ──

const scriptFixture = `{
	"youtube_metadata": {
		"title": "Internet Feed: Who really wins?",
		"description": "Daily Intelligence Report.",
		"hashtags": ["#PivotNote", "#InternetFeed", "#IndiaTrends"],
		"pinned_comment": "Just for today, or here to stay? Comment below."
	},
	"script_assembly": {
		"intro": "Internet Feed. Sixty seconds. The data is in.",
		"segment_1": "Budget Day. Search interest just spiked three hundred percent.",
		"segment_2": "World Cup. Viral mentions are exploding past two million.",
		"outlier": "Breakout: monsoon app. Five thousand percent.",
		"outro": "Just for today, or here to stay? Comment below."
	},
	"visual_prompts": {
		"thumbnail": "Cinematic data dashboard --ar 16:9",
		"intro_background": "Data streams --ar 9:16"
	}
}`

func TestAssembleScript(t *testing.T) {
	var ri RegionalIntelligence
	if err := json.Unmarshal([]byte(regionFixture()), &ri); err != nil {
		t.Fatal(err)
	}

	gen := &mockGenerator{content: "```json\n" + scriptFixture + "\n```"}
	a := NewAnalyzer(gen, nil)

	pkg, err := a.AssembleScript(context.Background(), trends.RegionIndia, &ri)
	if err != nil {
		t.Fatalf("AssembleScript: %v", err)
	}

	if !strings.Contains(gen.prompt, "Budget Day Shock") {
		t.Error("prompt must carry the grid")
	}
	if pkg.YouTubeMetadata.Title == "" || len(pkg.YouTubeMetadata.Hashtags) != 3 {
		t.Errorf("metadata = %+v", pkg.YouTubeMetadata)
	}

	full := pkg.ScriptAssembly.FullScript()
	if !strings.HasPrefix(full, "Internet Feed.") || !strings.Contains(full, "monsoon app") {
		t.Errorf("full script = %q", full)
	}
}

func TestAssembleScriptRejectsEmptyScript(t *testing.T) {
	gen := &mockGenerator{content: `{"youtube_metadata": {"title": "x"}, "script_assembly": {}}`}
	a := NewAnalyzer(gen, nil)

	var ri RegionalIntelligence
	if _, err := a.AssembleScript(context.Background(), trends.RegionUSA, &ri); err == nil {
		t.Error("package without script segments must fail")
	}
}

func TestFullScriptSkipsEmptySegments(t *testing.T) {
	s := ScriptAssembly{Intro: "One.", Segment2: "Two.", Outro: "Three."}
	if got := s.FullScript(); got != "One. Two. Three." {
		t.Errorf("FullScript = %q", got)
	}
	if (ScriptAssembly{}).FullScript() != "" {
		t.Error("empty assembly must render empty")
	}
}

// ── Deep dives ──

const researchFixture = `{
	"simple_clash": "New training methods versus old-school grind.",
	"lead_metric": "$5 Billion bet on unproven tech",
	"strategic_clash": {
		"side_a_logic": "Faster cycles win.",
		"side_b_fear": "One tiny slip-up kills trust.",
		"the_deep_why": "Nobody audits the training data."
	},
	"visual_concept": "A tightrope over a server farm",
	"sources": [{"title": "Report", "url": "http://x", "reliability": "8"}]
}`

func TestResearchTrend(t *testing.T) {
	gen := &mockGenerator{content: "```json\n" + researchFixture + "\n```"}
	a := NewAnalyzer(gen, nil)

	in := prompts.DeepdiveInput{Keyword: "ai coaches", Region: "USA", Volume: 800_000, Velocity: "breakout"}
	research, raw, err := a.ResearchTrend(context.Background(), in)
	if err != nil {
		t.Fatalf("ResearchTrend: %v", err)
	}

	// Keyword and region backfill from the input when the model omits them.
	if research.Keyword != "ai coaches" || research.Region != "USA" {
		t.Errorf("backfill: %+v", research)
	}
	if research.LeadMetric != "$5 Billion bet on unproven tech" {
		t.Errorf("lead metric = %q", research.LeadMetric)
	}
	if research.StrategicClash.TheDeepWhy == "" || len(research.Sources) != 1 {
		t.Errorf("research = %+v", research)
	}
	if len(raw) == 0 {
		t.Error("raw research payload missing")
	}
}

const deepdiveScriptFixture = `{
	"youtube_metadata": {"title": "Deep Dive: $5 Billion", "hashtags": ["#PivotNote", "#DeepDive"]},
	"script": {
		"hook": "Five billion dollars.",
		"side_a": "The new logic is speed.",
		"side_b": "The old guard fears the slip-up.",
		"secret_sauce": "The secret sauce? Nobody audits the data.",
		"closing_question": "Would you bet on it?"
	},
	"visual_prompts": {"thumbnail": "Tightrope --ar 16:9", "background": "Server farm --ar 9:16"}
}`

func TestWriteDeepdiveScript(t *testing.T) {
	gen := &mockGenerator{content: deepdiveScriptFixture}
	a := NewAnalyzer(gen, nil)

	pkg, err := a.WriteDeepdiveScript(context.Background(), json.RawMessage(researchFixture), "ai coaches", "USA")
	if err != nil {
		t.Fatalf("WriteDeepdiveScript: %v", err)
	}
	if !strings.Contains(gen.prompt, "ai coaches") || !strings.Contains(gen.prompt, "$5 Billion") {
		t.Error("prompt must carry keyword and research")
	}

	full := pkg.Script.FullScript()
	if !strings.HasPrefix(full, "Five billion dollars.") || !strings.HasSuffix(full, "Would you bet on it?") {
		t.Errorf("full script = %q", full)
	}
}

func TestWriteDeepdiveScriptRejectsEmpty(t *testing.T) {
	gen := &mockGenerator{content: `{"youtube_metadata": {"title": "x"}, "script": {}}`}
	a := NewAnalyzer(gen, nil)

	if _, err := a.WriteDeepdiveScript(context.Background(), nil, "k", "USA"); err == nil {
		t.Error("empty script must fail")
	}
}

func TestDeepdiveCandidates(t *testing.T) {
	batch := []trends.Trend{
		{Platform: trends.PlatformSearch, Region: "USA", Keyword: "mid", Velocity: "rising",
			Search: &trends.SearchFields{SearchVolume: 500_000, PublicSentiment: "curious"}},
		{Platform: trends.PlatformSearch, Region: "USA", Keyword: "huge", Velocity: "breakout",
			Search: &trends.SearchFields{SearchVolume: 2_000_000, PublicSentiment: "excited"}},
		{Platform: trends.PlatformMention, Region: "India", Keyword: "small", Velocity: "steady",
			Mention: &trends.MentionFields{MentionVolume: 50_000, PrimarySentiment: "curious"}},
	}

	out := DeepdiveCandidates(batch, 2)
	if len(out) != 2 {
		t.Fatalf("candidates = %d, want 2", len(out))
	}
	if out[0].Keyword != "huge" || out[1].Keyword != "mid" {
		t.Errorf("order = %s, %s", out[0].Keyword, out[1].Keyword)
	}
	if out[0].Volume != 2_000_000 || out[0].Velocity != "breakout" {
		t.Errorf("candidate = %+v", out[0])
	}

	// Zero limit returns the whole ranked batch.
	if all := DeepdiveCandidates(batch, 0); len(all) != 3 {
		t.Errorf("unlimited = %d, want 3", len(all))
	}
}
