// Package intel turns a day's normalized trends into the intelligence
// grid, regional production scripts, and deep-dive research packages.
// Every operation follows the same shape: build a prompt, call the model,
// extract the JSON object, decode into a typed structure.
package intel

// Theme is one slot of the regional weather grid: a clustered trend
// theme with its data signal and the chain-of-logic fields.
type Theme struct {
	Slot        int      `json:"slot"`
	Category    string   `json:"category"`
	Theme       string   `json:"theme"`
	Keywords    []string `json:"keywords"`
	Mood        string   `json:"mood"`
	DataSignal  string   `json:"data_signal"`
	Context     string   `json:"context"`
	DeepWhy     string   `json:"deep_why"`
	BigQuestion string   `json:"big_question"`
}

// Anomaly is a low-volume, high-velocity outlier signal.
type Anomaly struct {
	Rank        int    `json:"rank"`
	Keyword     string `json:"keyword"`
	Velocity    string `json:"velocity"`
	Explanation string `json:"explanation"`
	BigQuestion string `json:"big_question"`
}

// ProductionMood carries the day's delivery directives for the studio.
type ProductionMood struct {
	OverallSentiment       float64 `json:"overall_sentiment"`
	VibeColorHex           string  `json:"vibe_color_hex"`
	VocalTone              string  `json:"vocal_tone"`
	VisualBackgroundPrompt string  `json:"visual_background_prompt"`
}

// RegionalIntelligence is one region's slice of the daily report:
// exactly two themes, two anomalies and a production mood when the model
// follows its contract.
type RegionalIntelligence struct {
	WeatherGrid    []Theme        `json:"weather_grid"`
	Anomalies      []Anomaly      `json:"anomalies"`
	ProductionMood ProductionMood `json:"production_mood"`
}

// Report is the full daily intelligence report for both regions.
type Report struct {
	ExecutiveSummary string               `json:"executive_summary"`
	India            RegionalIntelligence `json:"india_intelligence"`
	USA              RegionalIntelligence `json:"usa_intelligence"`
}

// ForRegion returns the regional slice for a dashboard region name.
func (r *Report) ForRegion(region string) *RegionalIntelligence {
	if region == "USA" {
		return &r.USA
	}
	return &r.India
}

// ScriptPackage is the assembled 60-second production package returned
// by the script assembly prompt.
type ScriptPackage struct {
	YouTubeMetadata YouTubeMetadata `json:"youtube_metadata"`
	ScriptAssembly  ScriptAssembly  `json:"script_assembly"`
	VisualPrompts   map[string]string `json:"visual_prompts"`
}

// YouTubeMetadata is the publish metadata block of a script package.
type YouTubeMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Hashtags      []string `json:"hashtags"`
	PinnedComment string   `json:"pinned_comment"`
}

// ScriptAssembly is the segment-by-segment 60-second script.
type ScriptAssembly struct {
	Intro    string `json:"intro"`
	Segment1 string `json:"segment_1"`
	Segment2 string `json:"segment_2"`
	Outlier  string `json:"outlier"`
	Outro    string `json:"outro"`
}

// FullScript joins the segments into the final voice-over text.
func (s ScriptAssembly) FullScript() string {
	parts := []string{s.Intro, s.Segment1, s.Segment2, s.Outlier, s.Outro}
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

// Research is the phase-1 deep-dive output for a single trend.
type Research struct {
	Keyword        string         `json:"keyword"`
	Region         string         `json:"region"`
	SimpleClash    string         `json:"simple_clash"`
	LeadMetric     string         `json:"lead_metric"`
	StrategicClash StrategicClash `json:"strategic_clash"`
	VisualConcept  string         `json:"visual_concept"`
	Sources        []Source       `json:"sources"`
}

// StrategicClash is the ideological-battle core of a deep dive.
type StrategicClash struct {
	SideALogic string `json:"side_a_logic"`
	SideBFear  string `json:"side_b_fear"`
	TheDeepWhy string `json:"the_deep_why"`
}

// Source is one cited source with the model's reliability estimate.
type Source struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Reliability string `json:"reliability"`
}

// DeepdiveScriptPackage is the phase-2 deep-dive production package.
type DeepdiveScriptPackage struct {
	YouTubeMetadata YouTubeMetadata   `json:"youtube_metadata"`
	Script          DeepdiveScript    `json:"script"`
	VisualPrompts   map[string]string `json:"visual_prompts"`
}

// DeepdiveScript is the 120-second deep-dive script by section.
type DeepdiveScript struct {
	Hook            string `json:"hook"`
	SideA           string `json:"side_a"`
	SideB           string `json:"side_b"`
	SecretSauce     string `json:"secret_sauce"`
	ClosingQuestion string `json:"closing_question"`
}

// FullScript joins the deep-dive sections into the voice-over text.
func (s DeepdiveScript) FullScript() string {
	parts := []string{s.Hook, s.SideA, s.SideB, s.SecretSauce, s.ClosingQuestion}
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
