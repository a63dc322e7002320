// Package prompts contains the prompt builders for every LLM call the
// dashboard makes: trend enrichment, social collection, intelligence-grid
// analysis, regional script assembly, and deep-dive research. The prompt
// text is an opaque payload owned by the content team; builders only
// interpolate typed inputs into it.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataSummary feeds the intelligence-grid analysis prompt: one compact
// text digest per region and platform.
type DataSummary struct {
	Date                string
	USAGoogleSummary    string
	USATwitterSummary   string
	IndiaGoogleSummary  string
	IndiaTwitterSummary string
	BreakoutTrends      string
}

// GoogleEnrichment builds the prompt that asks a flash-tier model to
// enrich raw SerpAPI trend rows (passed as CSV) with category, velocity,
// context and sentiment.
func GoogleEnrichment(region, csvData string) string {
	return fmt.Sprintf(`You are an expert trend analyst for Pivot Note. I'm providing raw Google Trends data from SerpAPI for %s.

YOUR MISSION: Enrich each trend with context, categorization, and sentiment analysis.

=== CSV DATA ===
%s

=== REQUIRED OUTPUT (JSON) ===
`+"```json"+`
{
  "trends": [
    {
      "region": "USA/India",
      "rank": 1,
      "keyword": "exact keyword from CSV",
      "category": "Sports/Politics/Entertainment/Tech/News/Weather/Health/Business/Science/Gaming",
      "velocity": "breakout/rising/steady",
      "context": "What is this? Who/what is involved? Be specific.",
      "why_trending": "Why is this trending NOW? Cite specific events/timing.",
      "public_sentiment": "excited/concerned/curious/celebrating/controversial",
      "sentiment_score": 0-100
    }
  ]
}
`+"```"+`

=== RULES ===
1. Use ONLY keywords from the CSV
2. Include the REGION field (USA or India) for EACH trend
3. Be factual and specific in context
4. Focus on WHY it's trending NOW
5. Return ONLY valid JSON`, region, csvData)
}

// TwitterCollection builds the prompt handed to an X-connected model (or
// pasted into it manually) to collect the day's mention trends for both
// regions.
func TwitterCollection() string {
	return `You are a Senior Twitter/X Trend Analyst for Pivot Note. Your task is to provide a comprehensive analysis of the top 10 trends for the USA and India respectively, covering the FULL LAST 24 HOURS.

=== CRITICAL TIMEFRAME RULE ===
Analyze activity from the absolute last 24 hours. Do not just report what is spiking "now." For India, specifically look back at the evening prime-time hours (IST) that occurred while the US was asleep to ensure a full day's cycle is captured.

STEP 1: Cross-reference X trends with global news headlines from the last 24 hours.
STEP 2: Filter for trends with significant volume, avoiding "flash-in-the-pan" bot activity.

=== OUTPUT FORMAT ===
Return ONLY a valid JSON object. No prose, no intro, no outro.

{
  "trends": [
    {
      "region": "USA/India",
      "rank": 1-10,
      "keyword": "#hashtag or keyword",
      "mention_volume": INTEGER,
      "category": "Sports/Politics/Entertainment/Tech/News/Business/Social/Gaming/Music",
      "velocity": "spike/rising/steady",
      "context": "Comprehensive summary of the event. Cite specific news or source events from the last 24h.",
      "why_trending": "Specific catalyst for the 24h volume (e.g., a specific tweet, legislation, or match result).",
      "related_hashtags": ["#tag1", "#tag2", "#tag3"],
      "primary_sentiment": "excited/concerned/curious/celebrating/controversial",
      "sentiment_intensity": "intense/moderate/mild",
      "sentiment_breakdown": {
        "excited": 0,
        "concerned": 0,
        "curious": 0,
        "celebrating": 0,
        "controversial": 0
      }
    }
  ]
}

=== VALIDATION RULES ===
1. Sentiment breakdown MUST sum to exactly 100.
2. mention_volume MUST be a pure integer (e.g., 150000, not "150K").
3. Verify "why_trending" against real-world news from the window.
4. Ensure the 20 total trends (10 per region) are distinct and ranked by 24h impact.`
}

// Analysis builds the intelligence-grid prompt: 2 themes + 2 anomalies
// per region plus a production mood block.
func Analysis(s DataSummary) string {
	var b strings.Builder

	b.WriteString(`<identity>
You are the Lead Intelligence Analyst for Pivot Note.
Your mission is to synthesize raw data into high-fidelity strategic insights for daily trend reports.
</identity>

<mission>
1. ANALYZE: Review global data to find regional contrasts and cultural ripples.
2. CLUSTER: Group data into EXACTLY 2 major themes per region (PRIMARY + SECONDARY).
3. DETECT: Identify EXACTLY 2 distinct anomalies per region (low volume, breakout velocity).
4. SYNTHESIZE: For every theme, follow the 'Chain of Logic':
   Data Signal -> Factual Context -> Deep Why (Psychological/Systemic Reason) -> The Big Question.
</mission>
`)

	fmt.Fprintf(&b, `
<data_sources date=%q>
  <usa_raw>
    GOOGLE: %s
    SOCIAL: %s
  </usa_raw>

  <india_raw>
    GOOGLE: %s
    SOCIAL: %s
    BREAKOUTS: %s
  </india_raw>
</data_sources>
`, s.Date, orNA(s.USAGoogleSummary), orNA(s.USATwitterSummary),
		orNA(s.IndiaGoogleSummary), orNA(s.IndiaTwitterSummary), orNA(s.BreakoutTrends))

	b.WriteString(`
<required_json_format>
` + "```json" + `
{
  "executive_summary": "2-3 sentences: Compare the Global (USA) vs. Local (India) pulse for today.",

  "india_intelligence": {
    "weather_grid": [
      {
        "slot": 1,
        "category": "Entertainment/OTT/Culture/National/Social/Politics",
        "theme": "Sharp 3-word title for PRIMARY theme",
        "keywords": ["kw1", "kw2"],
        "mood": "Specific emotional tone (e.g., Critical/Electric)",
        "data_signal": "Measurable shift (e.g., +300% search spike)",
        "context": "1-sentence factual reality of the trend",
        "deep_why": "The psychological or systemic reason behind this behavior",
        "big_question": "Provocative question about where the culture is going"
      },
      {
        "slot": 2,
        "category": "Sports/Tech/Finance (Must differ from Slot 1)",
        "theme": "Sharp 3-word title for SECONDARY theme",
        "keywords": ["kw1", "kw2"],
        "mood": "Tone (e.g., Competitive/Analytical)",
        "data_signal": "Measurable shift in volume or sentiment",
        "context": "1-sentence factual reality of this secondary trend",
        "deep_why": "The psychological/systemic insight for this theme",
        "big_question": "Question challenging the status quo of this category"
      }
    ],
    "anomalies": [
      {
        "rank": 1,
        "keyword": "EXACT keyword",
        "velocity": "Growth metric (e.g., +5000% Breakout)",
        "explanation": "Why this specific signal is a precursor",
        "big_question": "Is this a temporary fad or a real cultural reset?"
      },
      {
        "rank": 2,
        "keyword": "EXACT keyword",
        "velocity": "Growth metric",
        "explanation": "Alternative logic for this outlier signal",
        "big_question": "What does this reveal about the hidden pulse?"
      }
    ],
    "production_mood": {
      "overall_sentiment": -1.0 to 1.0,
      "vibe_color_hex": "#FFBF00",
      "vocal_tone": "Description of vocal delivery style for today",
      "visual_background_prompt": "1-sentence visual description for AI generation"
    }
  },

  "usa_intelligence": { ...same structure as india_intelligence... }
}
` + "```" + `
</required_json_format>

<rules>
- Use ONLY keywords found in the provided data sources.
- Provide EXACTLY 2 themes and 2 anomalies for BOTH India and USA.
- Every slot must be complete; no empty strings or placeholders.
- Return ONLY valid JSON within the markdown block.
</rules>
`)

	return b.String()
}

// Assembly builds the 60-second script assembly prompt for a region from
// its intelligence grid and production mood. The tone directive adapts to
// the day's overall sentiment.
func Assembly(region string, grid, mood json.RawMessage, overallSentiment float64) string {
	var toneDirective, emotionTag string
	switch {
	case overallSentiment < -0.6:
		toneDirective = "TONE: Somber, clinical, and impact-focused. ABSOLUTELY NO SATIRE. Focus on systemic shock and 'The Why'."
		emotionTag = "[EMOTION: GRAVITY/URGENCY]"
	case overallSentiment > 0.4:
		toneDirective = "TONE: High-energy, optimistic, and fast-paced. Focus on growth and breakouts."
		emotionTag = "[EMOTION: EXCITEMENT/VIBRANCE]"
	default:
		toneDirective = "TONE: Sharp, satirical, and analytical. Contrast 'The Usual' (mainstream) vs 'The Shocking' (current data)."
		emotionTag = "[EMOTION: SKEPTICAL/WITTY]"
	}

	edition := "India Edition"
	hashtag := "#IndiaTrends"
	if region == "USA" {
		edition = "USA Edition"
		hashtag = "#USATrends"
	}

	return fmt.Sprintf(`<identity>
Script Director for 'Internet Feed' (Pivot Note %s).
Mission: Transform intelligence grid into a 60-second audio script.
%s
</identity>

<input_intelligence>
GRID: %s
MOOD: %s
EMOTION_OVERLAY: %s
</input_intelligence>

<script_logic_constraints>
1. METRIC-FIRST START: Every segment MUST start with the [Actual Keyword] and its [Metric].
2. SOURCE BRANDING (Layman Terms): If keyword contains '#': use "Viral mentions are exploding". If plain text: use "Search interest just spiked".
3. MULTI-DATA BLENDING: If theme has multiple keywords, mention both.
4. LAYMAN WHY: Explain why it is trending in 1 simple, jargon-free sentence.
5. WORD LIMITS: Intro: Max 10 words (4s). Segment 1: 32-35 words (15s). Segment 2: 32-35 words (15s). Outlier: 25-28 words (13s). Outro: Max 10 words (6s).
6. NO POETIC TITLES: Use raw keywords directly.
7. CONTRAST PATTERN: "[Keyword]. [Metric]. Usually [normal], but today [shocking twist]."
8. TOTAL DURATION: 60 seconds = ~150 words total
</script_logic_constraints>

<required_json_output>
`+"```json"+`
{
  "youtube_metadata": {
    "title": "Internet Feed: [Big Question from Segment 1]?",
    "description": "Daily Intelligence Report.\n\n[Data-First 1-line summary per segment].\n\nSources: Aggregated from Google Trends + Twitter API",
    "hashtags": ["#PivotNote", "#InternetFeed", %q],
    "pinned_comment": "Just for today, or here to stay? Comment below."
  },

  "script_assembly": {
    "intro": "Internet Feed. Sixty seconds. The data is in.",
    "segment_1": "[PRIMARY Keyword]. [Metric] [Source Branding]. [Layman Why]. [Friction/Impact]. [Big Question]?",
    "segment_2": "[SECONDARY Keyword]. [Metric] [Source Branding]. [Layman Why]. [Friction/Impact]. [Bridge to Outlier]. [Big Question]?",
    "outlier": "Breakout: [Anomaly Keyword]. [Metric]. [Layman Why]. [Final Edge]. Just for today, or here to stay?",
    "outro": "Just for today, or here to stay? Comment below."
  },

  "visual_prompts": {
    "thumbnail": "Cinematic data dashboard featuring [Keyword 1] --ar 16:9",
    "intro_background": "Data streams morphing with regional aesthetics --ar 9:16",
    "segment_1_visual": "Visual concept for primary theme --ar 9:16",
    "segment_2_visual": "Visual concept for secondary theme --ar 9:16",
    "outlier_visual": "Breakout signal visualization --ar 9:16"
  }
}
`+"```"+`
</required_json_output>

<critical_rules>
1. ALWAYS start segments with keyword and metric
2. Use SOURCE BRANDING to distinguish search vs viral
3. Respect WORD LIMITS strictly (count them!)
4. Tone adapts to sentiment: Crisis = Somber, Positive = Energetic, Neutral = Satirical
5. Total word count: ~150 words for 60 seconds
6. Return ONLY valid JSON
7. IMPORTANT: Only 2 segments + 1 outlier (not 3 segments + anomaly)
</critical_rules>
`, edition, toneDirective, grid, mood, emotionTag, hashtag)
}

// DeepdiveInput is the trend context fed to the deep-dive research prompt.
type DeepdiveInput struct {
	Keyword     string
	Region      string
	Context     string
	WhyTrending string
	Volume      int
	Velocity    string
	Sentiment   string
}

// DeepdiveResearch builds the phase-1 research prompt for a single trend.
func DeepdiveResearch(in DeepdiveInput) string {
	return fmt.Sprintf(`You are a Competitive Intelligence Lead analyzing #%s for Pivot Note Deep Dive.

=== RESEARCH GOAL: THE STRATEGIC CLASH ===
Ignore history and timelines. Focus entirely on the IDEOLOGICAL BATTLE happening NOW.

Your job:
1. THE LEAD METRIC: Find the ONE number that proves this is massive ($ amount, world record, %% change)
2. THE CLASH: Contrast 'New Logic' (why this wins) vs 'Traditional Fear' (why it might fail)
3. THE SECRET SAUCE: Find one non-obvious 'Deep Why' (training secret, psychological pivot, data trend)

=== CRITICAL RULES ===
- METRIC FIRST: Start with the Magnitude Metric
- CONCRETE ONLY: Use 8th-grade physical language ("one tiny slip-up" not "marginal error")
- SO WHAT: Every fact must explain impact: "This matters because..."
- VISUAL METAPHOR: Suggest one cinematic metaphor

=== DATA PROVIDED ===
Keyword: %s
Region: %s
Context: %s
Why Trending: %s
Volume: %d
Velocity: %s
Sentiment: %s

=== OUTPUT JSON ===
`+"```json"+`
{
  "keyword": %q,
  "region": %q,
  "simple_clash": "One sentence ELI5 of the conflict",
  "lead_metric": "The 'Magnitude' number with context (e.g., '$5 Billion bet on unproven tech')",
  "strategic_clash": {
    "side_a_logic": "Why the new way is winning (2-3 concrete points)",
    "side_b_fear": "Why the old guard is scared (2-3 concrete points)",
    "the_deep_why": "The hidden 'Secret Sauce' factor nobody talks about"
  },
  "visual_concept": "Cinematic metaphor for the conflict",
  "sources": [
    { "title": "Source title", "url": "URL", "reliability": "1-10" }
  ]
}
`+"```"+`

Focus on DEEP WHY and make it INSIGHTFUL yet SIMPLE. Use CONCRETE language.
Return ONLY valid JSON within markdown block.
`, in.Keyword, in.Keyword, in.Region, in.Context, in.WhyTrending,
		in.Volume, in.Velocity, in.Sentiment, in.Keyword, in.Region)
}

// DeepdiveScript builds the phase-2 prompt that converts research output
// into a 120-second production script.
func DeepdiveScript(research json.RawMessage, keyword, region string) string {
	return fmt.Sprintf(`You are the Script Director for Pivot Note Deep Dive. Convert this strategic clash into a CRISP 120-SECOND audio script about %s (%s).

=== INPUT RESEARCH DATA ===
%s

=== CRITICAL PRODUCTION CONSTRAINTS ===

**SCRIPT LENGTH:** EXACTLY 120-130 words total. NOT ONE WORD MORE.
**TIMING:** 120 seconds = 2 minutes at energetic speaking pace (1 word per second)
**STRUCTURE:** Hook (15s) -> Side A (30s) -> Side B (30s) -> Secret Sauce (35s) -> Question (10s)

=== SCRIPT FORMULA (MANDATORY) ===

**HOOK:** Start with the LEAD METRIC from research. "[NUMBER]. [What it means]. [Context sentence]."
**SIDE A - NEW LOGIC:** State SIDE_A_LOGIC in concrete terms with ONE specific metric. End with "If this works, [benefit]."
**SIDE B - TRADITIONAL FEAR:** State SIDE_B_FEAR in concrete terms with ONE specific risk. End with "If this fails, [consequence]."
**SECRET SAUCE:** Start with "The secret sauce?" then THE_DEEP_WHY in concrete physical language.
**CLOSING QUESTION:** One provocative question, max 10 words.

=== OUTPUT JSON ===
`+"```json"+`
{
  "youtube_metadata": {
    "title": "Deep Dive: [Lead Metric Hook]",
    "description": "Pivot Note Deep Dive.\n\n[1-line summary].",
    "hashtags": ["#PivotNote", "#DeepDive"]
  },
  "script": {
    "hook": "...",
    "side_a": "...",
    "side_b": "...",
    "secret_sauce": "...",
    "closing_question": "..."
  },
  "visual_prompts": {
    "thumbnail": "[Visual concept] --ar 16:9",
    "background": "[Cinematic metaphor] --ar 9:16"
  }
}
`+"```"+`

Return ONLY valid JSON within markdown block.
`, keyword, region, research)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
