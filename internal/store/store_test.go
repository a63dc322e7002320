package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pivotnote/pulse/internal/intel"
	"github.com/pivotnote/pulse/internal/trends"
)

// recordedRequest captures one PostgREST call for assertions.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// fakePostgREST records every request and replies with a canned body.
type fakePostgREST struct {
	requests []recordedRequest
	respond  func(r *http.Request) (int, string)
}

func (f *fakePostgREST) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		status, resp := http.StatusOK, "[]"
		if f.respond != nil {
			status, resp = f.respond(r)
		}
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}
}

func newTestClient(t *testing.T, fake *fakePostgREST) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "service-key")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// ── Client plumbing ──

func TestNewNotConfigured(t *testing.T) {
	if _, err := New("", "key"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing url: %v", err)
	}
	if _, err := New("http://x", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key: %v", err)
	}
}

func TestInsertHeaders(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	if err := c.Insert(context.Background(), "things", []map[string]string{{"a": "1"}}, nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	req := fake.requests[0]
	if req.Path != "/rest/v1/things" || req.Method != http.MethodPost {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if req.Header.Get("apikey") != "service-key" ||
		req.Header.Get("Authorization") != "Bearer service-key" {
		t.Error("auth headers missing")
	}
	if req.Header.Get("Prefer") != "return=minimal" {
		t.Errorf("Prefer = %q", req.Header.Get("Prefer"))
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
}

func TestUpsertPrefer(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	if err := c.Upsert(context.Background(), "things", map[string]string{"a": "1"}, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := fake.requests[0].Header.Get("Prefer"); got != "return=minimal,resolution=merge-duplicates" {
		t.Errorf("Prefer = %q", got)
	}
}

func TestInsertRepresentation(t *testing.T) {
	fake := &fakePostgREST{respond: func(*http.Request) (int, string) {
		return http.StatusCreated, `[{"id": 7}]`
	}}
	c := newTestClient(t, fake)

	var out []struct {
		ID int `json:"id"`
	}
	if err := c.Insert(context.Background(), "things", map[string]int{"x": 1}, &out); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := fake.requests[0].Header.Get("Prefer"); got != "return=representation" {
		t.Errorf("Prefer = %q", got)
	}
	if len(out) != 1 || out[0].ID != 7 {
		t.Errorf("out = %+v", out)
	}
}

func TestDeleteRequiresFilters(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	if err := c.Delete(context.Background(), "things", nil); err == nil {
		t.Error("unfiltered delete must be refused")
	}
	if len(fake.requests) != 0 {
		t.Error("refused delete must not hit the server")
	}

	if err := c.Delete(context.Background(), "things", map[string]string{"id": eq("3")}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := fake.requests[0].Query.Get("id"); got != "eq.3" {
		t.Errorf("filter = %q", got)
	}
}

func TestErrHTTP(t *testing.T) {
	fake := &fakePostgREST{respond: func(*http.Request) (int, string) {
		return http.StatusConflict, `{"message": "duplicate key"}`
	}}
	c := newTestClient(t, fake)

	err := c.Insert(context.Background(), "things", map[string]int{"x": 1}, nil)
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *ErrHTTP", err)
	}
	if httpErr.StatusCode != http.StatusConflict || !strings.Contains(httpErr.Body, "duplicate key") {
		t.Errorf("httpErr = %+v", httpErr)
	}
}

func TestNullable(t *testing.T) {
	for _, raw := range []string{"", "{}", "[]", "null", "  {} "} {
		if got := nullable(json.RawMessage(raw)); got != nil {
			t.Errorf("nullable(%q) = %v, want nil", raw, got)
		}
	}
	if got := nullable(json.RawMessage(`{"a": 1}`)); got == nil {
		t.Error("non-empty payload must pass through")
	}
}

// ── Trend persistence ──

func sampleBatch() []trends.Trend {
	return []trends.Trend{
		{
			Platform: trends.PlatformSearch, Region: "USA", Rank: 1,
			Keyword: "solar eclipse", Category: "Science", Velocity: "breakout",
			Search: &trends.SearchFields{
				SearchVolume: 2_000_000, TrendType: "search",
				PublicSentiment: "excited", SentimentScore: 85,
				RelatedSearches: []string{"eclipse glasses"},
			},
		},
		{
			Platform: trends.PlatformMention, Region: "India", Rank: 1,
			Keyword: "#WorldCupFinal", Category: "Sports", Velocity: "spike",
			Mention: &trends.MentionFields{
				MentionVolume: 900_000, HashtagType: "event",
				PrimarySentiment: "celebrating", SentimentIntensity: "intense",
				Breakdown: trends.SentimentBreakdown{
					Excited: 30, Concerned: 5, Curious: 10, Celebrating: 50, Controversial: 5,
				},
				SentimentPositive: 80, SentimentNeutral: 10, SentimentNegative: 10,
				RelatedHashtags: []string{"#Cricket"},
			},
		},
	}
}

func TestSaveTrendsReplacesDate(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	if err := c.SaveTrends(context.Background(), "2026-08-31", sampleBatch()); err != nil {
		t.Fatalf("SaveTrends: %v", err)
	}

	// Each platform table gets a delete for the date then an insert.
	if len(fake.requests) != 4 {
		t.Fatalf("requests = %d, want 4", len(fake.requests))
	}

	del := fake.requests[0]
	if del.Method != http.MethodDelete || del.Path != "/rest/v1/google_trends" ||
		del.Query.Get("collection_date") != "eq.2026-08-31" {
		t.Errorf("first = %s %s?%s", del.Method, del.Path, del.Query.Encode())
	}

	ins := fake.requests[1]
	if ins.Method != http.MethodPost || !strings.Contains(ins.Body, `"solar eclipse"`) {
		t.Errorf("search insert = %s %q", ins.Method, ins.Body)
	}
	if !strings.Contains(ins.Body, `"viral_score"`) {
		t.Error("search rows must carry viral_score")
	}

	if fake.requests[2].Path != "/rest/v1/twitter_trends" ||
		!strings.Contains(fake.requests[3].Body, `"#WorldCupFinal"`) {
		t.Errorf("mention requests = %+v", fake.requests[2:])
	}
}

func TestSaveTrendsSkipsEmptyPlatform(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	batch := sampleBatch()[:1] // search only
	if err := c.SaveTrends(context.Background(), "2026-08-31", batch); err != nil {
		t.Fatalf("SaveTrends: %v", err)
	}
	for _, req := range fake.requests {
		if req.Path == "/rest/v1/twitter_trends" {
			t.Error("empty mention batch must not touch twitter_trends")
		}
	}
}

func TestTrendRowRoundTrip(t *testing.T) {
	batch := sampleBatch()

	sr := searchRow(batch[0], "2026-08-31", "2026-08-31T09:00:00Z")
	if sr.CollectionDate != "2026-08-31" || sr.ViralScore == 0 {
		t.Errorf("search row = %+v", sr)
	}
	back := sr.Trend()
	if back.Keyword != batch[0].Keyword || back.Search.SearchVolume != 2_000_000 ||
		back.Search.PublicSentiment != "excited" {
		t.Errorf("search round trip = %+v", back)
	}

	mr := mentionRow(batch[1], "2026-08-31", "2026-08-31T09:00:00Z")
	if mr.SentimentBreakdown["celebrating"] != 50 {
		t.Errorf("breakdown map = %v", mr.SentimentBreakdown)
	}
	back = mr.Trend()
	if back.Mention.Breakdown.Celebrating != 50 || back.Mention.SentimentPositive != 80 {
		t.Errorf("mention round trip = %+v", back.Mention)
	}
	if back.Platform != trends.PlatformMention || back.Search != nil {
		t.Error("round trip must keep the platform shape")
	}
}

func TestTrendsByDate(t *testing.T) {
	fake := &fakePostgREST{respond: func(r *http.Request) (int, string) {
		if strings.HasSuffix(r.URL.Path, "google_trends") {
			return http.StatusOK, `[{"keyword": "solar eclipse", "region": "USA", "rank": 1}]`
		}
		return http.StatusOK, `[{"keyword": "#WorldCupFinal", "region": "India", "rank": 1}]`
	}}
	c := newTestClient(t, fake)

	search, mention, err := c.TrendsByDate(context.Background(), "2026-08-31")
	if err != nil {
		t.Fatalf("TrendsByDate: %v", err)
	}
	if len(search) != 1 || search[0].Keyword != "solar eclipse" {
		t.Errorf("search = %+v", search)
	}
	if len(mention) != 1 || mention[0].Keyword != "#WorldCupFinal" {
		t.Errorf("mention = %+v", mention)
	}
	if got := fake.requests[0].Query.Get("order"); got != "region.asc,rank.asc" {
		t.Errorf("order = %q", got)
	}
}

func TestLatestTrendDate(t *testing.T) {
	fake := &fakePostgREST{respond: func(*http.Request) (int, string) {
		return http.StatusOK, `[{"collection_date": "2026-08-30"}]`
	}}
	c := newTestClient(t, fake)

	date, err := c.LatestTrendDate(context.Background())
	if err != nil || date != "2026-08-30" {
		t.Errorf("date = %q, err = %v", date, err)
	}
	q := fake.requests[0].Query
	if q.Get("select") != "collection_date" || q.Get("limit") != "1" {
		t.Errorf("query = %v", q)
	}

	empty := &fakePostgREST{}
	c2 := newTestClient(t, empty)
	date, err = c2.LatestTrendDate(context.Background())
	if err != nil || date != "" {
		t.Errorf("empty table: %q, %v", date, err)
	}
}

func TestSaveEntities(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	entities := []trends.Entity{{Name: "Budget Day", Type: "political", TotalMentions: 1_200_000}}
	if err := c.SaveEntities(context.Background(), "2026-08-31", entities); err != nil {
		t.Fatalf("SaveEntities: %v", err)
	}

	if len(fake.requests) != 2 {
		t.Fatalf("requests = %d, want delete+insert", len(fake.requests))
	}
	if fake.requests[0].Method != http.MethodDelete ||
		fake.requests[0].Query.Get("analysis_date") != "eq.2026-08-31" {
		t.Errorf("delete = %+v", fake.requests[0])
	}
	if !strings.Contains(fake.requests[1].Body, `"analysis_date":"2026-08-31"`) ||
		!strings.Contains(fake.requests[1].Body, `"Budget Day"`) {
		t.Errorf("insert body = %s", fake.requests[1].Body)
	}
}

// ── Insights and content records ──

func sampleRegional() *intel.RegionalIntelligence {
	return &intel.RegionalIntelligence{
		WeatherGrid: []intel.Theme{
			{Slot: 1, Category: "Politics", Theme: "Budget Day Shock",
				Keywords: []string{"budget", "tax slabs"}, Mood: "Critical",
				DataSignal: "+300%", Context: "ctx1", DeepWhy: "why1", BigQuestion: "q1"},
			{Slot: 2, Category: "Sports", Theme: "Final Over Drama",
				Keywords: []string{"world cup"}, Mood: "Electric",
				DataSignal: "2M", Context: "ctx2", DeepWhy: "why2", BigQuestion: "q2"},
		},
		Anomalies: []intel.Anomaly{
			{Rank: 1, Keyword: "monsoon app", Velocity: "+5000%", Explanation: "e1", BigQuestion: "aq1"},
			{Rank: 2, Keyword: "quiet firing", Velocity: "+800%", Explanation: "e2", BigQuestion: "aq2"},
		},
		ProductionMood: intel.ProductionMood{
			OverallSentiment: -0.2, VibeColorHex: "#FFBF00",
			VocalTone: "Measured", VisualBackgroundPrompt: "Rain",
		},
	}
}

func TestSaveInsights(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	report := &intel.Report{
		ExecutiveSummary: "Two nations, one feed.",
		India:            *sampleRegional(),
		USA:              *sampleRegional(),
	}
	if err := c.SaveInsights(context.Background(), "2026-08-31", report); err != nil {
		t.Fatalf("SaveInsights: %v", err)
	}

	req := fake.requests[0]
	if !strings.Contains(req.Header.Get("Prefer"), "merge-duplicates") {
		t.Error("insights must upsert")
	}
	if !strings.Contains(req.Body, `"excecutive_summary":"Two nations, one feed."`) {
		t.Errorf("summary column missing: %s", req.Body)
	}
	if !strings.Contains(req.Body, `"region":"India"`) || !strings.Contains(req.Body, `"region":"USA"`) {
		t.Error("both regional rows must be written")
	}
	if !strings.Contains(req.Body, `"theme_1_keywords":"budget, tax slabs"`) {
		t.Errorf("keywords must flatten to a joined string: %s", req.Body)
	}
}

func TestInsightRowRoundTrip(t *testing.T) {
	ri := sampleRegional()
	row := insightRow("2026-08-31", "India", "summary", ri)
	back := row.Regional()

	if len(back.WeatherGrid) != 2 || len(back.Anomalies) != 2 {
		t.Fatalf("shape = %d themes, %d anomalies", len(back.WeatherGrid), len(back.Anomalies))
	}
	if back.WeatherGrid[0].Theme != "Budget Day Shock" ||
		len(back.WeatherGrid[0].Keywords) != 2 ||
		back.WeatherGrid[0].Keywords[1] != "tax slabs" {
		t.Errorf("theme 1 = %+v", back.WeatherGrid[0])
	}
	if back.Anomalies[1].Keyword != "quiet firing" || back.Anomalies[1].Rank != 2 {
		t.Errorf("anomaly 2 = %+v", back.Anomalies[1])
	}
	if back.ProductionMood.OverallSentiment != -0.2 || back.ProductionMood.VibeColorHex != "#FFBF00" {
		t.Errorf("mood = %+v", back.ProductionMood)
	}
}

func TestSplitKeywords(t *testing.T) {
	if got := splitKeywords(""); got != nil {
		t.Errorf("empty = %v", got)
	}
	got := splitKeywords("a, b, , c")
	if len(got) != 3 || got[2] != "c" {
		t.Errorf("split = %v", got)
	}
}

func TestSaveScriptPackage(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	pkg := &intel.ScriptPackage{
		YouTubeMetadata: intel.YouTubeMetadata{Title: "Internet Feed"},
		ScriptAssembly:  intel.ScriptAssembly{Intro: "One.", Outro: "Two."},
		VisualPrompts:   map[string]string{"thumbnail": "Dashboard --ar 16:9"},
	}
	grid := json.RawMessage(`[{"slot": 1}]`)

	if err := c.SaveScriptPackage(context.Background(), "2026-08-31", "India", grid, pkg); err != nil {
		t.Fatalf("SaveScriptPackage: %v", err)
	}

	req := fake.requests[0]
	if req.Path != "/rest/v1/daily_content_records" ||
		!strings.Contains(req.Header.Get("Prefer"), "merge-duplicates") {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(req.Body, `"script_india":"One. Two."`) {
		t.Errorf("script column: %s", req.Body)
	}
	if strings.Contains(req.Body, "script_usa") {
		t.Error("USA columns must be omitted for an India write")
	}

	if err := c.SaveScriptPackage(context.Background(), "2026-08-31", "Canada", grid, pkg); err == nil {
		t.Error("unknown region must fail")
	}
}

// ── Deep dives ──

func TestSaveDeepdive(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	research := json.RawMessage(`{"lead_metric": "$5B"}`)
	r := &intel.Research{Keyword: "ai coaches", Region: "USA"}
	pkg := &intel.DeepdiveScriptPackage{
		YouTubeMetadata: intel.YouTubeMetadata{
			Title: "Deep Dive: $5B", Description: "desc",
			Hashtags: []string{"#PivotNote", "#DeepDive"},
		},
		Script:        intel.DeepdiveScript{Hook: "Five billion.", ClosingQuestion: "Bet?"},
		VisualPrompts: map[string]string{"thumbnail": "Tightrope --ar 16:9"},
	}

	if err := c.SaveDeepdive(context.Background(), research, r, pkg, "search", 800_000, "breakout", "excited", "Tech"); err != nil {
		t.Fatalf("SaveDeepdive: %v", err)
	}

	body := fake.requests[0].Body
	if !strings.Contains(body, `"status":"needs_finetuning"`) {
		t.Errorf("new rows must need finetuning: %s", body)
	}
	if !strings.Contains(body, `"script_final":"Five billion. Bet?"`) {
		t.Errorf("script_final: %s", body)
	}
	if !strings.Contains(body, `"hashtags":"#PivotNote #DeepDive"`) {
		t.Errorf("hashtags join: %s", body)
	}
	if !strings.Contains(body, `"thumbnail_prompt":"Tightrope --ar 16:9"`) {
		t.Errorf("thumbnail prompt: %s", body)
	}
}

func TestFinalizeDeepdive(t *testing.T) {
	fake := &fakePostgREST{}
	c := newTestClient(t, fake)

	if err := c.FinalizeDeepdive(context.Background(), 42, "Edited script."); err != nil {
		t.Fatalf("FinalizeDeepdive: %v", err)
	}

	req := fake.requests[0]
	if req.Method != http.MethodPatch || req.Query.Get("id") != "eq.42" {
		t.Errorf("request = %s ?%s", req.Method, req.Query.Encode())
	}
	if !strings.Contains(req.Body, `"status":"finalized"`) ||
		!strings.Contains(req.Body, `"script_final":"Edited script."`) {
		t.Errorf("patch = %s", req.Body)
	}

	// No script edit keeps the stored script untouched.
	if err := c.FinalizeDeepdive(context.Background(), 43, ""); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(fake.requests[1].Body, "script_final") {
		t.Error("empty script must not patch script_final")
	}
}

func TestDeepdivesByStatus(t *testing.T) {
	fake := &fakePostgREST{respond: func(*http.Request) (int, string) {
		return http.StatusOK, `[{"id": 1, "keyword": "ai coaches", "status": "needs_finetuning"}]`
	}}
	c := newTestClient(t, fake)

	rows, err := c.DeepdivesByStatus(context.Background(), StatusNeedsFinetuning, 10)
	if err != nil {
		t.Fatalf("DeepdivesByStatus: %v", err)
	}
	if len(rows) != 1 || rows[0].Keyword != "ai coaches" {
		t.Errorf("rows = %+v", rows)
	}

	q := fake.requests[0].Query
	if q.Get("status") != "eq.needs_finetuning" || q.Get("order") != "created_at.desc" || q.Get("limit") != "10" {
		t.Errorf("query = %v", q)
	}
}
