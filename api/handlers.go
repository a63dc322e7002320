package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pivotnote/pulse/internal/collector"
	"github.com/pivotnote/pulse/internal/intel"
	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/prompts"
	"github.com/pivotnote/pulse/internal/store"
	"github.com/pivotnote/pulse/internal/trends"
)

const dateLayout = "2006-01-02"

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := map[string]string{}
	for name, err := range s.llm.HealthCheck(r.Context()) {
		if err != nil {
			providers[name] = err.Error()
		} else {
			providers[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":      "ok",
			"providers":   providers,
			"persistence": s.db != nil,
			"ws_clients":  s.wsHub.ClientCount(),
		},
	})
}

// ── Extraction / normalization ──

// ExtractRequest is the body for POST /api/v1/extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := llm.ExtractJSON(req.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: payload})
}

// NormalizeRequest is the body for POST /api/v1/normalize.
type NormalizeRequest struct {
	Platform string            `json:"platform"`
	Trends   []trends.RawTrend `json:"trends"`
}

// NormalizeResponse pairs the normalized trends with the batch report.
type NormalizeResponse struct {
	Report *trends.ValidationReport `json:"report"`
	Trends []trends.Trend           `json:"trends"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	platform, err := trends.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	valid, report := trends.NormalizeBatch(req.Trends, platform)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    NormalizeResponse{Report: report, Trends: valid},
	})
}

// ── Collection ──

func (s *Server) handleCollectSearch(w http.ResponseWriter, r *http.Request) {
	if s.serp == nil {
		writeError(w, http.StatusServiceUnavailable, "serpapi not configured")
		return
	}

	ctx := r.Context()
	byRegion, err := s.serp.FetchAll(ctx, s.cfg.Collection.Regions, s.cfg.Collection.TrendsPerRun)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	usa, india, err := collector.EnrichSearchTrends(ctx, s.llm, s.flashOpts(),
		byRegion[trends.RegionUSA], byRegion[trends.RegionIndia])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	valid, report := trends.NormalizeBatch(append(usa, india...), trends.PlatformSearch)

	date := time.Now().UTC().Format(dateLayout)
	if s.db != nil {
		if err := s.db.SaveTrends(ctx, date, valid); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "collection_complete",
		Data: map[string]any{"platform": "search", "date": date, "valid": report.Valid, "invalid": report.Invalid},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    NormalizeResponse{Report: report, Trends: valid},
	})
}

// CollectManualRequest is the body for POST /api/v1/collect/manual.
type CollectManualRequest struct {
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

func (s *Server) handleCollectManual(w http.ResponseWriter, r *http.Request) {
	var req CollectManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	platform, err := trends.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raws, err := collector.ParseManualPaste(req.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	valid, report := trends.NormalizeBatch(raws, platform)

	date := time.Now().UTC().Format(dateLayout)
	if s.db != nil && len(valid) > 0 {
		if err := s.db.SaveTrends(r.Context(), date, valid); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "collection_complete",
		Data: map[string]any{"platform": string(platform), "date": date, "valid": report.Valid, "invalid": report.Invalid},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    NormalizeResponse{Report: report, Trends: valid},
	})
}

func (s *Server) handleCollectionPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"prompt": prompts.TwitterCollection()},
	})
}

// ── Stored trends ──

func (s *Server) handleTrendsByDate(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	date := chi.URLParam(r, "date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; use YYYY-MM-DD")
		return
	}

	search, mention, err := s.db.TrendsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"date": date, "search": search, "mention": mention},
	})
}

func (s *Server) handleLatestTrends(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	date, err := s.db.LatestTrendDate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if date == "" {
		writeError(w, http.StatusNotFound, "no trend data collected yet")
		return
	}

	search, mention, err := s.db.TrendsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"date": date, "search": search, "mention": mention},
	})
}

// ── Analysis & production ──

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, default today
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	}

	ctx := r.Context()
	batch, err := s.loadBatch(r, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(batch) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no trends collected for %s", date))
		return
	}

	headlines, err := s.news.RecentHeadlines(ctx, s.cfg.Collection.ContextLimit)
	if err != nil {
		// Headlines only ground the analysis; a feed outage is not fatal.
		log.Printf("api: context headlines unavailable: %v", err)
	}

	summary := intel.BuildSummary(date, batch, headlines)
	report, raw, err := s.analyzer.GenerateReport(ctx, summary)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := s.db.SaveInsights(ctx, date, report); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.SaveEntities(ctx, date, trends.ExtractEntities(batch)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]any{"date": date},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"date": date, "report": json.RawMessage(raw)},
	})
}

// AssembleRequest is the body for POST /api/v1/assemble.
type AssembleRequest struct {
	Date   string `json:"date,omitempty"`
	Region string `json:"region"`
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !trends.ValidRegion(req.Region) {
		writeError(w, http.StatusBadRequest, "region must be USA or India")
		return
	}
	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	}

	ctx := r.Context()
	rows, err := s.db.InsightsByDate(ctx, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var ri *intel.RegionalIntelligence
	for _, row := range rows {
		if row.Region == req.Region {
			ri = row.Regional()
			break
		}
	}
	if ri == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no insights for %s on %s; run analyze first", req.Region, date))
		return
	}

	pkg, err := s.analyzer.AssembleScript(ctx, req.Region, ri)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	grid, err := json.Marshal(ri.WeatherGrid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.SaveScriptPackage(ctx, date, req.Region, grid, pkg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "script_assembled",
		Data: map[string]any{"date": date, "region": req.Region},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: pkg})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	date := chi.URLParam(r, "date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; use YYYY-MM-DD")
		return
	}

	rows, err := s.db.InsightsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no insights for %s", date))
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rows})
}

// ── Deep dives ──

// DeepdiveRequest is the body for POST /api/v1/deepdive.
type DeepdiveRequest struct {
	Keyword     string `json:"keyword"`
	Region      string `json:"region"`
	Platform    string `json:"platform,omitempty"`
	Context     string `json:"context,omitempty"`
	WhyTrending string `json:"why_trending,omitempty"`
	Volume      int    `json:"volume,omitempty"`
	Velocity    string `json:"velocity,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (s *Server) handleDeepdive(w http.ResponseWriter, r *http.Request) {
	var req DeepdiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if !trends.ValidRegion(req.Region) {
		writeError(w, http.StatusBadRequest, "region must be USA or India")
		return
	}

	ctx := r.Context()
	in := prompts.DeepdiveInput{
		Keyword:     req.Keyword,
		Region:      req.Region,
		Context:     req.Context,
		WhyTrending: req.WhyTrending,
		Volume:      req.Volume,
		Velocity:    req.Velocity,
		Sentiment:   req.Sentiment,
	}

	research, raw, err := s.analyzer.ResearchTrend(ctx, in)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	pkg, err := s.analyzer.WriteDeepdiveScript(ctx, raw, req.Keyword, req.Region)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if s.db != nil {
		err := s.db.SaveDeepdive(ctx, raw, research, pkg,
			req.Platform, req.Volume, req.Velocity, req.Sentiment, req.Category)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "deepdive_complete",
		Data: map[string]any{"keyword": req.Keyword, "region": req.Region},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"research": research, "package": pkg},
	})
}

func (s *Server) handleListDeepdives(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.StatusNeedsFinetuning
	}

	rows, err := s.db.DeepdivesByStatus(r.Context(), status, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rows})
}

// FinalizeRequest is the body for POST /api/v1/deepdives/{id}/finalize.
type FinalizeRequest struct {
	Script string `json:"script,omitempty"`
}

func (s *Server) handleFinalizeDeepdive(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid deepdive id")
		return
	}

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.FinalizeDeepdive(r.Context(), id, req.Script); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"id": id, "status": store.StatusFinalized},
	})
}

// ── Helpers ──

func (s *Server) flashOpts() *llm.Options {
	opts := llm.DefaultOptions()
	opts.Model = s.cfg.LLM.FlashModel
	if s.cfg.LLM.Temperature > 0 {
		opts.Temperature = s.cfg.LLM.Temperature
	}
	return opts
}

// loadBatch reads a day's stored trends back as normalized Trend values.
func (s *Server) loadBatch(r *http.Request, date string) ([]trends.Trend, error) {
	search, mention, err := s.db.TrendsByDate(r.Context(), date)
	if err != nil {
		return nil, err
	}
	batch := make([]trends.Trend, 0, len(search)+len(mention))
	for _, row := range search {
		batch = append(batch, row.Trend())
	}
	for _, row := range mention {
		batch = append(batch, row.Trend())
	}
	return batch, nil
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "supabase not configured")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
