package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func limitParam(r *http.Request, dflt int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return dflt
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return dflt
	}
	return n
}

func (s *Server) projectExists(r *http.Request, id string) (bool, error) {
	projects, err := s.Store.ListProjects(r.Context())
	if err != nil {
		return false, err
	}
	for _, p := range projects {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// ---- read surface ----

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	openAlerts, err := s.Store.OpenAlertCount(r.Context())
	if err != nil {
		http.Error(w, "status error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"driver":      s.Driver,
		"tasks":       s.Tasks.TaskCount(),
		"open_alerts": openAlerts,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Store.FetchConfig(r.Context())
	if err != nil {
		http.Error(w, "config error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleWebsiteChecks(w http.ResponseWriter, r *http.Request) {
	id := domain.WebsiteID(chi.URLParam(r, "id"))
	site, err := s.Store.GetWebsite(r.Context(), id)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if site == nil {
		http.Error(w, "unknown website", http.StatusNotFound)
		return
	}
	checks, err := s.Store.RecentChecks(r.Context(), id, limitParam(r, 50))
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if checks == nil {
		checks = []domain.CheckResult{}
	}
	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) handleWebsiteUptime(w http.ResponseWriter, r *http.Request) {
	id := domain.WebsiteID(chi.URLParam(r, "id"))
	site, err := s.Store.GetWebsite(r.Context(), id)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if site == nil {
		http.Error(w, "unknown website", http.StatusNotFound)
		return
	}
	sums, err := s.Store.RecentSummaries(r.Context(), id, limitParam(r, 24))
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if sums == nil {
		sums = []domain.UptimeSummary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.Store.RecentAlerts(r.Context(), limitParam(r, 50))
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ---- admin mutations ----

type createProjectPayload struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p createProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	proj := &domain.Project{Name: p.Name, CreatedAt: time.Now().UTC()}
	if err := s.Store.CreateProject(r.Context(), proj); err != nil {
		http.Error(w, "could not create", http.StatusInternalServerError)
		return
	}
	s.Logger.Info("project_created", zap.String("id", proj.ID), zap.String("name", proj.Name))
	writeJSON(w, http.StatusOK, proj)
}

type settingPayload struct {
	Enabled         *bool  `json:"enabled"`
	IntervalSeconds int    `json:"interval_seconds"`
	NotifyMode      string `json:"notify_mode"`
	Recipient       string `json:"recipient"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ok, err := s.projectExists(r, projectID)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "unknown project", http.StatusNotFound)
		return
	}

	var p settingPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	switch p.NotifyMode {
	case "", domain.NotifySlack, domain.NotifyTelegram, domain.NotifyAll:
	default:
		http.Error(w, "unknown notify mode", http.StatusBadRequest)
		return
	}
	if p.IntervalSeconds <= 0 {
		p.IntervalSeconds = domain.DefaultIntervalSeconds
	}

	st := &domain.Setting{
		ProjectID:       projectID,
		Enabled:         p.Enabled,
		IntervalSeconds: p.IntervalSeconds,
		NotifyMode:      p.NotifyMode,
		Recipient:       p.Recipient,
	}
	if err := s.Store.PutSetting(r.Context(), st); err != nil {
		http.Error(w, "could not store setting", http.StatusInternalServerError)
		return
	}
	s.Logger.Info("setting_updated",
		zap.String("project_id", projectID),
		zap.Int("interval_seconds", st.IntervalSeconds),
		zap.String("notify_mode", st.NotifyMode))
	writeJSON(w, http.StatusOK, st)
}

type addWebsitePayload struct {
	URL string `json:"url"`
}

func (s *Server) handleAddWebsite(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ok, err := s.projectExists(r, projectID)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "unknown project", http.StatusNotFound)
		return
	}

	var p addWebsitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if !isValidHTTPURL(p.URL) {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	norm := normalizeHTTPURL(p.URL)

	if dup, err := s.Store.FindWebsiteByURL(r.Context(), norm); err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	} else if dup != nil {
		http.Error(w, "website already monitored", http.StatusConflict)
		return
	}

	site := &domain.Website{ProjectID: projectID, URL: norm, CreatedAt: time.Now().UTC()}
	if err := s.Store.AddWebsite(r.Context(), site); err != nil {
		http.Error(w, "could not add", http.StatusInternalServerError)
		return
	}

	// Run a single check synchronously for immediate feedback.
	out := s.Checker.Check(r.Context(), norm)

	// If the HTTP check fails, a DNS diagnosis usually names the culprit.
	if !out.Success {
		diag := probe.Diagnose(probe.ExtractHost(norm))
		s.Logger.Info("dns_check",
			zap.String("host", diag.Host),
			zap.String("class", diag.Class),
			zap.String("cname", diag.CNAME),
			zap.Strings("nameservers", diag.Nameservers),
			zap.String("resolver_error", diag.Err))
	}

	cr, pm := out.Records(site.ID, time.Now().UTC())
	_ = s.Store.AppendCheck(r.Context(), cr)
	_ = s.Store.AppendPerformance(r.Context(), pm)

	s.Logger.Info("website_added",
		zap.String("project_id", projectID),
		zap.String("url", norm),
		zap.Bool("up", out.Success),
		zap.Float64("latency_ms", out.LatencyMS))

	writeJSON(w, http.StatusOK, map[string]any{
		"website": site,
		"check":   cr,
	})
}

func (s *Server) handleRemoveWebsite(w http.ResponseWriter, r *http.Request) {
	id := domain.WebsiteID(chi.URLParam(r, "id"))
	site, err := s.Store.GetWebsite(r.Context(), id)
	if err != nil {
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if site == nil {
		http.Error(w, "unknown website", http.StatusNotFound)
		return
	}
	if err := s.Store.RemoveWebsite(r.Context(), id); err != nil {
		http.Error(w, "could not remove", http.StatusInternalServerError)
		return
	}
	s.Logger.Info("website_removed", zap.String("website_id", string(id)), zap.String("url", site.URL))
	w.WriteHeader(http.StatusNoContent)
}
