package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

// Store keeps everything in process memory. Default for tests and the
// fastest way to run the daemon without a database.
type Store struct {
	mu        sync.RWMutex
	projects  map[string]domain.Project
	websites  map[domain.WebsiteID]domain.Website
	settings  map[string]domain.Setting
	checks    []domain.CheckResult
	perf      []domain.PerformanceMetric
	alerts    []domain.AlertRecord
	summaries map[summaryKey]domain.UptimeSummary
}

type summaryKey struct {
	site  domain.WebsiteID
	start int64
}

func New() *Store {
	return &Store{
		projects:  make(map[string]domain.Project),
		websites:  make(map[domain.WebsiteID]domain.Website),
		settings:  make(map[string]domain.Setting),
		checks:    make([]domain.CheckResult, 0, 128),
		perf:      make([]domain.PerformanceMetric, 0, 128),
		summaries: make(map[summaryKey]domain.UptimeSummary),
	}
}

// ---- ConfigStore ----

func (m *Store) FetchConfig(ctx context.Context) (domain.MonitoringConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := m.sortedProjectsLocked()
	sites := m.sortedWebsitesLocked()

	cfg := domain.MonitoringConfig{Projects: make([]domain.ProjectConfig, 0, len(projects))}
	for _, p := range projects {
		pc := domain.ProjectConfig{Project: p}
		if s, ok := m.settings[p.ID]; ok {
			cp := s
			pc.Setting = &cp
		}
		for _, w := range sites {
			if w.ProjectID == p.ID {
				pc.Websites = append(pc.Websites, w)
			}
		}
		cfg.Projects = append(cfg.Projects, pc)
	}
	return cfg, nil
}

func (m *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedProjectsLocked(), nil
}

func (m *Store) ListWebsites(ctx context.Context) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedWebsitesLocked(), nil
}

func (m *Store) GetWebsite(ctx context.Context, id domain.WebsiteID) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.websites[id]
	if !ok {
		return nil, nil
	}
	cp := w
	return &cp, nil
}

func (m *Store) FindWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.websites {
		if w.URL == url {
			cp := w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) GetSetting(ctx context.Context, projectID string) (*domain.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[projectID]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *Store) AddWebsite(ctx context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = domain.WebsiteID(uuid.NewString())
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	m.websites[w.ID] = *w
	return nil
}

// RemoveWebsite also drops the website's history, mirroring the SQL
// backends' ON DELETE CASCADE.
func (m *Store) RemoveWebsite(ctx context.Context, id domain.WebsiteID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.websites, id)

	keepChecks := m.checks[:0]
	for _, c := range m.checks {
		if c.WebsiteID != id {
			keepChecks = append(keepChecks, c)
		}
	}
	m.checks = keepChecks

	keepPerf := m.perf[:0]
	for _, p := range m.perf {
		if p.WebsiteID != id {
			keepPerf = append(keepPerf, p)
		}
	}
	m.perf = keepPerf

	keepAlerts := m.alerts[:0]
	for _, a := range m.alerts {
		if a.WebsiteID != id {
			keepAlerts = append(keepAlerts, a)
		}
	}
	m.alerts = keepAlerts

	for k := range m.summaries {
		if k.site == id {
			delete(m.summaries, k)
		}
	}
	return nil
}

func (m *Store) PutSetting(ctx context.Context, s *domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.ProjectID] = *s
	return nil
}

// ---- CheckStore ----

func (m *Store) AppendCheck(ctx context.Context, c *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now().UTC()
	}
	m.checks = append(m.checks, *c)
	return nil
}

func (m *Store) AppendPerformance(ctx context.Context, p *domain.PerformanceMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	m.perf = append(m.perf, *p)
	return nil
}

func (m *Store) ChecksBetween(ctx context.Context, id domain.WebsiteID, from, to time.Time) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckResult
	for _, c := range m.checks {
		if c.WebsiteID != id {
			continue
		}
		if c.CheckedAt.Before(from) || !c.CheckedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out, nil
}

func (m *Store) RecentChecks(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CheckResult
	for _, c := range m.checks {
		if c.WebsiteID == id {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := m.checks[:0]
	for _, c := range m.checks {
		if !c.CheckedAt.Before(cutoff) {
			keep = append(keep, c)
		}
	}
	m.checks = keep
	return nil
}

func (m *Store) DeletePerformanceBefore(ctx context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := m.perf[:0]
	for _, p := range m.perf {
		if !p.RecordedAt.Before(cutoff) {
			keep = append(keep, p)
		}
	}
	m.perf = keep
	return nil
}

// ---- AlertStore ----

func (m *Store) OpenAlert(ctx context.Context, id domain.WebsiteID) (*domain.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.alerts {
		if a.WebsiteID == id && a.ResolvedAt == nil {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) CreateAlert(ctx context.Context, a *domain.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *Store) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == alertID && m.alerts[i].ResolvedAt == nil {
			ts := at
			m.alerts[i].ResolvedAt = &ts
			return nil
		}
	}
	return nil
}

func (m *Store) OpenAlertCount(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.alerts {
		if a.ResolvedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AlertRecord, len(m.alerts))
	copy(out, m.alerts)
	sort.Slice(out, func(i, j int) bool { return out[i].RaisedAt.After(out[j].RaisedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- UptimeStore ----

func (m *Store) AppendSummary(ctx context.Context, s *domain.UptimeSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := summaryKey{site: s.WebsiteID, start: s.WindowStart.UnixNano()}
	if _, exists := m.summaries[k]; exists {
		return nil
	}
	m.summaries[k] = *s
	return nil
}

func (m *Store) RecentSummaries(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.UptimeSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.UptimeSummary
	for _, s := range m.summaries {
		if s.WebsiteID == id {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowStart.After(out[j].WindowStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- helpers ----

func (m *Store) sortedProjectsLocked() []domain.Project {
	out := make([]domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Store) sortedWebsitesLocked() []domain.Website {
	out := make([]domain.Website, 0, len(m.websites))
	for _, w := range m.websites {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var _ repo.Store = (*Store)(nil)
