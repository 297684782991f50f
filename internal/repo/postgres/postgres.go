package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Schema is applied by deploy tooling and by the integration tests.
// The partial unique index keeps at most one open alert per website.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS websites (
  id         TEXT PRIMARY KEY,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  url        TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_websites_project ON websites (project_id);

CREATE TABLE IF NOT EXISTS settings (
  project_id       TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
  enabled          BOOLEAN NULL,
  interval_seconds INTEGER NOT NULL,
  notify_mode      TEXT NOT NULL DEFAULT '',
  recipient        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS checks (
  id          TEXT PRIMARY KEY,
  website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
  checked_at  TIMESTAMPTZ NOT NULL,
  up          BOOLEAN NOT NULL,
  status_code INTEGER NULL,
  latency_ms  DOUBLE PRECISION NULL,
  failure     TEXT NULL,
  size_bytes  BIGINT NULL
);
CREATE INDEX IF NOT EXISTS idx_checks_site_time ON checks (website_id, checked_at DESC);

CREATE TABLE IF NOT EXISTS performance (
  id          TEXT PRIMARY KEY,
  website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
  recorded_at TIMESTAMPTZ NOT NULL,
  latency_ms  DOUBLE PRECISION NULL,
  status_code INTEGER NULL,
  size_bytes  BIGINT NULL
);
CREATE INDEX IF NOT EXISTS idx_performance_site_time ON performance (website_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
  id          TEXT PRIMARY KEY,
  website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
  message     TEXT NOT NULL,
  raised_at   TIMESTAMPTZ NOT NULL,
  resolved_at TIMESTAMPTZ NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_open ON alerts (website_id) WHERE resolved_at IS NULL;

CREATE TABLE IF NOT EXISTS uptime_summaries (
  website_id     TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
  window_start   TIMESTAMPTZ NOT NULL,
  uptime_pct     DOUBLE PRECISION NOT NULL,
  downtime_pct   DOUBLE PRECISION NOT NULL,
  total_checks   INTEGER NOT NULL,
  failed_checks  INTEGER NOT NULL,
  avg_latency_ms DOUBLE PRECISION NULL,
  PRIMARY KEY (website_id, window_start)
);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- ConfigStore ----

func (s *Store) FetchConfig(ctx context.Context) (domain.MonitoringConfig, error) {
	var cfg domain.MonitoringConfig

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return cfg, err
	}
	sites, err := s.ListWebsites(ctx)
	if err != nil {
		return cfg, err
	}
	settings, err := s.allSettings(ctx)
	if err != nil {
		return cfg, err
	}

	byProject := make(map[string][]domain.Website)
	for _, w := range sites {
		byProject[w.ProjectID] = append(byProject[w.ProjectID], w)
	}

	cfg.Projects = make([]domain.ProjectConfig, 0, len(projects))
	for _, p := range projects {
		pc := domain.ProjectConfig{Project: p, Websites: byProject[p.ID]}
		if st, ok := settings[p.ID]; ok {
			cp := st
			pc.Setting = &cp
		}
		cfg.Projects = append(cfg.Projects, pc)
	}
	return cfg, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListWebsites(ctx context.Context) ([]domain.Website, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, url, created_at FROM websites ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.URL, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) GetWebsite(ctx context.Context, id domain.WebsiteID) (*domain.Website, error) {
	return s.websiteBy(ctx,
		`SELECT id, project_id, url, created_at FROM websites WHERE id = $1`, string(id))
}

func (s *Store) FindWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	return s.websiteBy(ctx,
		`SELECT id, project_id, url, created_at FROM websites WHERE url = $1`, url)
}

func (s *Store) websiteBy(ctx context.Context, query string, arg any) (*domain.Website, error) {
	var w domain.Website
	err := s.pool.QueryRow(ctx, query, arg).Scan(&w.ID, &w.ProjectID, &w.URL, &w.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get website: %w", err)
	}
	return &w, nil
}

func (s *Store) GetSetting(ctx context.Context, projectID string) (*domain.Setting, error) {
	var st domain.Setting
	err := s.pool.QueryRow(ctx,
		`SELECT project_id, enabled, interval_seconds, notify_mode, recipient
		   FROM settings WHERE project_id = $1`, projectID).
		Scan(&st.ProjectID, &st.Enabled, &st.IntervalSeconds, &st.NotifyMode, &st.Recipient)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &st, nil
}

func (s *Store) allSettings(ctx context.Context) (map[string]domain.Setting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT project_id, enabled, interval_seconds, notify_mode, recipient FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Setting)
	for rows.Next() {
		var st domain.Setting
		if err := rows.Scan(&st.ProjectID, &st.Enabled, &st.IntervalSeconds, &st.NotifyMode, &st.Recipient); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[st.ProjectID] = st
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *Store) AddWebsite(ctx context.Context, w *domain.Website) error {
	if w.ID == "" {
		w.ID = domain.WebsiteID(uuid.NewString())
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO websites (id, project_id, url, created_at) VALUES ($1, $2, $3, $4)`,
		string(w.ID), w.ProjectID, w.URL, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *Store) RemoveWebsite(ctx context.Context, id domain.WebsiteID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM websites WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	return nil
}

func (s *Store) PutSetting(ctx context.Context, st *domain.Setting) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (project_id, enabled, interval_seconds, notify_mode, recipient)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (project_id)
		 DO UPDATE SET enabled = EXCLUDED.enabled,
		               interval_seconds = EXCLUDED.interval_seconds,
		               notify_mode = EXCLUDED.notify_mode,
		               recipient = EXCLUDED.recipient`,
		st.ProjectID, st.Enabled, st.IntervalSeconds, st.NotifyMode, st.Recipient)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// ---- CheckStore ----

func (s *Store) AppendCheck(ctx context.Context, c *domain.CheckResult) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now().UTC()
	}
	var failure *string
	if c.Failure != nil {
		f := string(*c.Failure)
		failure = &f
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checks (id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, string(c.WebsiteID), c.CheckedAt, c.Up, c.StatusCode, c.LatencyMS, failure, c.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

func (s *Store) AppendPerformance(ctx context.Context, m *domain.PerformanceMetric) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO performance (id, website_id, recorded_at, latency_ms, status_code, size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, string(m.WebsiteID), m.RecordedAt, m.LatencyMS, m.StatusCode, m.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert performance sample: %w", err)
	}
	return nil
}

func (s *Store) ChecksBetween(ctx context.Context, id domain.WebsiteID, from, to time.Time) ([]domain.CheckResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes
		   FROM checks
		  WHERE website_id = $1 AND checked_at >= $2 AND checked_at < $3
		  ORDER BY checked_at`,
		string(id), from, to)
	if err != nil {
		return nil, fmt.Errorf("select checks in window: %w", err)
	}
	return scanChecks(rows)
}

func (s *Store) RecentChecks(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes
		   FROM checks
		  WHERE website_id = $1
		  ORDER BY checked_at DESC
		  LIMIT $2`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent checks: %w", err)
	}
	return scanChecks(rows)
}

func (s *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM checks WHERE checked_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("prune checks: %w", err)
	}
	return nil
}

func (s *Store) DeletePerformanceBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM performance WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("prune performance samples: %w", err)
	}
	return nil
}

func scanChecks(rows pgx.Rows) ([]domain.CheckResult, error) {
	defer rows.Close()
	var out []domain.CheckResult
	for rows.Next() {
		var c domain.CheckResult
		var failure *string
		if err := rows.Scan(&c.ID, &c.WebsiteID, &c.CheckedAt, &c.Up,
			&c.StatusCode, &c.LatencyMS, &failure, &c.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		if failure != nil {
			k := domain.FailureKind(*failure)
			c.Failure = &k
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
