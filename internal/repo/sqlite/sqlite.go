package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

// Store is the default persistent backend: a single sqlite file, WAL
// journal, foreign keys on. Times are stored as RFC3339Nano UTC text.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS websites (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	url        TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_websites_project ON websites (project_id);

CREATE TABLE IF NOT EXISTS settings (
	project_id       TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
	enabled          INTEGER,
	interval_seconds INTEGER NOT NULL,
	notify_mode      TEXT NOT NULL DEFAULT '',
	recipient        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS checks (
	id          TEXT PRIMARY KEY,
	website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
	checked_at  TEXT NOT NULL,
	up          INTEGER NOT NULL,
	status_code INTEGER,
	latency_ms  REAL,
	failure     TEXT,
	size_bytes  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_checks_site_time ON checks (website_id, checked_at);

CREATE TABLE IF NOT EXISTS performance (
	id          TEXT PRIMARY KEY,
	website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
	recorded_at TEXT NOT NULL,
	latency_ms  REAL,
	status_code INTEGER,
	size_bytes  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_performance_site_time ON performance (website_id, recorded_at);

CREATE TABLE IF NOT EXISTS alerts (
	id          TEXT PRIMARY KEY,
	website_id  TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
	message     TEXT NOT NULL,
	raised_at   TEXT NOT NULL,
	resolved_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_open ON alerts (website_id) WHERE resolved_at IS NULL;

CREATE TABLE IF NOT EXISTS uptime_summaries (
	website_id     TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
	window_start   TEXT NOT NULL,
	uptime_pct     REAL NOT NULL,
	downtime_pct   REAL NOT NULL,
	total_checks   INTEGER NOT NULL,
	failed_checks  INTEGER NOT NULL,
	avg_latency_ms REAL,
	PRIMARY KEY (website_id, window_start)
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var p domain.Project
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &created); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListWebsites(ctx context.Context) ([]domain.Website, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, url, created_at FROM websites ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		var created string
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.URL, &created); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		w.CreatedAt = parseTime(created)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) GetWebsite(ctx context.Context, id domain.WebsiteID) (*domain.Website, error) {
	return s.websiteBy(ctx, `SELECT id, project_id, url, created_at FROM websites WHERE id = ?`, string(id))
}

func (s *Store) FindWebsiteByURL(ctx context.Context, url string) (*domain.Website, error) {
	return s.websiteBy(ctx, `SELECT id, project_id, url, created_at FROM websites WHERE url = ?`, url)
}

func (s *Store) websiteBy(ctx context.Context, query string, arg any) (*domain.Website, error) {
	var w domain.Website
	var created string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&w.ID, &w.ProjectID, &w.URL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	w.CreatedAt = parseTime(created)
	return &w, nil
}

func (s *Store) GetSetting(ctx context.Context, projectID string) (*domain.Setting, error) {
	var st domain.Setting
	var enabled sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, enabled, interval_seconds, notify_mode, recipient
		   FROM settings WHERE project_id = ?`, projectID).
		Scan(&st.ProjectID, &enabled, &st.IntervalSeconds, &st.NotifyMode, &st.Recipient)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	if enabled.Valid {
		v := enabled.Int64 != 0
		st.Enabled = &v
	}
	return &st, nil
}

func (s *Store) allSettings(ctx context.Context) (map[string]domain.Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, enabled, interval_seconds, notify_mode, recipient FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Setting)
	for rows.Next() {
		var st domain.Setting
		var enabled sql.NullInt64
		if err := rows.Scan(&st.ProjectID, &enabled, &st.IntervalSeconds, &st.NotifyMode, &st.Recipient); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		if enabled.Valid {
			v := enabled.Int64 != 0
			st.Enabled = &v
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, formatTime(p.CreatedAt))
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO websites (id, project_id, url, created_at) VALUES (?, ?, ?, ?)`,
		string(w.ID), w.ProjectID, w.URL, formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *Store) RemoveWebsite(ctx context.Context, id domain.WebsiteID) error {
	// History rows go with it via ON DELETE CASCADE.
	_, err := s.db.ExecContext(ctx, `DELETE FROM websites WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	return nil
}

func (s *Store) PutSetting(ctx context.Context, st *domain.Setting) error {
	var enabled any
	if st.Enabled != nil {
		if *st.Enabled {
			enabled = 1
		} else {
			enabled = 0
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (project_id, enabled, interval_seconds, notify_mode, recipient)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   enabled = excluded.enabled,
		   interval_seconds = excluded.interval_seconds,
		   notify_mode = excluded.notify_mode,
		   recipient = excluded.recipient`,
		st.ProjectID, enabled, st.IntervalSeconds, st.NotifyMode, st.Recipient)
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
	var failure any
	if c.Failure != nil {
		failure = string(*c.Failure)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.WebsiteID), formatTime(c.CheckedAt), boolToInt(c.Up),
		nullable(c.StatusCode), nullable(c.LatencyMS), failure, nullable(c.SizeBytes))
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO performance (id, website_id, recorded_at, latency_ms, status_code, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.WebsiteID), formatTime(m.RecordedAt),
		nullable(m.LatencyMS), nullable(m.StatusCode), nullable(m.SizeBytes))
	if err != nil {
		return fmt.Errorf("insert performance sample: %w", err)
	}
	return nil
}

func (s *Store) ChecksBetween(ctx context.Context, id domain.WebsiteID, from, to time.Time) ([]domain.CheckResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes
		   FROM checks
		  WHERE website_id = ? AND checked_at >= ? AND checked_at < ?
		  ORDER BY checked_at`,
		string(id), formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("select checks in window: %w", err)
	}
	return scanChecks(rows)
}

func (s *Store) RecentChecks(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_id, checked_at, up, status_code, latency_ms, failure, size_bytes
		   FROM checks
		  WHERE website_id = ?
		  ORDER BY checked_at DESC
		  LIMIT ?`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent checks: %w", err)
	}
	return scanChecks(rows)
}

func scanChecks(rows *sql.Rows) ([]domain.CheckResult, error) {
	defer rows.Close()
	var out []domain.CheckResult
	for rows.Next() {
		var (
			c       domain.CheckResult
			checked string
			up      int
			status  sql.NullInt64
			latency sql.NullFloat64
			failure sql.NullString
			size    sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.WebsiteID, &checked, &up, &status, &latency, &failure, &size); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		c.CheckedAt = parseTime(checked)
		c.Up = up != 0
		if status.Valid {
			v := int(status.Int64)
			c.StatusCode = &v
		}
		if latency.Valid {
			v := latency.Float64
			c.LatencyMS = &v
		}
		if failure.Valid && failure.String != "" {
			k := domain.FailureKind(failure.String)
			c.Failure = &k
		}
		if size.Valid {
			v := size.Int64
			c.SizeBytes = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checks WHERE checked_at < ?`, formatTime(cutoff))
	if err != nil {
		return fmt.Errorf("prune checks: %w", err)
	}
	return nil
}

func (s *Store) DeletePerformanceBefore(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM performance WHERE recorded_at < ?`, formatTime(cutoff))
	if err != nil {
		return fmt.Errorf("prune performance samples: %w", err)
	}
	return nil
}

// ---- AlertStore ----

func (s *Store) OpenAlert(ctx context.Context, id domain.WebsiteID) (*domain.AlertRecord, error) {
	var a domain.AlertRecord
	var raised string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, website_id, message, raised_at
		   FROM alerts
		  WHERE website_id = ? AND resolved_at IS NULL`,
		string(id)).Scan(&a.ID, &a.WebsiteID, &a.Message, &raised)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open alert: %w", err)
	}
	a.RaisedAt = parseTime(raised)
	return &a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a *domain.AlertRecord) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, website_id, message, raised_at, resolved_at)
		 VALUES (?, ?, ?, ?, NULL)`,
		a.ID, string(a.WebsiteID), a.Message, formatTime(a.RaisedAt))
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Store) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		formatTime(at), alertID)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}

func (s *Store) OpenAlertCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE resolved_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open alerts: %w", err)
	}
	return n, nil
}

func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_id, message, raised_at, resolved_at
		   FROM alerts
		  ORDER BY raised_at DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var a domain.AlertRecord
		var raised string
		var resolved sql.NullString
		if err := rows.Scan(&a.ID, &a.WebsiteID, &a.Message, &raised, &resolved); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.RaisedAt = parseTime(raised)
		if resolved.Valid {
			ts := parseTime(resolved.String)
			a.ResolvedAt = &ts
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- UptimeStore ----

func (s *Store) AppendSummary(ctx context.Context, sum *domain.UptimeSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uptime_summaries
		   (website_id, window_start, uptime_pct, downtime_pct, total_checks, failed_checks, avg_latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(website_id, window_start) DO NOTHING`,
		string(sum.WebsiteID), formatTime(sum.WindowStart), sum.UptimePct, sum.DowntimePct,
		sum.TotalChecks, sum.FailedChecks, nullable(sum.AvgLatencyMS))
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (s *Store) RecentSummaries(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.UptimeSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT website_id, window_start, uptime_pct, downtime_pct, total_checks, failed_checks, avg_latency_ms
		   FROM uptime_summaries
		  WHERE website_id = ?
		  ORDER BY window_start DESC
		  LIMIT ?`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.UptimeSummary
	for rows.Next() {
		var (
			sum   domain.UptimeSummary
			start string
			avg   sql.NullFloat64
		)
		if err := rows.Scan(&sum.WebsiteID, &start, &sum.UptimePct, &sum.DowntimePct,
			&sum.TotalChecks, &sum.FailedChecks, &avg); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.WindowStart = parseTime(start)
		if avg.Valid {
			v := avg.Float64
			sum.AvgLatencyMS = &v
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ---- helpers ----

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullable turns a nil pointer into a SQL NULL and dereferences otherwise.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

var _ repo.Store = (*Store)(nil)
