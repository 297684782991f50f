package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/domain"
)

// ---- AlertStore ----

func (s *Store) OpenAlert(ctx context.Context, id domain.WebsiteID) (*domain.AlertRecord, error) {
	const q = `SELECT id, website_id, message, raised_at
	             FROM alerts
	            WHERE website_id = $1 AND resolved_at IS NULL`
	var a domain.AlertRecord
	err := s.pool.QueryRow(ctx, q, string(id)).Scan(&a.ID, &a.WebsiteID, &a.Message, &a.RaisedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open alert: %w", err)
	}
	return &a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a *domain.AlertRecord) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	const q = `INSERT INTO alerts (id, website_id, message, raised_at, resolved_at)
	           VALUES ($1, $2, $3, $4, NULL)`
	if _, err := s.pool.Exec(ctx, q, a.ID, string(a.WebsiteID), a.Message, a.RaisedAt); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Store) ResolveAlert(ctx context.Context, alertID string, at time.Time) error {
	const q = `UPDATE alerts SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`
	if _, err := s.pool.Exec(ctx, q, at, alertID); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}

func (s *Store) OpenAlertCount(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE resolved_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open alerts: %w", err)
	}
	return n, nil
}

func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, message, raised_at, resolved_at
		   FROM alerts
		  ORDER BY raised_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var a domain.AlertRecord
		if err := rows.Scan(&a.ID, &a.WebsiteID, &a.Message, &a.RaisedAt, &a.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- UptimeStore ----

func (s *Store) AppendSummary(ctx context.Context, sum *domain.UptimeSummary) error {
	const q = `INSERT INTO uptime_summaries
	             (website_id, window_start, uptime_pct, downtime_pct, total_checks, failed_checks, avg_latency_ms)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           ON CONFLICT (website_id, window_start) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		string(sum.WebsiteID), sum.WindowStart, sum.UptimePct, sum.DowntimePct,
		sum.TotalChecks, sum.FailedChecks, sum.AvgLatencyMS)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (s *Store) RecentSummaries(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.UptimeSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT website_id, window_start, uptime_pct, downtime_pct, total_checks, failed_checks, avg_latency_ms
		   FROM uptime_summaries
		  WHERE website_id = $1
		  ORDER BY window_start DESC
		  LIMIT $2`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []domain.UptimeSummary
	for rows.Next() {
		var sum domain.UptimeSummary
		if err := rows.Scan(&sum.WebsiteID, &sum.WindowStart, &sum.UptimePct, &sum.DowntimePct,
			&sum.TotalChecks, &sum.FailedChecks, &sum.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
