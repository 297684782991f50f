package repo

import (
	"context"
	"time"

	"sitewatch/internal/domain"
)

// AlertStore tracks down episodes. The one-open-alert-per-website rule is
// maintained by the alerting flow; OpenAlert is the fresh-state query it
// relies on.
type AlertStore interface {
	// OpenAlert returns nil, nil when the website has no open alert.
	OpenAlert(ctx context.Context, id domain.WebsiteID) (*domain.AlertRecord, error)
	CreateAlert(ctx context.Context, a *domain.AlertRecord) error
	ResolveAlert(ctx context.Context, alertID string, at time.Time) error
	OpenAlertCount(ctx context.Context) (int, error)
	RecentAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error)
}

// UptimeStore persists aggregation windows. AppendSummary is a no-op when
// a summary for the same (website, window start) already exists.
type UptimeStore interface {
	AppendSummary(ctx context.Context, s *domain.UptimeSummary) error
	RecentSummaries(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.UptimeSummary, error)
}
