package repo

import (
	"context"
	"time"

	"sitewatch/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter behind these.
//
// Lookup methods return (nil, nil) when the row does not exist; callers
// treat absence as a normal state, not an error.

// ConfigStore reads and mutates the desired monitoring configuration.
// FetchConfig and ListWebsites return rows in a stable order (creation
// time, then id) so identical state always yields an Equal snapshot.
type ConfigStore interface {
	FetchConfig(ctx context.Context) (domain.MonitoringConfig, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListWebsites(ctx context.Context) ([]domain.Website, error)
	GetWebsite(ctx context.Context, id domain.WebsiteID) (*domain.Website, error)
	FindWebsiteByURL(ctx context.Context, url string) (*domain.Website, error)
	GetSetting(ctx context.Context, projectID string) (*domain.Setting, error)

	CreateProject(ctx context.Context, p *domain.Project) error
	AddWebsite(ctx context.Context, w *domain.Website) error
	RemoveWebsite(ctx context.Context, id domain.WebsiteID) error
	PutSetting(ctx context.Context, s *domain.Setting) error
}

// CheckStore persists raw probe outcomes and performance samples.
// Appends are write-once; deletes exist for retention pruning only.
type CheckStore interface {
	AppendCheck(ctx context.Context, c *domain.CheckResult) error
	AppendPerformance(ctx context.Context, m *domain.PerformanceMetric) error
	// ChecksBetween selects checks with from <= checked_at < to, oldest first.
	ChecksBetween(ctx context.Context, id domain.WebsiteID, from, to time.Time) ([]domain.CheckResult, error)
	RecentChecks(ctx context.Context, id domain.WebsiteID, limit int) ([]domain.CheckResult, error)
	DeleteChecksBefore(ctx context.Context, cutoff time.Time) error
	DeletePerformanceBefore(ctx context.Context, cutoff time.Time) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	ConfigStore
	CheckStore
	AlertStore
	UptimeStore
}
