package uptime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

// Aggregator rolls raw checks up into per-window uptime summaries and,
// when enabled, prunes history older than the window. Summaries are
// keyed by (website, window start), so re-running over the same window
// is a no-op. Pruning only happens after an error-free pass over every
// website: raw rows are never dropped before they have been rolled up.
type Aggregator struct {
	Logger   *zap.Logger
	Config   repo.ConfigStore
	Checks   repo.CheckStore
	Store    repo.UptimeStore
	Window   time.Duration
	Interval time.Duration
	Prune    bool
	Now      func() time.Time
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	t := time.NewTicker(a.Interval)
	defer t.Stop()

	_ = a.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("aggregator_stopped")
			return
		case <-t.C:
			_ = a.runOnce(ctx)
		}
	}
}

func (a *Aggregator) runOnce(ctx context.Context) error {
	now := a.now()
	windowStart := now.Add(-a.Window)

	sites, err := a.Config.ListWebsites(ctx)
	if err != nil {
		a.Logger.Warn("aggregate_list_error", zap.Error(err))
		return err
	}

	for _, w := range sites {
		if err := a.summarize(ctx, w, windowStart, now); err != nil {
			a.Logger.Warn("aggregate_abort",
				zap.String("website_id", string(w.ID)),
				zap.Error(err))
			return err
		}
	}

	if a.Prune {
		if err := a.Checks.DeleteChecksBefore(ctx, windowStart); err != nil {
			a.Logger.Warn("prune_checks_error", zap.Error(err))
			return err
		}
		if err := a.Checks.DeletePerformanceBefore(ctx, windowStart); err != nil {
			a.Logger.Warn("prune_performance_error", zap.Error(err))
			return err
		}
		a.Logger.Info("history_pruned", zap.Time("cutoff", windowStart))
	}
	return nil
}

func (a *Aggregator) summarize(ctx context.Context, w domain.Website, from, to time.Time) error {
	checks, err := a.Checks.ChecksBetween(ctx, w.ID, from, to)
	if err != nil {
		return fmt.Errorf("load checks for %s: %w", w.URL, err)
	}
	if len(checks) == 0 {
		// Nothing measured this window; skip rather than record 0%.
		return nil
	}

	var up, latN int
	var latSum float64
	for _, c := range checks {
		if c.Up {
			up++
		}
		if c.LatencyMS != nil {
			latSum += *c.LatencyMS
			latN++
		}
	}

	total := len(checks)
	pct := float64(up) / float64(total) * 100

	sum := &domain.UptimeSummary{
		WebsiteID:    w.ID,
		WindowStart:  from,
		UptimePct:    pct,
		DowntimePct:  100 - pct,
		TotalChecks:  total,
		FailedChecks: total - up,
	}
	if latN > 0 {
		avg := latSum / float64(latN)
		sum.AvgLatencyMS = &avg
	}

	if err := a.Store.AppendSummary(ctx, sum); err != nil {
		return fmt.Errorf("store summary for %s: %w", w.URL, err)
	}
	a.Logger.Debug("uptime_summarized",
		zap.String("website_id", string(w.ID)),
		zap.Float64("uptime_pct", pct),
		zap.Int("checks", total))
	return nil
}
