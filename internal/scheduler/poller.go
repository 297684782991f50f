package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

// Reconciler is the slice of the scheduler the poller drives.
type Reconciler interface {
	Reconcile([]domain.MonitorTarget) error
}

// Poller re-reads the monitoring config on an interval and pushes the
// derived target set into the scheduler whenever something changed.
// Comparison is structural, so a fetch that produces an identical
// snapshot never touches the task table.
type Poller struct {
	Logger   *zap.Logger
	Config   repo.ConfigStore
	Targets  Reconciler
	Interval time.Duration

	haveSnap bool
	snap     domain.MonitoringConfig
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("poller_stopped")
			return
		case <-t.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	cfg, err := p.Config.FetchConfig(ctx)
	if err != nil {
		// Keep the last snapshot; scheduled tasks keep running.
		p.Logger.Warn("config_fetch_error", zap.Error(err))
		return
	}
	if p.haveSnap && p.snap.Equal(cfg) {
		p.Logger.Debug("config_unchanged")
		return
	}
	p.snap = cfg
	p.haveSnap = true

	targets := cfg.Targets()
	if err := p.Targets.Reconcile(targets); err != nil {
		p.Logger.Warn("reconcile_partial", zap.Error(err))
	}
	p.Logger.Info("config_applied",
		zap.Int("projects", len(cfg.Projects)),
		zap.Int("targets", len(targets)))
}
