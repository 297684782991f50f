package scheduler

import (
	"context"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
)

// Runner is the per-tick pipeline: re-validate the target against live
// config, probe it, persist the result, and feed the alerter. A tick
// that is already in flight is never cancelled by a config change; the
// guards below make a stale tick a cheap no-op instead.
type Runner struct {
	Logger   *zap.Logger
	Config   repo.ConfigStore
	Checker  probe.Checker
	Recorder *Recorder
	Alerter  *Alerter
}

func (r *Runner) RunTick(t domain.MonitorTarget) {
	ctx := context.Background()

	w, err := r.Config.GetWebsite(ctx, t.WebsiteID)
	if err != nil {
		r.Logger.Warn("tick_config_error", zap.String("url", t.URL), zap.Error(err))
		return
	}
	if w == nil {
		// Removed since this entry was scheduled.
		r.Logger.Debug("tick_website_gone", zap.String("url", t.URL))
		return
	}
	setting, err := r.Config.GetSetting(ctx, w.ProjectID)
	if err != nil {
		r.Logger.Warn("tick_config_error", zap.String("url", t.URL), zap.Error(err))
		return
	}
	if !setting.MonitoringOn() {
		r.Logger.Debug("tick_monitoring_off", zap.String("url", t.URL))
		return
	}

	out := r.Checker.Check(ctx, t.URL)
	r.Recorder.Record(ctx, t.WebsiteID, out)
	r.Alerter.Observe(ctx, t, out)
}
