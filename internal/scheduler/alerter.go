package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/notify"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
)

// Alerter turns probe outcomes into alert records. One alert stays
// open for the whole of an outage: repeated failures while an alert is
// open do nothing, and the first success resolves it. Only the opening
// failure sends a notification.
//
// The open alert is read from the store on every observation rather
// than cached, so an alert resolved by hand still triggers a fresh one
// if the site is down again.
type Alerter struct {
	Logger *zap.Logger
	Alerts repo.AlertStore
	Config repo.ConfigStore
	Routes map[string]notify.Notifier
	Now    func() time.Time
}

func (a *Alerter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *Alerter) Observe(ctx context.Context, t domain.MonitorTarget, out probe.Outcome) {
	open, err := a.Alerts.OpenAlert(ctx, t.WebsiteID)
	if err != nil {
		a.Logger.Warn("alert_lookup_error", zap.String("url", t.URL), zap.Error(err))
		return
	}

	if out.Success {
		if open == nil {
			return
		}
		if err := a.Alerts.ResolveAlert(ctx, open.ID, a.now()); err != nil {
			a.Logger.Warn("alert_resolve_error", zap.String("url", t.URL), zap.Error(err))
			return
		}
		a.Logger.Info("alert_resolved",
			zap.String("website_id", string(t.WebsiteID)),
			zap.String("url", t.URL),
			zap.String("alert_id", open.ID))
		return
	}

	if open != nil {
		// Still the same outage.
		return
	}

	alert := &domain.AlertRecord{
		ID:        uuid.NewString(),
		WebsiteID: t.WebsiteID,
		Message:   alertMessage(t.URL, out, a.now()),
		RaisedAt:  a.now(),
	}
	if err := a.Alerts.CreateAlert(ctx, alert); err != nil {
		a.Logger.Warn("alert_create_error", zap.String("url", t.URL), zap.Error(err))
		return
	}
	a.Logger.Info("alert_raised",
		zap.String("website_id", string(t.WebsiteID)),
		zap.String("url", t.URL),
		zap.String("alert_id", alert.ID))

	a.dispatch(ctx, t, alert.Message)
}

// dispatch sends the opening notification, best effort. Routing is
// re-read from the project's live setting so channel changes apply
// without a restart.
func (a *Alerter) dispatch(ctx context.Context, t domain.MonitorTarget, text string) {
	setting, err := a.Config.GetSetting(ctx, t.ProjectID)
	if err != nil {
		a.Logger.Warn("notify_setting_error", zap.String("url", t.URL), zap.Error(err))
		return
	}
	var mode, recipient string
	if setting != nil {
		mode = setting.NotifyMode
		recipient = setting.Recipient
	}
	if mode == "" {
		return
	}
	n, ok := a.Routes[mode]
	if !ok || n == nil {
		a.Logger.Warn("notify_route_missing", zap.String("mode", mode))
		return
	}
	if err := n.Send(ctx, recipient, "🔴 Website DOWN", text); err != nil {
		a.Logger.Warn("notify_error",
			zap.String("url", t.URL),
			zap.String("mode", mode),
			zap.Error(err))
	}
}

func alertMessage(url string, out probe.Outcome, at time.Time) string {
	httpTxt := "n/a"
	if out.StatusCode > 0 {
		httpTxt = fmt.Sprintf("%d", out.StatusCode)
	}
	latencyTxt := "n/a"
	if out.LatencyMS > 0 {
		latencyTxt = fmt.Sprintf("%.0f ms", out.LatencyMS)
	}
	reason := out.Message
	if reason == "" {
		reason = string(out.Failure)
	}
	return fmt.Sprintf(
		"URL: %s\nHTTP: %s\nLatency: %s\nReason: %s\nChecked: %s",
		url, httpTxt, latencyTxt, reason, at.Format(time.RFC3339),
	)
}
