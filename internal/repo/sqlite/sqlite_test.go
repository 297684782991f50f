package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sitewatch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitewatch_test.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addSite(t *testing.T, s *Store, projectName, url string) domain.Website {
	t.Helper()
	ctx := context.Background()
	p := domain.Project{Name: projectName}
	if err := s.CreateProject(ctx, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	w := domain.Website{ProjectID: p.ID, URL: url}
	if err := s.AddWebsite(ctx, &w); err != nil {
		t.Fatalf("add website: %v", err)
	}
	return w
}

func TestStore_ConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := domain.Project{Name: "blog"}
	if err := s.CreateProject(ctx, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected store to assign project id")
	}
	w := domain.Website{ProjectID: p.ID, URL: "https://blog.example.com"}
	if err := s.AddWebsite(ctx, &w); err != nil {
		t.Fatalf("add website: %v", err)
	}
	enabled := true
	if err := s.PutSetting(ctx, &domain.Setting{
		ProjectID:       p.ID,
		Enabled:         &enabled,
		IntervalSeconds: 60,
		NotifyMode:      domain.NotifySlack,
		Recipient:       "https://hooks.slack.example/T123",
	}); err != nil {
		t.Fatalf("put setting: %v", err)
	}

	cfg, err := s.FetchConfig(ctx)
	if err != nil {
		t.Fatalf("fetch config: %v", err)
	}
	if len(cfg.Projects) != 1 {
		t.Fatalf("want 1 project, got %d", len(cfg.Projects))
	}
	pc := cfg.Projects[0]
	if pc.Setting == nil || pc.Setting.Enabled == nil || !*pc.Setting.Enabled {
		t.Fatalf("setting not round-tripped: %+v", pc.Setting)
	}
	if pc.IntervalSeconds() != 60 {
		t.Fatalf("want interval 60, got %d", pc.IntervalSeconds())
	}
	if len(pc.Websites) != 1 || pc.Websites[0].URL != "https://blog.example.com" {
		t.Fatalf("websites not round-tripped: %+v", pc.Websites)
	}

	again, err := s.FetchConfig(ctx)
	if err != nil {
		t.Fatalf("refetch config: %v", err)
	}
	if !cfg.Equal(again) {
		t.Fatal("two fetches of unchanged config should be equal")
	}
}

func TestStore_SettingUpsertAndTristate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := domain.Project{Name: "shop"}
	if err := s.CreateProject(ctx, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Flag left unset stores as NULL and reads back as nil.
	if err := s.PutSetting(ctx, &domain.Setting{ProjectID: p.ID, IntervalSeconds: 300}); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	st, err := s.GetSetting(ctx, p.ID)
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if st == nil || st.Enabled != nil {
		t.Fatalf("want stored setting with nil flag, got %+v", st)
	}
	if !st.MonitoringOn() {
		t.Fatal("nil flag should mean monitoring on")
	}

	off := false
	if err := s.PutSetting(ctx, &domain.Setting{ProjectID: p.ID, Enabled: &off, IntervalSeconds: 30}); err != nil {
		t.Fatalf("upsert setting: %v", err)
	}
	st, err = s.GetSetting(ctx, p.ID)
	if err != nil {
		t.Fatalf("get setting after upsert: %v", err)
	}
	if st == nil || st.Enabled == nil || *st.Enabled {
		t.Fatalf("want disabled setting, got %+v", st)
	}
	if st.IntervalSeconds != 30 {
		t.Fatalf("want interval 30 after upsert, got %d", st.IntervalSeconds)
	}
}

func TestStore_LookupAbsence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if w, err := s.GetWebsite(ctx, "nope"); err != nil || w != nil {
		t.Fatalf("want nil, nil for missing website, got %v, %v", w, err)
	}
	if w, err := s.FindWebsiteByURL(ctx, "https://nope.example.com"); err != nil || w != nil {
		t.Fatalf("want nil, nil for unknown url, got %v, %v", w, err)
	}
	if st, err := s.GetSetting(ctx, "nope"); err != nil || st != nil {
		t.Fatalf("want nil, nil for missing setting, got %v, %v", st, err)
	}
	if a, err := s.OpenAlert(ctx, "nope"); err != nil || a != nil {
		t.Fatalf("want nil, nil for missing alert, got %v, %v", a, err)
	}
}

func TestStore_ChecksWindowAndRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	w := addSite(t, s, "api", "https://api.example.com")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		code := 200
		if err := s.AppendCheck(ctx, &domain.CheckResult{
			WebsiteID:  w.ID,
			CheckedAt:  base.Add(time.Duration(i) * time.Minute),
			Up:         true,
			StatusCode: &code,
		}); err != nil {
			t.Fatalf("append check %d: %v", i, err)
		}
	}

	got, err := s.ChecksBetween(ctx, w.ID, base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("checks between: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 checks in window, got %d", len(got))
	}
	if !got[0].CheckedAt.Before(got[1].CheckedAt) {
		t.Fatal("window results should be oldest first")
	}

	if err := s.DeleteChecksBefore(ctx, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("delete checks: %v", err)
	}
	left, err := s.RecentChecks(ctx, w.ID, 10)
	if err != nil {
		t.Fatalf("recent checks: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("want 2 checks after prune, got %d", len(left))
	}
	if !left[0].CheckedAt.After(left[1].CheckedAt) {
		t.Fatal("recent checks should be newest first")
	}
}

func TestStore_AlertLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	w := addSite(t, s, "docs", "https://docs.example.com")

	if err := s.CreateAlert(ctx, &domain.AlertRecord{
		WebsiteID: w.ID,
		Message:   "HTTP 503",
		RaisedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	open, err := s.OpenAlert(ctx, w.ID)
	if err != nil {
		t.Fatalf("open alert: %v", err)
	}
	if open == nil || open.Message != "HTTP 503" {
		t.Fatalf("want open alert, got %+v", open)
	}
	if n, _ := s.OpenAlertCount(ctx); n != 1 {
		t.Fatalf("want 1 open alert, got %d", n)
	}

	if err := s.ResolveAlert(ctx, open.ID, time.Now().UTC()); err != nil {
		t.Fatalf("resolve alert: %v", err)
	}
	if a, _ := s.OpenAlert(ctx, w.ID); a != nil {
		t.Fatalf("alert should be closed, got %+v", a)
	}
	if n, _ := s.OpenAlertCount(ctx); n != 0 {
		t.Fatalf("want 0 open alerts, got %d", n)
	}

	recent, err := s.RecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("recent alerts: %v", err)
	}
	if len(recent) != 1 || recent[0].ResolvedAt == nil {
		t.Fatalf("want one resolved alert in history, got %+v", recent)
	}
}

func TestStore_SummaryKeyedInsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	w := addSite(t, s, "cdn", "https://cdn.example.com")

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := domain.UptimeSummary{
		WebsiteID: w.ID, WindowStart: start,
		UptimePct: 75, DowntimePct: 25, TotalChecks: 4, FailedChecks: 1,
	}
	if err := s.AppendSummary(ctx, &first); err != nil {
		t.Fatalf("append summary: %v", err)
	}
	dup := first
	dup.UptimePct = 100
	dup.DowntimePct = 0
	if err := s.AppendSummary(ctx, &dup); err != nil {
		t.Fatalf("append duplicate summary: %v", err)
	}

	got, err := s.RecentSummaries(ctx, w.ID, 10)
	if err != nil {
		t.Fatalf("recent summaries: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 summary for the window, got %d", len(got))
	}
	if got[0].UptimePct != 75 {
		t.Fatalf("duplicate insert should keep original, got uptime %.1f", got[0].UptimePct)
	}
	if got[0].AvgLatencyMS != nil {
		t.Fatalf("want nil avg latency, got %v", *got[0].AvgLatencyMS)
	}
}

func TestStore_RemoveWebsiteDropsHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	w := addSite(t, s, "status", "https://status.example.com")

	if err := s.AppendCheck(ctx, &domain.CheckResult{WebsiteID: w.ID, Up: false}); err != nil {
		t.Fatalf("append check: %v", err)
	}
	if err := s.CreateAlert(ctx, &domain.AlertRecord{WebsiteID: w.ID, Message: "down"}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if err := s.RemoveWebsite(ctx, w.ID); err != nil {
		t.Fatalf("remove website: %v", err)
	}

	checks, err := s.RecentChecks(ctx, w.ID, 10)
	if err != nil {
		t.Fatalf("recent checks: %v", err)
	}
	if len(checks) != 0 {
		t.Fatalf("want no checks after cascade, got %d", len(checks))
	}
	if n, _ := s.OpenAlertCount(ctx); n != 0 {
		t.Fatalf("want no open alerts after cascade, got %d", n)
	}
	if got, _ := s.GetWebsite(ctx, w.ID); got != nil {
		t.Fatalf("website should be gone, got %+v", got)
	}
}
