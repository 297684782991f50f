package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
)

type memReconciler struct {
	mu    sync.Mutex
	calls int
	last  []domain.MonitorTarget
}

func (m *memReconciler) Reconcile(targets []domain.MonitorTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = targets
	return nil
}

func snapshotWith(urls ...string) domain.MonitoringConfig {
	p := domain.ProjectConfig{
		Project: domain.Project{ID: "p1", Name: "demo", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i, u := range urls {
		p.Websites = append(p.Websites, domain.Website{
			ID:        domain.WebsiteID(string(rune('A' + i))),
			ProjectID: "p1",
			URL:       u,
		})
	}
	return domain.MonitoringConfig{Projects: []domain.ProjectConfig{p}}
}

func TestPoller_AppliesFirstSnapshotAndSkipsUnchanged(t *testing.T) {
	cfg := &memConfig{cfg: snapshotWith("https://a.example.com")}
	rec := &memReconciler{}
	p := &Poller{Logger: zap.NewNop(), Config: cfg, Targets: rec, Interval: time.Hour}

	ctx := context.Background()
	p.pollOnce(ctx)
	if rec.calls != 1 {
		t.Fatalf("first fetch must reconcile, got %d calls", rec.calls)
	}
	if len(rec.last) != 1 {
		t.Fatalf("want 1 target, got %d", len(rec.last))
	}

	// Identical snapshot: nothing to do.
	p.pollOnce(ctx)
	if rec.calls != 1 {
		t.Fatalf("unchanged config must not reconcile, got %d calls", rec.calls)
	}
}

func TestPoller_ChangeTriggersReconcile(t *testing.T) {
	cfg := &memConfig{cfg: snapshotWith("https://a.example.com")}
	rec := &memReconciler{}
	p := &Poller{Logger: zap.NewNop(), Config: cfg, Targets: rec, Interval: time.Hour}

	ctx := context.Background()
	p.pollOnce(ctx)

	cfg.mu.Lock()
	cfg.cfg = snapshotWith("https://a.example.com", "https://b.example.com")
	cfg.mu.Unlock()

	p.pollOnce(ctx)
	if rec.calls != 2 {
		t.Fatalf("changed config must reconcile, got %d calls", rec.calls)
	}
	if len(rec.last) != 2 {
		t.Fatalf("want 2 targets after change, got %d", len(rec.last))
	}
}

func TestPoller_FetchErrorKeepsSnapshot(t *testing.T) {
	cfg := &memConfig{cfg: snapshotWith("https://a.example.com")}
	rec := &memReconciler{}
	p := &Poller{Logger: zap.NewNop(), Config: cfg, Targets: rec, Interval: time.Hour}

	ctx := context.Background()
	p.pollOnce(ctx)
	if rec.calls != 1 {
		t.Fatalf("want 1 call, got %d", rec.calls)
	}

	cfg.mu.Lock()
	cfg.fetchErr = errors.New("db down")
	cfg.mu.Unlock()
	p.pollOnce(ctx)
	if rec.calls != 1 {
		t.Fatalf("fetch error must not reconcile, got %d calls", rec.calls)
	}

	// Store recovers with the same config: the retained snapshot still
	// matches, so the task table is left alone.
	cfg.mu.Lock()
	cfg.fetchErr = nil
	cfg.mu.Unlock()
	p.pollOnce(ctx)
	if rec.calls != 1 {
		t.Fatalf("recovered identical config must not reconcile, got %d calls", rec.calls)
	}
}

func TestPoller_RunLoopStops(t *testing.T) {
	cfg := &memConfig{cfg: snapshotWith("https://a.example.com")}
	rec := &memReconciler{}
	p := &Poller{Logger: zap.NewNop(), Config: cfg, Targets: rec, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}

	rec.mu.Lock()
	calls := rec.calls
	rec.mu.Unlock()
	if calls < 1 {
		t.Fatalf("want at least the immediate pass, got %d", calls)
	}
}
