package uptime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo/memory"
)

// instrumented wraps the in-memory store to record operation order and
// inject failures.
type instrumented struct {
	*memory.Store
	mu         sync.Mutex
	ops        []string
	betweenErr map[domain.WebsiteID]error
}

func (s *instrumented) op(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, name)
}

func (s *instrumented) ChecksBetween(ctx context.Context, id domain.WebsiteID, from, to time.Time) ([]domain.CheckResult, error) {
	s.op("between:" + string(id))
	if err := s.betweenErr[id]; err != nil {
		return nil, err
	}
	return s.Store.ChecksBetween(ctx, id, from, to)
}

func (s *instrumented) AppendSummary(ctx context.Context, sum *domain.UptimeSummary) error {
	s.op("summary:" + string(sum.WebsiteID))
	return s.Store.AppendSummary(ctx, sum)
}

func (s *instrumented) DeleteChecksBefore(ctx context.Context, cutoff time.Time) error {
	s.op("prune_checks")
	return s.Store.DeleteChecksBefore(ctx, cutoff)
}

func (s *instrumented) DeletePerformanceBefore(ctx context.Context, cutoff time.Time) error {
	s.op("prune_performance")
	return s.Store.DeletePerformanceBefore(ctx, cutoff)
}

func newAggregator(s *instrumented, now time.Time, prune bool) *Aggregator {
	return &Aggregator{
		Logger:   zap.NewNop(),
		Config:   s,
		Checks:   s,
		Store:    s,
		Window:   15 * time.Minute,
		Interval: time.Hour,
		Prune:    prune,
		Now:      func() time.Time { return now },
	}
}

func seedSite(t *testing.T, s *instrumented, name, url string) domain.Website {
	t.Helper()
	ctx := context.Background()
	p := domain.Project{Name: name}
	if err := s.CreateProject(ctx, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	w := domain.Website{ProjectID: p.ID, URL: url}
	if err := s.AddWebsite(ctx, &w); err != nil {
		t.Fatalf("add website: %v", err)
	}
	return w
}

func seedCheck(t *testing.T, s *instrumented, id domain.WebsiteID, at time.Time, up bool, latency *float64) {
	t.Helper()
	if err := s.AppendCheck(context.Background(), &domain.CheckResult{
		WebsiteID: id,
		CheckedAt: at,
		Up:        up,
		LatencyMS: latency,
	}); err != nil {
		t.Fatalf("append check: %v", err)
	}
}

func f(v float64) *float64 { return &v }

func TestAggregator_WindowPercentages(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	w := seedSite(t, s, "api", "https://api.example.com")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := now.Add(-10 * time.Minute)

	// ok, ok, fail, ok inside the window; one older check stays out.
	seedCheck(t, s, w.ID, in, true, f(100))
	seedCheck(t, s, w.ID, in.Add(time.Minute), true, f(200))
	seedCheck(t, s, w.ID, in.Add(2*time.Minute), false, nil)
	seedCheck(t, s, w.ID, in.Add(3*time.Minute), true, f(300))
	seedCheck(t, s, w.ID, now.Add(-time.Hour), false, nil)

	if err := newAggregator(s, now, false).runOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	sums, err := s.RecentSummaries(context.Background(), w.ID, 10)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("want 1 summary, got %d", len(sums))
	}
	got := sums[0]
	if got.UptimePct != 75 || got.DowntimePct != 25 {
		t.Fatalf("want 75/25, got %.1f/%.1f", got.UptimePct, got.DowntimePct)
	}
	if got.TotalChecks != 4 || got.FailedChecks != 1 {
		t.Fatalf("want 4 checks with 1 failure, got %d/%d", got.TotalChecks, got.FailedChecks)
	}
	if got.AvgLatencyMS == nil || *got.AvgLatencyMS != 200 {
		t.Fatalf("avg latency should skip null samples, got %v", got.AvgLatencyMS)
	}
	if !got.WindowStart.Equal(now.Add(-15 * time.Minute)) {
		t.Fatalf("unexpected window start %v", got.WindowStart)
	}
}

func TestAggregator_IdleSiteSkipped(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	w := seedSite(t, s, "quiet", "https://quiet.example.com")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := newAggregator(s, now, false).runOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	sums, _ := s.RecentSummaries(context.Background(), w.ID, 10)
	if len(sums) != 0 {
		t.Fatalf("idle site should produce no summary, got %d", len(sums))
	}
}

func TestAggregator_RerunSameWindowIsNoOp(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	w := seedSite(t, s, "api", "https://api.example.com")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedCheck(t, s, w.ID, now.Add(-5*time.Minute), true, f(50))

	agg := newAggregator(s, now, false)
	ctx := context.Background()
	if err := agg.runOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := agg.runOnce(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	sums, _ := s.RecentSummaries(ctx, w.ID, 10)
	if len(sums) != 1 {
		t.Fatalf("same window must not duplicate, got %d summaries", len(sums))
	}
}

func TestAggregator_PruneRunsAfterCleanPass(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	w := seedSite(t, s, "api", "https://api.example.com")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedCheck(t, s, w.ID, now.Add(-time.Hour), true, f(10)) // old, prunable
	seedCheck(t, s, w.ID, now.Add(-5*time.Minute), true, f(20))

	if err := newAggregator(s, now, true).runOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Summaries land before any pruning.
	var sawSummary bool
	for _, op := range s.ops {
		if op == "summary:"+string(w.ID) {
			sawSummary = true
		}
		if op == "prune_checks" && !sawSummary {
			t.Fatalf("pruned before summarizing: %v", s.ops)
		}
	}
	if !sawSummary {
		t.Fatalf("no summary recorded: %v", s.ops)
	}

	left, _ := s.RecentChecks(context.Background(), w.ID, 10)
	if len(left) != 1 {
		t.Fatalf("old check should be pruned, got %d rows", len(left))
	}
}

func TestAggregator_ErrorAbortsRunAndSkipsPrune(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	a := seedSite(t, s, "a", "https://a.example.com")
	b := seedSite(t, s, "b", "https://b.example.com")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedCheck(t, s, a.ID, now.Add(-5*time.Minute), true, nil)
	seedCheck(t, s, b.ID, now.Add(-5*time.Minute), true, nil)
	s.betweenErr = map[domain.WebsiteID]error{b.ID: errors.New("db gone")}

	err := newAggregator(s, now, true).runOnce(context.Background())
	if err == nil {
		t.Fatal("want error surfaced from aborted run")
	}

	for _, op := range s.ops {
		if op == "prune_checks" || op == "prune_performance" {
			t.Fatalf("prune must not run after an error: %v", s.ops)
		}
	}

	// Rows for the failed site are untouched and the next clean run
	// still summarizes them.
	s.mu.Lock()
	s.betweenErr = nil
	s.mu.Unlock()
	if err := newAggregator(s, now, true).runOnce(context.Background()); err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	sums, _ := s.RecentSummaries(context.Background(), b.ID, 10)
	if len(sums) != 1 {
		t.Fatalf("want summary for recovered site, got %d", len(sums))
	}
}

func TestAggregator_RunLoopStops(t *testing.T) {
	s := &instrumented{Store: memory.New()}
	agg := newAggregator(s, time.Now().UTC(), false)
	agg.Interval = 5 * time.Millisecond
	agg.Now = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.Run(ctx)
		close(done)
	}()
	time.Sleep(15 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("aggregator did not stop on cancel")
	}
}
