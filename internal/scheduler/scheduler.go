package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
)

// TickRunner executes one probe cycle for a scheduled target.
type TickRunner interface {
	RunTick(t domain.MonitorTarget)
}

type task struct {
	target domain.MonitorTarget
	entry  cron.EntryID
	spec   string
}

// Scheduler keeps a cron entry per monitored website and reconciles
// that table against the desired target set. Reconcile is diff-based:
// a target whose key is already scheduled keeps its entry, so its
// cadence phase is never reset by an unrelated config change.
type Scheduler struct {
	log    *zap.Logger
	cron   *cron.Cron
	runner TickRunner

	mu    sync.Mutex
	tasks map[domain.TargetKey]task
	size  atomic.Int64
}

func New(log *zap.Logger, runner TickRunner) *Scheduler {
	return &Scheduler{
		log:    log,
		cron:   cron.New(),
		runner: runner,
		tasks:  make(map[domain.TargetKey]task),
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for any in-flight ticks to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Reconcile brings the task table in line with targets. Targets that
// cannot be scheduled are skipped and reported together; the rest of
// the set is still applied.
func (s *Scheduler) Reconcile(targets []domain.MonitorTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[domain.TargetKey]domain.MonitorTarget, len(targets))
	for _, t := range targets {
		desired[t.Key()] = t
	}

	var errs error
	for key, tgt := range desired {
		if _, ok := s.tasks[key]; ok {
			continue
		}
		spec, err := cadenceFor(tgt.IntervalSeconds)
		if err != nil {
			s.log.Warn("task_skipped",
				zap.String("url", tgt.URL),
				zap.Int("interval_seconds", tgt.IntervalSeconds),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("schedule %s: %w", tgt.URL, err))
			continue
		}
		t := tgt // avoid loop var capture
		id, err := s.cron.AddFunc(spec, func() { s.runner.RunTick(t) })
		if err != nil {
			s.log.Warn("task_skipped", zap.String("url", tgt.URL), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("schedule %s: %w", tgt.URL, err))
			continue
		}
		s.tasks[key] = task{target: tgt, entry: id, spec: spec}
		s.log.Info("task_added",
			zap.String("website_id", string(tgt.WebsiteID)),
			zap.String("url", tgt.URL),
			zap.String("cadence", spec))
	}

	for key, tk := range s.tasks {
		if _, ok := desired[key]; ok {
			continue
		}
		s.cron.Remove(tk.entry)
		delete(s.tasks, key)
		s.log.Info("task_removed",
			zap.String("website_id", string(tk.target.WebsiteID)),
			zap.String("url", tk.target.URL))
	}

	s.size.Store(int64(len(s.tasks)))
	return errs
}

// TaskCount reports the live task table size without taking the lock,
// so status handlers never contend with a reconcile in progress.
func (s *Scheduler) TaskCount() int { return int(s.size.Load()) }
