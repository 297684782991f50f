package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
)

// Recorder persists one probe outcome as a check row plus a
// performance sample, both stamped with the same time.
type Recorder struct {
	Logger *zap.Logger
	Checks repo.CheckStore
	Now    func() time.Time
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Recorder) Record(ctx context.Context, id domain.WebsiteID, out probe.Outcome) {
	cr, pm := out.Records(id, r.now())

	if err := r.Checks.AppendCheck(ctx, cr); err != nil {
		r.Logger.Warn("record_check_error",
			zap.String("website_id", string(id)),
			zap.Error(err))
	}
	if err := r.Checks.AppendPerformance(ctx, pm); err != nil {
		r.Logger.Warn("record_performance_error",
			zap.String("website_id", string(id)),
			zap.Error(err))
	}

	r.Logger.Debug("check_recorded",
		zap.String("website_id", string(id)),
		zap.Bool("up", out.Success),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.LatencyMS))
}
