package probe

import (
	"context"
	"time"

	"sitewatch/internal/domain"
)

// Outcome is the unified result of a single probe.
//
// StatusCode is 0 when no response arrived (transport/DNS failure); in
// that case SizeBytes is meaningless and Failure says what went wrong.
// LatencyMS covers request start to response or point of failure.
type Outcome struct {
	Success    bool
	StatusCode int
	LatencyMS  float64
	SizeBytes  int64
	Failure    domain.FailureKind
	Message    string
}

// Checker performs a single reachability check for a target URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}

// Records converts the outcome into its storage rows, both stamped at.
// Fields that were never measured stay nil: status and size require a
// response, latency a measured attempt.
func (o Outcome) Records(id domain.WebsiteID, at time.Time) (*domain.CheckResult, *domain.PerformanceMetric) {
	cr := &domain.CheckResult{
		WebsiteID: id,
		CheckedAt: at,
		Up:        o.Success,
	}
	if o.StatusCode > 0 {
		code := o.StatusCode
		cr.StatusCode = &code
		size := o.SizeBytes
		cr.SizeBytes = &size
	}
	if o.LatencyMS > 0 {
		lat := o.LatencyMS
		cr.LatencyMS = &lat
	}
	if o.Failure != "" {
		kind := o.Failure
		cr.Failure = &kind
	}
	pm := &domain.PerformanceMetric{
		WebsiteID:  id,
		RecordedAt: at,
		LatencyMS:  cr.LatencyMS,
		StatusCode: cr.StatusCode,
		SizeBytes:  cr.SizeBytes,
	}
	return cr, pm
}
