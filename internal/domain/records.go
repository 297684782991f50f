package domain

import "time"

// FailureKind classifies an unsuccessful probe.
type FailureKind string

const (
	FailureHTTP    FailureKind = "http_error"
	FailureTimeout FailureKind = "timeout"
	FailureDNS     FailureKind = "dns_error"
	FailureRefused FailureKind = "connection_refused"
	FailureNetwork FailureKind = "network_error"
)

// CheckResult is one probe outcome. Append-only; pointer fields are nil
// when the probe produced no response (no status, no body) or no usable
// latency.
type CheckResult struct {
	ID         string       `json:"id"`
	WebsiteID  WebsiteID    `json:"website_id"`
	CheckedAt  time.Time    `json:"checked_at"`
	Up         bool         `json:"up"`
	StatusCode *int         `json:"status_code"`
	LatencyMS  *float64     `json:"latency_ms"`
	Failure    *FailureKind `json:"failure"`
	SizeBytes  *int64       `json:"size_bytes"`
}

// PerformanceMetric mirrors the timing/size sample of a check. Written
// alongside every CheckResult, success or failure.
type PerformanceMetric struct {
	ID         string    `json:"id"`
	WebsiteID  WebsiteID `json:"website_id"`
	RecordedAt time.Time `json:"recorded_at"`
	LatencyMS  *float64  `json:"latency_ms"`
	StatusCode *int      `json:"status_code"`
	SizeBytes  *int64    `json:"size_bytes"`
}

// AlertRecord tracks one down episode. ResolvedAt nil means the alert is
// open; at most one open alert exists per website.
type AlertRecord struct {
	ID         string     `json:"id"`
	WebsiteID  WebsiteID  `json:"website_id"`
	Message    string     `json:"message"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// Open reports whether the alert has not been resolved yet.
func (a AlertRecord) Open() bool { return a.ResolvedAt == nil }

// UptimeSummary is one aggregation window for one website. Computed once,
// never mutated; only retention may delete it.
type UptimeSummary struct {
	WebsiteID    WebsiteID `json:"website_id"`
	WindowStart  time.Time `json:"window_start"`
	UptimePct    float64   `json:"uptime_pct"`
	DowntimePct  float64   `json:"downtime_pct"`
	TotalChecks  int       `json:"total_checks"`
	FailedChecks int       `json:"failed_checks"`
	AvgLatencyMS *float64  `json:"avg_latency_ms"`
}
