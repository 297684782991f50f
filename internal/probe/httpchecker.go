package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"sitewatch/internal/domain"
)

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// Check issues one GET against target. Non-2xx responses are classified,
// not treated as transport errors.
func (h *HTTPChecker) Check(ctx context.Context, target string) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Failure: domain.FailureNetwork, Message: err.Error()}
	}

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return Outcome{
			LatencyMS: latency,
			Failure:   Classify(err),
			Message:   err.Error(),
		}
	}
	defer resp.Body.Close()

	// Drain the body for the payload size; latency is already fixed at
	// the response point.
	size, _ := io.Copy(io.Discard, resp.Body)

	out := Outcome{
		StatusCode: resp.StatusCode,
		LatencyMS:  latency,
		SizeBytes:  size,
		Message:    resp.Status,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out.Success = true
	} else {
		out.Failure = domain.FailureHTTP
	}
	return out
}
