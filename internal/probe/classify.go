package probe

import (
	"context"
	"errors"
	"net"
	"syscall"

	"sitewatch/internal/domain"
)

// Classify maps a transport error to a failure kind. DNS failures win over
// the timeout check because a resolver timeout still names the DNS stage.
func Classify(err error) domain.FailureKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.FailureDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.FailureRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	return domain.FailureNetwork
}
