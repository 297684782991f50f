package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"sitewatch/internal/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{
			name: "dns",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}},
			want: domain.FailureDNS,
		},
		{
			name: "dns timeout stays dns",
			err:  &net.DNSError{Err: "i/o timeout", Name: "x", IsTimeout: true},
			want: domain.FailureDNS,
		},
		{
			name: "refused",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}},
			want: domain.FailureRefused,
		},
		{
			name: "timeout",
			err:  &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}},
			want: domain.FailureTimeout,
		},
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: domain.FailureTimeout,
		},
		{
			name: "generic",
			err:  errors.New("connection reset by peer"),
			want: domain.FailureNetwork,
		},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("%s: Classify(%v)=%q want %q", c.name, c.err, got, c.want)
		}
	}
}

func TestExtractHost(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://example.com/path", "example.com"},
		{"http://example.com:8080", "example.com"},
		{"example.com", "example.com"},
	}
	for _, c := range cases {
		if got := ExtractHost(c.in); got != c.want {
			t.Fatalf("ExtractHost(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestDiagnose_InvalidHost(t *testing.T) {
	if d := Diagnose(""); d.Class != DNSInvalidHost {
		t.Fatalf("empty host: want %q, got %q", DNSInvalidHost, d.Class)
	}
	if d := Diagnose("https://example.com"); d.Class != DNSInvalidHost {
		t.Fatalf("URL instead of host: want %q, got %q", DNSInvalidHost, d.Class)
	}
}
