package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS diagnosis classes reported by Diagnose.
const (
	DNSResolves     = "resolves"
	DNSNXDomain     = "nxdomain"
	DNSNoAddress    = "no_address"
	DNSLookupFailed = "lookup_failed"
	DNSInvalidHost  = "invalid_host"
)

// Diagnosis explains why a hostname does or does not resolve. Used for
// operator feedback when a freshly registered website fails its first
// check.
type Diagnosis struct {
	Host        string
	Class       string
	IPs         []net.IP
	CNAME       string
	Nameservers []string
	Err         string
}

var dnsTimeout = 3 * time.Second

// Diagnose resolves host with the OS resolver and classifies the result.
func Diagnose(host string) Diagnosis {
	d := Diagnosis{Host: strings.TrimSpace(host)}
	if d.Host == "" || strings.Contains(d.Host, "://") {
		d.Class = DNSInvalidHost
		return d
	}

	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()
	r := &net.Resolver{}

	ips, err := r.LookupIP(ctx, "ip", d.Host)
	if err == nil && len(ips) > 0 {
		d.IPs = ips
		d.Class = DNSResolves
	} else if err != nil {
		d.Err = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) && de.IsNotFound {
			d.Class = DNSNXDomain
		} else {
			d.Class = DNSLookupFailed
		}
	}

	if cname, err := r.LookupCNAME(ctx, d.Host); err == nil && !strings.EqualFold(cname, d.Host+".") {
		d.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, d.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			d.Nameservers = append(d.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		// A zone that answers NS but no A/AAAA exists, it just lacks an
		// address record.
		if d.Class == DNSNXDomain {
			d.Class = DNSNoAddress
		}
	}

	return d
}

// ExtractHost pulls the hostname out of a URL string, falling back to the
// raw input when it does not parse.
func ExtractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
