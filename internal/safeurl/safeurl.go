// Package safeurl guards the import pipeline against server-side request
// forgery. A URL is only fetchable when its scheme is HTTP(S), its hostname is
// not a known metadata/localhost alias, and every address it resolves to (both
// families) is public. The fetcher re-runs this check after every redirect
// hop, since an attacker-controlled redirect can retarget a request at an
// internal address after the initial hostname passed.
package safeurl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Hostnames that are never fetchable regardless of what they resolve to.
var blockedHosts = map[string]bool{
	"localhost":                true,
	"metadata":                 true,
	"metadata.google.internal": true,
	"metadata.azure.com":       true,
	"169.254.169.254":          true,
}

// LookupFunc resolves a hostname to its IP addresses. It matches the
// signature of net.Resolver.LookupIPAddr so tests can substitute a fake.
type LookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// Validator classifies URLs as fetchable or unsafe.
type Validator struct {
	lookup  LookupFunc
	timeout time.Duration
}

// NewValidator creates a Validator backed by the default DNS resolver.
func NewValidator() *Validator {
	return &Validator{
		lookup:  net.DefaultResolver.LookupIPAddr,
		timeout: 5 * time.Second,
	}
}

// NewValidatorWithLookup creates a Validator with a custom resolver, used in
// tests to simulate DNS rebinding.
func NewValidatorWithLookup(lookup LookupFunc) *Validator {
	return &Validator{lookup: lookup, timeout: 5 * time.Second}
}

// Validate reports whether rawURL is safe to fetch. When unsafe, the second
// return value explains why.
func (v *Validator) Validate(ctx context.Context, rawURL string) (bool, string) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, "invalid URL format"
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, fmt.Sprintf("scheme %q not allowed (only HTTP/HTTPS)", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return false, "no hostname in URL"
	}

	if blockedHosts[strings.ToLower(hostname)] {
		return false, fmt.Sprintf("domain %q is blocked", hostname)
	}

	// A literal IP skips DNS but still has to be public.
	if ip := net.ParseIP(hostname); ip != nil {
		if IsPrivateIP(ip) {
			return false, fmt.Sprintf("resolves to private IP: %s", ip)
		}
		return true, "OK"
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.lookup(lookupCtx, hostname)
	if err != nil {
		return false, fmt.Sprintf("could not resolve hostname %q", hostname)
	}
	if len(addrs) == 0 {
		return false, fmt.Sprintf("hostname %q resolved to no addresses", hostname)
	}

	for _, addr := range addrs {
		if IsPrivateIP(addr.IP) {
			return false, fmt.Sprintf("resolves to private IP: %s", addr.IP)
		}
	}

	return true, "OK"
}

// IsPrivateIP reports whether ip sits inside a private, loopback, or
// link-local range (RFC 1918, RFC 3927, RFC 4193, loopback, IPv6 link-local).
// A malformed address counts as private: fail closed.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
