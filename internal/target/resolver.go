// Package target normalizes caller-supplied targets (bare domains or full
// URLs) into the canonical scope used for referring-domain lookups.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// ErrInvalidTarget is returned when the input is empty or cannot be parsed
// as a URL after prefixing a default scheme.
var ErrInvalidTarget = errors.New("invalid target")

// Mode selects whether a metric query covers the whole site or one page.
type Mode string

const (
	// ModeSubdomains covers the host and everything under it.
	ModeSubdomains Mode = "subdomains"
	// ModeExact covers a single page.
	ModeExact Mode = "exact"
)

// Scope is the immutable result of resolving a raw target string.
//
// Mode is ModeSubdomains exactly when IsHomepage is true, and
// CanonicalTarget is never empty.
type Scope struct {
	// InputRaw is the caller-supplied string, unmodified, kept for echo.
	InputRaw string `json:"input"`
	// Hostname is the lowercase host with any leading "www." removed.
	Hostname string `json:"hostname"`
	// IsHomepage is true when the path component is empty or only slashes.
	IsHomepage bool `json:"is_homepage"`
	// CanonicalTarget is the string used for the metric lookup: the bare
	// hostname for homepages, otherwise the full normalized URL.
	CanonicalTarget string `json:"canonical_target"`
	Mode            Mode   `json:"mode"`
}

// Resolve normalizes a raw target string into a Scope.
//
// Inputs without a scheme get "https://" prefixed before parsing. A homepage
// (empty or slash-only path) resolves to the bare hostname with subdomain
// scope; anything else resolves to scheme://host+path+query with the
// fragment dropped and trailing slashes removed. Resolve is deterministic
// and idempotent over its own canonical output.
func Resolve(input string) (Scope, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Scope{}, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	raw := trimmed
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Scope{}, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, input, err)
	}

	hostname := strings.ToLower(u.Hostname())
	hostname = strings.TrimPrefix(hostname, "www.")
	if hostname == "" || !strings.Contains(hostname, ".") {
		return Scope{}, fmt.Errorf("%w: %q has no usable hostname", ErrInvalidTarget, input)
	}

	// Strip every trailing slash so "/docs//" and "/docs" canonicalize
	// identically; a path of only slashes is a homepage.
	path := strings.TrimRight(u.EscapedPath(), "/")

	scope := Scope{
		InputRaw:   input,
		Hostname:   hostname,
		IsHomepage: path == "",
	}

	if scope.IsHomepage {
		scope.CanonicalTarget = hostname
		scope.Mode = ModeSubdomains
		return scope, nil
	}

	canonical := u.Scheme + "://" + hostname + path
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}
	scope.CanonicalTarget = canonical
	scope.Mode = ModeExact
	return scope, nil
}

// RegistrableDomain returns the eTLD+1 of the scope's hostname, e.g.
// "sub.example.co.uk" -> "example.co.uk". The boolean is false when the
// public suffix list cannot derive one; the scope itself is still usable.
func (s Scope) RegistrableDomain() (string, bool) {
	domain, err := publicsuffix.Domain(s.Hostname)
	if err != nil {
		return "", false
	}
	return domain, true
}
