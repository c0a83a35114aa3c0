package hostname

import (
	"net"
	"regexp"
	"strings"
)

// previewSeparator splits the branch identifier from the deployment slug on
// ephemeral preview hosts, e.g. "acme---feature-x.preview.app".
const previewSeparator = "---"

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Extractor derives a candidate tenant identifier from a request's Host
// header. It understands three deployment shapes: local development
// (<id>.localhost), preview deployments (<id>---<slug><previewSuffix>) and
// production subdomains (<id>.<rootDomain>).
type Extractor struct {
	rootDomain    string
	previewSuffix string
}

func NewExtractor(rootDomain, previewSuffix string) *Extractor {
	return &Extractor{
		rootDomain:    strings.ToLower(rootDomain),
		previewSuffix: strings.ToLower(previewSuffix),
	}
}

// Extract returns the tenant identifier for host, or ok=false when the host
// does not address a tenant and the request should pass through unchanged.
func (e *Extractor) Extract(host string) (string, bool) {
	host = strings.ToLower(stripPort(host))
	if host == "" {
		return "", false
	}

	if isLoopback(host) {
		if sub, found := strings.CutSuffix(host, ".localhost"); found && sub != "" {
			return sub, true
		}
		return "", false
	}

	if e.previewSuffix != "" && strings.HasSuffix(host, e.previewSuffix) {
		if idx := strings.Index(host, previewSeparator); idx > 0 {
			return host[:idx], true
		}
	}

	if e.rootDomain == "" {
		return "", false
	}
	if host == e.rootDomain || host == "www."+e.rootDomain {
		return "", false
	}
	if sub, found := strings.CutSuffix(host, "."+e.rootDomain); found && sub != "" {
		return sub, true
	}
	return "", false
}

// Valid reports whether id is a well-formed tenant identifier: lowercase
// alphanumeric with internal hyphens, at least two characters.
func Valid(id string) bool {
	return len(id) >= 2 && subdomainRe.MatchString(id)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
