// Package router turns one inbound request into one routing decision:
// pass-through, tenant rewrite, redirect or block.
package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/hostname"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/metrics"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/reserved"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/verify"
)

// Headers attached to tenant rewrites so downstream layers do not re-derive
// tenant context.
const (
	HeaderSubdomain     = "x-subdomain"
	HeaderWebsiteExists = "x-website-exists"
	HeaderCompanySlug   = "x-company-slug"
	HeaderCompanyName   = "x-company-name"
	HeaderCompanyID     = "x-company-id"
)

// NotFoundPath is the internal page every verification failure degrades to.
const NotFoundPath = "/website-not-found"

const tenantPathPrefix = "/s/"

// skipPrefixes are served before any host parsing.
var skipPrefixes = []string{
	"/_next",
	"/static",
	"/assets",
	"/favicon.ico",
	"/robots.txt",
	"/sitemap.xml",
	"/manifest.json",
	"/health",
}

// tenantSkipPrefixes are only skipped once a subdomain is known, so the
// apex site keeps routing them itself.
var tenantSkipPrefixes = []string{
	"/images",
	"/fonts",
	"/.well-known",
}

// dashboardPrefixes are operator-only routes that must never be reachable
// on a tenant host.
var dashboardPrefixes = []string{
	"/dashboard",
	"/admin",
	"/account",
	"/settings",
	"/billing",
	"/onboarding",
}

const (
	reservedDeniedBody = `{"error":"not_found","message":"This route is not available"}`
	systemRouteBody    = `{"error":"website-not-found"}`
)

// Verifier resolves a tenant identifier to its status. Errors mean the
// answer is unknown and the router fails closed.
type Verifier interface {
	Verify(ctx context.Context, id string) (verify.Status, error)
}

type Router struct {
	extractor *hostname.Extractor
	registry  *reserved.Registry
	verifier  Verifier
	rootURL   string
	logger    *logrus.Logger
}

func New(extractor *hostname.Extractor, registry *reserved.Registry, verifier Verifier, rootURL string, logger *logrus.Logger) *Router {
	return &Router{
		extractor: extractor,
		registry:  registry,
		verifier:  verifier,
		rootURL:   strings.TrimSuffix(rootURL, "/"),
		logger:    logger,
	}
}

// Route produces the decision for one request. It never panics: any
// unexpected failure degrades to the not-found rewrite instead of surfacing
// an error to tenant traffic.
func (r *Router) Route(ctx context.Context, host, path string) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"host":  host,
				"path":  path,
				"panic": rec,
			}).Error("Routing panic, serving not-found fallback")
			d = RewriteTo(NotFoundPath, nil)
		}
		metrics.RouteDecisionTotal.WithLabelValues(d.Kind.String()).Inc()
	}()

	if hasPrefix(path, skipPrefixes) {
		return PassThrough()
	}

	sub, ok := r.extractor.Extract(host)
	if !ok {
		return PassThrough()
	}

	if !hostname.Valid(sub) {
		r.logger.WithFields(logrus.Fields{"host": host, "subdomain": sub}).
			Debug("Malformed tenant identifier")
		return BlockWith(http.StatusNotFound, "404 page not found", "text/plain; charset=utf-8")
	}

	if entry, isReserved := r.registry.Lookup(sub); isReserved {
		return r.routeReserved(sub, path, entry)
	}

	if hasPrefix(path, tenantSkipPrefixes) {
		return PassThrough()
	}

	if hasPrefix(path, dashboardPrefixes) {
		r.logger.WithFields(logrus.Fields{"subdomain": sub, "path": path}).
			Debug("Operator route requested on tenant host")
		return BlockWith(http.StatusNotFound, systemRouteBody, "application/json")
	}

	status, err := r.verifier.Verify(ctx, sub)
	if err != nil || !status.Exists || !status.IsPublished {
		return RewriteTo(NotFoundPath, nil)
	}

	return RewriteTo(tenantPathPrefix+sub+path, map[string]string{
		HeaderSubdomain:     sub,
		HeaderWebsiteExists: "true",
		HeaderCompanySlug:   sub,
		HeaderCompanyName:   status.CompanyName,
		HeaderCompanyID:     status.CompanyID,
	})
}

func (r *Router) routeReserved(sub, path string, entry reserved.Entry) Decision {
	switch e := entry.(type) {
	case reserved.Gateway:
		if !e.PathAllowed(path) {
			return BlockWith(http.StatusNotFound, reservedDeniedBody, "application/json")
		}
		if e.RewriteTarget != "" {
			return RewriteTo(e.RewriteTarget+path, nil)
		}
		return PassThrough()
	case reserved.Redirect:
		return RedirectTo(r.rootURL + e.Target)
	case nil:
		return RedirectTo(r.rootURL + "/")
	}
	// Unreachable as long as the entry variants above stay exhaustive.
	return RedirectTo(r.rootURL + "/")
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
