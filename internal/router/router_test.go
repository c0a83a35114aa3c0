package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/cache"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/hostname"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/reserved"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/verify"
)

type stubVerifier struct {
	status verify.Status
	err    error
	calls  int32
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (verify.Status, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.status, s.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(new(discard))
	return logger
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestRouter(v Verifier) *Router {
	return New(
		hostname.NewExtractor("example.com", ".preview.app"),
		reserved.Default(),
		v,
		"https://example.com",
		testLogger(),
	)
}

func TestRoutePublishedTenant(t *testing.T) {
	v := &stubVerifier{status: verify.Status{
		Exists:      true,
		IsPublished: true,
		CompanyName: "Acme Corp",
		CompanyID:   "42",
	}}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme.example.com", "/listings")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, "/s/acme/listings", d.Path)
	assert.Equal(t, "acme", d.Headers[HeaderSubdomain])
	assert.Equal(t, "true", d.Headers[HeaderWebsiteExists])
	assert.Equal(t, "acme", d.Headers[HeaderCompanySlug])
	assert.Equal(t, "Acme Corp", d.Headers[HeaderCompanyName])
	assert.Equal(t, "42", d.Headers[HeaderCompanyID])
}

func TestRouteApexPassesThrough(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	for _, host := range []string{"example.com", "www.example.com", "localhost:3000", "127.0.0.1:3000"} {
		d := r.Route(context.Background(), host, "/")
		assert.Equal(t, KindPassThrough, d.Kind, "host %s", host)
	}
	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

func TestRouteSkipListBeforeHostParsing(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	for _, path := range []string{"/_next/static/app.js", "/favicon.ico", "/health", "/robots.txt"} {
		d := r.Route(context.Background(), "acme.example.com", path)
		assert.Equal(t, KindPassThrough, d.Kind, "path %s", path)
	}
	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

func TestRouteTenantSkipList(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme.example.com", "/images/logo.png")
	assert.Equal(t, KindPassThrough, d.Kind)
	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

// Malformed identifiers are rejected before any network call.
func TestRouteMalformedIdentifier(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	for _, host := range []string{
		"a.example.com",
		"-acme.example.com",
		"acme-.example.com",
		"a.b.example.com",
		"a_b.example.com",
	} {
		d := r.Route(context.Background(), host, "/")
		assert.Equal(t, KindBlock, d.Kind, "host %s", host)
		assert.Equal(t, http.StatusNotFound, d.Status, "host %s", host)
	}
	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

// Reserved identifiers short-circuit before verification.
func TestRouteReserved(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "api.example.com", "/v1/listings")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, "/gateway/v1/listings", d.Path)

	d = r.Route(context.Background(), "api.example.com", "/v3/foo")
	assert.Equal(t, KindBlock, d.Kind)
	assert.Equal(t, http.StatusNotFound, d.Status)
	assert.Equal(t, "application/json", d.ContentType)
	assert.Contains(t, d.Body, "not_found")

	d = r.Route(context.Background(), "admin.example.com", "/anything")
	assert.Equal(t, KindRedirect, d.Kind)
	assert.Equal(t, "https://example.com/admin", d.Location)

	d = r.Route(context.Background(), "mail.example.com", "/")
	assert.Equal(t, KindRedirect, d.Kind)
	assert.Equal(t, "https://example.com/", d.Location)

	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

func TestRouteDashboardPathOnTenantHost(t *testing.T) {
	v := &stubVerifier{}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme.example.com", "/dashboard/properties")
	assert.Equal(t, KindBlock, d.Kind)
	assert.Equal(t, http.StatusNotFound, d.Status)
	assert.Contains(t, d.Body, "website-not-found")
	assert.Zero(t, atomic.LoadInt32(&v.calls))
}

func TestRouteUnpublishedTenant(t *testing.T) {
	v := &stubVerifier{status: verify.Status{Exists: true, IsPublished: false}}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme.example.com", "/")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, NotFoundPath, d.Path)
}

func TestRouteUnknownTenant(t *testing.T) {
	v := &stubVerifier{status: verify.Status{Exists: false}}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "ghost.example.com", "/")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, NotFoundPath, d.Path)
}

// Verification failures fail closed: never a tenant rewrite.
func TestRouteVerificationFailureFailsClosed(t *testing.T) {
	v := &stubVerifier{err: &verify.Error{Kind: verify.KindTimeout, Err: errors.New("deadline")}}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme.example.com", "/listings")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, NotFoundPath, d.Path)
}

func TestRoutePreviewDeployment(t *testing.T) {
	v := &stubVerifier{status: verify.Status{Exists: true, IsPublished: true}}
	r := newTestRouter(v)

	d := r.Route(context.Background(), "acme---feature-x.preview.app", "/")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, "/s/acme/", d.Path)
}

type panicVerifier struct{}

func (panicVerifier) Verify(context.Context, string) (verify.Status, error) {
	panic("boom")
}

func TestRoutePanicDegradesToNotFound(t *testing.T) {
	r := newTestRouter(panicVerifier{})

	d := r.Route(context.Background(), "acme.example.com", "/")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, NotFoundPath, d.Path)
}

// Network failures are never cached: a second request within the TTL window
// re-issues the verification call.
func TestRouteNetworkFailureRetriesNextRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	store := cache.NewTTLMap()
	client := verify.NewClient(verify.Config{
		URL:     srv.URL,
		Secret:  "s",
		Timeout: 30 * time.Millisecond,
		TTL:     5 * time.Minute,
	}, store, testLogger())
	r := newTestRouter(client)

	for i := 0; i < 2; i++ {
		d := r.Route(context.Background(), "zz.example.com", "/")
		assert.Equal(t, NotFoundPath, d.Path)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, ok := store.Get(context.Background(), "zz")
	assert.False(t, ok)
}

// A positive verification is reused from cache: one outbound call for two
// requests within the TTL.
func TestRouteCacheReuse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"success":true,"data":{"valid":true,"is_verified":true,"company_name":"Acme Corp","company_id":"42"}}`))
	}))
	defer srv.Close()

	client := verify.NewClient(verify.Config{
		URL:    srv.URL,
		Secret: "s",
	}, cache.NewTTLMap(), testLogger())
	r := newTestRouter(client)

	first := r.Route(context.Background(), "acme.example.com", "/listings")
	second := r.Route(context.Background(), "acme.example.com", "/listings")
	assert.Equal(t, first, second)
	assert.Equal(t, "/s/acme/listings", second.Path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// Reserved identifiers never produce outbound traffic, backend up or down.
func TestRouteReservedNeverCallsBackend(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	srv.Close()

	client := verify.NewClient(verify.Config{URL: srv.URL, Secret: "s"}, cache.NewTTLMap(), testLogger())
	r := newTestRouter(client)

	for _, id := range []string{"api", "admin", "app", "mail", "status", "docs"} {
		r.Route(context.Background(), id+".example.com", "/")
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}
