// Package verify resolves tenant identifiers against the remote validation
// service under a fail-closed policy: only answers that state a tenant fact
// are cached, infrastructure trouble is re-checked on the next request.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/cache"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/metrics"
)

// SecretHeader authenticates the edge against the validation service.
const SecretHeader = "x-validation-secret"

const subdomainParam = "subdomain"

// Status is the verification result for one tenant identifier.
type Status struct {
	Exists      bool
	IsPublished bool
	CompanyName string
	CompanyID   string
}

// ErrorKind is the closed set of verification failures. The caching policy
// switches over it exhaustively.
type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindNotFound
	KindTimeout
	KindNetwork
	KindUnexpectedShape
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_error"
	case KindUnexpectedShape:
		return "unexpected_shape"
	}
	return "unknown"
}

// Error is a classified verification failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("verification %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	TTL         time.Duration
	NegativeTTL time.Duration
}

// Client calls the validation endpoint and maintains the tenant-status
// cache. Concurrent misses for the same identifier share a single outbound
// call.
type Client struct {
	cfg    Config
	http   *http.Client
	store  cache.Store
	logger *logrus.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewClient(cfg Config, store cache.Store, logger *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.NegativeTTL == 0 {
		cfg.NegativeTTL = cfg.TTL
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Verify resolves id, consulting the cache first. A nil error means the
// validation service stated a tenant fact (present or absent); a *Error
// means the answer is unknown and the caller must fail closed.
func (c *Client) Verify(ctx context.Context, id string) (Status, error) {
	if entry, ok := c.store.Get(ctx, id); ok {
		metrics.CacheHitsTotal.Inc()
		return Status{
			Exists:      entry.Exists,
			IsPublished: entry.IsPublished,
			CompanyName: entry.CompanyName,
			CompanyID:   entry.CompanyID,
		}, nil
	}
	metrics.CacheMissesTotal.Inc()

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return Status{}, err
	}
	return v.(Status), nil
}

type validationResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Valid       bool   `json:"valid"`
		IsVerified  *bool  `json:"is_verified"`
		CompanyName string `json:"company_name"`
		CompanyID   string `json:"company_id"`
	} `json:"data"`
}

// fetch performs one validation call and applies the caching policy to its
// classified outcome.
func (c *Client) fetch(ctx context.Context, id string) (Status, error) {
	started := c.now()
	status, verr := c.call(ctx, id)
	metrics.VerificationLatency.Observe(float64(c.now().Sub(started).Milliseconds()))

	if verr == nil {
		metrics.VerificationTotal.WithLabelValues(outcomeLabel(status)).Inc()
		ttl := c.cfg.TTL
		if !status.Exists {
			ttl = c.cfg.NegativeTTL
		}
		c.cacheStatus(ctx, id, status, ttl)
		return status, nil
	}

	metrics.VerificationTotal.WithLabelValues(verr.Kind.String()).Inc()
	switch verr.Kind {
	case KindNotFound:
		// The service affirmatively said the tenant is absent.
		c.cacheStatus(ctx, id, Status{}, c.cfg.NegativeTTL)
		return Status{}, nil
	case KindUnauthorized:
		c.logger.WithError(verr).WithField("tenant", id).
			Error("Validation service rejected the shared secret, check configuration")
		return Status{}, verr
	case KindTimeout, KindNetwork:
		c.logger.WithError(verr).WithField("tenant", id).
			Warn("Validation service unreachable, failing closed")
		return Status{}, verr
	case KindUnexpectedShape:
		c.logger.WithError(verr).WithField("tenant", id).
			Warn("Unexpected validation response, failing closed")
		return Status{}, verr
	}
	return Status{}, verr
}

func (c *Client) cacheStatus(ctx context.Context, id string, status Status, ttl time.Duration) {
	entry := &cache.Entry{
		Exists:      status.Exists,
		IsPublished: status.IsPublished,
		CompanyName: status.CompanyName,
		CompanyID:   status.CompanyID,
		CapturedAt:  c.now(),
	}
	if err := c.store.Set(ctx, id, entry, ttl); err != nil {
		c.logger.WithError(err).WithField("tenant", id).Warn("Failed to cache tenant status")
	}
}

// call issues the HTTP request and classifies the raw outcome.
func (c *Client) call(ctx context.Context, id string) (Status, *Error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := c.cfg.URL + "?" + url.Values{subdomainParam: {id}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set(SecretHeader, c.cfg.Secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, &Error{Kind: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Status{}, &Error{Kind: KindUnauthorized, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return Status{}, &Error{Kind: KindNotFound}
	case resp.StatusCode != http.StatusOK:
		return Status{}, &Error{Kind: KindUnexpectedShape, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Status{}, &Error{Kind: KindUnexpectedShape, Err: err}
	}
	if !body.Success {
		return Status{}, &Error{Kind: KindUnexpectedShape, Err: errors.New("success=false")}
	}
	if !body.Data.Valid {
		return Status{}, nil
	}

	return Status{
		Exists: true,
		// A missing is_verified counts as published.
		IsPublished: body.Data.IsVerified == nil || *body.Data.IsVerified,
		CompanyName: body.Data.CompanyName,
		CompanyID:   body.Data.CompanyID,
	}, nil
}

func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

func outcomeLabel(s Status) string {
	switch {
	case s.Exists && s.IsPublished:
		return "published"
	case s.Exists:
		return "unpublished"
	}
	return "absent"
}
