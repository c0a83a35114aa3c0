package cache

import (
	"context"
	"time"
)

// Entry is one cached tenant verification result. Entries are immutable once
// written; a re-verification writes a fresh entry instead of mutating the old
// one.
type Entry struct {
	Exists      bool      `json:"exists"`
	IsPublished bool      `json:"is_published"`
	CompanyName string    `json:"company_name,omitempty"`
	CompanyID   string    `json:"company_id,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Store is the tenant-status cache consulted before every verification call.
// Implementations must treat stale entries as absent, never as data.
type Store interface {
	Get(ctx context.Context, id string) (*Entry, bool)
	Set(ctx context.Context, id string, entry *Entry, ttl time.Duration) error
	Invalidate(ctx context.Context, id string) bool
}

// EntryStat describes one cache entry for the introspection endpoint.
type EntryStat struct {
	ID      string `json:"id"`
	AgeMS   int64  `json:"age_ms"`
	Expired bool   `json:"expired"`
	Exists  bool   `json:"exists"`
}

// StatsReporter is implemented by stores that can enumerate their entries.
type StatsReporter interface {
	Stats() []EntryStat
}
