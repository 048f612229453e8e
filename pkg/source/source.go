package source

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable signals that a source has been removed, banned or
// made private upstream. Callers treat it as an empty result set.
var ErrSourceUnavailable = errors.New("source unavailable")

// NativeVideo describes media hosted on the community platform itself.
type NativeVideo struct {
	FallbackURL string
	DashURL     string
	HLSURL      string
	Height      int
}

// RawPost is a candidate post as returned by an upstream community source.
// It is consumed by value and never mutated by the pipeline.
type RawPost struct {
	ID         string
	Title      string
	Body       string
	Flair      string
	SourceName string
	Score      int
	IsVideo    bool
	Video      *NativeVideo
	DirectURL  string
	IsAdult    bool
	Permalink  string
	CreatedAt  time.Time
}

// Client lists candidate posts for a named source. Implementations return
// ErrSourceUnavailable (possibly wrapped) when the source itself is gone,
// as opposed to the request having failed.
type Client interface {
	// ListPopular returns the currently popular posts, capped at limit.
	ListPopular(ctx context.Context, name string, limit int) ([]RawPost, error)
	// ListTopRecent returns the highest-scoring posts within the recent
	// window ("day", "week", ...), capped at limit.
	ListTopRecent(ctx context.Context, name, window string, limit int) ([]RawPost, error)
}
