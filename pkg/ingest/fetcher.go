package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/pkg/source"
)

// Fetcher retrieves candidate posts for one source: the current popular
// listing plus the top listing over a recent window, deduplicated by post
// id. Pacing between the two upstream calls is the client's concern (the
// shared rate limiter), so fetch order stays deterministic.
type Fetcher struct {
	client   source.Client
	log      *zap.Logger
	pageSize int
	window   string
}

// NewFetcher creates a fetcher over the given source client.
func NewFetcher(client source.Client, pageSize int, window string, log *zap.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = 50
	}
	if window == "" {
		window = "week"
	}
	return &Fetcher{
		client:   client,
		log:      log,
		pageSize: pageSize,
		window:   window,
	}
}

// FetchCandidates returns deduplicated candidates for the named source.
// An unavailable (banned/removed) source yields zero results and no
// error; any other upstream failure is returned to the caller.
func (f *Fetcher) FetchCandidates(ctx context.Context, name string) ([]source.RawPost, error) {
	popular, err := f.client.ListPopular(ctx, name, f.pageSize)
	if err != nil {
		if errors.Is(err, source.ErrSourceUnavailable) {
			f.log.Info("source unavailable, skipping", zap.String("source", name))
			return nil, nil
		}
		return nil, fmt.Errorf("list popular %s: %w", name, err)
	}

	top, err := f.client.ListTopRecent(ctx, name, f.window, f.pageSize)
	if err != nil {
		if errors.Is(err, source.ErrSourceUnavailable) {
			f.log.Info("source unavailable, skipping", zap.String("source", name))
			return nil, nil
		}
		return nil, fmt.Errorf("list top %s: %w", name, err)
	}

	seen := make(map[string]bool, len(popular))
	posts := make([]source.RawPost, 0, len(popular)+len(top))
	for _, p := range popular {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		posts = append(posts, p)
	}
	for _, p := range top {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		posts = append(posts, p)
	}

	return posts, nil
}
