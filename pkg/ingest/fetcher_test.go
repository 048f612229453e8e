package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/pkg/source"
)

type fakeClient struct {
	popular    []source.RawPost
	top        []source.RawPost
	popularErr error
	topErr     error
	calls      []string
}

func (f *fakeClient) ListPopular(ctx context.Context, name string, limit int) ([]source.RawPost, error) {
	f.calls = append(f.calls, "popular")
	return f.popular, f.popularErr
}

func (f *fakeClient) ListTopRecent(ctx context.Context, name, window string, limit int) ([]source.RawPost, error) {
	f.calls = append(f.calls, "top")
	return f.top, f.topErr
}

func TestFetchCandidatesDedup(t *testing.T) {
	client := &fakeClient{
		popular: []source.RawPost{{ID: "a"}, {ID: "b"}},
		top:     []source.RawPost{{ID: "b"}, {ID: "c"}},
	}
	f := NewFetcher(client, 50, "week", zap.NewNop())

	posts, err := f.FetchCandidates(context.Background(), "aivideo")

	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "a", posts[0].ID)
	assert.Equal(t, "b", posts[1].ID)
	assert.Equal(t, "c", posts[2].ID)
	assert.Equal(t, []string{"popular", "top"}, client.calls)
}

func TestFetchCandidatesBannedSourceYieldsEmpty(t *testing.T) {
	client := &fakeClient{
		popularErr: source.ErrSourceUnavailable,
	}
	f := NewFetcher(client, 50, "week", zap.NewNop())

	posts, err := f.FetchCandidates(context.Background(), "bannedsub")

	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, []string{"popular"}, client.calls, "no second call for a dead source")
}

func TestFetchCandidatesWrappedUnavailable(t *testing.T) {
	client := &fakeClient{
		popular: []source.RawPost{{ID: "a"}},
		topErr:  errors.Join(errors.New("r/x"), source.ErrSourceUnavailable),
	}
	f := NewFetcher(client, 50, "week", zap.NewNop())

	posts, err := f.FetchCandidates(context.Background(), "x")

	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFetchCandidatesOtherErrorPropagates(t *testing.T) {
	client := &fakeClient{
		popularErr: errors.New("status 500"),
	}
	f := NewFetcher(client, 50, "week", zap.NewNop())

	_, err := f.FetchCandidates(context.Background(), "aivideo")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, source.ErrSourceUnavailable)
}
