package thumbnail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writingSnapshot(calls *int) SnapshotFunc {
	return func(ctx context.Context, videoURL, outPath string) error {
		*calls++
		return os.WriteFile(outPath, []byte("jpeg"), 0o644)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	g := NewWithSnapshot(dir, "/static/placeholder.jpg", writingSnapshot(&calls), zap.NewNop())

	first, err := g.Generate(context.Background(), "https://v.redd.it/abc/DASH")
	require.NoError(t, err)

	second, err := g.Generate(context.Background(), "https://v.redd.it/abc/DASH")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "cached artifact must not be re-extracted")
}

func TestGenerateDistinctURLsDistinctKeys(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	g := NewWithSnapshot(dir, "/static/placeholder.jpg", writingSnapshot(&calls), zap.NewNop())

	a, err := g.Generate(context.Background(), "https://v.redd.it/aaa/DASH")
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), "https://v.redd.it/bbb/DASH")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, calls)
}

func TestGenerateWritesIntoCacheDir(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	g := NewWithSnapshot(dir, "/static/placeholder.jpg", writingSnapshot(&calls), zap.NewNop())

	url := "https://v.redd.it/abc/DASH"
	ref, err := g.Generate(context.Background(), url)
	require.NoError(t, err)

	key := CacheKey(url)
	assert.Equal(t, "/thumbnails/"+key+".jpg", ref)
	_, err = os.Stat(filepath.Join(dir, key+".jpg"))
	assert.NoError(t, err)
}

func TestGenerateExtractionFailureReturnsPlaceholder(t *testing.T) {
	dir := t.TempDir()
	failing := func(ctx context.Context, videoURL, outPath string) error {
		return errors.New("exit status 1")
	}
	g := NewWithSnapshot(dir, "/static/placeholder.jpg", failing, zap.NewNop())

	ref, err := g.Generate(context.Background(), "https://v.redd.it/abc/DASH")

	require.NoError(t, err)
	assert.Equal(t, "/static/placeholder.jpg", ref)
}

func TestGenerateFailureLeavesNoCacheEntry(t *testing.T) {
	dir := t.TempDir()
	attempts := 0
	flaky := func(ctx context.Context, videoURL, outPath string) error {
		attempts++
		if attempts == 1 {
			// Simulate a partial write before the failure.
			os.WriteFile(outPath, []byte("trunc"), 0o644)
			return errors.New("connection reset")
		}
		return os.WriteFile(outPath, []byte("jpeg"), 0o644)
	}
	g := NewWithSnapshot(dir, "/static/placeholder.jpg", flaky, zap.NewNop())

	url := "https://v.redd.it/abc/DASH"
	ref, err := g.Generate(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "/static/placeholder.jpg", ref)

	// The next attempt re-extracts instead of serving the partial file.
	ref, err = g.Generate(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "/thumbnails/"+CacheKey(url)+".jpg", ref)
	assert.Equal(t, 2, attempts)
}
