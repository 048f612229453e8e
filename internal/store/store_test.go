package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleVideo(id string) *Video {
	now := time.Now().UTC().Truncate(time.Second)
	return &Video{
		ID:           id,
		Title:        "AI sunset",
		Description:  "a generated sunset",
		VideoURL:     "https://v.redd.it/" + id + "/DASH",
		ThumbnailURL: "/thumbnails/" + id + ".jpg",
		Source:       "aivideo",
		Tags:         []string{"aivideo", "sunset"},
		Width:        1280,
		Height:       720,
		Format:       "mp4",
		SourceScore:  42,
		Permalink:    "https://reddit.com/r/aivideo/" + id,
		PostedAt:     now.Add(-time.Hour),
		IngestedAt:   now,
		UpdatedAt:    now,
	}
}

func TestUpsertVideoIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := sampleVideo("abc")
	require.NoError(t, s.UpsertVideo(ctx, v))
	require.NoError(t, s.UpsertVideo(ctx, v))

	videos, err := s.ListVideos(ctx, ListOpts{})
	require.NoError(t, err)
	assert.Len(t, videos, 1, "same natural key yields one record")
}

func TestUpsertVideoPreservesCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("abc")))
	require.NoError(t, s.IncrementViews(ctx, "abc"))
	require.NoError(t, s.IncrementViews(ctx, "abc"))
	require.NoError(t, s.IncrementLikes(ctx, "abc"))

	// Re-observe the same post with updated mutable fields.
	again := sampleVideo("abc")
	again.Title = "AI sunset (remastered)"
	again.SourceScore = 99
	require.NoError(t, s.UpsertVideo(ctx, again))

	got, err := s.GetVideo(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AI sunset (remastered)", got.Title)
	assert.Equal(t, 99, got.SourceScore)
	assert.Equal(t, 2, got.ViewCount, "upsert must never reset view count")
	assert.Equal(t, 1, got.LikeCount, "upsert must never reset like count")
}

func TestGetVideoMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetVideo(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetVideoRoundTripsTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("abc")))

	got, err := s.GetVideo(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"aivideo", "sunset"}, got.Tags)
}

func TestListVideosFiltersAdult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	adult := sampleVideo("adult")
	adult.IsAdult = true
	require.NoError(t, s.UpsertVideo(ctx, adult))
	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("safe")))

	videos, err := s.ListVideos(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "safe", videos[0].ID)

	all, err := s.ListVideos(ctx, ListOpts{IncludeAdult: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListVideosBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	other := sampleVideo("other")
	other.Source = "midjourney"
	require.NoError(t, s.UpsertVideo(ctx, other))
	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("mine")))

	videos, err := s.ListVideos(ctx, ListOpts{Source: "midjourney"})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "other", videos[0].ID)
}

func TestCountBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("a")))
	require.NoError(t, s.UpsertVideo(ctx, sampleVideo("b")))
	other := sampleVideo("c")
	other.Source = "midjourney"
	require.NoError(t, s.UpsertVideo(ctx, other))

	counts, err := s.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["aivideo"])
	assert.Equal(t, 1, counts["midjourney"])
}
