package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threej-in/virtualfeed/pkg/source"
)

func TestResolveMediaPriority(t *testing.T) {
	post := source.RawPost{
		Video: &source.NativeVideo{
			DashURL:     "https://v.redd.it/abc/DASHPlaylist.mpd",
			HLSURL:      "https://v.redd.it/abc/HLSPlaylist.m3u8",
			FallbackURL: "https://v.redd.it/abc/DASH_720.mp4",
			Height:      720,
		},
		DirectURL: "https://example.com/clip.mp4",
	}

	m := ResolveMedia(post)
	require.NotNil(t, m)
	assert.Equal(t, "https://v.redd.it/abc/DASHPlaylist.mpd", m.URL)
	assert.Equal(t, FormatDASH, m.Format)
	assert.Equal(t, 720, m.Height)
}

func TestResolveMediaHLSBeforeFallback(t *testing.T) {
	post := source.RawPost{
		Video: &source.NativeVideo{
			HLSURL:      "https://v.redd.it/abc/HLSPlaylist.m3u8",
			FallbackURL: "https://v.redd.it/abc/DASH_480.mp4",
		},
	}

	m := ResolveMedia(post)
	require.NotNil(t, m)
	assert.Equal(t, FormatHLS, m.Format)
	assert.Equal(t, "https://v.redd.it/abc/HLSPlaylist.m3u8", m.URL)
}

func TestResolveMediaFallbackStripsQualitySuffix(t *testing.T) {
	post := source.RawPost{
		Video: &source.NativeVideo{
			FallbackURL: "https://v.redd.it/abc/DASH_720.mp4?source=fallback",
			Height:      720,
		},
	}

	m := ResolveMedia(post)
	require.NotNil(t, m)
	assert.Equal(t, "https://v.redd.it/abc/DASH", m.URL)
	assert.Equal(t, FormatMP4, m.Format)
}

func TestResolveMediaDirectURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		resolved bool
	}{
		{"mp4 extension", "https://i.example.com/funny.mp4", true},
		{"webm extension", "https://i.example.com/funny.webm", true},
		{"mp4 with query", "https://i.example.com/funny.mp4?token=x", true},
		{"youtube rejected by policy", "https://www.youtube.com/watch?v=abc123", false},
		{"youtu.be rejected by policy", "https://youtu.be/abc123", false},
		{"vimeo rejected by policy", "https://vimeo.com/12345", false},
		{"plain image link", "https://i.example.com/photo.jpg", false},
		{"no direct url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResolveMedia(source.RawPost{DirectURL: tt.url})
			if tt.resolved {
				require.NotNil(t, m)
				assert.Equal(t, tt.url, m.URL)
				assert.Equal(t, FormatMP4, m.Format)
			} else {
				assert.Nil(t, m)
			}
		})
	}
}
