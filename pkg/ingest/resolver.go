package ingest

import (
	"regexp"
	"strings"

	"github.com/threej-in/virtualfeed/pkg/source"
)

// Format is the container format of a resolved media URL.
type Format string

const (
	FormatMP4     Format = "mp4"
	FormatDASH    Format = "dash"
	FormatHLS     Format = "hls"
	FormatUnknown Format = "unknown"
)

// ResolvedMedia is a candidate playable URL. Transient: produced by
// ResolveMedia, consumed by the validator, then discarded.
type ResolvedMedia struct {
	URL    string
	Format Format
	Width  int
	Height int
}

// qualitySuffix matches the per-quality rendition suffix embedded in
// native fallback URLs (e.g. DASH_720.mp4).
var qualitySuffix = regexp.MustCompile(`_\d+\.mp4`)

// externalPlatforms are video hosts whose links the pipeline rejects by
// policy: their content cannot be played back directly.
var externalPlatforms = []string{
	"youtube.com", "youtu.be", "vimeo.com", "twitch.tv",
	"streamable.com", "gfycat.com", "tiktok.com", "instagram.com",
}

var videoExtensions = []string{".mp4", ".webm"}

// ResolveMedia picks the best playable URL for a post, first match wins:
// native DASH, native HLS, native fallback with the quality suffix
// stripped, then a direct link with a video file extension. External
// platform links and everything else resolve to nil.
func ResolveMedia(p source.RawPost) *ResolvedMedia {
	if v := p.Video; v != nil {
		switch {
		case v.DashURL != "":
			return &ResolvedMedia{URL: v.DashURL, Format: FormatDASH, Height: v.Height}
		case v.HLSURL != "":
			return &ResolvedMedia{URL: v.HLSURL, Format: FormatHLS, Height: v.Height}
		case v.FallbackURL != "":
			base := qualitySuffix.ReplaceAllString(v.FallbackURL, "")
			if i := strings.IndexByte(base, '?'); i >= 0 {
				base = base[:i]
			}
			return &ResolvedMedia{URL: base, Format: FormatMP4, Height: v.Height}
		}
	}

	if p.DirectURL == "" {
		return nil
	}

	lower := strings.ToLower(p.DirectURL)
	path := lower
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(path, ext) {
			return &ResolvedMedia{URL: p.DirectURL, Format: FormatMP4}
		}
	}

	// External platform links are rejected by policy, not inability.
	for _, host := range externalPlatforms {
		if strings.Contains(lower, host) {
			return nil
		}
	}

	return nil
}
