// Package thumbnail derives still images from video URLs into a
// content-addressed filesystem cache keyed by the URL hash, so the same
// video is never snapshotted twice.
package thumbnail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// snapshotAt is where in the video the frame is taken.
	snapshotAt = "00:00:01"
	// snapshotSize is the fixed raster size of every thumbnail.
	snapshotSize = "640x360"

	extractTimeout = 30 * time.Second
)

// SnapshotFunc extracts a single frame from videoURL into outPath.
type SnapshotFunc func(ctx context.Context, videoURL, outPath string) error

// Generator produces thumbnail references for video URLs.
type Generator struct {
	dir         string
	placeholder string
	snapshot    SnapshotFunc
	log         *zap.Logger
}

// New creates a generator writing into dir. snapshot defaults to an
// ffmpeg invocation using ffmpegPath.
func New(dir, placeholder, ffmpegPath string, log *zap.Logger) *Generator {
	return &Generator{
		dir:         dir,
		placeholder: placeholder,
		snapshot:    FFmpegSnapshot(ffmpegPath),
		log:         log,
	}
}

// NewWithSnapshot creates a generator with a custom frame extractor.
func NewWithSnapshot(dir, placeholder string, snapshot SnapshotFunc, log *zap.Logger) *Generator {
	return &Generator{
		dir:         dir,
		placeholder: placeholder,
		snapshot:    snapshot,
		log:         log,
	}
}

// Generate returns a stable reference for the video's thumbnail. A cached
// artifact is reused without re-extraction; on extraction failure the
// static placeholder reference is returned so ingestion of the record is
// never blocked.
func (g *Generator) Generate(ctx context.Context, videoURL string) (string, error) {
	key := CacheKey(videoURL)
	file := filepath.Join(g.dir, key+".jpg")
	ref := "/thumbnails/" + key + ".jpg"

	if _, err := os.Stat(file); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("thumbnail dir %s: %w", g.dir, err)
	}

	if err := g.snapshot(ctx, videoURL, file); err != nil {
		g.log.Warn("frame extraction failed, using placeholder",
			zap.String("url", videoURL), zap.Error(err))
		// A partial file must not be mistaken for a cached artifact.
		os.Remove(file)
		return g.placeholder, nil
	}

	return ref, nil
}

// CacheKey returns the content-addressed key for a video URL.
func CacheKey(videoURL string) string {
	sum := sha256.Sum256([]byte(videoURL))
	return hex.EncodeToString(sum[:])
}

// FFmpegSnapshot extracts one frame near the one second mark into a
// fixed-size JPEG via the ffmpeg binary at path.
func FFmpegSnapshot(path string) SnapshotFunc {
	if path == "" {
		path = "ffmpeg"
	}
	return func(ctx context.Context, videoURL, outPath string) error {
		ctx, cancel := context.WithTimeout(ctx, extractTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, path,
			"-ss", snapshotAt,
			"-i", videoURL,
			"-frames:v", "1",
			"-s", snapshotSize,
			"-f", "image2",
			"-y", outPath,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg snapshot %s: %w: %s", videoURL, err, tail(out))
		}
		return nil
	}
}

// tail keeps the last part of ffmpeg's output for error context.
func tail(out []byte) string {
	const max = 256
	if len(out) <= max {
		return string(out)
	}
	return string(out[len(out)-max:])
}
