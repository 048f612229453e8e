package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// nativeVideoHost serves reliably structured manifests, so no probe is
// needed for it.
const nativeVideoHost = "v.redd.it"

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// Metadata describes a validated playable URL. DurationSec is 0 unless a
// future probe fills it in; the pipeline never probes duration today.
type Metadata struct {
	URL         string
	Format      Format
	Width       int
	Height      int
	DurationSec int
}

// Prober performs a lightweight HEAD-equivalent request and reports the
// declared content type.
type Prober interface {
	ContentType(ctx context.Context, rawURL string) (string, error)
}

// HTTPProber implements Prober with a short-timeout HEAD request.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber creates a prober with the given per-request timeout.
func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (p *HTTPProber) ContentType(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("probe %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), nil
}

// videoContentTypes are content-type fragments that confirm playable media.
var videoContentTypes = []string{"video/", "mpegurl", "dash+xml", "octet-stream"}

var videoSuffixes = []string{".mp4", ".webm", ".m3u8", ".mpd"}

// Validator confirms that a resolved URL is playable media and fills in
// basic metadata. It is deliberately lenient: a post only fails
// validation on an internal error, never on an inconclusive probe,
// because dropping real videos costs more than ingesting a dead link.
type Validator struct {
	prober Prober
	log    *zap.Logger
}

// NewValidator creates a validator around the given probe client.
func NewValidator(prober Prober, log *zap.Logger) *Validator {
	return &Validator{prober: prober, log: log}
}

// Validate returns metadata for the resolved media, or an error on an
// internal failure (malformed URL). Probe failures fall through to
// extension inference and finally to a permissive default.
func (v *Validator) Validate(ctx context.Context, m ResolvedMedia) (*Metadata, error) {
	parsed, err := url.Parse(m.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid media url %q: %w", m.URL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid media url %q: no host", m.URL)
	}

	meta := &Metadata{
		URL:    m.URL,
		Format: m.Format,
		Width:  defaultWidth,
		Height: defaultHeight,
	}
	if m.Height > 0 {
		meta.Height = m.Height
		meta.Width = m.Height * 16 / 9
	}

	// Native-host manifests are reliably structured; skip the probe.
	if strings.HasSuffix(parsed.Host, nativeVideoHost) {
		return meta, nil
	}

	ct, err := v.prober.ContentType(ctx, m.URL)
	if err == nil {
		lower := strings.ToLower(ct)
		for _, fragment := range videoContentTypes {
			if strings.Contains(lower, fragment) {
				return meta, nil
			}
		}
	} else {
		v.log.Debug("probe failed, falling back to extension", zap.String("url", m.URL), zap.Error(err))
	}

	path := strings.ToLower(parsed.Path)
	for _, suffix := range videoSuffixes {
		if strings.HasSuffix(path, suffix) {
			return meta, nil
		}
	}

	// Nothing confirmed video-like; accept anyway. Broken links surface
	// at playback time.
	return meta, nil
}
