package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "virtualfeed/1.0"

// Reddit lists posts from subreddits via the Reddit JSON API. When client
// credentials are configured it authenticates against the OAuth endpoint,
// otherwise it uses the public listing endpoints. All requests go through
// a shared rate limiter so aggregate request spacing stays deterministic
// no matter how many subreddits are configured.
type Reddit struct {
	client       *http.Client
	limiter      *rate.Limiter
	log          *zap.Logger
	clientID     string
	clientSecret string
	userAgent    string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewReddit creates a Reddit source client.
func NewReddit(clientID, clientSecret, userAgent string, limiter *rate.Limiter, log *zap.Logger) *Reddit {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(2*time.Second), 1)
	}
	return &Reddit{
		client:       &http.Client{Timeout: 30 * time.Second},
		limiter:      limiter,
		log:          log,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
	}
}

// ListPopular returns the subreddit's current hot listing.
func (r *Reddit) ListPopular(ctx context.Context, name string, limit int) ([]RawPost, error) {
	return r.listing(ctx, name, "hot", limit, nil)
}

// ListTopRecent returns the subreddit's top listing for the given window.
func (r *Reddit) ListTopRecent(ctx context.Context, name, window string, limit int) ([]RawPost, error) {
	return r.listing(ctx, name, "top", limit, url.Values{"t": {window}})
}

func (r *Reddit) listing(ctx context.Context, subreddit, sort string, limit int, extra url.Values) ([]RawPost, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("https://www.reddit.com/r/%s/%s.json", subreddit, sort)
	authed := r.clientID != "" && r.clientSecret != ""
	if authed {
		if err := r.authenticate(ctx); err != nil {
			return nil, fmt.Errorf("reddit auth: %w", err)
		}
		base = fmt.Sprintf("https://oauth.reddit.com/r/%s/%s.json", subreddit, sort)
	}

	q := url.Values{"limit": {fmt.Sprint(limit)}, "raw_json": {"1"}}
	for k, vs := range extra {
		q[k] = vs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	if authed {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s %s: %w", subreddit, sort, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound:
		// Banned, private or deleted subreddit.
		return nil, fmt.Errorf("r/%s: %w", subreddit, ErrSourceUnavailable)
	default:
		return nil, fmt.Errorf("reddit r/%s %s status %d", subreddit, sort, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s %s: %w", subreddit, sort, err)
	}

	var posts []RawPost
	for _, child := range listing.Data.Children {
		p := child.Data
		if p.Stickied {
			continue
		}
		if p.ID == "" || p.Title == "" {
			// Malformed payloads are skipped at the boundary.
			r.log.Debug("skipping malformed post", zap.String("subreddit", subreddit))
			continue
		}
		posts = append(posts, mapRedditPost(subreddit, p))
	}
	return posts, nil
}

func (r *Reddit) authenticate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.reddit.com/api/v1/access_token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit auth status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode reddit token: %w", err)
	}

	r.token = tokenResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return nil
}

func mapRedditPost(subreddit string, p redditPost) RawPost {
	raw := RawPost{
		ID:         p.ID,
		Title:      p.Title,
		Body:       p.Selftext,
		Flair:      p.LinkFlairText,
		SourceName: subreddit,
		Score:      p.Score,
		IsVideo:    p.IsVideo,
		DirectURL:  p.URL,
		IsAdult:    p.Over18,
		Permalink:  "https://reddit.com" + p.Permalink,
		CreatedAt:  time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}

	rv := p.SecureMedia.RedditVideo
	if rv == nil {
		rv = p.Media.RedditVideo
	}
	if rv != nil {
		raw.Video = &NativeVideo{
			FallbackURL: rv.FallbackURL,
			DashURL:     rv.DashURL,
			HLSURL:      rv.HLSURL,
			Height:      rv.Height,
		}
	}
	return raw
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditMedia struct {
	RedditVideo *struct {
		FallbackURL string `json:"fallback_url"`
		DashURL     string `json:"dash_url"`
		HLSURL      string `json:"hls_url"`
		Height      int    `json:"height"`
	} `json:"reddit_video"`
}

type redditPost struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	URL           string      `json:"url"`
	Permalink     string      `json:"permalink"`
	Selftext      string      `json:"selftext"`
	LinkFlairText string      `json:"link_flair_text"`
	Score         int         `json:"score"`
	CreatedUTC    float64     `json:"created_utc"`
	Stickied      bool        `json:"stickied"`
	IsVideo       bool        `json:"is_video"`
	Over18        bool        `json:"over_18"`
	Media         redditMedia `json:"media"`
	SecureMedia   redditMedia `json:"secure_media"`
}
