package ingest

import (
	"strings"

	"github.com/threej-in/virtualfeed/internal/config"
	"github.com/threej-in/virtualfeed/pkg/source"
)

// primaryTerms mark a post as being about AI generation. At least one
// must appear for non-exempt sources.
var primaryTerms = []string{
	"ai", "artificial intelligence", "generated", "generative",
	"stable diffusion", "midjourney", "dall-e", "dalle", "sora",
	"runway", "pika", "kling", "veo", "luma", "animatediff",
	"deforum", "img2vid", "txt2vid", "text-to-video", "image-to-video",
	"machine learning", "neural", "diffusion",
}

// secondaryTerms mark a post as being about video content. Requiring one
// of these on top of a primary term trades recall for precision, since
// subreddit flair and titles are unreliable on their own.
var secondaryTerms = []string{
	"video", "created", "animation", "animated", "render", "rendered",
	"clip", "footage", "film", "short", "motion", "timelapse",
}

// Classifier decides whether a raw post is worth ingesting for a given
// source. Pure and deterministic; no side effects.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Accept returns true when the post clears the source's score threshold,
// matches the term vocabularies (unless the source is exempt) and hits no
// exclude term.
func (c *Classifier) Accept(p source.RawPost, cfg config.SourceConfig) bool {
	if p.Score < cfg.MinScore {
		return false
	}

	if !cfg.SkipTermFilter {
		text := strings.ToLower(p.Title + " " + p.Body + " " + p.Flair)
		if !containsAny(text, primaryTerms) || !containsAny(text, secondaryTerms) {
			return false
		}
	}

	if len(cfg.ExcludeTerms) > 0 {
		text := strings.ToLower(p.Title + " " + p.Body)
		for _, term := range cfg.ExcludeTerms {
			if term == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(term)) {
				return false
			}
		}
	}

	return true
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
