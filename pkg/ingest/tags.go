package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxTags   = 15
	maxTagLen = 50
)

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"what": true, "when": true, "where": true, "which": true, "their": true,
	"about": true, "would": true, "there": true, "could": true, "should": true,
	"made": true, "make": true, "just": true, "like": true, "some": true,
	"more": true, "very": true, "your": true, "been": true, "into": true,
	"them": true, "then": true, "than": true, "were": true, "will": true,
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	quotedRe  = regexp.MustCompile(`"([^"]+)"`)
	bracketRe = regexp.MustCompile(`\[([^\]]+)\]`)
	parenRe   = regexp.MustCompile(`\(([^)]+)\)`)
	// toolRe captures the token following a tool attribution phrase
	// ("using X", "made with X", ...).
	toolRe  = regexp.MustCompile(`(?i)\b(?:using|made with|created by|created with|powered by|generated by|generated with)\s+([\w.-]+)`)
	wordRe  = regexp.MustCompile(`[A-Za-z0-9][\w'-]*`)
	digitRe = regexp.MustCompile(`\d`)
)

// ExtractTags derives up to 15 lower-case tags from a post title and its
// source name, in priority order: source name, hashtags, quoted phrases,
// bracketed and parenthetical terms, tool attributions, then remaining
// significant title words. Deterministic for identical inputs.
func ExtractTags(title, sourceName string) []string {
	set := newTagSet()

	set.add(sourceName)

	for _, m := range hashtagRe.FindAllStringSubmatch(title, -1) {
		set.add(m[1])
	}
	for _, m := range quotedRe.FindAllStringSubmatch(title, -1) {
		set.add(m[1])
	}
	for _, m := range bracketRe.FindAllStringSubmatch(title, -1) {
		set.add(m[1])
	}
	for _, m := range parenRe.FindAllStringSubmatch(title, -1) {
		set.add(m[1])
	}
	for _, m := range toolRe.FindAllStringSubmatch(title, -1) {
		set.add(m[1])
	}

	for _, word := range wordRe.FindAllString(title, -1) {
		if len(word) <= 3 {
			continue
		}
		if stopWords[strings.ToLower(word)] {
			continue
		}
		if significant(word) {
			set.add(word)
		}
	}

	return set.tags
}

// significant reports whether a title word carries enough signal to stand
// alone as a tag.
func significant(word string) bool {
	if unicode.IsUpper([]rune(word)[0]) {
		return true
	}
	if digitRe.MatchString(word) {
		return true
	}
	if strings.Contains(strings.ToLower(word), "ai") {
		return true
	}
	return len(word) > 6
}

// tagSet is a deduplicating, insertion-ordered, capped tag accumulator.
type tagSet struct {
	tags []string
	seen map[string]bool
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]bool)}
}

func (s *tagSet) add(raw string) {
	if len(s.tags) >= maxTags {
		return
	}
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" || len(tag) >= maxTagLen || s.seen[tag] {
		return
	}
	s.seen[tag] = true
	s.tags = append(s.tags, tag)
}
