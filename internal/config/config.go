package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. Loaded once at startup and treated
// as immutable afterwards.
type Config struct {
	Database   DatabaseConfig  `yaml:"database"`
	Schedule   ScheduleConfig  `yaml:"schedule"`
	Reddit     RedditConfig    `yaml:"reddit"`
	Sources    []SourceConfig  `yaml:"sources"`
	Channels   []ChannelConfig `yaml:"channels"`
	Ingest     IngestConfig    `yaml:"ingest"`
	Thumbnails ThumbnailConfig `yaml:"thumbnails"`
	Server     ServerConfig    `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures how often ingestion cycles run.
type ScheduleConfig struct {
	IngestInterval string `yaml:"ingest_interval"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// RedditConfig holds upstream API credentials. Both fields empty means
// the public unauthenticated endpoints are used.
type RedditConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

// SourceConfig is one subreddit to harvest.
type SourceConfig struct {
	Name           string   `yaml:"name"`
	MinScore       int      `yaml:"min_score"`
	ExcludeTerms   []string `yaml:"exclude_terms"`
	SkipTermFilter bool     `yaml:"skip_term_filter"`
}

// ChannelConfig is one curated RSS channel. Channel posts carry the
// synthetic score and skip the term filter.
type ChannelConfig struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Score int    `yaml:"score"`
}

// IngestConfig tunes pipeline pacing and page sizes.
type IngestConfig struct {
	PageSize     int    `yaml:"page_size"`
	TopWindow    string `yaml:"top_window"`
	RequestDelay string `yaml:"request_delay"`
	SourceDelay  string `yaml:"source_delay"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

// ParseRequestDelay returns the minimum spacing between upstream calls.
func (i IngestConfig) ParseRequestDelay() time.Duration {
	d, err := time.ParseDuration(i.RequestDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// ParseSourceDelay returns the pause inserted between sources.
func (i IngestConfig) ParseSourceDelay() time.Duration {
	d, err := time.ParseDuration(i.SourceDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ParseProbeTimeout returns the per-probe timeout.
func (i IngestConfig) ParseProbeTimeout() time.Duration {
	d, err := time.ParseDuration(i.ProbeTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ThumbnailConfig configures thumbnail derivation.
type ThumbnailConfig struct {
	Dir         string `yaml:"dir"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	Placeholder string `yaml:"placeholder"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./virtualfeed.db"},
		Schedule: ScheduleConfig{IngestInterval: "30m"},
		Reddit:   RedditConfig{UserAgent: "virtualfeed/1.0"},
		Sources: []SourceConfig{
			{Name: "aivideo", MinScore: 5, SkipTermFilter: true},
			{Name: "StableDiffusion", MinScore: 20},
			{Name: "midjourney", MinScore: 20},
			{Name: "aiArt", MinScore: 15},
			{Name: "ChatGPT", MinScore: 50},
			{Name: "singularity", MinScore: 50},
			{Name: "artificial", MinScore: 30},
		},
		Ingest: IngestConfig{
			PageSize:     50,
			TopWindow:    "week",
			RequestDelay: "2s",
			SourceDelay:  "5s",
			ProbeTimeout: "5s",
		},
		Thumbnails: ThumbnailConfig{
			Dir:         "./data/thumbnails",
			FFmpegPath:  "ffmpeg",
			Placeholder: "/static/placeholder.jpg",
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIRTUALFEED_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("VIRTUALFEED_THUMB_DIR"); v != "" {
		cfg.Thumbnails.Dir = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
