package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Video is the persisted output of the ingestion pipeline. The id is the
// source post id and acts as the natural key: re-ingesting the same post
// updates the row in place. ViewCount and LikeCount are owned by
// downstream consumers and are never written by an upsert after creation.
type Video struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	VideoURL     string    `db:"video_url" json:"video_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	Source       string    `db:"source" json:"source"`
	Tags         []string  `json:"tags" db:"-"`
	TagsJSON     string    `json:"-" db:"tags"`
	IsAdult      bool      `db:"is_adult" json:"is_adult"`
	ViewCount    int       `db:"view_count" json:"view_count"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	Format       string    `db:"format" json:"format"`
	// DurationSec stays 0 for formats the pipeline never probes.
	DurationSec int       `db:"duration_sec" json:"duration_sec"`
	SourceScore int       `db:"source_score" json:"source_score"`
	Permalink   string    `db:"permalink" json:"permalink"`
	PostedAt    time.Time `db:"posted_at" json:"posted_at"`
	IngestedAt  time.Time `db:"ingested_at" json:"ingested_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ListOpts controls video listing.
type ListOpts struct {
	Source       string
	IncludeAdult bool
	Limit        int
}

// Store is the persistence interface consumed by the pipeline and the
// HTTP layer.
type Store interface {
	UpsertVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	ListVideos(ctx context.Context, opts ListOpts) ([]Video, error)
	CountBySource(ctx context.Context) (map[string]int, error)
	IncrementViews(ctx context.Context, id string) error
	IncrementLikes(ctx context.Context, id string) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertVideo inserts or updates a video by its natural key. The conflict
// branch deliberately leaves view_count, like_count and ingested_at
// untouched so re-observations never reset consumer-owned state.
func (s *SQLiteStore) UpsertVideo(ctx context.Context, v *Video) error {
	tagsJSON, _ := json.Marshal(v.Tags)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (id, title, description, video_url, thumbnail_url, source, tags,
			is_adult, view_count, like_count, width, height, format, duration_sec,
			source_score, permalink, posted_at, ingested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			video_url = excluded.video_url,
			thumbnail_url = excluded.thumbnail_url,
			tags = excluded.tags,
			is_adult = excluded.is_adult,
			width = excluded.width,
			height = excluded.height,
			format = excluded.format,
			duration_sec = excluded.duration_sec,
			source_score = excluded.source_score,
			permalink = excluded.permalink,
			updated_at = excluded.updated_at
	`, v.ID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Source, string(tagsJSON),
		v.IsAdult, v.Width, v.Height, v.Format, v.DurationSec,
		v.SourceScore, v.Permalink, v.PostedAt, v.IngestedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.ID, err)
	}
	return nil
}

// GetVideo returns a single video or (nil, nil) when absent.
func (s *SQLiteStore) GetVideo(ctx context.Context, id string) (*Video, error) {
	var v Video
	err := s.db.GetContext(ctx, &v, "SELECT * FROM videos WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	json.Unmarshal([]byte(v.TagsJSON), &v.Tags)
	return &v, nil
}

func (s *SQLiteStore) ListVideos(ctx context.Context, opts ListOpts) ([]Video, error) {
	query := "SELECT * FROM videos WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if !opts.IncludeAdult {
		query += " AND is_adult = 0"
	}

	query += " ORDER BY posted_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var videos []Video
	if err := s.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	for i := range videos {
		json.Unmarshal([]byte(videos[i].TagsJSON), &videos[i].Tags)
	}
	return videos, nil
}

func (s *SQLiteStore) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT source, COUNT(*) as cnt FROM videos GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("count videos by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var src string
		var cnt int
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, err
		}
		counts[src] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE videos SET view_count = view_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment views %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) IncrementLikes(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE videos SET like_count = like_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("increment likes %s: %w", id, err)
	}
	return nil
}
