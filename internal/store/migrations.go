package store

const schema = `
CREATE TABLE IF NOT EXISTS videos (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    video_url     TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL,
    tags          TEXT NOT NULL DEFAULT '[]',
    is_adult      BOOLEAN NOT NULL DEFAULT 0,
    view_count    INTEGER NOT NULL DEFAULT 0,
    like_count    INTEGER NOT NULL DEFAULT 0,
    width         INTEGER NOT NULL DEFAULT 0,
    height        INTEGER NOT NULL DEFAULT 0,
    format        TEXT NOT NULL DEFAULT 'unknown',
    duration_sec  INTEGER NOT NULL DEFAULT 0,
    source_score  INTEGER NOT NULL DEFAULT 0,
    permalink     TEXT NOT NULL DEFAULT '',
    posted_at     DATETIME NOT NULL,
    ingested_at   DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_videos_source ON videos(source);
CREATE INDEX IF NOT EXISTS idx_videos_posted_at ON videos(posted_at);
CREATE INDEX IF NOT EXISTS idx_videos_updated_at ON videos(updated_at);
CREATE INDEX IF NOT EXISTS idx_videos_source_score ON videos(source_score);
`
