package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threej-in/virtualfeed/internal/config"
	"github.com/threej-in/virtualfeed/internal/store"
	"github.com/threej-in/virtualfeed/pkg/source"
)

// RecordStore is the slice of the persistence gateway the pipeline needs.
type RecordStore interface {
	UpsertVideo(ctx context.Context, v *store.Video) error
}

// Thumbnailer derives a thumbnail reference for a video URL.
type Thumbnailer interface {
	Generate(ctx context.Context, videoURL string) (string, error)
}

// Job pairs one configured source with the fetcher that serves it.
type Job struct {
	Config  config.SourceConfig
	Fetcher *Fetcher
}

// RunStats summarizes one ingestion cycle.
type RunStats struct {
	RunID    string         `json:"run_id"`
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
}

// Orchestrator drives the end-to-end ingestion cycle: sequentially over
// sources, sequentially over posts, with a pause between sources. Errors
// are contained at the narrowest scope that preserves forward progress:
// a failing post never aborts its source and a failing source never
// aborts the run.
type Orchestrator struct {
	jobs        []Job
	classifier  *Classifier
	validator   *Validator
	thumbs      Thumbnailer
	store       RecordStore
	sourceDelay time.Duration
	log         *zap.Logger
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(jobs []Job, classifier *Classifier, validator *Validator,
	thumbs Thumbnailer, st RecordStore, sourceDelay time.Duration, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:        jobs,
		classifier:  classifier,
		validator:   validator,
		thumbs:      thumbs,
		store:       st,
		sourceDelay: sourceDelay,
		log:         log,
	}
}

// Run executes one ingestion cycle and returns per-source and total
// upsert counts. The only error it returns is context cancellation
// between sources; everything else is logged and absorbed.
func (o *Orchestrator) Run(ctx context.Context) (RunStats, error) {
	stats := RunStats{
		RunID:    uuid.NewString(),
		BySource: make(map[string]int, len(o.jobs)),
	}
	log := o.log.With(zap.String("run_id", stats.RunID))
	started := time.Now()

	for i, job := range o.jobs {
		if i > 0 && o.sourceDelay > 0 {
			select {
			case <-ctx.Done():
				log.Info("run aborted between sources",
					zap.Int("total", stats.Total), zap.Error(ctx.Err()))
				return stats, ctx.Err()
			case <-time.After(o.sourceDelay):
			}
		}

		count := o.runSource(ctx, log, job)
		stats.BySource[job.Config.Name] = count
		stats.Total += count
	}

	log.Info("ingestion cycle done",
		zap.Int("total", stats.Total),
		zap.Int("sources", len(o.jobs)),
		zap.Duration("elapsed", time.Since(started)))
	return stats, nil
}

// runSource processes every candidate of one source and returns the
// number of records upserted.
func (o *Orchestrator) runSource(ctx context.Context, log *zap.Logger, job Job) int {
	name := job.Config.Name
	posts, err := job.Fetcher.FetchCandidates(ctx, name)
	if err != nil {
		log.Warn("source fetch failed", zap.String("source", name), zap.Error(err))
		return 0
	}

	count := 0
	for _, p := range posts {
		stored, err := o.processPost(ctx, p, job.Config)
		if err != nil {
			log.Warn("post processing failed",
				zap.String("source", name), zap.String("post_id", p.ID), zap.Error(err))
			continue
		}
		if stored {
			count++
		}
	}

	log.Info("source processed",
		zap.String("source", name),
		zap.Int("candidates", len(posts)),
		zap.Int("stored", count))
	return count
}

// processPost runs one candidate through classify, resolve, validate,
// enrich and upsert. A false return with nil error is a soft reject.
func (o *Orchestrator) processPost(ctx context.Context, p source.RawPost, cfg config.SourceConfig) (bool, error) {
	if !o.classifier.Accept(p, cfg) {
		return false, nil
	}

	media := ResolveMedia(p)
	if media == nil {
		return false, nil
	}

	meta, err := o.validator.Validate(ctx, *media)
	if err != nil {
		return false, err
	}
	if meta == nil {
		return false, nil
	}

	thumb, err := o.thumbs.Generate(ctx, meta.URL)
	if err != nil {
		// Thumbnail absence never blocks ingestion of the record.
		o.log.Warn("thumbnail generation failed",
			zap.String("post_id", p.ID), zap.Error(err))
		thumb = ""
	}

	now := time.Now().UTC()
	v := &store.Video{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Body,
		VideoURL:     meta.URL,
		ThumbnailURL: thumb,
		Source:       p.SourceName,
		Tags:         ExtractTags(p.Title, p.SourceName),
		IsAdult:      p.IsAdult,
		Width:        meta.Width,
		Height:       meta.Height,
		Format:       string(meta.Format),
		DurationSec:  meta.DurationSec,
		SourceScore:  p.Score,
		Permalink:    p.Permalink,
		PostedAt:     p.CreatedAt,
		IngestedAt:   now,
		UpdatedAt:    now,
	}

	if err := o.store.UpsertVideo(ctx, v); err != nil {
		return false, err
	}
	return true, nil
}
