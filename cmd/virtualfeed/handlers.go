package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/threej-in/virtualfeed/internal/config"
	"github.com/threej-in/virtualfeed/internal/scheduler"
	"github.com/threej-in/virtualfeed/internal/store"
	"github.com/threej-in/virtualfeed/pkg/ingest"
	"github.com/threej-in/virtualfeed/pkg/server"
	"github.com/threej-in/virtualfeed/pkg/source"
	"github.com/threej-in/virtualfeed/pkg/thumbnail"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildLogger() (*zap.Logger, error) {
	if os.Getenv("VIRTUALFEED_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildJobs pairs every configured subreddit and RSS channel with a
// fetcher. All reddit jobs share one client and its rate limiter.
func buildJobs(cfg *config.Config, log *zap.Logger) []ingest.Job {
	limiter := rate.NewLimiter(rate.Every(cfg.Ingest.ParseRequestDelay()), 1)
	reddit := source.NewReddit(
		cfg.Reddit.ClientID,
		cfg.Reddit.ClientSecret,
		cfg.Reddit.UserAgent,
		limiter,
		log,
	)

	var jobs []ingest.Job
	for _, sc := range cfg.Sources {
		jobs = append(jobs, ingest.Job{
			Config:  sc,
			Fetcher: ingest.NewFetcher(reddit, cfg.Ingest.PageSize, cfg.Ingest.TopWindow, log),
		})
	}

	for _, ch := range cfg.Channels {
		client := source.NewRSSChannel(ch.URL, ch.Score, cfg.Reddit.UserAgent, log)
		jobs = append(jobs, ingest.Job{
			Config: config.SourceConfig{
				Name:           ch.Name,
				MinScore:       ch.Score,
				SkipTermFilter: true,
			},
			Fetcher: ingest.NewFetcher(client, cfg.Ingest.PageSize, cfg.Ingest.TopWindow, log),
		})
	}

	return jobs
}

func buildOrchestrator(cfg *config.Config, db store.Store, log *zap.Logger) *ingest.Orchestrator {
	jobs := buildJobs(cfg, log)
	prober := ingest.NewHTTPProber(cfg.Ingest.ParseProbeTimeout(), cfg.Reddit.UserAgent)
	validator := ingest.NewValidator(prober, log)
	thumbs := thumbnail.New(cfg.Thumbnails.Dir, cfg.Thumbnails.Placeholder, cfg.Thumbnails.FFmpegPath, log)

	return ingest.NewOrchestrator(
		jobs,
		ingest.NewClassifier(),
		validator,
		thumbs,
		db,
		cfg.Ingest.ParseSourceDelay(),
		log,
	)
}

func runIngest(filterSources []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(filterSources) > 0 {
		cfg = filterConfigSources(cfg, filterSources)
		if len(cfg.Sources)+len(cfg.Channels) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := buildOrchestrator(cfg, db, log)
	stats, err := orch.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Printf("ingested %d videos from %d sources\n", stats.Total, len(stats.BySource))
	return nil
}

// filterConfigSources keeps only the named sources and channels.
func filterConfigSources(cfg *config.Config, names []string) *config.Config {
	wanted := make(map[string]bool)
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	out := *cfg
	out.Sources = nil
	out.Channels = nil
	for _, sc := range cfg.Sources {
		if wanted[strings.ToLower(sc.Name)] {
			out.Sources = append(out.Sources, sc)
		}
	}
	for _, ch := range cfg.Channels {
		if wanted[strings.ToLower(ch.Name)] {
			out.Channels = append(out.Channels, ch)
		}
	}
	return &out
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := buildOrchestrator(cfg, db, log)
	srv := server.New(db, orch, cfg.Thumbnails.Dir, cfg.Server.Port, log)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := buildOrchestrator(cfg, db, log)

	sched := scheduler.New(orch, cfg.Schedule.ParseIngestInterval(), log)
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler error", zap.Error(err))
		}
	}()

	srv := server.New(db, orch, cfg.Thumbnails.Dir, cfg.Server.Port, log)
	return srv.ListenAndServe(ctx)
}
