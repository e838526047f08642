// Package refresh keeps the served dataset current: on a cron schedule it
// reloads through the dataset cache, and when asked to watch the local
// copy it reloads that file after external edits.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"salary-dashboard/internal/dataset"
	"salary-dashboard/internal/models"
)

const DefaultDebounce = 500 * time.Millisecond

// Source is the loader the refresher drives.
type Source interface {
	dataset.Source
	LoadLocal(ctx context.Context) (*models.Dataset, error)
	LocalPath() string
	LocalCopyIsOwnWrite() bool
}

// Sink receives every successfully reloaded dataset.
type Sink interface {
	SetDataset(ds *models.Dataset)
}

type Config struct {
	// Schedule is a cron expression; empty disables scheduled refreshes.
	Schedule  string
	WatchFile bool
	Debounce  time.Duration
}

type Refresher struct {
	cache  *dataset.Cache
	source Source
	sink   Sink
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	watcher *fsnotify.Watcher
	timer   *time.Timer
}

func New(cache *dataset.Cache, source Source, sink Sink, cfg Config, logger *slog.Logger) *Refresher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Refresher{
		cache:  cache,
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger.With("component", "refresh"),
	}
}

// RefreshNow reloads the dataset through the cache and hands it to the
// sink. On failure the sink keeps its previous dataset.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	start := time.Now()
	ds, err := r.cache.Refresh(ctx, r.source)
	if err != nil {
		r.logger.Warn("refresh failed, keeping previous dataset", "error", err)
		return err
	}

	r.sink.SetDataset(ds)
	r.logger.Info("dataset refreshed",
		"records", ds.Len(),
		"source", ds.Source,
		"duration", time.Since(start),
	)
	return nil
}

// reloadLocal picks up an external edit of the local copy.
func (r *Refresher) reloadLocal(ctx context.Context) error {
	if r.source.LocalCopyIsOwnWrite() {
		r.logger.Debug("ignoring change made by the loader", "path", r.source.LocalPath())
		return nil
	}

	ds, err := r.source.LoadLocal(ctx)
	if err != nil {
		r.logger.Warn("local reload failed, keeping previous dataset",
			"path", r.source.LocalPath(),
			"error", err,
		)
		return err
	}

	r.cache.Store(r.source.Key(), ds)
	r.sink.SetDataset(ds)
	r.logger.Info("local dataset reloaded", "path", r.source.LocalPath(), "records", ds.Len())
	return nil
}

// Start installs the cron schedule and the file watcher. Jobs run with
// ctx until Stop.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(r.cfg.Schedule, func() {
			r.RefreshNow(ctx)
		}); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", r.cfg.Schedule, err)
		}
		c.Start()
		r.cron = c
		r.logger.Info("scheduled refresh enabled", "schedule", r.cfg.Schedule)
	}

	if r.cfg.WatchFile {
		if err := r.startWatcher(ctx); err != nil {
			r.stopLocked()
			return err
		}
	}

	return nil
}

func (r *Refresher) startWatcher(ctx context.Context) error {
	target, err := filepath.Abs(r.source.LocalPath())
	if err != nil {
		return fmt.Errorf("resolve local path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory survives atomic replacement of the file.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	r.watcher = watcher

	go r.watch(ctx, watcher, target)

	r.logger.Info("watching local dataset", "path", target)
	return nil
}

func (r *Refresher) watch(ctx context.Context, watcher *fsnotify.Watcher, target string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if abs, _ := filepath.Abs(event.Name); abs != target {
				continue
			}
			r.debounce(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", "error", err)
		}
	}
}

func (r *Refresher) debounce(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		r.reloadLocal(ctx)
	})
}

// Run starts the refresher and blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

// Stop removes the schedule and the watcher and waits for a running cron
// job to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.stopLocked()
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (r *Refresher) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
	if r.cron != nil {
		r.cron.Stop()
		r.cron = nil
	}
}
