package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
	bimsync "github.com/mrsbim/bimsync/internal/sync"
)

// Notifier receives the events of every run.
type Notifier interface {
	bimsync.Progress
	OnSyncStarted(since *time.Time)
	OnSyncComplete(results []bimsync.Result, err error, elapsed time.Duration)
	UpdateStats(stats *store.Stats)
}

// Config holds configuration for the daemon.
type Config struct {
	// Interval between periodic runs
	Interval time.Duration

	// Debounce is how long the watched directories must stay quiet before
	// a change triggers a run. This batches rapid updates together.
	Debounce time.Duration

	// UserID owns the synchronization history. Without it every run is full.
	UserID string

	// WatchDirs are watched for *.json changes. Empty disables watching.
	WatchDirs []string

	// Filters passed to every run
	ProjectsFilter   func(*model.Project) bool
	ObjectivesFilter func(*model.Objective) bool

	// Notifier receives run events (optional)
	Notifier Notifier

	Logger *zerolog.Logger
	Clock  func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 5 * time.Minute,
		Debounce: 2 * time.Second,
	}
}

// Daemon schedules synchronization runs.
type Daemon struct {
	engine bimsync.Engine
	db     *store.DB
	conn   connection.Connection
	info   connection.Info
	config *Config
	logger zerolog.Logger
	clock  func() time.Time

	watcher *fsnotify.Watcher

	changeMu   sync.Mutex
	lastChange time.Time
	dirty      bool
	running    bool // file events are the daemon's own pushes while set

	runMu sync.Mutex
	runs  int

	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stop    sync.Once
}

// New creates a Daemon. Use Start() to begin scheduling runs.
func New(engine bimsync.Engine, db *store.DB, conn connection.Connection, info connection.Info, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive (got %v)", config.Interval)
	}

	d := &Daemon{
		engine:  engine,
		db:      db,
		conn:    conn,
		info:    info,
		config:  config,
		logger:  zerolog.Nop(),
		clock:   time.Now,
		trigger: make(chan struct{}, 1),
	}
	if config.Logger != nil {
		d.logger = config.Logger.With().Str("component", "daemon").Logger()
	}
	if config.Clock != nil {
		d.clock = config.Clock
	}

	if len(config.WatchDirs) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		d.watcher = watcher
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start runs once, then schedules runs until ctx is cancelled or Stop is
// called. A failed run is logged and does not stop the daemon.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info().
		Dur("interval", d.config.Interval).
		Strs("watch", d.config.WatchDirs).
		Msg("Starting daemon")

	if d.watcher != nil {
		for _, dir := range d.config.WatchDirs {
			if err := d.watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		d.wg.Add(1)
		go d.watchFileEvents()
	}

	d.wg.Add(1)
	go d.schedule()

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for a run in progress to finish.
func (d *Daemon) Stop() error {
	d.stop.Do(func() {
		d.logger.Debug().Msg("Stopping daemon")
		d.cancel()
		if d.watcher != nil {
			if err := d.watcher.Close(); err != nil {
				d.logger.Warn().Err(err).Msg("Error closing watcher")
			}
		}
		d.wg.Wait()
		d.logger.Info().Int("runs", d.Runs()).Msg("Daemon stopped")
	})
	return nil
}

// Trigger requests a run as soon as possible. Requests made while one is
// pending are coalesced.
func (d *Daemon) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Runs returns the number of completed runs.
func (d *Daemon) Runs() int {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.runs
}

// RunOnce performs one incremental run and records it in the
// synchronization history when nothing failed.
func (d *Daemon) RunOnce(ctx context.Context) ([]bimsync.Result, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.setRunning(true)
	defer d.setRunning(false)

	run := bimsync.RunConfig{
		UserID:           d.config.UserID,
		ProjectsFilter:   d.config.ProjectsFilter,
		ObjectivesFilter: d.config.ObjectivesFilter,
	}
	if run.UserID != "" {
		since, err := d.db.LastSynchronizationContext(ctx, run.UserID)
		if err != nil {
			return nil, err
		}
		run.Date = since
	}

	var progress bimsync.Progress
	if d.config.Notifier != nil {
		progress = d.config.Notifier
		d.config.Notifier.OnSyncStarted(run.Date)
	}

	started := d.clock()
	results, err := d.engine.Synchronize(ctx, run, d.conn, d.info, progress)
	elapsed := d.clock().Sub(started)
	d.runs++

	if d.config.Notifier != nil {
		d.config.Notifier.OnSyncComplete(results, err, elapsed)
	}

	event := d.logger.Info()
	if err != nil || len(results) > 0 {
		event = d.logger.Warn().Err(err)
	}
	event.Int("failures", len(results)).Dur("duration", elapsed).Msg("Run finished")

	if err == nil && len(results) == 0 && run.UserID != "" {
		// The start time is recorded so changes made during the run are
		// fetched again next time.
		if rerr := d.db.RecordSynchronizationContext(ctx, run.UserID, started); rerr != nil {
			d.logger.Warn().Err(rerr).Msg("Failed to record synchronization")
		}
	}

	if d.config.Notifier != nil {
		if stats, serr := d.db.StatsContext(ctx); serr == nil {
			d.config.Notifier.UpdateStats(stats)
		} else {
			d.logger.Warn().Err(serr).Msg("Failed to compute statistics")
		}
	}
	return results, err
}

// schedule runs immediately, then on the interval ticker, on triggers and
// on settled file changes.
func (d *Daemon) schedule() {
	defer d.wg.Done()

	d.runSafely()

	interval := time.NewTicker(d.config.Interval)
	defer interval.Stop()

	var settle <-chan time.Time
	if d.watcher != nil {
		tick := d.config.Debounce / 2
		if tick < 10*time.Millisecond {
			tick = 10 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		settle = ticker.C
	}

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-interval.C:
			d.runSafely()
		case <-d.trigger:
			d.runSafely()
		case <-settle:
			if d.settled() {
				d.runSafely()
			}
		}
	}
}

func (d *Daemon) runSafely() {
	if _, err := d.RunOnce(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error().Err(err).Msg("Run failed")
	}
}

// settled reports, and clears, a change older than the debounce interval.
func (d *Daemon) settled() bool {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()
	if !d.dirty || d.clock().Sub(d.lastChange) < d.config.Debounce {
		return false
	}
	d.dirty = false
	return true
}

// setRunning marks a run in progress. Changes queued before the run are
// covered by it, so the end of a run clears them.
func (d *Daemon) setRunning(running bool) {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()
	d.running = running
	if !running {
		d.dirty = false
	}
}

func (d *Daemon) queueChange() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()
	if d.running {
		return
	}
	d.lastChange = d.clock()
	d.dirty = true
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			d.logger.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("File event")
			d.queueChange()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// relevant keeps create, write, remove and rename events of record documents.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Ext(event.Name) == ".json"
}
