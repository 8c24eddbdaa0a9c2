package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"audioshelf/internal/api"
	"audioshelf/internal/auth"
	"audioshelf/internal/config"
	"audioshelf/internal/events"
	"audioshelf/internal/httpapi"
	"audioshelf/internal/imagecache"
	"audioshelf/internal/logging"
	"audioshelf/internal/metrics"
	"audioshelf/internal/providers"
	"audioshelf/internal/store"
)

// Daemon serves a library database and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	hub     *events.Hub
	metrics *metrics.Metrics
	items   *api.ItemService
	shelf   *api.ShelfService
	handler http.Handler

	server    *apiServer
	scheduler *scanScheduler

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	startedAt atomic.Int64
	cancel    context.CancelFunc
}

// New wires the services around an open store.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	m := metrics.New()
	hub := events.NewHub(logger)
	emitter := m.CountEvents(hub)
	timeout := time.Duration(cfg.Providers.RequestTimeoutSeconds) * time.Second

	finder := providers.NewAuthorFinder(providers.AuthorFinderOptions{
		BaseURL:           cfg.Providers.AudnexusBaseURL,
		Region:            cfg.Providers.AudnexusRegion,
		ImageDir:          cfg.AuthorImageDir(),
		Timeout:           timeout,
		RequestsPerSecond: cfg.Providers.RequestsPerSecond,
		Observer:          m.ProviderRequest,
		Logger:            logger,
	})
	images := imagecache.New(cfg.Paths.CacheDir, cfg.ImageCache.MaxMiB, cfg.ImageCache.DefaultWidth, logger)
	search := providers.NewCustomAdapter(st, logger, providers.WithRequestObserver(m.ProviderRequest))

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		hub:      hub,
		metrics:  m,
		items:    api.NewItemService(st, emitter, logger),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.shelf = api.NewShelfService(api.ShelfServiceOptions{
		Store:    st,
		Layout:   cfg.Bookshelf,
		Observer: m.ShelfObserver(),
		Events:   emitter,
		Logger:   logger,
	})
	d.handler = httpapi.New(httpapi.Options{
		Authors: api.NewAuthorService(api.AuthorServiceOptions{
			Store:  st,
			Images: images,
			Finder: finder,
			Events: emitter,
			Logger: logger,
		}),
		Series:  api.NewSeriesService(st, emitter, logger),
		Folders: api.NewFolderService(st, emitter, logger),
		Items:   d.items,
		Shelf:   d.shelf,
		Search:  search,
		Auth:    auth.New(cfg),
		Socket:  hub,
		Metrics: m,
		Status:  d.Status,
		Logger:  logger,
	}).Handler()
	d.server = newAPIServer(cfg.Paths.APIBind, d.handler, logger)
	d.scheduler = newScanScheduler(st, d.items, logger)
	return d, nil
}

// Start acquires the daemon lock, then starts the HTTP server and the
// folder check schedules.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another audioshelf daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.scheduler.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.server.start(runCtx); err != nil {
		d.scheduler.stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("audioshelf daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.addr()),
	)
	return nil
}

// Stop shuts the server down and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.scheduler.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.running.Store(false)
	d.logger.Info("audioshelf daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	d.hub.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Handler returns the HTTP handler served by the daemon.
func (d *Daemon) Handler() http.Handler {
	return d.handler
}

// Address returns the bound listener address while running.
func (d *Daemon) Address() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		SocketClients: d.hub.Clients(),
		ShelfViews:    d.shelf.Views(),
	}
	if version, err := d.store.SchemaVersion(ctx); err == nil {
		status.SchemaVersion = version
	}
	if libs, err := d.store.ListLibraries(ctx); err == nil {
		status.Libraries = len(libs)
	}
	if status.Running {
		started := time.Unix(0, d.startedAt.Load())
		status.StartedAt = started.UTC().Format(time.RFC3339)
		status.Uptime = strings.TrimSpace(humanize.RelTime(started, time.Now(), "", ""))
	}
	return status
}
