package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"audioshelf/internal/library"
	"audioshelf/internal/logging"
)

// resyncSpec reloads library schedules so settings edits take effect
// without a restart.
const resyncSpec = "@every 5m"

// LibraryLister lists the libraries whose schedules the daemon runs.
type LibraryLister interface {
	ListLibraries(ctx context.Context) ([]*library.Library, error)
}

// FolderChecker marks audio files whose paths vanished.
type FolderChecker interface {
	CheckFiles(ctx context.Context, libraryID string) (int, error)
}

type scheduledScan struct {
	spec string
	id   cron.EntryID
}

// scanScheduler runs the folder check of every library on its
// autoScanCronExpression.
type scanScheduler struct {
	libraries LibraryLister
	checker   FolderChecker
	logger    *slog.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]scheduledScan
	// rejected holds the last invalid expression seen per library.
	rejected map[string]string
}

func newScanScheduler(libraries LibraryLister, checker FolderChecker, logger *slog.Logger) *scanScheduler {
	return &scanScheduler{
		libraries: libraries,
		checker:   checker,
		logger:    logging.NewComponentLogger(logger, "scan-scheduler"),
		cron:      cron.New(),
		ctx:       context.Background(),
		entries:   make(map[string]scheduledScan),
		rejected:  make(map[string]string),
	}
}

func (s *scanScheduler) start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if err := s.sync(ctx); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(resyncSpec, func() {
		if err := s.sync(s.context()); err != nil {
			logging.WarnWithContext(s.logger, "library schedule reload failed", "scan_resync_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "schedule changes apply after the next successful reload"),
			)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// stop halts the cron loop and waits for running checks.
func (s *scanScheduler) stop() {
	<-s.cron.Stop().Done()
}

func (s *scanScheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// sync reconciles cron entries with the stored library settings. Invalid
// expressions are logged once per change and skipped.
func (s *scanScheduler) sync(ctx context.Context) error {
	libs, err := s.libraries.ListLibraries(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]string, len(libs))
	for _, lib := range libs {
		if spec := scanSpec(lib); spec != "" {
			wanted[lib.ID] = spec
		}
	}
	for id, entry := range s.entries {
		if wanted[id] != entry.spec {
			s.cron.Remove(entry.id)
			delete(s.entries, id)
		}
	}
	for id, spec := range s.rejected {
		if wanted[id] != spec {
			delete(s.rejected, id)
		}
	}
	for id, spec := range wanted {
		if _, ok := s.entries[id]; ok {
			continue
		}
		if s.rejected[id] == spec {
			continue
		}
		libraryID := id
		entryID, err := s.cron.AddFunc(spec, func() { s.check(libraryID) })
		if err != nil {
			logging.WarnWithContext(s.logger, "invalid auto scan expression", "scan_schedule_invalid",
				logging.LibraryID(libraryID),
				logging.String("expression", spec),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "use a five field cron expression such as \"0 * * * *\""),
			)
			s.rejected[libraryID] = spec
			continue
		}
		s.entries[libraryID] = scheduledScan{spec: spec, id: entryID}
		s.logger.Info("folder check scheduled",
			logging.LibraryID(libraryID),
			logging.String("expression", spec),
		)
	}
	return nil
}

func (s *scanScheduler) scheduled() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for id, entry := range s.entries {
		out[id] = entry.spec
	}
	return out
}

func (s *scanScheduler) check(libraryID string) {
	started := time.Now()
	marked, err := s.checker.CheckFiles(s.context(), libraryID)
	if err != nil {
		logging.ErrorWithContext(s.logger, "folder check failed", "scan_check_failed",
			logging.LibraryID(libraryID),
			logging.Error(err),
		)
		return
	}
	s.logger.Info("folder check finished",
		logging.LibraryID(libraryID),
		logging.Int("missing_files", marked),
		logging.Duration("elapsed", time.Since(started)),
	)
}

func scanSpec(lib *library.Library) string {
	if lib == nil || lib.Settings.AutoScanCronExpression == nil {
		return ""
	}
	return strings.TrimSpace(*lib.Settings.AutoScanCronExpression)
}
