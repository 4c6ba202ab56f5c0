// Package backup writes periodic export snapshots to a directory.
//
// Snapshots are ordinary export files named rewardbook-YYYYMMDD-HHMMSS.json,
// so any of them can be imported back with "rb data import". Only the newest
// Keep snapshots are retained.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/studyreward/rewardbook/internal/storage"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

const (
	filePrefix = "rewardbook-"
	fileSuffix = ".json"
	timeLayout = "20060102-150405"

	// DefaultKeep is the retention used when Config.Keep is not positive.
	DefaultKeep = 7
)

// Exporter produces an export file.
type Exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

// Config holds scheduler settings.
type Config struct {
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@daily".
	Schedule string
	// Dir receives the snapshots.
	Dir string
	// Keep is how many snapshots to retain.
	Keep int
	// Logger for scheduler activity (default: stderr logger).
	Logger *log.Logger
	// Now overrides the clock used for file names.
	Now func() time.Time
}

// Scheduler runs snapshots on a cron schedule.
type Scheduler struct {
	exporter Exporter
	config   Config
	cron     *cron.Cron
}

// ValidateSchedule reports whether expr is a usable cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", expr, err)
	}
	return nil
}

// New creates a scheduler. The snapshot directory is created if needed.
func New(exporter Exporter, config Config) (*Scheduler, error) {
	if exporter == nil {
		return nil, fmt.Errorf("exporter cannot be nil")
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("backup directory cannot be empty")
	}
	if err := ValidateSchedule(config.Schedule); err != nil {
		return nil, err
	}
	if config.Keep <= 0 {
		config.Keep = DefaultKeep
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[backup] ", log.LstdFlags)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if err := os.MkdirAll(config.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	s := &Scheduler{exporter: exporter, config: config}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(config.Logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(config.Logger)),
	))
	if _, err := s.cron.AddFunc(config.Schedule, s.runJob); err != nil {
		return nil, fmt.Errorf("failed to schedule backup: %w", err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. A job in
// progress is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.config.Logger.Printf("Backups scheduled (%s) into %s, keeping %d", s.config.Schedule, s.config.Dir, s.config.Keep)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.config.Logger.Println("Backup scheduler stopped")
	return nil
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	path, err := s.Snapshot(ctx)
	if err != nil {
		s.config.Logger.Printf("Warning: backup failed: %v", err)
		return
	}
	s.config.Logger.Printf("Backup written to %s", path)
}

// Snapshot writes one export file now and prunes old ones.
func (s *Scheduler) Snapshot(ctx context.Context) (string, error) {
	data, err := s.exporter.Export(ctx)
	if err != nil {
		telemetry.Backups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to export: %w", err)
	}

	name := filePrefix + s.config.Now().UTC().Format(timeLayout) + fileSuffix
	path := filepath.Join(s.config.Dir, name)
	if err := storage.WriteAtomic(path, data); err != nil {
		telemetry.Backups.WithLabelValues("error").Inc()
		return "", err
	}
	telemetry.Backups.WithLabelValues("success").Inc()

	if err := s.prune(); err != nil {
		s.config.Logger.Printf("Warning: failed to prune backups: %v", err)
	}
	return path, nil
}

// Snapshots lists existing snapshot files, oldest first.
func (s *Scheduler) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, filePrefix) || !strings.HasSuffix(n, fileSuffix) {
			continue
		}
		names = append(names, filepath.Join(s.config.Dir, n))
	}
	// the timestamp layout sorts lexically
	sort.Strings(names)
	return names, nil
}

func (s *Scheduler) prune() error {
	names, err := s.Snapshots()
	if err != nil {
		return err
	}
	if len(names) <= s.config.Keep {
		return nil
	}
	for _, old := range names[:len(names)-s.config.Keep] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", old, err)
		}
	}
	return nil
}
