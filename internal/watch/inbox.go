// Package watch imports export files dropped into an inbox directory.
//
// The inbox watches one directory for *.json files. Each file is imported
// once it has been quiet for the debounce interval, then moved to
// processed/ on success or failed/ otherwise, with the failure message
// written next to it as <name>.error.txt.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/studyreward/rewardbook/internal/store"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// Subdirectories of the inbox.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Importer merges an export file into the local data.
type Importer interface {
	Import(ctx context.Context, data []byte) store.ImportResult
}

// Config holds inbox settings.
type Config struct {
	// Debounce is how long a file must stay unchanged before import.
	Debounce time.Duration

	// OnResult, when set, is called after every import attempt.
	OnResult func(path string, res store.ImportResult)

	// Logger for inbox activity.
	Logger *log.Logger
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 500 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[inbox] ", log.LstdFlags),
	}
}

// Inbox watches a directory and imports the files that land in it.
type Inbox struct {
	dir      string
	importer Importer
	config   *Config

	queue   map[string]time.Time
	queueMu sync.Mutex
}

// New prepares an inbox at dir, creating it and its subdirectories.
func New(dir string, importer Importer, config *Config) (*Inbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}

	for _, d := range []string{dir, filepath.Join(dir, ProcessedDir), filepath.Join(dir, FailedDir)} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	return &Inbox{
		dir:      dir,
		importer: importer,
		config:   config,
		queue:    make(map[string]time.Time),
	}, nil
}

// Run imports files already waiting in the inbox, then watches for new ones
// until ctx is cancelled.
func (in *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}
	in.config.Logger.Printf("Watching inbox %s", in.dir)

	in.Sweep(ctx)

	ticker := time.NewTicker(in.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			in.config.Logger.Println("Inbox stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isCandidate(event.Name) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(in.dir) {
				continue
			}
			in.enqueue(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.config.Logger.Printf("Watcher error: %v", err)

		case <-ticker.C:
			in.processPending(ctx)
		}
	}
}

// Sweep imports every file currently in the inbox and returns how many it
// processed.
func (in *Inbox) Sweep(ctx context.Context) int {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.config.Logger.Printf("Warning: failed to read inbox: %v", err)
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isCandidate(e.Name()) {
			continue
		}
		in.process(ctx, filepath.Join(in.dir, e.Name()))
		n++
	}
	return n
}

func isCandidate(path string) bool {
	name := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(name), ".json") && !strings.HasPrefix(name, ".")
}

func (in *Inbox) enqueue(path string) {
	in.queueMu.Lock()
	in.queue[path] = time.Now()
	in.queueMu.Unlock()
}

// processPending imports queued files that have been quiet long enough.
func (in *Inbox) processPending(ctx context.Context) {
	now := time.Now()

	in.queueMu.Lock()
	var ready []string
	for path, at := range in.queue {
		if now.Sub(at) >= in.config.Debounce {
			ready = append(ready, path)
			delete(in.queue, path)
		}
	}
	in.queueMu.Unlock()

	for _, path := range ready {
		in.process(ctx, path)
	}
}

func (in *Inbox) process(ctx context.Context, path string) {
	// #nosec G304 - path is inside the inbox
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}

	var res store.ImportResult
	if err != nil {
		res = store.ImportResult{Message: store.MsgImportFailed + err.Error()}
	} else {
		res = in.importer.Import(ctx, data)
	}

	outcome := ProcessedDir
	if !res.Success {
		outcome = FailedDir
	}
	telemetry.InboxFiles.WithLabelValues(outcome).Inc()

	dest, err := in.move(path, outcome)
	if err != nil {
		in.config.Logger.Printf("Warning: failed to move %s: %v", path, err)
	}
	if !res.Success && dest != "" {
		if err := os.WriteFile(dest+".error.txt", []byte(res.Message+"\n"), 0o600); err != nil {
			in.config.Logger.Printf("Warning: failed to write error note: %v", err)
		}
	}
	in.config.Logger.Printf("%s: %s", filepath.Base(path), res.Message)

	if in.config.OnResult != nil {
		in.config.OnResult(path, res)
	}
}

// move renames path into sub, appending a timestamp if the name is taken.
func (in *Inbox) move(path, sub string) (string, error) {
	name := filepath.Base(path)
	dest := filepath.Join(in.dir, sub, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(in.dir, sub,
			fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
