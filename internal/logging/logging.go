// Package logging builds the process logger.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/studyreward/rewardbook/internal/config"
)

// Writer returns the log destination for cfg: a rotating file when
// cfg.File is set, stderr otherwise. Close the returned closer on exit.
func Writer(cfg config.LogConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return os.Stderr, nopCloser{}
	}
	_ = os.MkdirAll(filepath.Dir(cfg.File), 0o750)
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return lj, lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger with the given component prefix writing to w.
func New(w io.Writer, component string) *log.Logger {
	prefix := ""
	if component != "" {
		prefix = "[" + component + "] "
	}
	return log.New(w, prefix, log.LstdFlags)
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
