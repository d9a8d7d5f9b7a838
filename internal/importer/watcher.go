package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contractledger/internal/logging"
	"contractledger/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// FileName is the only file picked up from the input folder.
	FileName      = "prestations.csv"
	debounceDelay = 500 * time.Millisecond
	archiveLayout = "20060102150405"
)

// Watcher imports prestations.csv whenever it appears in the input folder,
// then moves it to the archive folder with a timestamp suffix.
type Watcher struct {
	inputDir   string
	archiveDir string
	repo       PrestationWriter
	poll       time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewWatcher(inputDir, archiveDir string, repo PrestationWriter, poll time.Duration, m *metrics.Metrics, logger *zap.Logger) *Watcher {
	return &Watcher{
		inputDir:   inputDir,
		archiveDir: archiveDir,
		repo:       repo,
		poll:       poll,
		metrics:    m,
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// ProcessOnce imports the input file if present. It reports false when
// there was no file. The file is archived only after a complete import.
func (w *Watcher) ProcessOnce(ctx context.Context) (bool, Result, error) {
	path := filepath.Join(w.inputDir, FileName)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, Result{}, nil
	}

	w.logger.Info("importer: processing", zap.String("path", path))
	f, err := os.Open(path)
	if err != nil {
		return false, Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	res, err := NewCSVImporter(f, w.repo, w.logger).Run(ctx)
	f.Close()
	w.metrics.ObserveImport(res.Imported, res.Skipped)
	if err != nil {
		return true, res, err
	}

	archived, err := w.archive(path)
	if err != nil {
		return true, res, err
	}
	w.logger.Info("importer: done",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.String("archived_to", archived))
	return true, res, nil
}

func (w *Watcher) archive(path string) (string, error) {
	if err := os.MkdirAll(w.archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	target := filepath.Join(w.archiveDir, FileName+"."+w.now().Format(archiveLayout))
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	return target, nil
}

// Run processes any file already present, then reacts to filesystem events
// and polls every interval as a fallback until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.inputDir, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.inputDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.inputDir, err)
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	w.logger.Info("importer: watching", zap.String("dir", w.inputDir), zap.Duration("poll", w.poll))

	w.process(ctx)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == FileName && ev.Has(fsnotify.Create|fsnotify.Write) {
				debounce = time.After(debounceDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("importer: watch error", zap.Error(err))
		case <-debounce:
			debounce = nil
			w.process(ctx)
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Watcher) process(ctx context.Context) {
	if _, res, err := w.ProcessOnce(ctx); err != nil {
		w.logger.Error("importer: import failed", zap.Error(err), zap.Int("imported", res.Imported))
	}
}
