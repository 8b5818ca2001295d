// Package watch turns a directory into an extraction intake. Each
// subdirectory dropped into the watched directory is one submission;
// once its files stop changing for a quiet period the pipeline runs
// over them and the result lands next to the submission (or in a
// configured output directory). Reprocessing is suppressed while a
// submission's content digest is unchanged, so rewrites of identical
// files cost nothing.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/record"
)

// resultSuffix names result files. Files carrying it are never treated
// as submission documents, which keeps written results from
// re-triggering the watcher.
const resultSuffix = ".result.json"

// Config controls the intake watcher.
type Config struct {
	// Dir is the intake directory. Created on start if missing.
	Dir string `yaml:"dir"`

	// Debounce is how long a submission must sit unchanged before it
	// is processed.
	Debounce time.Duration `yaml:"debounce"`

	// Concurrency bounds how many submissions are processed at once.
	Concurrency int `yaml:"concurrency"`

	// OutputDir receives result files. Empty writes each result into
	// its submission's directory.
	OutputDir string `yaml:"output_dir"`

	// Pretty indents result JSON.
	Pretty bool `yaml:"pretty"`
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Dir:         "intake",
		Debounce:    2 * time.Second,
		Concurrency: 1,
		Pretty:      true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("intake directory is required")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}

// Extractor runs one extraction over a submission.
type Extractor interface {
	Extract(ctx context.Context, set document.Set) (*record.ExtractionResult, error)
}

// Notifier announces finished runs.
type Notifier interface {
	Completed(ctx context.Context, set document.Set, res *record.ExtractionResult) error
}

// Watcher monitors the intake directory and runs extractions over
// submissions as they settle.
type Watcher struct {
	config    Config
	extractor Extractor
	notifier  Notifier
	logger    *slog.Logger

	mu       sync.Mutex
	pending  map[string]time.Time // submission name -> last change
	inflight map[string]bool
	seen     map[string]string // submission name -> content digest
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithNotifier sets a notifier called after each processed submission.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) {
		w.notifier = n
	}
}

// New creates a watcher.
func New(config Config, extractor Extractor, opts ...Option) (*Watcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}

	w := &Watcher{
		config:    config,
		extractor: extractor,
		logger:    slog.Default(),
		pending:   make(map[string]time.Time),
		inflight:  make(map[string]bool),
		seen:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches the intake directory until ctx is cancelled. Submissions
// already sitting in the directory are queued on start, so a restart
// does not strand them.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create intake directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Dir, err)
	}
	if err := w.scanExisting(fsw); err != nil {
		return err
	}

	w.logger.Info("Watching intake directory",
		"dir", w.config.Dir,
		"debounce", w.config.Debounce,
		"concurrency", w.config.Concurrency)

	var grp errgroup.Group
	grp.SetLimit(w.config.Concurrency)

	interval := w.config.Debounce / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = grp.Wait()
			w.logger.Info("Watcher stopped")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				_ = grp.Wait()
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				_ = grp.Wait()
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)
		case <-ticker.C:
			w.dispatchReady(ctx, &grp)
		}
	}
}

// scanExisting queues submissions already present in the intake
// directory and adds watches inside them.
func (w *Watcher) scanExisting(fsw *fsnotify.Watcher) error {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("failed to read intake directory: %w", err)
	}

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := fsw.Add(filepath.Join(w.config.Dir, entry.Name())); err != nil {
			w.logger.Warn("Failed to watch submission directory",
				"dir", entry.Name(), "error", err)
			continue
		}
		w.pending[entry.Name()] = now
	}
	return nil
}

// handleEvent folds one filesystem event into the pending map. A new
// top-level directory is a fresh submission and gets its own watch; a
// removed one is forgotten entirely.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, resultSuffix) {
		return
	}

	rel, err := filepath.Rel(w.config.Dir, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))
	sub := parts[0]

	if len(parts) == 1 {
		if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
			w.mu.Lock()
			delete(w.pending, sub)
			delete(w.seen, sub)
			w.mu.Unlock()
			w.logger.Debug("Submission removed", "submission", sub)
			return
		}
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if !info.IsDir() {
			// Loose files in the intake root are not submissions.
			w.logger.Debug("Ignoring file outside a submission directory", "file", base)
			return
		}
		if ev.Op.Has(fsnotify.Create) {
			if err := fsw.Add(ev.Name); err != nil {
				w.logger.Warn("Failed to watch submission directory",
					"dir", sub, "error", err)
			}
		}
	}

	w.mu.Lock()
	w.pending[sub] = time.Now()
	w.mu.Unlock()
}

// dispatchReady launches processing for every pending submission whose
// quiet period has elapsed and that is not already running.
func (w *Watcher) dispatchReady(ctx context.Context, grp *errgroup.Group) {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for sub, last := range w.pending {
		if now.Sub(last) >= w.config.Debounce && !w.inflight[sub] {
			ready = append(ready, sub)
		}
	}
	for _, sub := range ready {
		delete(w.pending, sub)
		w.inflight[sub] = true
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, sub := range ready {
		grp.Go(func() error {
			defer w.release(sub)
			w.process(ctx, sub)
			return nil
		})
	}
}

func (w *Watcher) release(sub string) {
	w.mu.Lock()
	delete(w.inflight, sub)
	w.mu.Unlock()
}

// process runs one extraction over a settled submission and writes the
// result. Failures are logged, never fatal to the watch loop.
func (w *Watcher) process(ctx context.Context, sub string) {
	dir := filepath.Join(w.config.Dir, sub)
	set, err := w.buildSet(sub, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Removed before it settled.
			return
		}
		w.logger.Warn("Failed to read submission", "submission", sub, "error", err)
		return
	}
	if len(set.Documents) == 0 {
		w.logger.Debug("Submission has no readable documents", "submission", sub)
		return
	}

	digest := setDigest(set)
	w.mu.Lock()
	unchanged := w.seen[sub] == digest
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("Submission unchanged since last run", "submission", sub)
		return
	}

	w.logger.Info("Processing submission",
		"submission", sub, "documents", len(set.Documents))

	res, err := w.extractor.Extract(ctx, set)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Extraction failed", "submission", sub, "error", err)
		return
	}

	w.mu.Lock()
	w.seen[sub] = digest
	w.mu.Unlock()

	if err := w.writeResult(sub, res); err != nil {
		w.logger.Error("Failed to write result", "submission", sub, "error", err)
	}
	if w.notifier != nil {
		if err := w.notifier.Completed(ctx, set, res); err != nil {
			w.logger.Warn("Failed to publish completion event",
				"submission", sub, "error", err)
		}
	}

	w.logger.Info("Submission processed",
		"submission", sub,
		"overall", res.Metrics.Overall,
		"manual_review", res.ManualReviewRequired)
}

// buildSet reads a submission directory into a document set. Hidden
// files, result files, empty files, and nested directories are
// skipped.
func (w *Watcher) buildSet(sub, dir string) (document.Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return document.Set{}, err
	}

	set := document.Set{ID: sub}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, resultSuffix) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			w.logger.Warn("Failed to read document",
				"submission", sub, "file", name, "error", err)
			continue
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		set.Documents = append(set.Documents, document.FromFile(name, content))
	}
	return set, nil
}

// writeResult encodes the result and writes it to the output
// directory, or into the submission directory when none is configured.
func (w *Watcher) writeResult(sub string, res *record.ExtractionResult) error {
	dir := w.config.OutputDir
	if dir == "" {
		dir = filepath.Join(w.config.Dir, sub)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var data []byte
	var err error
	if w.config.Pretty {
		data, err = json.MarshalIndent(res, "", "  ")
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	path := filepath.Join(dir, sub+resultSuffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Debug("Result written", "path", path)
	return nil
}

// setDigest fingerprints a submission's content. os.ReadDir returns
// entries sorted by name, so the digest is stable across runs.
func setDigest(set document.Set) string {
	h := sha256.New()
	for _, doc := range set.Documents {
		h.Write([]byte(doc.Filename))
		h.Write([]byte{0})
		h.Write([]byte(doc.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
