// Package watch re-converts spreadsheets when they change on disk.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"martianoff/vbapy/internal/batch"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports batches of changed spreadsheet files under a root.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions map[string]struct{}
	logger     *slog.Logger
	fs         *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the tree must stay quiet before changes are
// reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions limits reported files to the given extensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		if len(exts) == 0 {
			return
		}
		w.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			w.extensions[strings.ToLower(e)] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New starts watching every directory under root. Call Close when done.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     filepath.Clean(abs),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	WithExtensions([]string{".xlsx", ".xlsm", ".xls"})(w)
	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fs = fw
	if err := w.addRecursive(w.root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run delivers sorted batches of changed files to onChange until ctx is
// done. Files removed before the batch fires are not reported.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context, []string)) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !skipDir(filepath.Base(path)) {
						_ = w.addRecursive(path)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !w.relevant(path) {
				continue
			}
			w.logger.Debug("change detected", "file", path, "op", event.Op.String())
			pending[path] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				if _, err := os.Stat(path); err == nil {
					changed = append(changed, path)
				}
			}
			pending = map[string]struct{}{}
			if len(changed) == 0 {
				continue
			}
			sort.Strings(changed)
			onChange(ctx, changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", batch.DefaultOutputDir:
		return true
	}
	return strings.HasPrefix(name, ".")
}

// ConvertChanged returns an onChange callback that converts each changed
// file into outputDir, mirroring its position below root.
func ConvertChanged(conv batch.FileConverter, root, outputDir string, logger *slog.Logger) func(context.Context, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, files []string) {
		for _, file := range files {
			rel, err := filepath.Rel(root, file)
			if err != nil || strings.HasPrefix(rel, "..") {
				rel = filepath.Base(file)
			}
			res := conv.ConvertFile(ctx, file, batch.OutputPath(outputDir, rel))
			if res.Success {
				logger.Info("reconverted", "file", rel, "output", res.OutputFile)
			} else {
				logger.Warn("reconversion failed", "file", rel, "error", res.Error)
			}
		}
	}
}
