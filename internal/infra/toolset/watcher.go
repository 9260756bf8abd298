package toolset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"genui/internal/domain"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads the toolset documents whenever one of them changes on disk.
// It never touches a running Manager; callers decide what to do with each
// freshly loaded config.
type Watcher struct {
	logger   *zap.Logger
	loader   *Loader
	sources  domain.ToolsetSources
	debounce time.Duration
}

func NewWatcher(loader *Loader, sources domain.ToolsetSources, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(logger)
	}
	return &Watcher{
		logger:   logger.Named("toolset_watcher"),
		loader:   loader,
		sources:  sources,
		debounce: defaultReloadDebounce,
	}
}

// Run blocks until ctx is done, calling onChange after each debounced change.
func (w *Watcher) Run(ctx context.Context, onChange func(domain.ToolsetConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("toolset watcher add failed", zap.String("path", dir), zap.Error(err))
		}
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("toolset watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.isSource(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			cfg, err := w.loader.Load(ctx, w.sources)
			if err != nil {
				return nil
			}
			onChange(cfg)
		}
	}
}

func (w *Watcher) watchDirs() []string {
	seen := make(map[string]struct{}, 2)
	var dirs []string
	for _, path := range []string{w.sources.CatalogPath, w.sources.AliasesPath} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func (w *Watcher) isSource(path string) bool {
	if path == "" {
		return false
	}
	clean := filepath.Clean(path)
	for _, source := range []string{w.sources.CatalogPath, w.sources.AliasesPath} {
		if source != "" && filepath.Clean(source) == clean {
			return true
		}
	}
	return false
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
