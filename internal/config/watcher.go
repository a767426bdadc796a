package config

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the cache TTL settings when the config file changes,
// so TTL tuning does not require a restart. Only CacheConfig is reloadable;
// everything else takes effect at the next start.
type Watcher struct {
	path     string
	onReload func(CacheConfig)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// NewWatcher watches path and invokes onReload with the freshly parsed
// cache settings after each valid change.
func NewWatcher(path string, onReload func(CacheConfig), logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, onReload: onReload, watcher: fw, logger: logger}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous settings",
					zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("cache settings reloaded",
				zap.Duration("list_ttl", cfg.Cache.ListTTL),
				zap.Duration("lock_ttl", cfg.Cache.LockTTL),
			)
			w.onReload(cfg.Cache)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
