package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration store when account or template
// files change on disk. Pending reloads collapse into a single
// notification so slow consumers never queue up stale signals.
type Watcher struct {
	fs        *fsnotify.Watcher
	configDir string
	logger    *slog.Logger
	reloads   chan struct{}
	stopOnce  sync.Once
}

// StartWatcher watches configDir (and its templates subdirectory when
// present) and reloads the store on every relevant change.
func StartWatcher(configDir string, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fs:        fs,
		configDir: configDir,
		logger:    logger,
		reloads:   make(chan struct{}, 1),
	}

	if err := fs.Add(configDir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	templatesDir := filepath.Join(configDir, "templates")
	if info, err := os.Stat(templatesDir); err == nil && info.IsDir() {
		if err := fs.Add(templatesDir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("failed to watch templates directory: %w", err)
		}
	}

	go w.loop()
	return w, nil
}

// ReloadChan returns the channel signalled after each successful reload.
func (w *Watcher) ReloadChan() <-chan struct{} {
	return w.reloads
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !isConfigEvent(event) {
				continue
			}
			w.reload(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// isConfigEvent keeps only writes and creates of files the loader
// actually reads: *.config.yaml account files and *.yaml templates
// under templates/. Editor temp files start with a dot and are skipped.
func isConfigEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if strings.HasSuffix(base, ".config.yaml") {
		return true
	}
	return filepath.Base(filepath.Dir(event.Name)) == "templates" &&
		filepath.Ext(base) == ".yaml"
}

func (w *Watcher) reload(path string) {
	w.logger.Info("configuration file changed", "path", path)

	if err := LoadConfigs(w.configDir); err != nil {
		w.logger.Error("configuration reload failed",
			"error", err,
			"path", path,
		)
		return
	}

	select {
	case w.reloads <- struct{}{}:
	default:
		// A reload is already pending
	}
}

// Stop closes the underlying filesystem watcher. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}
