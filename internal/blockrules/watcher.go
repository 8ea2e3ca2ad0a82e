package blockrules

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher hot-reloads the rule overlay file into an engine. A reload that
// fails validation keeps the previous catalog live.
type Watcher struct {
	engine  *Engine
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching the overlay file's directory (watching the
// directory survives editors that replace the file on save).
func NewWatcher(engine *Engine, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{engine: engine, path: path, watcher: fsw, done: make(chan struct{})}
	go w.loop()
	log.Info().Str("path", path).Msg("Watching block rule overlay")
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			rules, err := LoadCatalog(w.path)
			if err != nil {
				log.Warn().Err(err).Str("path", w.path).Msg("Rule overlay reload failed, keeping previous catalog")
				continue
			}
			w.engine.Replace(rules)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Rule overlay watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
