package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher reloads a config file whenever it is written and passes the new
// configuration to OnChange. Reload failures go to OnError and leave the
// previous configuration in effect.
type Watcher struct {
	OnChange func(*Config)
	OnError  func(error)

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(path string) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "invalid config file path")
	}
	return &Watcher{path: absPath, done: make(chan struct{})}, nil
}

// Start watches the file's directory, so editors that replace the file by
// renaming a temporary one are still noticed.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return errors.Wrap(err, "failed to watch config directory")
	}
	w.watcher = fw
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := LoadFile(w.path)
			if err != nil {
				w.reportError(err)
				continue
			}
			if w.OnChange != nil {
				w.OnChange(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(errors.Wrap(err, "config watcher"))
		}
	}
}

func (w *Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		if w.watcher == nil {
			return
		}
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
