package preview

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher calls onChange whenever the template file is written.
type TemplateWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string) error
	done     chan struct{}
	stopped  chan struct{}
	started  bool
}

// NewTemplateWatcher watches the directory holding path. Editors often save
// by renaming a temp file over the original, which a watch on the file itself
// would miss.
func NewTemplateWatcher(path string, onChange func(string) error) (*TemplateWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &TemplateWatcher{
		watcher:  fsWatcher,
		path:     abs,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching for template changes.
func (w *TemplateWatcher) Start() {
	w.started = true
	go func() {
		defer close(w.stopped)
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				log.Printf("[watch] template changed: %s", w.path)
				if err := w.onChange(w.path); err != nil {
					log.Printf("[watch] re-materialize failed: %v", err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[watch] error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *TemplateWatcher) Stop() error {
	close(w.done)
	err := w.watcher.Close()
	if w.started {
		<-w.stopped
	}
	return err
}
