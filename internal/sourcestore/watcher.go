package sourcestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps fsnotify to push filesystem Write/Create/Remove events
// into a Store as SetSourceText/RemoveSource calls — an LSP-less "watch
// mode" a CLI or test harness can opt into. The Store itself never
// imports fsnotify; Watcher is a thin, optional adapter on top.
type Watcher struct {
	store *Store
	fsw   *fsnotify.Watcher
	ext   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	errors []error
}

// NewWatcher builds a Watcher that recursively watches root for files
// ending in ext (e.g. ".vais") and mirrors their contents into store.
func NewWatcher(store *Store, root, ext string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("sourcestore: creating fsnotify watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{store: store, fsw: fsw, ext: ext, ctx: ctx, cancel: cancel}
	if err := w.addDirs(root); err != nil {
		fsw.Close()
		cancel()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirs(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("sourcestore: watching %s: %w", path, err)
		}
		return nil
	})
}

// Start begins processing fsnotify events in a background goroutine,
// loading matching files into the Store on Create/Write and removing
// them on Remove/Rename.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.errors = append(w.errors, err)
			w.mu.Unlock()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Ext(event.Name) != w.ext {
		return
	}
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.store.RemoveSource(event.Name)

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		content, err := os.ReadFile(event.Name)
		if err != nil {
			// The file may have been removed between the event firing and
			// this read; treat that as a remove rather than an error.
			w.store.RemoveSource(event.Name)
			return
		}
		w.store.SetSourceText(event.Name, string(content))

		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
		}
	}
}

// Errors drains and returns every fsnotify error observed so far.
func (w *Watcher) Errors() []error {
	w.mu.Lock()
	defer w.mu.Unlock()
	errs := w.errors
	w.errors = nil
	return errs
}

// Stop halts event processing and closes the underlying fsnotify
// watcher, blocking until the background goroutine has exited.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
