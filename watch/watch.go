// Package watch signals changes to files in a directory tree, e.g. to hot
// reload shader sources between frames.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"deferred-renderer/core"
)

// Watcher coalesces file events into a single pending signal. The render
// loop drains Changes between frames.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	exts     map[string]bool
	signal   chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New watches dir and its subdirectories. When exts is not empty only files
// with one of those extensions signal.
func New(dir string, exts ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fw,
		exts:     make(map[string]bool, len(exts)),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	if err := w.addRecursive(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.start()
	core.LogInfo("Watching %s for changes", dir)
	return w, nil
}

// Changes delivers at most one pending signal however many events arrived.
func (w *Watcher) Changes() <-chan struct{} { return w.signal }

// Pending reports and clears the pending signal without blocking.
func (w *Watcher) Pending() bool {
	select {
	case <-w.signal:
		return true
	default:
		return false
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsnotify.Close()
	})
	return err
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsnotify.Add(path)
		}
		return nil
	})
}

func (w *Watcher) matches(name string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

func (w *Watcher) notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.addRecursive(e.Name); err != nil {
						core.LogError("watch %s: %v", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 && w.matches(e.Name) {
				w.notify()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				core.LogError("watcher: %v", err)
				continue
			}
			// Lost events may have included matching ones.
			w.notify()

		case <-w.done:
			return
		}
	}
}
