// Package watch reprocesses notes as they change on disk, feeding the same
// engine pipeline as a batch run.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lazypower/autoglyph/internal/engine"
	"github.com/lazypower/autoglyph/internal/vault"
)

// debounceDelay batches rapid editor saves into one reprocess per note.
const debounceDelay = 2 * time.Second

// Watcher runs the engine against notes as their files change.
type Watcher struct {
	engine *engine.Engine
	root   string
	ignore []string
	delay  time.Duration

	// procMu serializes engine.Process: documents settle independently,
	// but the model host handles one completion at a time.
	procMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher over the given vault root. Ignore patterns are the
// same doublestar globs a batch run excludes.
func New(eng *engine.Engine, root string, ignore []string) *Watcher {
	return &Watcher{
		engine:  eng,
		root:    root,
		ignore:  ignore,
		delay:   debounceDelay,
		pending: make(map[string]*time.Timer),
	}
}

// Run blocks until the context is cancelled, reprocessing markdown notes on
// write or create events. Engine writes rename a temp file into place, so a
// processed note fires one more event; the fingerprint skip absorbs it.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addDirs(fsw); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// New directories need watching too, unless excluded.
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, ".") || vault.IgnoredDir(w.root, event.Name, w.ignore) {
					continue
				}
				if err := fsw.Add(event.Name); err != nil {
					log.Printf("watch: add %s: %v", event.Name, err)
				}
				continue
			}
			if w.shouldProcess(event.Name) {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		}
	}
}

// shouldProcess reports whether a changed file is a note the engine should
// see: markdown, not dot-prefixed, not covered by an ignore pattern.
func (w *Watcher) shouldProcess(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
		return false
	}
	return !vault.Ignored(w.root, path, w.ignore)
}

// schedule debounces a change event and reprocesses the note when it
// settles.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.delay)
		return
	}

	w.pending[path] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	})
}

// process runs one note through the engine. Notes that settle together still
// process one at a time.
func (w *Watcher) process(ctx context.Context, path string) {
	w.procMu.Lock()
	defer w.procMu.Unlock()

	action, reason, err := w.engine.Process(ctx, path)
	if err != nil {
		log.Printf("watch: %s: %v", path, err)
		return
	}
	if reason != "" {
		log.Printf("watch: %s: %s (%s)", path, action, reason)
	} else {
		log.Printf("watch: %s: %s", path, action)
	}
}

func (w *Watcher) addDirs(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if strings.HasPrefix(d.Name(), ".") || vault.IgnoredDir(w.root, path, w.ignore) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
