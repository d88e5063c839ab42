package synthesis

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"persona/internal/capability"
	"persona/internal/logging"
)

// Watcher hot-reloads capability sources edited on disk while the
// agent runs. Writes are debounced because editors fire several events
// per save.
type Watcher struct {
	pipeline *Pipeline
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching the store directory. Close releases it.
func NewWatcher(pipeline *Pipeline) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(pipeline.store.Dir()); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{pipeline: pipeline, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	logging.Synthesis("watching %s for capability source changes", pipeline.store.Dir())
	return w, nil
}

func (w *Watcher) loop() {
	pending := map[string]time.Time{}
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.SynthesisWarn("watcher error: %v", err)
		case <-tick.C:
			for path, at := range pending {
				if time.Since(at) < 400*time.Millisecond {
					continue
				}
				delete(pending, path)
				w.reload(path)
			}
		}
	}
}

func (w *Watcher) reload(path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".go")
	if w.pipeline.ledger.Contains(name) {
		return
	}
	source, err := w.pipeline.store.Load(name)
	if err != nil {
		return
	}
	cap, err := w.pipeline.loader.Load(source)
	if err != nil {
		logging.SynthesisWarn("edited capability '%s' does not load: %v", name, err)
		return
	}
	// The filename is sanitized; check the retired list against the
	// name the source actually declares too.
	if w.pipeline.ledger.Contains(cap.Name()) {
		return
	}
	w.pipeline.registry.Register(cap, capability.OriginSynthesized)
	logging.Synthesis("hot-reloaded capability '%s' from disk", cap.Name())
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
