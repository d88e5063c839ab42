package synthesis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"persona/internal/logging"
)

// Ledger records every capability name that was ever deleted. Entries
// are never removed: a name on the ledger can never become active
// again, so a replacement must be registered under a fresh name. The
// on-disk format is a JSON array of names.
type Ledger struct {
	mu    sync.Mutex
	path  string
	names map[string]bool
}

// OpenLedger loads the ledger file, creating an empty ledger when the
// file does not exist. A corrupt file is treated as empty rather than
// blocking startup.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, names: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		logging.SynthesisWarn("ledger file %s is corrupt, treating as empty", path)
		return l, nil
	}
	for _, n := range names {
		l.names[n] = true
	}
	logging.SynthesisDebug("ledger loaded with %d retired names", len(l.names))
	return l, nil
}

// Contains reports whether name was ever deleted.
func (l *Ledger) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.names[name]
}

// Append retires a name permanently. Appending a name twice is a no-op.
func (l *Ledger) Append(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.names[name] {
		return nil
	}
	l.names[name] = true
	if err := l.flushLocked(); err != nil {
		// Keep the in-memory entry so the invariant holds for this
		// process even when the disk write fails.
		logging.SynthesisWarn("ledger flush failed: %v", err)
		return err
	}
	logging.Synthesis("capability name '%s' retired to ledger", name)
	return nil
}

// Names returns the retired names in sorted order.
func (l *Ledger) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) flushLocked() error {
	names := make([]string, 0, len(l.names))
	for n := range l.names {
		names = append(names, n)
	}
	sort.Strings(names)

	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}
