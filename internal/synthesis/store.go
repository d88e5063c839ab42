package synthesis

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"persona/internal/logging"
)

// Store persists synthesized capability sources as .go files in a
// single directory, one file per capability. The files survive
// restarts so capabilities can be reloaded at boot.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capabilities dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the file path a capability's source lives at.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, sanitizeFilename(name)+".go")
}

// Save writes the source for name, replacing any previous version.
func (s *Store) Save(name, source string) (string, error) {
	path := s.Path(name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist capability source: %w", err)
	}
	logging.SynthesisDebug("persisted source for '%s' (%d bytes)", name, len(source))
	return path, nil
}

// Load reads the persisted source for name.
func (s *Store) Load(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Remove deletes the persisted source. Missing files are not an error;
// the registry entry and ledger row matter more than the file.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the capability names with persisted sources, derived
// from the filenames, in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".go"))
	}
	sort.Strings(names)
	return names, nil
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeFilename(name string) string {
	return unsafeFilenameRe.ReplaceAllString(name, "_")
}
