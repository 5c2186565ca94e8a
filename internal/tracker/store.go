package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists tracked signals. The in-memory state is authoritative:
// a store write failure is logged and retried on the next poll, never
// surfaced into lifecycle decisions.
type Store interface {
	// LoadActive returns every non-terminal signal.
	LoadActive() ([]*TrackedSignal, error)
	// SaveActive replaces the active set wholesale.
	SaveActive(signals []*TrackedSignal) error
	// Archive appends a terminal signal to the history.
	Archive(sig *TrackedSignal) error
	// LoadHistory returns archived signals, most recent last.
	LoadHistory() ([]*TrackedSignal, error)
}

// FileStore keeps active signals and history in two JSON files, each
// rewritten wholesale on save.
type FileStore struct {
	mu          sync.Mutex
	activePath  string
	historyPath string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(activePath, historyPath string) *FileStore {
	return &FileStore{activePath: activePath, historyPath: historyPath}
}

func (s *FileStore) LoadActive() ([]*TrackedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSignalFile(s.activePath)
}

func (s *FileStore) SaveActive(signals []*TrackedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeSignalFile(s.activePath, signals)
}

func (s *FileStore) Archive(sig *TrackedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := readSignalFile(s.historyPath)
	if err != nil {
		return err
	}
	history = append(history, sig)
	return writeSignalFile(s.historyPath, history)
}

func (s *FileStore) LoadHistory() ([]*TrackedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSignalFile(s.historyPath)
}

// readSignalFile treats a missing file as an empty set.
func readSignalFile(path string) ([]*TrackedSignal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var signals []*TrackedSignal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return signals, nil
}

// writeSignalFile writes to a temp file and renames so a crash mid-write
// cannot truncate the previous state.
func writeSignalFile(path string, signals []*TrackedSignal) error {
	if signals == nil {
		signals = []*TrackedSignal{}
	}
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
