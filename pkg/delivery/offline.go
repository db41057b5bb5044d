package delivery

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/protocol"
)

// OfflineStore persists undelivered events as append-only JSON lines so
// they survive restarts. Order on disk is delivery order. A single mutex
// guards the file; the publish path appends while the replay path loads
// and rewrites, so a rewrite must never touch bytes it did not load.
type OfflineStore struct {
	mu   sync.Mutex
	path string
}

// NewOfflineStore creates a store at path, creating parent directories
// as needed.
func NewOfflineStore(path string) (*OfflineStore, error) {
	if path == "" {
		return nil, fmt.Errorf("offline store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("offline store: create dir: %w", err)
	}
	return &OfflineStore{path: path}, nil
}

// Append persists one event at the end of the queue.
func (s *OfflineStore) Append(ev protocol.EventData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("offline store: marshal event: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("offline store: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("offline store: write: %w", err)
	}
	return nil
}

// Load returns every queued event oldest-first, plus the byte length of
// the file at load time. Pass that length to ReplacePrefix so events
// appended after the load survive the rewrite. Malformed lines are
// skipped with a warning rather than poisoning the replay.
func (s *OfflineStore) Load() ([]protocol.EventData, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("offline store: read: %w", err)
	}

	var events []protocol.EventData
	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev protocol.EventData
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Warn("offline store: skipping malformed entry", "err", err)
			continue
		}
		events = append(events, ev)
	}
	return events, int64(len(raw)), nil
}

// ReplacePrefix atomically rewrites the first consumed bytes of the
// queue with the given remainder, keeping any bytes appended after the
// matching Load. Written via a temp file and rename so a crash
// mid-rewrite cannot lose entries. An empty remainder with no appended
// suffix removes the file.
func (s *OfflineStore) ReplacePrefix(remaining []protocol.EventData, consumed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var suffix []byte
	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("offline store: read: %w", err)
	}
	if int64(len(raw)) > consumed {
		suffix = raw[consumed:]
	}

	if len(remaining) == 0 && len(suffix) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("offline store: truncate: %w", err)
		}
		return nil
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("offline store: open temp: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, ev := range remaining {
		line, err := json.Marshal(ev)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("offline store: marshal event: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("offline store: write temp: %w", err)
		}
	}
	if _, err := w.Write(suffix); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("offline store: write temp: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("offline store: flush temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("offline store: close temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("offline store: rename: %w", err)
	}
	return nil
}

// Len returns the number of queued events.
func (s *OfflineStore) Len() int {
	events, _, err := s.Load()
	if err != nil {
		log.Warn("offline store: count failed", "err", err)
		return 0
	}
	return len(events)
}
