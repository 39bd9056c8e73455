// Package history keeps a bounded, persisted log of past analysis results.
// Persistence is best-effort: storage trouble is logged and swallowed, never
// surfaced into the analysis flow.
package history

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"beatscope/internal/analyze"
)

// Cap is the maximum number of retained entries; the oldest is evicted first.
const Cap = 50

// Entry is one past result plus when and for which file it was produced.
type Entry struct {
	Filename          string  `json:"filename"`
	Timestamp         int64   `json:"timestamp"` // epoch milliseconds
	BPM               float64 `json:"bpm"`
	Key               string  `json:"key"`
	KeyConfidence     float64 `json:"keyConfidence"`
	Loudness          float64 `json:"loudness"`
	Duration          float64 `json:"duration"`
	DurationFormatted string  `json:"duration_formatted"`
	Artist            string  `json:"artist,omitempty"`
	Title             string  `json:"title,omitempty"`
}

// Store is the in-memory list backed by one JSON file, newest-first.
type Store struct {
	path string

	mu      sync.Mutex
	entries []Entry
}

// Load reconstructs the store from path. Absent or malformed data starts an
// empty list; Load never fails the application.
func Load(path string) *Store {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("history: read %s: %v", path, err)
		}
		return s
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("history: malformed %s, starting empty: %v", path, err)
		return s
	}
	if len(entries) > Cap {
		entries = entries[:Cap]
	}
	s.entries = entries
	return s
}

// Append records a successful result for filename at the front of the list,
// evicting past the cap, and persists the whole list.
func (s *Store) Append(res analyze.Result, filename string) {
	entry := Entry{
		Filename:          filename,
		Timestamp:         time.Now().UnixMilli(),
		BPM:               res.BPM,
		Key:               res.Key,
		KeyConfidence:     res.KeyConfidence,
		Loudness:          res.Loudness,
		Duration:          res.Duration,
		DurationFormatted: res.DurationFormatted,
		Artist:            res.Artist,
		Title:             res.Title,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > Cap {
		s.entries = s.entries[:Cap]
	}
	s.saveLocked()
}

// List returns a copy of the entries, newest-first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear empties both the in-memory list and the persisted file.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.saveLocked()
}

// saveLocked persists the full list with a write-then-rename so a crash
// never leaves a half-written file. Errors are logged and swallowed.
// Caller holds s.mu.
func (s *Store) saveLocked() {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		log.Printf("history: marshal: %v", err)
		return
	}
	if s.entries == nil {
		raw = []byte("[]")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Printf("history: mkdir: %v", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		log.Printf("history: write %s: %v", tmp, err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Printf("history: rename: %v", err)
	}
}
