// Package template loads message templates, checks them before a batch and
// renders one per send.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "blkmsg/pkg/logx"
)

// ErrUnavailable means a template could not be read, or held only whitespace, at render time.
var ErrUnavailable = errors.New("template unavailable")

// Store reads template files.
//
// With caching enabled, content is kept in memory only while Watch is
// running and is dropped whenever the watcher reports a change to the file,
// so callers always see what is on disk. Otherwise every Read goes to disk.
type Store struct {
	log logx.Logger

	cache bool
	mu    sync.RWMutex
	data  map[string]string
	live  bool   // a watcher is running
	gen   uint64 // bumped on every invalidation
}

func NewStore(cache bool, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{log: log, cache: cache, data: map[string]string{}}
}

// Read returns the current content of path.
func (s *Store) Read(path string) (string, error) {
	key := cleanKey(path)
	s.mu.RLock()
	v, ok := s.data[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrUnavailable, path)
	}
	content := string(b)

	s.mu.Lock()
	// Skip the store if the file changed while it was being read.
	if s.cache && s.live && s.gen == gen {
		s.data[key] = content
	}
	s.mu.Unlock()
	return content, nil
}

// Invalidate drops the cached content of path.
func (s *Store) Invalidate(path string) {
	key := cleanKey(path)
	s.mu.Lock()
	_, had := s.data[key]
	delete(s.data, key)
	s.gen++
	s.mu.Unlock()
	if had {
		s.log.Debug("template cache invalidated", logx.String("path", path))
	}
}

// Caching reports whether the store keeps content in memory.
func (s *Store) Caching() bool { return s.cache }

func cleanKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
