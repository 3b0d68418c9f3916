package template

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "blkmsg/pkg/logx"
)

const (
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watch invalidates cached content whenever one of paths changes on disk.
// It blocks until ctx is done. When the watcher breaks (editors that
// rename-on-save, Windows quirks) it is recreated with jittered backoff.
//
// Content is only cached while a watcher is live; the cache is dropped
// whenever the watcher starts or stops, since events may have been missed.
func (s *Store) Watch(ctx context.Context, paths []string) error {
	if !s.cache || len(paths) == 0 {
		return nil
	}

	// dir -> watched keys in that dir
	dirs := map[string]map[string]string{}
	for _, p := range paths {
		key := cleanKey(p)
		dir := filepath.Dir(key)
		if dirs[dir] == nil {
			dirs[dir] = map[string]string{}
		}
		dirs[dir][strings.ToLower(filepath.Base(key))] = p
	}

	backoff := restartBackoffBase
	sleep := func() bool {
		wait := backoff + time.Duration(rand.Int64N(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff = min(backoff*2, restartBackoffMax)
		}
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.log.Warn("template watch init failed", logx.Err(err))
			if !sleep() {
				return nil
			}
			continue
		}
		added := true
		for dir := range dirs {
			if err := w.Add(dir); err != nil {
				s.log.Warn("template watch add failed", logx.Err(err), logx.String("dir", dir))
				added = false
				break
			}
		}
		if !added {
			_ = w.Close()
			if !sleep() {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		s.setLive(true)
		s.log.Debug("template watcher started", logx.Int("dirs", len(dirs)), logx.Int("templates", len(paths)))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				s.setLive(false)
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				names := dirs[filepath.Dir(cleanKey(ev.Name))]
				if p, hit := names[strings.ToLower(filepath.Base(ev.Name))]; hit {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
						s.Invalidate(p)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means events were lost; start from an empty cache.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					s.log.Warn("template watch overflow; dropping cache", logx.Err(err))
					s.invalidateAll()
					continue
				}
				s.log.Warn("template watch error", logx.Err(err))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = w.Close()
		s.setLive(false)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("template watcher stopped; restarting", logx.Duration("backoff", backoff))
		if !sleep() {
			return nil
		}
	}
}

func (s *Store) invalidateAll() {
	s.mu.Lock()
	clear(s.data)
	s.gen++
	s.mu.Unlock()
}

func (s *Store) setLive(v bool) {
	s.mu.Lock()
	s.live = v
	clear(s.data)
	s.gen++
	s.mu.Unlock()
}
