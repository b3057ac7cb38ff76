/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/renameio"
)

// Store owns the on-disk config file and the current in-memory snapshot.
// Readers take the snapshot pointer without locking, writers serialize on
// the mutex and replace the snapshot only after the file rewrite commits.
type Store struct {
	mtx    sync.Mutex
	path   string
	lines  []string
	cur    atomic.Pointer[Config]
	onMode []func(old, nw string)
}

// NewStore reads and validates the config file at path.
func NewStore(path string) (s *Store, err error) {
	s = &Store{
		path: path,
	}
	if err = s.Reload(); err != nil {
		s = nil
	}
	return
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current snapshot. It never blocks on writers, a caller
// holding a snapshot across a Set simply keeps the older view.
func (s *Store) Get() *Config {
	return s.cur.Load()
}

// Reload re-reads the backing file and swaps in a fresh snapshot.
func (s *Store) Reload() (err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var b []byte
	if b, err = os.ReadFile(s.path); err != nil {
		return
	}
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	var c *Config
	if c, err = parseLines(lines); err != nil {
		return
	}
	s.lines = lines
	s.cur.Store(c)
	return
}

// OnModeChange registers a hook fired after a Set that changed MODE.
// Hooks run on the writer's goroutine with no store locks held.
func (s *Store) OnModeChange(fn func(old, nw string)) {
	s.mtx.Lock()
	s.onMode = append(s.onMode, fn)
	s.mtx.Unlock()
}

// Set validates and applies a patch of KEY=VALUE overrides. The file is
// rewritten atomically, existing lines keep their position and comments,
// new keys are appended. On any error neither the file nor the snapshot
// changes.
func (s *Store) Set(patch map[string]string) (c *Config, err error) {
	if len(patch) == 0 {
		c = s.Get()
		return
	}
	s.mtx.Lock()
	old := s.cur.Load()

	cand := make([]string, len(s.lines))
	copy(cand, s.lines)
	for k, v := range patch {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == `` {
			s.mtx.Unlock()
			return nil, fmt.Errorf("%w: empty patch key", ErrInvalidConfig)
		}
		if loc := findParameter(cand, key); loc >= 0 {
			if cand, err = updateLine(cand, key, v, loc); err != nil {
				s.mtx.Unlock()
				return nil, err
			}
		} else {
			val := v
			if strings.ContainsAny(val, " \t#") {
				val = `"` + val + `"`
			}
			cand = append(cand, fmt.Sprintf(`%s=%s`, key, val))
		}
	}
	if c, err = parseLines(cand); err != nil {
		s.mtx.Unlock()
		return nil, err
	}
	if err = renameio.WriteFile(s.path, []byte(strings.Join(cand, "\n")), 0640); err != nil {
		s.mtx.Unlock()
		return nil, err
	}
	s.lines = cand
	s.cur.Store(c)
	hooks := s.onMode
	s.mtx.Unlock()

	if old != nil && old.Mode != c.Mode {
		for _, fn := range hooks {
			fn(old.Mode, c.Mode)
		}
	}
	return
}
