/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package filewatch follows append-only JSON line logs across rotation
// and truncation, emitting parsed alerts in file order. It also serves
// bounded TTL-cached tail reads for the REST layer.
package filewatch

import (
	"bytes"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"

	"github.com/JWalen/NetworkTap-sub002/log"
)

var (
	ErrAlreadyFollowed = errors.New("path already followed")
)

// FollowerStats is the observable state of one producer loop.
type FollowerStats struct {
	Path        string `json:"path"`
	Source      string `json:"source"`
	Offset      int64  `json:"offset"`
	ParseErrors uint64 `json:"parse_errors"`
	Emitted     uint64 `json:"emitted"`
}

// Watcher owns the follower set and the on-disk cursor state so restarts
// resume where the previous process left off.
type Watcher struct {
	mtx       sync.Mutex
	statePath string
	states    map[string]*int64
	followers map[string]*follower
	lg        *log.Logger
}

func NewWatcher(statePath string, lg *log.Logger) (w *Watcher, err error) {
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	w = &Watcher{
		statePath: statePath,
		states:    map[string]*int64{},
		followers: map[string]*follower{},
		lg:        lg.Component(`filewatch`),
	}
	if err = w.loadState(); err != nil {
		w = nil
	}
	return
}

func (w *Watcher) loadState() (err error) {
	if w.statePath == `` {
		return
	}
	var fin *os.File
	if fin, err = os.Open(w.statePath); err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	defer fin.Close()
	mp := map[string]int64{}
	if err = gob.NewDecoder(fin).Decode(&mp); err != nil {
		//a corrupt state file means we restart from scratch, not that
		//the daemon fails to boot
		w.lg.Warn("discarding corrupt tail state", log.KV("path", w.statePath), log.KVErr(err))
		err = nil
		return
	}
	for k, v := range mp {
		off := v
		w.states[k] = &off
	}
	return
}

// SaveState persists every follower cursor atomically.
func (w *Watcher) SaveState() (err error) {
	if w.statePath == `` {
		return
	}
	w.mtx.Lock()
	mp := make(map[string]int64, len(w.states))
	for k, v := range w.states {
		mp[k] = *v
	}
	w.mtx.Unlock()
	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(mp); err != nil {
		return
	}
	if err = os.MkdirAll(filepath.Dir(w.statePath), 0750); err != nil {
		return
	}
	return renameio.WriteFile(w.statePath, buf.Bytes(), 0640)
}

// Follow starts a producer for the given path. The cursor resumes from
// persisted state when one exists.
func (w *Watcher) Follow(cfg FollowConfig) (err error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if _, ok := w.followers[cfg.Path]; ok {
		return ErrAlreadyFollowed
	}
	st, ok := w.states[cfg.Path]
	if !ok {
		var off int64
		st = &off
		w.states[cfg.Path] = st
	}
	cfg.State = st
	if cfg.Logger == nil {
		cfg.Logger = w.lg
	}
	var f *follower
	if f, err = newFollower(cfg); err != nil {
		return
	}
	if err = f.Start(); err != nil {
		return
	}
	w.followers[cfg.Path] = f
	return
}

// Unfollow stops the producer for a path, keeping its cursor.
func (w *Watcher) Unfollow(path string) (err error) {
	w.mtx.Lock()
	f, ok := w.followers[path]
	if ok {
		delete(w.followers, path)
	}
	w.mtx.Unlock()
	if ok {
		err = f.Stop()
	}
	return
}

// Followed returns the paths currently driven by producers.
func (w *Watcher) Followed() (paths []string) {
	w.mtx.Lock()
	for p := range w.followers {
		paths = append(paths, p)
	}
	w.mtx.Unlock()
	return
}

// Stats snapshots every follower for the API.
func (w *Watcher) Stats() (out []FollowerStats) {
	w.mtx.Lock()
	for p, f := range w.followers {
		out = append(out, FollowerStats{
			Path:        p,
			Source:      f.Source,
			Offset:      *f.State,
			ParseErrors: f.ParseErrors(),
			Emitted:     f.Emitted(),
		})
	}
	w.mtx.Unlock()
	return
}

// Close stops every producer and persists cursors.
func (w *Watcher) Close() (err error) {
	w.mtx.Lock()
	fl := make([]*follower, 0, len(w.followers))
	for _, f := range w.followers {
		fl = append(fl, f)
	}
	w.followers = map[string]*follower{}
	w.mtx.Unlock()
	for _, f := range fl {
		if lerr := f.Stop(); lerr != nil {
			err = lerr
		}
	}
	if lerr := w.SaveState(); lerr != nil {
		err = lerr
	}
	return
}
