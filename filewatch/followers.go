/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package filewatch

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JWalen/NetworkTap-sub002/events"
	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	tickInterval = 250 * time.Millisecond

	// openRetryInterval paces re-open attempts while the followed file
	// does not exist yet, IDS engines create their logs lazily.
	openRetryInterval = time.Second
)

var (
	ErrAlreadyStarted = errors.New("already started")
	ErrNotReady       = errors.New("not ready")
)

// FollowConfig describes one followed log file.
type FollowConfig struct {
	Path   string
	Source string
	Parser events.Parser
	Emit   func(events.Alert)
	State  *int64
	Logger *log.Logger
}

// follower drives one file: it opens (and re-opens across rotations) the
// path, consumes complete lines, parses them, and emits alerts in file
// order. Parse failures are counted and skipped, they never stop the
// loop.
type follower struct {
	FollowConfig
	mtx         sync.Mutex
	lnr         *liner
	id          uint64
	running     int32
	abortCh     chan bool
	wg          sync.WaitGroup
	fsn         *fsnotify.Watcher
	parseErrors uint64
	emitted     uint64
}

func newFollower(cfg FollowConfig) (*follower, error) {
	if cfg.State == nil {
		return nil, errors.New("invalid file state pointer")
	}
	if cfg.Parser == nil || cfg.Emit == nil {
		return nil, errors.New("parser and emit are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewDiscardLogger()
	}
	return &follower{
		FollowConfig: cfg,
	}, nil
}

func (f *follower) Start() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.abortCh != nil || atomic.LoadInt32(&f.running) != 0 {
		return ErrAlreadyStarted
	}
	f.abortCh = make(chan bool, 1)
	atomic.StoreInt32(&f.running, 1)
	f.wg.Add(1)
	go f.routine()
	return nil
}

func (f *follower) Stop() error {
	f.mtx.Lock()
	if f.abortCh == nil || atomic.LoadInt32(&f.running) == 0 {
		f.mtx.Unlock()
		return nil
	}
	f.abortCh <- true
	f.mtx.Unlock()
	f.wg.Wait()
	f.mtx.Lock()
	close(f.abortCh)
	f.abortCh = nil
	f.mtx.Unlock()
	return nil
}

func (f *follower) ParseErrors() uint64 {
	return atomic.LoadUint64(&f.parseErrors)
}

func (f *follower) Emitted() uint64 {
	return atomic.LoadUint64(&f.emitted)
}

// open attaches to the current file at path, seeking to the stored offset
// unless the file is now smaller than it, in which case it starts at zero.
// Only the size is compared here; the stored state carries no inode, so a
// replaced file at least as large as the offset resumes at that offset.
func (f *follower) open() (err error) {
	var fin *os.File
	if fin, err = os.Open(f.Path); err != nil {
		return
	}
	var fi os.FileInfo
	if fi, err = fin.Stat(); err != nil {
		fin.Close()
		return
	}
	id, _ := fileID(fi)
	start := *f.State
	if start > fi.Size() {
		//file is smaller than our cursor, it was replaced or truncated
		start = 0
	}
	if f.lnr, err = newLiner(fin, start); err != nil {
		fin.Close()
		return
	}
	f.id = id
	*f.State = start
	return
}

// watch attaches fsnotify to the path, falling back to pure tick
// polling when the watch cannot be established.
func (f *follower) watch() {
	if f.fsn != nil {
		f.fsn.Close()
		f.fsn = nil
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err = w.Add(f.Path); err == nil {
			f.fsn = w
		} else {
			w.Close()
		}
	}
}

// rotated checks the path identity against the open handle. A changed
// inode or a size below our cursor means the writer replaced the file.
func (f *follower) rotated() bool {
	fi, err := os.Stat(f.Path)
	if err != nil {
		return os.IsNotExist(err)
	}
	if id, ok := fileID(fi); ok && id != f.id {
		return true
	}
	return fi.Size() < *f.State
}

// drain consumes every complete line currently available. When final is
// set the trailing partial line is consumed too.
func (f *follower) drain(final bool) {
	if f.lnr == nil {
		return
	}
	for {
		ln, ok, err := f.lnr.ReadLine()
		if err != nil {
			f.Logger.Warn("tail read failed", log.KV("path", f.Path), log.KVErr(err))
			return
		}
		if !ok {
			break
		}
		f.handleLine(ln)
		*f.State = f.lnr.Index()
	}
	if final {
		if ln := f.lnr.ReadRemaining(); len(ln) > 0 {
			f.handleLine(ln)
			*f.State = f.lnr.Index()
		}
	}
}

func (f *follower) handleLine(ln []byte) {
	if len(ln) == 0 {
		return
	}
	a, ok, err := f.Parser(ln)
	if err != nil {
		atomic.AddUint64(&f.parseErrors, 1)
		return
	}
	if !ok {
		return
	}
	a.Source = f.Source
	f.Emit(a)
	atomic.AddUint64(&f.emitted, 1)
}

func (f *follower) routine() {
	defer f.wg.Done()
	defer atomic.StoreInt32(&f.running, 0)
	defer func() {
		if f.lnr != nil {
			f.drain(true)
			f.lnr.Close()
			f.lnr = nil
		}
		if f.fsn != nil {
			f.fsn.Close()
			f.fsn = nil
		}
	}()

	tckr := time.NewTicker(tickInterval)
	defer tckr.Stop()

	for {
		if f.lnr == nil {
			if err := f.open(); err != nil {
				if !os.IsNotExist(err) {
					f.Logger.Warn("cannot open followed file", log.KV("path", f.Path), log.KVErr(err))
				}
				select {
				case <-f.abortCh:
					return
				case <-time.After(openRetryInterval):
				}
				continue
			}
			f.watch()
			f.Logger.Debug("following", log.KV("path", f.Path), log.KV("offset", *f.State))
		}

		f.drain(false)
		if f.rotated() {
			//flush what the old handle still holds, then re-open fresh
			f.drain(true)
			f.lnr.Close()
			f.lnr = nil
			*f.State = 0
			continue
		}

		var evCh chan fsnotify.Event
		var errCh chan error
		if f.fsn != nil {
			evCh = f.fsn.Events
			errCh = f.fsn.Errors
		}
		select {
		case <-f.abortCh:
			return
		case <-tckr.C:
			//tick pass catches writes that raced the watch setup
		case ev, ok := <-evCh:
			if !ok {
				f.fsn = nil
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				f.drain(true)
				f.lnr.Close()
				f.lnr = nil
				*f.State = 0
			}
		case _, ok := <-errCh:
			if !ok {
				f.fsn = nil
			}
		}
	}
}
