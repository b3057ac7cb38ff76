/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package retention bounds the on-disk capture set against age and
// free-space thresholds. The daemon is authoritative here, the host
// cleanup script is only a fallback when a sweep fails outright.
package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/disk"

	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	DefaultInterval = time.Hour

	activeDir  = `active`
	archiveDir = `archive`
)

var (
	ErrSweepFailed = errors.New("retention sweep failed")
)

// Params is one sweep's configuration, taken from the config snapshot at
// run time so config patches apply on the next tick.
type Params struct {
	RetentionDays  int
	MinFreePct     int
	EveLog         string
	MaxEveLogBytes int64
}

// Deleted records one evicted artifact for the report.
type Deleted struct {
	Path    string  `json:"path"`
	Size    int64   `json:"size"`
	FreePct float64 `json:"free_pct_after"`
}

// Report is the outcome of one sweep.
type Report struct {
	Deleted    []Deleted `json:"deleted"`
	FreePct    float64   `json:"free_pct"`
	RotatedEve bool      `json:"rotated_eve,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
}

type artifact struct {
	path    string
	size    int64
	modTime time.Time
}

// Engine runs retention sweeps over the capture root.
type Engine struct {
	mtx         sync.Mutex
	root        string
	adapter     *host.Adapter
	lg          *log.Logger
	onDelete    func()
	lastRun     time.Time
	lastRep     Report
	freePctFunc func(string) (float64, error)
}

func NewEngine(root string, adapter *host.Adapter, lg *log.Logger) *Engine {
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	return &Engine{
		root:        root,
		adapter:     adapter,
		lg:          lg.Component(`retention`),
		freePctFunc: diskFreePct,
	}
}

// OnDelete registers a hook fired after any sweep that removed files, the
// capture supervisor uses it to drop its scan cache.
func (e *Engine) OnDelete(fn func()) {
	e.mtx.Lock()
	e.onDelete = fn
	e.mtx.Unlock()
}

// LastReport returns the most recent sweep outcome.
func (e *Engine) LastReport() (time.Time, Report) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.lastRun, e.lastRep
}

func diskFreePct(path string) (float64, error) {
	us, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return 100.0 - us.UsedPercent, nil
}

// enumerate walks the capture subdirectories oldest first.
func (e *Engine) enumerate() (arts []artifact, err error) {
	for _, sub := range []string{activeDir, archiveDir} {
		dir := filepath.Join(e.root, sub)
		ents, derr := os.ReadDir(dir)
		if derr != nil {
			continue
		}
		for _, ent := range ents {
			if ent.IsDir() {
				continue
			}
			name := ent.Name()
			if !strings.HasSuffix(name, `.pcap`) && !strings.HasSuffix(name, `.pcap.gz`) {
				continue
			}
			fi, ferr := ent.Info()
			if ferr != nil {
				continue
			}
			arts = append(arts, artifact{
				path:    filepath.Join(dir, name),
				size:    fi.Size(),
				modTime: fi.ModTime(),
			})
		}
	}
	sort.Slice(arts, func(i, j int) bool {
		return arts[i].modTime.Before(arts[j].modTime)
	})
	return
}

// deletable reports whether an artifact may be evicted. The newest file
// is the one the capture tool is writing, and a held advisory lock means
// a writer or reader has it pinned.
func deletable(a artifact, newest string) bool {
	if a.path == newest {
		return false
	}
	fl := flock.New(a.path)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return false
	}
	fl.Unlock()
	return true
}

// Run executes one sweep: an age pass, then a free-space pass evicting
// oldest first, then event-log rotation. Concurrent Run calls serialize.
func (e *Engine) Run(ctx context.Context, p Params) (rep Report, err error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	arts, lerr := e.enumerate()
	if lerr != nil {
		err = errors.Join(ErrSweepFailed, lerr)
		return
	}
	var newest string
	if len(arts) > 0 {
		newest = arts[len(arts)-1].path
	}

	cutoff := time.Now().Add(-time.Duration(p.RetentionDays) * 24 * time.Hour)
	remaining := arts[:0]
	for _, a := range arts {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		if a.modTime.Before(cutoff) && deletable(a, newest) {
			if e.remove(a, &rep) {
				continue
			}
		}
		remaining = append(remaining, a)
	}

	free, ferr := e.freePctFunc(e.root)
	if ferr != nil {
		rep.Errors = append(rep.Errors, ferr.Error())
		e.fallback(ctx, rep)
		err = errors.Join(ErrSweepFailed, ferr)
		return
	}
	for free < float64(p.MinFreePct) && len(remaining) > 0 {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		a := remaining[0]
		remaining = remaining[1:]
		if !deletable(a, newest) {
			continue
		}
		if e.remove(a, &rep) {
			if f, rerr := e.freePctFunc(e.root); rerr == nil {
				free = f
				rep.Deleted[len(rep.Deleted)-1].FreePct = free
			}
		}
	}
	rep.FreePct = free

	if p.EveLog != `` && p.MaxEveLogBytes > 0 {
		if rotated, rerr := e.rotateEve(ctx, p.EveLog, p.MaxEveLogBytes); rerr != nil {
			rep.Errors = append(rep.Errors, rerr.Error())
		} else {
			rep.RotatedEve = rotated
		}
	}

	e.lastRun = time.Now()
	e.lastRep = rep
	if len(rep.Deleted) > 0 && e.onDelete != nil {
		e.onDelete()
	}
	return
}

// remove evicts one artifact and logs it. Returns false when the unlink
// failed, the artifact then stays in the working set.
func (e *Engine) remove(a artifact, rep *Report) bool {
	if err := os.Remove(a.path); err != nil {
		e.lg.Warn("failed to delete capture artifact", log.KV("path", a.path), log.KVErr(err))
		rep.Errors = append(rep.Errors, err.Error())
		return false
	}
	free, _ := e.freePctFunc(e.root)
	e.lg.Info("deleted capture artifact", log.KV("path", a.path),
		log.KV("size", a.size), log.KV("freepct", free))
	rep.Deleted = append(rep.Deleted, Deleted{Path: a.path, Size: a.size, FreePct: free})
	return true
}

// fallback hands control to the host cleanup script when the sweep could
// not do its job.
func (e *Engine) fallback(ctx context.Context, rep Report) {
	if e.adapter == nil {
		return
	}
	if res, err := e.adapter.StorageCleanup(ctx); err != nil {
		e.lg.Error("storage cleanup fallback failed", log.KVErr(err))
	} else if !res.Ok() {
		e.lg.Error("storage cleanup fallback exited nonzero", log.KV("exit", res.ExitCode))
	}
}
