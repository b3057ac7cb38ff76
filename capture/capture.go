/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package capture supervises the packet capture service and its on-disk
// artifacts. It never runs tcpdump itself, all process control goes
// through the host adapter and all filesystem access stays inside the
// capture root.
package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	ActiveDir  = `active`
	ArchiveDir = `archive`

	scanTTL = 5 * time.Second

	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var (
	ErrNotFound = errors.New("capture artifact not found")
)

// Artifact is one pcap file owned by the retention engine.
type Artifact struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Active  bool      `json:"active"`
}

// Status is the sampled capture state.
type Status struct {
	Running     bool       `json:"running"`
	Since       time.Time  `json:"since,omitempty"`
	ActiveFile  string     `json:"active_file,omitempty"`
	RecentFiles []Artifact `json:"recent_files"`
}

// Supervisor is a thin facade over the capture service and its artifact
// directory.
type Supervisor struct {
	adapter *host.Adapter
	guard   *host.PathGuard
	lg      *log.Logger

	mtx      sync.Mutex
	scanned  []Artifact
	scanTime time.Time
	scanning chan struct{}
}

func NewSupervisor(adapter *host.Adapter, captureDir string, lg *log.Logger) (s *Supervisor, err error) {
	var guard *host.PathGuard
	if guard, err = host.NewPathGuard(captureDir); err != nil {
		return
	}
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	s = &Supervisor{
		adapter: adapter,
		guard:   guard,
		lg:      lg.Component(`capture`),
	}
	return
}

func (s *Supervisor) Root() string {
	return s.guard.Root()
}

// scan walks the active and archive directories, sorted mtime descending.
// Results are cached for a few seconds and concurrent scanners share one
// walk.
func (s *Supervisor) scan(ctx context.Context) (arts []Artifact, cached bool, err error) {
	s.mtx.Lock()
	if time.Since(s.scanTime) < scanTTL && s.scanned != nil {
		arts, cached = s.scanned, true
		s.mtx.Unlock()
		return
	}
	if s.scanning != nil {
		wait := s.scanning
		s.mtx.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		s.mtx.Lock()
		arts, cached = s.scanned, true
		s.mtx.Unlock()
		return
	}
	done := make(chan struct{})
	s.scanning = done
	s.mtx.Unlock()

	var fresh []Artifact
	for _, sub := range []string{ActiveDir, ArchiveDir} {
		dir := filepath.Join(s.guard.Root(), sub)
		ents, derr := os.ReadDir(dir)
		if derr != nil {
			continue //missing subdirs are fine on a fresh install
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
			fresh = append(fresh, Artifact{
				Name:    filepath.Join(sub, name),
				Path:    filepath.Join(dir, name),
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
				Active:  sub == ActiveDir,
			})
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].ModTime.After(fresh[j].ModTime)
	})

	s.mtx.Lock()
	s.scanned = fresh
	s.scanTime = time.Now()
	s.scanning = nil
	s.mtx.Unlock()
	close(done)
	arts = fresh
	return
}

// InvalidateScan drops the cached directory walk, used after deletes.
func (s *Supervisor) InvalidateScan() {
	s.mtx.Lock()
	s.scanTime = time.Time{}
	s.scanned = nil
	s.mtx.Unlock()
}

// Status samples the capture service and the most recent artifacts.
func (s *Supervisor) Status(ctx context.Context) (st Status, cached bool, err error) {
	var ss host.ServiceStatus
	if ss, err = s.adapter.ServiceStatus(ctx, host.SvcCapture); err != nil {
		return
	}
	st.Running = ss.Running()
	st.Since = ss.Since
	var arts []Artifact
	if arts, cached, err = s.scan(ctx); err != nil {
		return
	}
	if len(arts) > 10 {
		arts = arts[:10]
	}
	st.RecentFiles = arts
	for _, a := range arts {
		if a.Active {
			st.ActiveFile = a.Name
			break
		}
	}
	return
}

// Start starts the capture service and reports its resulting state.
func (s *Supervisor) Start(ctx context.Context) (host.ServiceStatus, error) {
	return s.action(ctx, `start`)
}

// Stop stops the capture service and reports its resulting state.
func (s *Supervisor) Stop(ctx context.Context) (host.ServiceStatus, error) {
	return s.action(ctx, `stop`)
}

// Restart bounces the capture service and reports its resulting state.
func (s *Supervisor) Restart(ctx context.Context) (host.ServiceStatus, error) {
	return s.action(ctx, `restart`)
}

func (s *Supervisor) action(ctx context.Context, act string) (ss host.ServiceStatus, err error) {
	var res host.Result
	if res, err = s.adapter.ServiceAction(ctx, host.SvcCapture, act); err != nil {
		return
	}
	if !res.Ok() {
		s.lg.Warn("capture service action failed", log.KV("action", act),
			log.KV("exit", res.ExitCode), log.KV("stderr", strings.TrimSpace(res.Stderr)))
	}
	return s.adapter.ServiceStatus(ctx, host.SvcCapture)
}
