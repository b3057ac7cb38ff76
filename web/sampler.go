/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
)

const (
	// HistoryDepth is how many samples back the sparkline history goes.
	HistoryDepth = 30

	DefaultSampleInterval = 30 * time.Second
)

// SysSample is one point of the sparkline history.
type SysSample struct {
	At      time.Time `json:"at"`
	CPUPct  float64   `json:"cpu_pct"`
	MemPct  float64   `json:"mem_pct"`
	DiskPct float64   `json:"disk_pct"`
}

// Sampler keeps a bounded ring of periodic system samples.
type Sampler struct {
	mtx      sync.Mutex
	diskPath string
	ring     [HistoryDepth]SysSample
	count    int
	next     int
}

func NewSampler(diskPath string) *Sampler {
	return &Sampler{
		diskPath: diskPath,
	}
}

// Sample takes one reading and appends it to the ring.
func (s *Sampler) Sample() (smp SysSample) {
	smp.At = time.Now().UTC()
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		smp.CPUPct = pcts[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		smp.MemPct = vm.UsedPercent
	}
	if us, err := disk.Usage(s.diskPath); err == nil {
		smp.DiskPct = us.UsedPercent
	}
	s.mtx.Lock()
	s.ring[s.next] = smp
	s.next = (s.next + 1) % HistoryDepth
	if s.count < HistoryDepth {
		s.count++
	}
	s.mtx.Unlock()
	return
}

// History returns the recorded samples oldest first.
func (s *Sampler) History() (out []SysSample) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out = make([]SysSample, 0, s.count)
	start := s.next - s.count
	if start < 0 {
		start += HistoryDepth
	}
	for i := 0; i < s.count; i++ {
		out = append(out, s.ring[(start+i)%HistoryDepth])
	}
	return
}
