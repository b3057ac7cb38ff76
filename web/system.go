/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/shirou/gopsutil/disk"
	gpshost "github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"github.com/JWalen/NetworkTap-sub002/host"
)

const (
	rebootConfirmHeader = `X-Confirm-Reboot`
)

type systemStatus struct {
	CPUPct      float64              `json:"cpu_pct"`
	MemPct      float64              `json:"mem_pct"`
	MemTotal    uint64               `json:"mem_total"`
	DiskPct     float64              `json:"disk_pct"`
	DiskFree    uint64               `json:"disk_free"`
	UptimeSec   uint64               `json:"uptime_sec"`
	Load1       float64              `json:"load1"`
	Mode        string               `json:"mode"`
	ModeState   string               `json:"mode_state"`
	Services    []host.ServiceStatus `json:"services"`
	History     []SysSample          `json:"history"`
	TailSources interface{}          `json:"tail_sources,omitempty"`
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	cur := s.Sampler.Sample()
	st := systemStatus{
		CPUPct:    cur.CPUPct,
		MemPct:    cur.MemPct,
		DiskPct:   cur.DiskPct,
		Mode:      s.Store.Get().Mode,
		ModeState: string(s.Mode.State()),
		History:   s.Sampler.History(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemTotal = vm.Total
	}
	if us, err := disk.Usage(s.Capture.Root()); err == nil {
		st.DiskFree = us.Free
	}
	if up, err := gpshost.Uptime(); err == nil {
		st.UptimeSec = up
	}
	if la, err := load.Avg(); err == nil {
		st.Load1 = la.Load1
	}
	for _, name := range host.ServiceNames() {
		if ss, err := s.Adapter.ServiceStatus(r.Context(), name); err == nil {
			st.Services = append(st.Services, ss)
		}
	}
	st.TailSources = s.Watcher.Stats()
	writeData(w, st, false, 0)
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ifaces, err := s.Adapter.ListInterfaces(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, ifaces, false, 0)
}

// handleServiceAction serves POST /system/service/{name}/{action}
func (s *Server) handleServiceAction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, `/system/service/`)
	parts := strings.Split(rest, `/`)
	if len(parts) != 2 || parts[0] == `` || parts[1] == `` {
		writeErr(w, ErrBadRequest, `expected /system/service/{name}/{action}`)
		return
	}
	name, action := parts[0], parts[1]
	switch action {
	case `start`, `stop`, `restart`:
	default:
		writeErr(w, ErrBadRequest, `action must be start, stop, or restart`)
		return
	}
	if _, err := s.Adapter.ServiceAction(r.Context(), name, action); err != nil {
		writeErr(w, err, nil)
		return
	}
	ss, err := s.Adapter.ServiceStatus(r.Context(), name)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeStatusData(w, http.StatusAccepted, ss)
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if !strings.EqualFold(r.Header.Get(rebootConfirmHeader), `yes`) {
		writeErr(w, ErrBadRequest, rebootConfirmHeader+` header required`)
		return
	}
	if err := s.Adapter.Reboot(); err != nil {
		writeErr(w, err, nil)
		return
	}
	writeStatusData(w, http.StatusAccepted, map[string]interface{}{
		`rebooting`: true,
		`at`:        time.Now().UTC(),
	})
}
