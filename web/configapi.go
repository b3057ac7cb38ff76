/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/JWalen/NetworkTap-sub002/config"
)

const (
	// switchDeadline bounds a whole mode transition from the API side.
	switchDeadline = 45 * time.Second
)

// configView is the redacted snapshot served to the UI, credential
// material never leaves the daemon.
type configView struct {
	Mode                 string `json:"mode"`
	NIC1                 string `json:"nic1"`
	NIC2                 string `json:"nic2"`
	BridgeName           string `json:"bridge_name"`
	CaptureInterface     string `json:"capture_interface"`
	ManagementInterface  string `json:"management_interface"`
	MgmtIP               string `json:"mgmt_ip"`
	MgmtGateway          string `json:"mgmt_gateway,omitempty"`
	MgmtDNS              string `json:"mgmt_dns,omitempty"`
	WebPort              uint16 `json:"web_port"`
	WebUser              string `json:"web_user"`
	CaptureDir           string `json:"capture_dir"`
	CaptureRotateSeconds int    `json:"capture_rotate_seconds"`
	CaptureFileLimit     int    `json:"capture_file_limit"`
	CaptureSnaplen       int    `json:"capture_snaplen"`
	CaptureCompress      bool   `json:"capture_compress"`
	CaptureFilter        string `json:"capture_filter,omitempty"`
	RetentionDays        int    `json:"retention_days"`
	MinFreeDiskPct       int    `json:"min_free_disk_pct"`
	SuricataEnabled      bool   `json:"suricata_enabled"`
	SuricataEveLog       string `json:"suricata_eve_log"`
	ZeekEnabled          bool   `json:"zeek_enabled"`
	ZeekLogDir           string `json:"zeek_log_dir"`
	AIAssistantEnabled   bool   `json:"ai_assistant_enabled"`
	TLSEnabled           bool   `json:"tls_enabled"`
}

func viewOf(c *config.Config) configView {
	return configView{
		Mode:                 c.Mode,
		NIC1:                 c.NIC1,
		NIC2:                 c.NIC2,
		BridgeName:           c.BridgeName,
		CaptureInterface:     c.CaptureInterface(),
		ManagementInterface:  c.ManagementInterface(),
		MgmtIP:               c.MgmtIP,
		MgmtGateway:          c.MgmtGateway,
		MgmtDNS:              c.MgmtDNS,
		WebPort:              c.WebPort,
		WebUser:              c.WebUser,
		CaptureDir:           c.CaptureDir,
		CaptureRotateSeconds: c.CaptureRotateSeconds,
		CaptureFileLimit:     c.CaptureFileLimit,
		CaptureSnaplen:       c.CaptureSnaplen,
		CaptureCompress:      c.CaptureCompress,
		CaptureFilter:        c.CaptureFilter,
		RetentionDays:        c.RetentionDays,
		MinFreeDiskPct:       c.MinFreeDiskPct,
		SuricataEnabled:      c.SuricataEnabled,
		SuricataEveLog:       c.SuricataEveLog,
		ZeekEnabled:          c.ZeekEnabled,
		ZeekLogDir:           c.ZeekLogDir,
		AIAssistantEnabled:   c.AIAssistantEnabled,
		TLSEnabled:           c.TLSEnabled,
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeData(w, viewOf(s.Store.Get()), false, 0)
	case http.MethodPatch:
		if !principal(r).Admin() {
			writeErr(w, ErrForbidden, nil)
			return
		}
		var patch map[string]string
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeErr(w, ErrBadRequest, err.Error())
			return
		}
		//mode changes go through the transition controller, not a raw
		//config write
		if _, ok := patch[`MODE`]; ok {
			writeErr(w, ErrBadRequest, `use /config/mode to change the mode`)
			return
		}
		if _, ok := patch[`mode`]; ok {
			writeErr(w, ErrBadRequest, `use /config/mode to change the mode`)
			return
		}
		cfg, err := s.Store.Set(patch)
		if err != nil {
			writeErr(w, err, nil)
			return
		}
		writeData(w, viewOf(cfg), false, 0)
	default:
		writeErr(w, ErrMethod, nil)
	}
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeData(w, map[string]interface{}{
			`mode`:     s.Store.Get().Mode,
			`state`:    s.Mode.State(),
			`degraded`: s.Mode.Degraded(),
		}, false, 0)
	case http.MethodPost:
		if !principal(r).Admin() {
			writeErr(w, ErrForbidden, nil)
			return
		}
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, ErrBadRequest, err.Error())
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), switchDeadline)
		defer cancel()
		res, err := s.Mode.Switch(ctx, req.Mode)
		if err != nil {
			writeErr(w, err, map[string]interface{}{
				`from`: res.From,
				`to`:   res.To,
			})
			return
		}
		writeData(w, res, false, 0)
	default:
		writeErr(w, ErrMethod, nil)
	}
}
