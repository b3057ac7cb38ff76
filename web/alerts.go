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
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JWalen/NetworkTap-sub002/events"
	"github.com/JWalen/NetworkTap-sub002/filewatch"
	"github.com/JWalen/NetworkTap-sub002/zeek"
)

const (
	maxAlertLimit     = 500
	defaultAlertLimit = 100
)

type alertSource struct {
	name   string
	path   string
	parser events.Parser
}

// alertSources maps the requested source to its log file and parser.
func (s *Server) alertSources(source string) (out []alertSource, err error) {
	cfg := s.Store.Get()
	switch source {
	case events.SourceSuricata:
		out = []alertSource{{events.SourceSuricata, cfg.SuricataEveLog, events.ParseEVE}}
	case events.SourceZeek:
		out = []alertSource{{events.SourceZeek, filepath.Join(cfg.ZeekLogDir, `notice.log`), events.ParseZeekNotice}}
	case ``:
		out = []alertSource{
			{events.SourceSuricata, cfg.SuricataEveLog, events.ParseEVE},
			{events.SourceZeek, filepath.Join(cfg.ZeekLogDir, `notice.log`), events.ParseZeekNotice},
		}
	default:
		err = ErrBadRequest
	}
	return
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get(`limit`))
	if limit <= 0 {
		limit = defaultAlertLimit
	} else if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	var since time.Time
	if sv := q.Get(`since`); sv != `` {
		var perr error
		if since, perr = time.Parse(time.RFC3339, sv); perr != nil {
			writeErr(w, ErrBadRequest, `since must be RFC3339`)
			return
		}
	}
	srcs, err := s.alertSources(q.Get(`source`))
	if err != nil {
		writeErr(w, err, `source must be suricata or zeek`)
		return
	}

	var alerts []events.Alert
	cached := true
	for _, src := range srcs {
		out, hit, terr := s.Tails.Get(r.Context(), src.path, src.name, filewatch.DefaultTailBytes, src.parser)
		if terr != nil {
			writeErr(w, terr, map[string]string{`source`: src.name})
			return
		}
		if !hit {
			cached = false
		}
		alerts = append(alerts, out...)
	}
	if !since.IsZero() {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.Timestamp.After(since) {
				kept = append(kept, a)
			}
		}
		alerts = kept
	}
	if len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	writeData(w, alerts, cached, tailTTL)
}

// handleAlertsRecent serves the replay ring, the fast path the UI polls.
func (s *Server) handleAlertsRecent(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get(`limit`))
	if limit <= 0 || limit > maxAlertLimit {
		limit = defaultAlertLimit
	}
	var out []events.Alert
	if src := q.Get(`source`); src != `` {
		out = s.Bus.Recent(src, limit)
	} else {
		out = s.Bus.RecentAll(limit)
	}
	if out == nil {
		out = []events.Alert{}
	}
	writeData(w, out, false, 0)
}

// handleZeekLogs serves GET /zeek/logs/{type}
func (s *Server) handleZeekLogs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	analyzer := strings.TrimPrefix(r.URL.Path, `/zeek/logs/`)
	if strings.Contains(analyzer, `/`) {
		writeErr(w, zeek.ErrBadAnalyzer, nil)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get(`page`))
	pageSize, _ := strconv.Atoi(q.Get(`page_size`))
	recs, total, err := s.Zeek.Logs(r.Context(), analyzer, q.Get(`filter`), page, pageSize)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, map[string]interface{}{
		`records`: recs,
		`total`:   total,
		`page`:    page,
	}, false, 0)
}
