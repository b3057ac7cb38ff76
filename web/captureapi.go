/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JWalen/NetworkTap-sub002/capture"
)

func (s *Server) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Capture.Status(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st, cached, 5*time.Second)
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ss, err := s.Capture.Start(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	s.Capture.InvalidateScan()
	writeStatusData(w, http.StatusAccepted, ss)
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	ss, err := s.Capture.Stop(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeStatusData(w, http.StatusAccepted, ss)
}

func (s *Server) handlePcapList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get(`offset`))
	limit, _ := strconv.Atoi(q.Get(`limit`))
	page, total, cached, err := s.Capture.List(r.Context(), offset, limit, q.Get(`filter`))
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, map[string]interface{}{
		`pcaps`:  page,
		`total`:  total,
		`offset`: offset,
	}, cached, 5*time.Second)
}

// parseRange understands single-range bytes=first-last forms. A present
// but malformed or unsatisfiable header is rejected before any file is
// opened.
func parseRange(hdr string, size int64) (first, last int64, err error) {
	spec, found := strings.CutPrefix(hdr, `bytes=`)
	if !found || strings.Contains(spec, `,`) {
		err = fmt.Errorf("%w: %q", capture.ErrInvalidRange, hdr)
		return
	}
	a, b, found := strings.Cut(spec, `-`)
	if !found {
		err = fmt.Errorf("%w: %q", capture.ErrInvalidRange, hdr)
		return
	}
	if a == `` {
		//suffix form, last n bytes
		var n int64
		if n, err = strconv.ParseInt(b, 10, 64); err != nil || n <= 0 {
			err = fmt.Errorf("%w: %q", capture.ErrInvalidRange, hdr)
			return
		}
		if n > size {
			n = size
		}
		first, last = size-n, size-1
		return
	}
	if first, err = strconv.ParseInt(a, 10, 64); err != nil {
		err = fmt.Errorf("%w: %q", capture.ErrInvalidRange, hdr)
		return
	}
	if b == `` {
		last = size - 1
	} else if last, err = strconv.ParseInt(b, 10, 64); err != nil {
		err = fmt.Errorf("%w: %q", capture.ErrInvalidRange, hdr)
		return
	}
	err = capture.ValidateRange(first, last, size)
	return
}

func (s *Server) handlePcapDownload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, `/pcaps/`)
	if un, uerr := url.PathUnescape(name); uerr == nil {
		name = un
	}
	if name == `` {
		writeErr(w, ErrBadRequest, `artifact name required`)
		return
	}
	art, err := s.Capture.Stat(name)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	//range validation happens against the stat result, before open
	if hdr := r.Header.Get(`Range`); hdr != `` {
		if _, _, err = parseRange(hdr, art.Size); err != nil {
			w.Header().Set(`Content-Range`, fmt.Sprintf("bytes */%d", art.Size))
			writeErr(w, err, nil)
			return
		}
	}
	f, art, err := s.Capture.Open(name)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	defer f.Close()
	w.Header().Set(`Content-Type`, `application/octet-stream`)
	w.Header().Set(`Content-Disposition`,
		fmt.Sprintf(`attachment; filename=%q`, strings.ReplaceAll(art.Name, `/`, `_`)))
	http.ServeContent(w, r, art.Name, art.ModTime, f)
}
