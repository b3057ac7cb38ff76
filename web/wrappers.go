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

	"github.com/JWalen/NetworkTap-sub002/host"
)

// The update and WiFi surfaces are strict wrappers over host scripts, no
// state lives in the daemon. The verb after the prefix is handed to the
// script as its first argument.

func wrapperOp(w http.ResponseWriter, r *http.Request, prefix string) (op string, ok bool) {
	op = strings.TrimPrefix(r.URL.Path, prefix)
	if op == `` || strings.Contains(op, `/`) {
		writeErr(w, ErrBadRequest, `expected `+prefix+`{start|stop|status|survey}`)
		return
	}
	switch op {
	case `start`, `stop`, `status`, `survey`:
		ok = true
	default:
		writeErr(w, ErrBadRequest, `unknown operation `+op)
	}
	return
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, http.MethodGet) {
		return
	}
	op, ok := wrapperOp(w, r, `/updates/`)
	if !ok {
		return
	}
	res, err := s.Adapter.Update(r.Context(), op)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, res, false, 0)
}

func (s *Server) handleWifi(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost, http.MethodGet) {
		return
	}
	op, ok := wrapperOp(w, r, `/wifi/`)
	if !ok {
		return
	}
	var res host.Result
	var err error
	res, err = s.Adapter.Wifi(r.Context(), op)
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, res, false, 0)
}
