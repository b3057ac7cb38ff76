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

	"github.com/JWalen/NetworkTap-sub002/zeek"
)

func (s *Server) handleStatsDNS(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Zeek.DNS(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st, cached, zeek.DefaultStatsTTL)
}

func (s *Server) handleStatsProtocols(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Zeek.Conn(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st.Protocols, cached, zeek.DefaultStatsTTL)
}

func (s *Server) handleStatsServices(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Zeek.Conn(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st.Services, cached, zeek.DefaultStatsTTL)
}

func (s *Server) handleStatsTalkers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Zeek.Conn(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st.TopTalkers, cached, zeek.DefaultStatsTTL)
}

func (s *Server) handleStatsTrends(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	st, cached, err := s.Zeek.Conn(r.Context())
	if err != nil {
		writeErr(w, err, nil)
		return
	}
	writeData(w, st.Trend, cached, zeek.DefaultStatsTTL)
}
