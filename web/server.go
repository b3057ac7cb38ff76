/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package web is the operator API: authenticated REST over the daemon's
// components plus the live alert websocket.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JWalen/NetworkTap-sub002/auth"
	"github.com/JWalen/NetworkTap-sub002/capture"
	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/eventbus"
	"github.com/JWalen/NetworkTap-sub002/filewatch"
	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
	"github.com/JWalen/NetworkTap-sub002/modectl"
	"github.com/JWalen/NetworkTap-sub002/retention"
	"github.com/JWalen/NetworkTap-sub002/zeek"
)

const (
	readHeaderTimeout = 10 * time.Second

	tailTTL = filewatch.DefaultTailTTL
)

type ctxKey int

const (
	ctxPrincipal ctxKey = iota
	ctxRequestID
)

// ServerConfig carries every dependency the API surface exposes.
type ServerConfig struct {
	Bind    string
	Store   *config.Store
	Gate    *auth.Gate
	Adapter *host.Adapter
	Bus     *eventbus.Bus
	Watcher *filewatch.Watcher
	Tails   *filewatch.TailCache
	Capture *capture.Supervisor
	Retain  *retention.Engine
	Mode    *modectl.Controller
	Zeek    *zeek.Reader
	Sampler *Sampler
	Logger  *log.Logger
}

type Server struct {
	ServerConfig
	srv *http.Server
	hub *wsHub
}

func NewServer(sc ServerConfig) *Server {
	if sc.Logger == nil {
		sc.Logger = log.NewDiscardLogger()
	}
	sc.Logger = sc.Logger.Component(`web`)
	s := &Server{
		ServerConfig: sc,
		hub:          newWSHub(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(`/health`, s.handleHealth)

	mux.HandleFunc(`/system/status`, s.wrap(false, s.handleSystemStatus))
	mux.HandleFunc(`/system/interfaces`, s.wrap(false, s.handleInterfaces))
	mux.HandleFunc(`/system/service/`, s.wrap(true, s.handleServiceAction))
	mux.HandleFunc(`/system/reboot`, s.wrap(true, s.handleReboot))

	mux.HandleFunc(`/config`, s.wrap(false, s.handleConfig))
	mux.HandleFunc(`/config/mode`, s.wrap(false, s.handleMode))

	mux.HandleFunc(`/capture/status`, s.wrap(false, s.handleCaptureStatus))
	mux.HandleFunc(`/capture/start`, s.wrap(true, s.handleCaptureStart))
	mux.HandleFunc(`/capture/stop`, s.wrap(true, s.handleCaptureStop))
	mux.HandleFunc(`/pcaps`, s.wrap(false, s.handlePcapList))
	mux.HandleFunc(`/pcaps/`, s.wrap(false, s.handlePcapDownload))

	mux.HandleFunc(`/alerts`, s.wrap(false, s.handleAlerts))
	mux.HandleFunc(`/alerts/recent`, s.wrap(false, s.handleAlertsRecent))
	mux.HandleFunc(`/zeek/logs/`, s.wrap(false, s.handleZeekLogs))

	mux.HandleFunc(`/stats/dns`, s.wrap(false, s.handleStatsDNS))
	mux.HandleFunc(`/stats/protocols`, s.wrap(false, s.handleStatsProtocols))
	mux.HandleFunc(`/stats/services`, s.wrap(false, s.handleStatsServices))
	mux.HandleFunc(`/stats/talkers`, s.wrap(false, s.handleStatsTalkers))
	mux.HandleFunc(`/stats/trends`, s.wrap(false, s.handleStatsTrends))

	mux.HandleFunc(`/updates/`, s.wrap(true, s.handleUpdates))
	mux.HandleFunc(`/wifi/`, s.wrap(true, s.handleWifi))

	mux.HandleFunc(`/ws/alerts`, s.handleWS)

	s.srv = &http.Server{
		Addr:              sc.Bind,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Run serves until Shutdown, with TLS when the snapshot enables it.
func (s *Server) Run() error {
	cfg := s.Store.Get()
	if cfg.TLSEnabled {
		return s.srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	}
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections, closes every websocket with the
// going-away code, and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll(closeGoingAway)
	return s.srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// wrap applies authentication, the role check, request ids, and the one
// log line per failed request.
func (s *Server) wrap(admin bool, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqid := uuid.New().String()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		pr, err := s.Gate.Authenticate(r)
		if err != nil {
			writeErr(rec, err, nil)
			s.logRequest(r, rec.status, reqid)
			return
		}
		if admin && !pr.Admin() {
			writeErr(rec, ErrForbidden, nil)
			s.logRequest(r, rec.status, reqid)
			return
		}
		ctx := context.WithValue(r.Context(), ctxPrincipal, pr)
		ctx = context.WithValue(ctx, ctxRequestID, reqid)
		h(rec, r.WithContext(ctx))
		if rec.status >= http.StatusBadRequest {
			s.logRequest(r, rec.status, reqid)
		}
	}
}

func (s *Server) logRequest(r *http.Request, status int, reqid string) {
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", log.KVReq(reqid), log.KV("method", r.Method),
			log.KV("path", r.URL.Path), log.KV("status", status), log.KV("remote", r.RemoteAddr))
	} else {
		s.Logger.Warn("request rejected", log.KVReq(reqid), log.KV("method", r.Method),
			log.KV("path", r.URL.Path), log.KV("status", status), log.KV("remote", r.RemoteAddr))
	}
}

func principal(r *http.Request) (p auth.Principal) {
	p, _ = r.Context().Value(ctxPrincipal).(auth.Principal)
	return
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{`status`: `ok`})
}

func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeErr(w, ErrMethod, nil)
	return false
}
