/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/JWalen/NetworkTap-sub002/auth"
	"github.com/JWalen/NetworkTap-sub002/capture"
	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/filewatch"
	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/modectl"
	"github.com/JWalen/NetworkTap-sub002/zeek"
)

const (
	KindInvalidConfig     = `InvalidConfig`
	KindUnauthenticated   = `Unauthenticated`
	KindForbidden         = `Forbidden`
	KindNotFound          = `NotFound`
	KindConflict          = `Conflict`
	KindValidation        = `ValidationError`
	KindSourceUnavailable = `SourceUnavailable`
	KindExternalCommand   = `ExternalCommand`
	KindIOFailure         = `IOFailure`
	KindInternal          = `Internal`
)

var (
	ErrForbidden     = errors.New("admin role required")
	ErrMethod        = errors.New("method not allowed")
	ErrBadRequest    = errors.New("invalid request")
	ErrAlreadyActive = errors.New("capture already running")
)

type apiError struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type errEnvelope struct {
	Error apiError `json:"error"`
}

type meta struct {
	Cached bool  `json:"cached"`
	TTLms  int64 `json:"ttl_ms"`
}

type dataEnvelope struct {
	Data interface{} `json:"data"`
	Meta *meta       `json:"meta,omitempty"`
}

// classify maps an error chain to its HTTP status and error kind.
func classify(err error) (status int, kind string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, KindUnauthenticated
	case errors.Is(err, ErrForbidden), errors.Is(err, host.ErrPathEscapes):
		return http.StatusForbidden, KindForbidden
	case errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest, KindInvalidConfig
	case errors.Is(err, capture.ErrNotFound), errors.Is(err, host.ErrUnknownService):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, modectl.ErrModeBusy), errors.Is(err, modectl.ErrDegraded),
		errors.Is(err, ErrAlreadyActive):
		return http.StatusConflict, KindConflict
	case errors.Is(err, capture.ErrInvalidRange):
		return http.StatusRequestedRangeNotSatisfiable, KindValidation
	case errors.Is(err, ErrBadRequest), errors.Is(err, zeek.ErrBadAnalyzer),
		errors.Is(err, modectl.ErrBadMode):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, filewatch.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, KindSourceUnavailable
	case errors.Is(err, host.ErrCommandTimeout), errors.Is(err, host.ErrCommandFailed):
		return http.StatusInternalServerError, KindExternalCommand
	case errors.Is(err, ErrMethod):
		return http.StatusMethodNotAllowed, KindValidation
	}
	return http.StatusInternalServerError, KindInternal
}

func writeJSON(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set(`Content-Type`, `application/json`)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(obj)
}

// writeData emits the common success envelope. ttl is zero for uncached
// responses.
func writeData(w http.ResponseWriter, data interface{}, cached bool, ttl time.Duration) {
	env := dataEnvelope{Data: data}
	if ttl > 0 {
		env.Meta = &meta{Cached: cached, TTLms: ttl.Milliseconds()}
	}
	writeJSON(w, http.StatusOK, env)
}

func writeStatusData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, dataEnvelope{Data: data})
}

// writeErr emits the single error shape. Authentication failures always
// render identically regardless of which check tripped.
func writeErr(w http.ResponseWriter, err error, details interface{}) (status int) {
	var kind string
	status, kind = classify(err)
	msg := err.Error()
	if kind == KindUnauthenticated {
		//one shape, no oracles
		msg = `authentication required`
		details = nil
		w.Header().Set(`WWW-Authenticate`, `Basic realm="networktap"`)
	}
	writeJSON(w, status, errEnvelope{Error: apiError{
		Kind:    kind,
		Message: msg,
		Details: details,
	}})
	return
}
