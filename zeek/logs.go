/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package zeek reads the analyzer logs Zeek writes as JSON lines and
// derives the traffic statistics the API exposes. All reads are bounded
// tails, the daemon never loads a whole analyzer log.
package zeek

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/JWalen/NetworkTap-sub002/filewatch"
)

const (
	// statsTailBytes bounds how much of an analyzer log feeds one
	// statistics pass.
	statsTailBytes int64 = 1024 * 1024

	DefaultPageSize = 100
	MaxPageSize     = 500
)

var (
	ErrBadAnalyzer = errors.New("invalid analyzer name")
)

// Reader serves bounded reads over a Zeek log directory.
type Reader struct {
	dir   string
	cache *sfCache
}

func NewReader(dir string) *Reader {
	return &Reader{
		dir:   dir,
		cache: newSFCache(DefaultStatsTTL),
	}
}

// SetDir repoints the reader after a config change and drops caches.
func (r *Reader) SetDir(dir string) {
	r.dir = dir
	r.cache.Invalidate()
}

// logPath maps an analyzer name to its log file. Names are restricted to
// a safe character set, the request never contributes path components.
func (r *Reader) logPath(analyzer string) (p string, err error) {
	if analyzer == `` {
		err = ErrBadAnalyzer
		return
	}
	for _, ch := range analyzer {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-' {
			continue
		}
		err = fmt.Errorf("%w: %q", ErrBadAnalyzer, analyzer)
		return
	}
	p = filepath.Join(r.dir, analyzer+`.log`)
	return
}

// Logs returns one page of raw records from an analyzer log, newest
// window, optionally filtered by substring match against the raw line.
func (r *Reader) Logs(ctx context.Context, analyzer, filter string, page, pageSize int) (out []json.RawMessage, total int, err error) {
	var p string
	if p, err = r.logPath(analyzer); err != nil {
		return
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	var lines [][]byte
	if lines, err = filewatch.TailLines(ctx, p, statsTailBytes); err != nil {
		return
	}
	recs := make([]json.RawMessage, 0, len(lines))
	for _, ln := range lines {
		if filter != `` && !strings.Contains(string(ln), filter) {
			continue
		}
		if !json.Valid(ln) {
			continue
		}
		recs = append(recs, append(json.RawMessage(nil), ln...))
	}
	total = len(recs)
	start := page * pageSize
	if start >= total {
		out = []json.RawMessage{}
		return
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out = recs[start:end]
	return
}
