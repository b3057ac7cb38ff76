/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package filewatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/JWalen/NetworkTap-sub002/events"
)

const (
	// DefaultTailTTL is how long a bounded tail read stays cached.
	DefaultTailTTL = 5 * time.Second

	DefaultTailBytes int64 = 256 * 1024
)

var (
	ErrSourceUnavailable = errors.New("log source unavailable")
)

// TailLines reads up to maxBytes from the end of path and splits into
// complete lines. When the read starts mid-file the first partial line is
// discarded, and a trailing unterminated line is ignored. A missing file
// yields no lines and no error, a permission failure is surfaced as
// ErrSourceUnavailable.
func TailLines(ctx context.Context, path string, maxBytes int64) (lines [][]byte, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultTailBytes
	}
	fin, lerr := os.Open(path)
	if lerr != nil {
		if os.IsNotExist(lerr) {
			return
		}
		err = errors.Join(ErrSourceUnavailable, lerr)
		return
	}
	defer fin.Close()
	fi, lerr := fin.Stat()
	if lerr != nil {
		err = errors.Join(ErrSourceUnavailable, lerr)
		return
	}
	start := fi.Size() - maxBytes
	skipFirst := start > 0
	if start < 0 {
		start = 0
	}
	if _, err = fin.Seek(start, io.SeekStart); err != nil {
		return
	}
	buf := make([]byte, fi.Size()-start)
	n, lerr := io.ReadFull(fin, buf)
	if lerr != nil && lerr != io.ErrUnexpectedEOF && lerr != io.EOF {
		err = lerr
		return
	}
	buf = buf[:n]
	for len(buf) > 0 {
		if ctx != nil && ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break //trailing partial line
		}
		ln := buf[:idx]
		buf = buf[idx+1:]
		if skipFirst {
			skipFirst = false
			continue
		}
		if len(ln) > 0 {
			lines = append(lines, ln)
		}
	}
	return
}

// TailAlerts parses a bounded tail read into alerts, skipping malformed
// and non-alert lines.
func TailAlerts(ctx context.Context, path, source string, maxBytes int64, parser events.Parser) (out []events.Alert, err error) {
	var lines [][]byte
	if lines, err = TailLines(ctx, path, maxBytes); err != nil {
		return
	}
	for _, ln := range lines {
		if a, ok, perr := parser(ln); perr == nil && ok {
			a.Source = source
			out = append(out, a)
		}
	}
	return
}

type tailKey struct {
	path  string
	size  int64
	mtime int64
}

type tailEntry struct {
	key   tailKey
	ready chan struct{}
	out   []events.Alert
	err   error
	made  time.Time
}

// TailCache memoizes TailAlerts results keyed by (path, size, mtime) with
// a TTL. Concurrent callers on the same key share one in-flight read.
type TailCache struct {
	mtx     sync.Mutex
	ttl     time.Duration
	entries map[string]*tailEntry
}

func NewTailCache(ttl time.Duration) *TailCache {
	if ttl <= 0 {
		ttl = DefaultTailTTL
	}
	return &TailCache{
		ttl:     ttl,
		entries: map[string]*tailEntry{},
	}
}

// Get returns the cached tail for path, computing it once per key. The
// cached flag tells the API layer whether this was a cache hit.
func (tc *TailCache) Get(ctx context.Context, path, source string, maxBytes int64, parser events.Parser) (out []events.Alert, cached bool, err error) {
	key := tailKey{path: path}
	if fi, serr := os.Stat(path); serr == nil {
		key.size = fi.Size()
		key.mtime = fi.ModTime().UnixNano()
	}

	tc.mtx.Lock()
	ent, ok := tc.entries[path]
	if ok && ent.key == key {
		select {
		case <-ent.ready:
			if time.Since(ent.made) < tc.ttl {
				tc.mtx.Unlock()
				return ent.out, true, ent.err
			}
			//expired, fall through and recompute
		default:
			//someone else is computing this key, wait on them
			tc.mtx.Unlock()
			select {
			case <-ent.ready:
				return ent.out, true, ent.err
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}
	}
	ent = &tailEntry{
		key:   key,
		ready: make(chan struct{}),
	}
	tc.entries[path] = ent
	tc.mtx.Unlock()

	ent.out, ent.err = TailAlerts(ctx, path, source, maxBytes, parser)
	ent.made = time.Now()
	close(ent.ready)
	return ent.out, false, ent.err
}

// Invalidate forgets cached reads, used when followed paths change.
func (tc *TailCache) Invalidate() {
	tc.mtx.Lock()
	tc.entries = map[string]*tailEntry{}
	tc.mtx.Unlock()
}
