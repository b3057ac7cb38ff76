/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrInvalidRange = errors.New("invalid byte range")
)

// List paginates the artifact set sorted mtime descending, optionally
// filtered by a substring match on the name.
func (s *Supervisor) List(ctx context.Context, offset, limit int, filter string) (page []Artifact, total int, cached bool, err error) {
	if limit <= 0 {
		limit = DefaultListLimit
	} else if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	var arts []Artifact
	if arts, cached, err = s.scan(ctx); err != nil {
		return
	}
	if filter != `` {
		flt := make([]Artifact, 0, len(arts))
		for _, a := range arts {
			if strings.Contains(a.Name, filter) {
				flt = append(flt, a)
			}
		}
		arts = flt
	}
	total = len(arts)
	if offset >= total {
		page = []Artifact{}
		return
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page = arts[offset:end]
	return
}

// Stat resolves a request-supplied name inside the capture root and
// returns its artifact record. Traversal attempts surface as the guard's
// escape error.
func (s *Supervisor) Stat(name string) (a Artifact, err error) {
	var p string
	if p, err = s.guard.Resolve(name); err != nil {
		return
	}
	fi, serr := os.Stat(p)
	if serr != nil {
		if os.IsNotExist(serr) {
			err = fmt.Errorf("%w: %s", ErrNotFound, name)
		} else {
			err = serr
		}
		return
	}
	if fi.IsDir() {
		err = fmt.Errorf("%w: %s", ErrNotFound, name)
		return
	}
	a = Artifact{
		Name:    name,
		Path:    p,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
	return
}

// Open opens an artifact for download. Callers validate any byte range
// against Stat before calling this.
func (s *Supervisor) Open(name string) (f *os.File, a Artifact, err error) {
	if a, err = s.Stat(name); err != nil {
		return
	}
	f, err = os.Open(a.Path)
	return
}

// ValidateRange checks an HTTP style first-last byte pair against size.
func ValidateRange(first, last, size int64) error {
	if first < 0 || last < first || first >= size {
		return fmt.Errorf("%w: %d-%d against %d bytes", ErrInvalidRange, first, last, size)
	}
	return nil
}
