/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package host

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes = errors.New("path escapes allowed root")
)

// PathGuard resolves request-supplied paths against an allow-list root.
// Anything that escapes the root after cleaning and symlink resolution is
// rejected, including symlinks inside the root pointing out of it.
type PathGuard struct {
	root string
}

func NewPathGuard(root string) (g *PathGuard, err error) {
	if !filepath.IsAbs(root) {
		err = errors.New("guard root must be absolute")
		return
	}
	//resolve the root itself so comparisons work on mounts using symlinks
	resolved := filepath.Clean(root)
	if r, lerr := filepath.EvalSymlinks(resolved); lerr == nil {
		resolved = r
	}
	g = &PathGuard{root: resolved}
	return
}

func (g *PathGuard) Root() string {
	return g.root
}

// Resolve joins name under the root and verifies the result stays inside.
// The returned path is absolute; it is symlink-resolved when the whole path
// exists, and returned cleaned but unresolved when it does not.
func (g *PathGuard) Resolve(name string) (p string, err error) {
	p = filepath.Clean(filepath.Join(g.root, name))
	if !g.contains(p) {
		p = ``
		err = ErrPathEscapes
		return
	}
	//resolve symlinks when the full path exists, a missing path is fine
	//for listing checks but a link that lands outside the root is not
	if resolved, lerr := filepath.EvalSymlinks(p); lerr == nil {
		if !g.contains(resolved) {
			p = ``
			err = ErrPathEscapes
			return
		}
		p = resolved
	} else if !os.IsNotExist(lerr) {
		p = ``
		err = lerr
	}
	return
}

func (g *PathGuard) contains(p string) bool {
	if p == g.root {
		return true
	}
	return strings.HasPrefix(p, g.root+string(os.PathSeparator))
}
