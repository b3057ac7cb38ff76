//go:build linux
// +build linux

/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package filewatch

import (
	"os"
	"syscall"
)

func sysFileID(fi os.FileInfo) (id uint64, ok bool) {
	if st, isStat := fi.Sys().(*syscall.Stat_t); isStat {
		id = st.Ino
		ok = true
	}
	return
}
