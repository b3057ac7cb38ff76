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
	"errors"
	"io"
	"os"
)

const (
	defaultMaxLine = 16 * 1024 * 1024
	readChunk      = 64 * 1024
)

var (
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

// liner consumes newline-delimited records from a file handle, retaining
// the trailing partial line between reads. The index always points at the
// first byte not yet consumed by a complete line.
type liner struct {
	fin     *os.File
	partial []byte
	idx     int64
	maxLine int
}

func newLiner(fin *os.File, startIdx int64) (*liner, error) {
	if _, err := fin.Seek(startIdx, io.SeekStart); err != nil {
		return nil, err
	}
	return &liner{
		fin:     fin,
		idx:     startIdx,
		maxLine: defaultMaxLine,
	}, nil
}

// Index returns the byte offset of the next unconsumed line.
func (l *liner) Index() int64 {
	return l.idx
}

// ReadLine returns the next complete line without its newline. ok is
// false at EOF or when only a partial line remains buffered.
func (l *liner) ReadLine() (ln []byte, ok bool, err error) {
	for {
		if nidx := bytes.IndexByte(l.partial, '\n'); nidx >= 0 {
			ln = l.partial[:nidx]
			l.partial = l.partial[nidx+1:]
			l.idx += int64(nidx + 1)
			ok = true
			return
		}
		if len(l.partial) > l.maxLine {
			err = ErrLineTooLong
			return
		}
		buf := make([]byte, readChunk)
		var n int
		if n, err = l.fin.Read(buf); n > 0 {
			l.partial = append(l.partial, buf[:n]...)
			err = nil
			continue
		}
		if err == io.EOF {
			err = nil
		}
		return
	}
}

// ReadRemaining hands back whatever partial line is buffered, consuming
// it. Used when a file rotates away or the follower shuts down with data
// lacking a final delimiter.
func (l *liner) ReadRemaining() (ln []byte) {
	if len(l.partial) > 0 {
		ln = l.partial
		l.idx += int64(len(l.partial))
		l.partial = nil
	}
	return
}

// SeekFile discards buffered data and moves the read position.
func (l *liner) SeekFile(idx int64) (err error) {
	if _, err = l.fin.Seek(idx, io.SeekStart); err == nil {
		l.partial = nil
		l.idx = idx
	}
	return
}

func (l *liner) Close() error {
	if l.fin == nil {
		return nil
	}
	err := l.fin.Close()
	l.fin = nil
	return err
}

// fileID returns the inode identity for rotation detection.
func fileID(fi os.FileInfo) (id uint64, ok bool) {
	return sysFileID(fi)
}
