/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package retention

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	// DefaultMaxEveLogBytes triggers EVE log rotation at 500 MiB.
	DefaultMaxEveLogBytes int64 = 500 * 1024 * 1024

	rotateSuffixFormat = `20060102_150405`
)

// rotateEve rotates the event log by rename when it exceeds the size
// threshold, compresses the rotated file, and signals the producer to
// reopen its handle.
func (e *Engine) rotateEve(ctx context.Context, path string, maxBytes int64) (rotated bool, err error) {
	fi, serr := os.Stat(path)
	if serr != nil {
		if os.IsNotExist(serr) {
			return
		}
		err = serr
		return
	}
	if fi.Size() <= maxBytes {
		return
	}

	rotatedPath := fmt.Sprintf("%s.%s", path, time.Now().UTC().Format(rotateSuffixFormat))
	if err = os.Rename(path, rotatedPath); err != nil {
		return
	}
	rotated = true
	e.lg.Info("rotated event log", log.KV("path", path),
		log.KV("rotated", rotatedPath), log.KV("size", fi.Size()))

	if err = gzipFile(rotatedPath); err != nil {
		//the rename already happened, compression failure leaves the
		//plain rotated file behind for the next sweep
		e.lg.Warn("failed to compress rotated log", log.KV("path", rotatedPath), log.KVErr(err))
		err = nil
	}

	//the producer holds the old inode open until told otherwise
	if e.adapter != nil {
		if _, aerr := e.adapter.ServiceAction(ctx, host.SvcSuricata, `reload`); aerr != nil {
			e.lg.Warn("failed to signal producer reopen", log.KVErr(aerr))
		}
	}
	return
}

func gzipFile(path string) (err error) {
	var fin *os.File
	if fin, err = os.Open(path); err != nil {
		return
	}
	defer fin.Close()
	var fout *os.File
	if fout, err = os.OpenFile(path+`.gz`, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640); err != nil {
		return
	}
	gz := gzip.NewWriter(fout)
	if _, err = io.Copy(gz, fin); err != nil {
		gz.Close()
		fout.Close()
		os.Remove(path + `.gz`)
		return
	}
	if err = gz.Close(); err != nil {
		fout.Close()
		os.Remove(path + `.gz`)
		return
	}
	if err = fout.Close(); err != nil {
		return
	}
	return os.Remove(path)
}
