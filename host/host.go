/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package host is the single choke point for operations with OS side
// effects: service manager queries and actions, interface state, and the
// helper scripts. Nothing else in the daemon shells out.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	DefaultStatusTimeout = 5 * time.Second
	DefaultActionTimeout = 30 * time.Second
	DefaultScriptTimeout = 60 * time.Second

	systemctlBin = `systemctl`
	ipBin        = `ip`
)

var (
	ErrCommandTimeout = errors.New("external command timed out")
	ErrCommandFailed  = errors.New("external command failed")
	ErrUnknownService = errors.New("unknown service")
)

// Result is the structured outcome of one external command.
type Result struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Adapter mediates every OS side effect. It holds no mutable state of its
// own, all calls are safe for concurrent use.
type Adapter struct {
	lg        *log.Logger
	scriptDir string
}

func NewAdapter(scriptDir string, lg *log.Logger) *Adapter {
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	return &Adapter{
		lg:        lg.Component(`host`),
		scriptDir: scriptDir,
	}
}

// run executes a command with a hard deadline, capturing both output
// streams. A nonzero exit is not an error here, callers decide what a
// failed exit means.
func (a *Adapter) run(ctx context.Context, timeout time.Duration, prog string, args ...string) (r Result, err error) {
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, prog, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	r.Stdout = stdout.String()
	r.Stderr = stderr.String()
	if err != nil {
		var xerr *exec.ExitError
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %s after %v", ErrCommandTimeout, prog, timeout)
			r.ExitCode = -1
		} else if errors.As(err, &xerr) {
			r.ExitCode = xerr.ExitCode()
			err = nil
		} else {
			err = fmt.Errorf("%w: %s: %v", ErrCommandFailed, prog, err)
			r.ExitCode = -1
		}
	}
	a.lg.Debug("external command", log.KV("prog", prog), log.KV("exit", r.ExitCode))
	return
}
