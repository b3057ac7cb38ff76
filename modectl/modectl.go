/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package modectl supervises the SPAN to bridge transition and back. A
// transition stops the capture stack, rewrites config and host network
// state, and restarts services, all under one exclusive lock.
package modectl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
)

const (
	StateStableSpan    State = `stable_span`
	StateStableBridge  State = `stable_bridge`
	StateStopping      State = `stopping`
	StateReconfiguring State = `reconfiguring`
	StateStarting      State = `starting`
	StateRolledBack    State = `rolled_back`

	serviceDeadline = 30 * time.Second
)

var (
	ErrModeBusy = errors.New("mode transition already in flight")
	ErrDegraded = errors.New("mode controller degraded, operator intervention required")
	ErrBadMode  = errors.New("unknown mode")
)

type State string

// Result reports a finished transition to the API caller.
type Result struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	StagesCompleted []string `json:"stages_completed"`
}

// Controller drives mode transitions. Reads stay cheap and lock-free
// enough to answer status queries while a transition runs.
type Controller struct {
	mtx      sync.Mutex
	inflight bool
	degraded bool
	state    State

	store      *config.Store
	adapter    *host.Adapter
	lg         *log.Logger
	onSwitched []func(cfg *config.Config)
}

func NewController(store *config.Store, adapter *host.Adapter, lg *log.Logger) *Controller {
	if lg == nil {
		lg = log.NewDiscardLogger()
	}
	c := &Controller{
		store:   store,
		adapter: adapter,
		lg:      lg.Component(`modectl`),
	}
	if store.Get().Mode == config.ModeBridge {
		c.state = StateStableBridge
	} else {
		c.state = StateStableSpan
	}
	return c
}

// OnSwitched registers a hook fired after a successful transition with
// the new snapshot. Used to re-resolve followed paths and drop caches.
func (c *Controller) OnSwitched(fn func(cfg *config.Config)) {
	c.mtx.Lock()
	c.onSwitched = append(c.onSwitched, fn)
	c.mtx.Unlock()
}

// State returns the current transition state.
func (c *Controller) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

// Degraded reports whether a failed rollback latched the controller.
func (c *Controller) Degraded() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.degraded
}

func (c *Controller) setState(s State) {
	c.mtx.Lock()
	c.state = s
	c.mtx.Unlock()
}

// acquire takes the exclusive transition lock without blocking readers.
func (c *Controller) acquire() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.degraded {
		return ErrDegraded
	}
	if c.inflight {
		return ErrModeBusy
	}
	c.inflight = true
	return nil
}

func (c *Controller) release() {
	c.mtx.Lock()
	c.inflight = false
	c.mtx.Unlock()
}

// stopService stops a unit under the stage deadline, escalating to a
// force stop when the orderly stop times out.
func (c *Controller) stopService(ctx context.Context, name string) error {
	sctx, cancel := context.WithTimeout(ctx, serviceDeadline)
	defer cancel()
	res, err := c.adapter.ServiceAction(sctx, name, `stop`)
	if err == nil && res.Ok() {
		return nil
	}
	if errors.Is(err, host.ErrCommandTimeout) || sctx.Err() != nil {
		c.lg.Warn("orderly stop timed out, forcing", log.KV("service", name))
		if _, ferr := c.adapter.ForceStop(ctx, name); ferr != nil {
			return ferr
		}
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: stop %s exited %d: %s", host.ErrCommandFailed,
		name, res.ExitCode, strings.TrimSpace(res.Stderr))
}

func (c *Controller) startService(ctx context.Context, name string) error {
	sctx, cancel := context.WithTimeout(ctx, serviceDeadline)
	defer cancel()
	res, err := c.adapter.ServiceAction(sctx, name, `start`)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: start %s exited %d: %s", host.ErrCommandFailed,
			name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Switch drives the transition to target. A switch to the current mode
// is a no-op success. At most one transition runs at a time, concurrent
// callers fail fast with ErrModeBusy.
func (c *Controller) Switch(ctx context.Context, target string) (res Result, err error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target != config.ModeSpan && target != config.ModeBridge {
		err = fmt.Errorf("%w: %q", ErrBadMode, target)
		return
	}
	cur := c.store.Get().Mode
	res = Result{From: cur, To: target}
	if cur == target {
		res.StagesCompleted = []string{`noop`}
		return
	}
	if err = c.acquire(); err != nil {
		return
	}
	defer c.release()

	stage := func(s string) {
		res.StagesCompleted = append(res.StagesCompleted, s)
	}

	c.setState(StateStopping)
	for _, svc := range []string{host.SvcCapture, host.SvcSuricata, host.SvcZeek} {
		if serr := c.stopService(ctx, svc); serr != nil {
			c.lg.Warn("stop during mode switch failed", log.KV("service", svc), log.KVErr(serr))
		}
	}
	stage(`stopped`)

	c.setState(StateReconfiguring)
	if _, err = c.store.Set(map[string]string{`MODE`: target}); err != nil {
		c.restore(cur)
		err = c.wrap(err, cur, target, `persist`)
		return
	}
	stage(`persisted`)

	if sres, serr := c.adapter.SwitchMode(ctx, target); serr != nil || !sres.Ok() {
		if serr == nil {
			serr = fmt.Errorf("%w: switch_mode exited %d: %s", host.ErrCommandFailed,
				sres.ExitCode, strings.TrimSpace(sres.Stderr))
		}
		c.rollback(ctx, cur, target)
		err = c.wrap(serr, cur, target, `reconfigure`)
		return
	}
	stage(`reconfigured`)

	c.setState(StateStarting)
	cfg := c.store.Get()
	if cfg.SuricataEnabled {
		if serr := c.startService(ctx, host.SvcSuricata); serr != nil {
			c.lg.Error("failed to start suricata after switch", log.KVErr(serr))
		}
	}
	if cfg.ZeekEnabled {
		if serr := c.startService(ctx, host.SvcZeek); serr != nil {
			c.lg.Error("failed to start zeek after switch", log.KVErr(serr))
		}
	}
	if serr := c.startService(ctx, host.SvcCapture); serr != nil {
		c.lg.Error("failed to start capture after switch", log.KVErr(serr))
	}
	stage(`started`)

	c.mtx.Lock()
	hooks := c.onSwitched
	c.mtx.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	stage(`invalidated`)

	if target == config.ModeBridge {
		c.setState(StateStableBridge)
	} else {
		c.setState(StateStableSpan)
	}

	//the web listener binds to the post-switch management interface, a
	//detached delayed restart lets this response flush first
	if rerr := c.adapter.RestartSelf(); rerr != nil {
		c.lg.Warn("failed to schedule web restart", log.KVErr(rerr))
	}
	return
}

// rollback tries to return the host to the pre-switch mode. A rollback
// failure latches the controller degraded, no further switches are
// accepted until an operator restarts the daemon.
func (c *Controller) rollback(ctx context.Context, oldMode, target string) {
	c.lg.Warn("attempting mode rollback", log.KV("from", target), log.KV("to", oldMode))
	if !c.restore(oldMode) {
		return
	}
	if res, err := c.adapter.SwitchMode(ctx, oldMode); err != nil || !res.Ok() {
		c.mtx.Lock()
		c.degraded = true
		c.state = StateRolledBack
		c.mtx.Unlock()
		c.lg.Critical("mode rollback failed, controller degraded",
			log.KV("mode", oldMode), log.KVErr(err))
		return
	}
	c.setState(StateRolledBack)
}

func (c *Controller) restore(oldMode string) bool {
	if _, err := c.store.Set(map[string]string{`MODE`: oldMode}); err != nil {
		c.mtx.Lock()
		c.degraded = true
		c.state = StateRolledBack
		c.mtx.Unlock()
		c.lg.Critical("failed to restore previous mode in config", log.KVErr(err))
		return false
	}
	return true
}

func (c *Controller) wrap(err error, from, to, stg string) error {
	return fmt.Errorf("mode switch %s -> %s failed at %s: %w", from, to, stg, err)
}
