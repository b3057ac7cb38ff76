/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/JWalen/NetworkTap-sub002/auth"
	"github.com/JWalen/NetworkTap-sub002/capture"
	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/eventbus"
	"github.com/JWalen/NetworkTap-sub002/events"
	"github.com/JWalen/NetworkTap-sub002/filewatch"
	"github.com/JWalen/NetworkTap-sub002/host"
	"github.com/JWalen/NetworkTap-sub002/log"
	"github.com/JWalen/NetworkTap-sub002/modectl"
	"github.com/JWalen/NetworkTap-sub002/retention"
	"github.com/JWalen/NetworkTap-sub002/web"
	"github.com/JWalen/NetworkTap-sub002/zeek"
)

const (
	defaultScriptDir = `/usr/lib/networktap/scripts`
	tailStateLoc     = `/var/lib/networktap/tail.state`

	stateSaveInterval = 30 * time.Second

	gracefulDeadline = 5 * time.Second
	forcefulDeadline = 10 * time.Second
)

// daemon owns the background runtime: follower lifecycle, timers, and
// the web server.
type daemon struct {
	store   *config.Store
	lg      *log.Logger
	adapter *host.Adapter
	bus     *eventbus.Bus
	watcher *filewatch.Watcher
	tails   *filewatch.TailCache
	capsup  *capture.Supervisor
	retain  *retention.Engine
	mode    *modectl.Controller
	zk      *zeek.Reader
	sampler *web.Sampler
	srv     *web.Server
	bind    string

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func newDaemon(store *config.Store, bindOverride string, lg *log.Logger) (d *daemon, err error) {
	cfg := store.Get()
	adapter := host.NewAdapter(defaultScriptDir, lg)
	bus := eventbus.New()

	var watcher *filewatch.Watcher
	if watcher, err = filewatch.NewWatcher(tailStateLoc, lg); err != nil {
		return
	}
	var capsup *capture.Supervisor
	if capsup, err = capture.NewSupervisor(adapter, cfg.CaptureDir, lg); err != nil {
		return
	}
	retain := retention.NewEngine(cfg.CaptureDir, adapter, lg)
	retain.OnDelete(capsup.InvalidateScan)

	tails := filewatch.NewTailCache(filewatch.DefaultTailTTL)
	zk := zeek.NewReader(cfg.ZeekLogDir)
	mode := modectl.NewController(store, adapter, lg)

	bind := cfg.WebBind()
	if bindOverride != `` {
		bind = bindOverride
	}

	d = &daemon{
		store:   store,
		lg:      lg.Component(`daemon`),
		adapter: adapter,
		bus:     bus,
		watcher: watcher,
		tails:   tails,
		capsup:  capsup,
		retain:  retain,
		mode:    mode,
		zk:      zk,
		sampler: web.NewSampler(cfg.CaptureDir),
		bind:    bind,
	}

	//a completed mode switch re-resolves every path-derived view
	mode.OnSwitched(d.refollow)
	store.OnModeChange(func(old, nw string) {
		lg.Info("mode changed", log.KV("from", old), log.KV("to", nw))
	})

	d.srv = web.NewServer(web.ServerConfig{
		Bind:    bind,
		Store:   store,
		Gate:    auth.NewGate(store),
		Adapter: adapter,
		Bus:     bus,
		Watcher: watcher,
		Tails:   tails,
		Capture: capsup,
		Retain:  retain,
		Mode:    mode,
		Zeek:    zk,
		Sampler: d.sampler,
		Logger:  lg,
	})
	return
}

// followConfigured attaches producers for every enabled engine.
func (d *daemon) followConfigured(cfg *config.Config) {
	if cfg.SuricataEnabled {
		if err := d.watcher.Follow(filewatch.FollowConfig{
			Path:   cfg.SuricataEveLog,
			Source: events.SourceSuricata,
			Parser: events.ParseEVE,
			Emit:   d.bus.Publish,
		}); err != nil && err != filewatch.ErrAlreadyFollowed {
			d.lg.Error("failed to follow EVE log", log.KV("path", cfg.SuricataEveLog), log.KVErr(err))
		}
	}
	if cfg.ZeekEnabled {
		noticePath := filepath.Join(cfg.ZeekLogDir, `notice.log`)
		if err := d.watcher.Follow(filewatch.FollowConfig{
			Path:   noticePath,
			Source: events.SourceZeek,
			Parser: events.ParseZeekNotice,
			Emit:   d.bus.Publish,
		}); err != nil && err != filewatch.ErrAlreadyFollowed {
			d.lg.Error("failed to follow zeek notices", log.KV("path", noticePath), log.KVErr(err))
		}
	}
}

// refollow re-resolves followed paths and drops read caches after a mode
// transition.
func (d *daemon) refollow(cfg *config.Config) {
	for _, p := range d.watcher.Followed() {
		if err := d.watcher.Unfollow(p); err != nil {
			d.lg.Warn("failed to stop follower", log.KV("path", p), log.KVErr(err))
		}
	}
	d.tails.Invalidate()
	d.capsup.InvalidateScan()
	d.zk.SetDir(cfg.ZeekLogDir)
	d.followConfigured(cfg)
}

func (d *daemon) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.followConfigured(d.store.Get())
	d.sampler.Sample()

	d.wg.Add(3)
	go d.retentionLoop(ctx)
	go d.samplerLoop(ctx)
	go d.stateLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := d.srv.Run(); err != nil && err != http.ErrServerClosed {
			d.lg.Error("web server failed", log.KVErr(err))
			errCh <- err
		}
	}()
	//give the listener a beat to fail fast on bind errors
	select {
	case err := <-errCh:
		cancel()
		return err
	case <-time.After(250 * time.Millisecond):
	}
	return nil
}

func (d *daemon) retentionParams(cfg *config.Config) retention.Params {
	return retention.Params{
		RetentionDays:  cfg.RetentionDays,
		MinFreePct:     cfg.MinFreeDiskPct,
		EveLog:         cfg.SuricataEveLog,
		MaxEveLogBytes: retention.DefaultMaxEveLogBytes,
	}
}

func (d *daemon) retentionLoop(ctx context.Context) {
	defer d.wg.Done()
	tckr := time.NewTicker(retention.DefaultInterval)
	defer tckr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tckr.C:
			if _, err := d.retain.Run(ctx, d.retentionParams(d.store.Get())); err != nil {
				d.lg.Error("retention sweep failed", log.KVErr(err))
			}
		}
	}
}

func (d *daemon) samplerLoop(ctx context.Context) {
	defer d.wg.Done()
	tckr := time.NewTicker(web.DefaultSampleInterval)
	defer tckr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tckr.C:
			smp := d.sampler.Sample()
			//a low-disk reading triggers an immediate eviction pass
			cfg := d.store.Get()
			if smp.DiskPct > float64(100-cfg.MinFreeDiskPct) {
				if _, err := d.retain.Run(ctx, d.retentionParams(cfg)); err != nil {
					d.lg.Error("emergency retention sweep failed", log.KVErr(err))
				}
			}
		}
	}
}

func (d *daemon) stateLoop(ctx context.Context) {
	defer d.wg.Done()
	tckr := time.NewTicker(stateSaveInterval)
	defer tckr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tckr.C:
			if err := d.watcher.SaveState(); err != nil {
				d.lg.Warn("failed to persist tail state", log.KVErr(err))
			}
		}
	}
}

// Stop runs the graceful shutdown sequence: stop accepting connections
// and close sockets within the graceful deadline, then flush retention once
// and join the producers. The forceful deadline starts after the web
// shutdown and bounds the retention flush and the join together.
func (d *daemon) Stop() {
	sctx, cancel := context.WithTimeout(context.Background(), gracefulDeadline)
	if err := d.srv.Shutdown(sctx); err != nil {
		d.lg.Warn("web shutdown incomplete", log.KVErr(err))
	}
	cancel()

	fctx, fcancel := context.WithTimeout(context.Background(), forcefulDeadline)
	defer fcancel()
	if _, err := d.retain.Run(fctx, d.retentionParams(d.store.Get())); err != nil {
		d.lg.Warn("final retention sweep failed", log.KVErr(err))
	}

	d.cancel()
	joined := make(chan struct{})
	go func() {
		d.wg.Wait()
		if err := d.watcher.Close(); err != nil {
			d.lg.Warn("failed to close tail engine", log.KVErr(err))
		}
		close(joined)
	}()
	select {
	case <-joined:
	case <-fctx.Done():
		d.lg.Warn("forceful shutdown deadline hit")
	}
}
