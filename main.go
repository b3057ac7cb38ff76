/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/log"
	"github.com/JWalen/NetworkTap-sub002/version"
)

const (
	defaultConfigLoc = `/etc/networktap.conf`
	configEnvVar     = `NETWORKTAP_CONFIG`
	appName          = `networktap`

	lockLoc = `/run/networktap.lock`

	exitOK      = 0
	exitConfig  = 1
	exitRuntime = 2
	exitSigint  = 130
)

var (
	confLoc      = flag.String("config", defaultConfigLoc, "Location for configuration file")
	bindOverride = flag.String("bind", "", "Override the web bind address")
	logLevel     = flag.String("log-level", "", "Override the log level")
	ver          = flag.Bool("version", false, "Print the version information and exit")

	lg *log.Logger
)

func init() {
	flag.Parse()
	if *ver {
		version.PrintVersion(os.Stdout)
		os.Exit(exitOK)
	}
	lg = log.New(os.Stderr)
	lg.SetAppname(appName)
	if ev := os.Getenv(configEnvVar); ev != `` && *confLoc == defaultConfigLoc {
		*confLoc = ev
	}
}

func main() {
	lock := flock.New(lockLoc)
	if held, err := lock.TryLock(); err != nil || !held {
		fmt.Fprintf(os.Stderr, "another instance holds %s\n", lockLoc)
		os.Exit(exitRuntime)
	}
	defer lock.Unlock()

	store, err := config.NewStore(*confLoc)
	if err != nil {
		lg.Error("failed to load configuration", log.KV("path", *confLoc), log.KVErr(err))
		os.Exit(exitConfig)
	}
	cfg := store.Get()

	if cfg.LogFile != `` {
		fout, lerr := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if lerr != nil {
			lg.Error("failed to open log file", log.KV("path", cfg.LogFile), log.KVErr(lerr))
			os.Exit(exitConfig)
		}
		if lerr = lg.AddWriter(fout); lerr != nil {
			lg.Error("failed to add log writer", log.KVErr(lerr))
			os.Exit(exitConfig)
		}
		defer fout.Close()
	}
	lvl := cfg.LogLevel
	if *logLevel != `` {
		lvl = *logLevel
	}
	if lvl != `` {
		if lerr := lg.SetLevelString(lvl); lerr != nil {
			lg.Error("invalid log level", log.KV("loglevel", lvl), log.KVErr(lerr))
			os.Exit(exitConfig)
		}
	}

	d, err := newDaemon(store, *bindOverride, lg)
	if err != nil {
		lg.Error("failed to assemble daemon", log.KVErr(err))
		os.Exit(exitRuntime)
	}

	qc := make(chan os.Signal, 2)
	signal.Notify(qc, os.Interrupt, syscall.SIGTERM)

	if err = d.Start(); err != nil {
		lg.Error("failed to start daemon", log.KVErr(err))
		os.Exit(exitRuntime)
	}
	lg.Info("networktap running", log.KV("version", version.GetVersion()),
		log.KV("mode", cfg.Mode), log.KV("bind", d.bind))

	sig := <-qc
	lg.Info("shutting down", log.KV("signal", sig.String()))
	d.Stop()

	if sig == os.Interrupt {
		os.Exit(exitSigint)
	}
	os.Exit(exitOK)
}
