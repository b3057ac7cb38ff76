/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package host

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	scriptSwitchMode        = `switch_mode`
	scriptConfigureFirewall = `configure_firewall`
	scriptStorageCleanup    = `storage_cleanup`
	scriptUpdate            = `run_update`
	scriptWifi              = `wifi_ctl`

	WifiSurveyTimeout = 90 * time.Second
)

// RunScript executes a named helper from the script directory with a hard
// deadline. The name must be bare, path components are rejected.
func (a *Adapter) RunScript(ctx context.Context, name string, timeout time.Duration, args ...string) (r Result, err error) {
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		err = fmt.Errorf("invalid script name %q", name)
		return
	}
	return a.run(ctx, timeout, filepath.Join(a.scriptDir, name), args...)
}

// SwitchMode invokes the host network reconfiguration script. The script
// owns interface teardown, bridge membership, and firewall reload.
func (a *Adapter) SwitchMode(ctx context.Context, mode string) (Result, error) {
	return a.RunScript(ctx, scriptSwitchMode, DefaultScriptTimeout, mode)
}

// ConfigureFirewall re-applies the firewall ruleset for the current mode.
func (a *Adapter) ConfigureFirewall(ctx context.Context, mode string) (Result, error) {
	return a.RunScript(ctx, scriptConfigureFirewall, DefaultScriptTimeout, mode)
}

// StorageCleanup invokes the host emergency cleanup script. The daemon's
// retention engine is authoritative, this is the fallback when the sweep
// itself fails.
func (a *Adapter) StorageCleanup(ctx context.Context) (Result, error) {
	return a.RunScript(ctx, scriptStorageCleanup, DefaultScriptTimeout)
}

// Update forwards to the updater wrapper script.
func (a *Adapter) Update(ctx context.Context, args ...string) (Result, error) {
	return a.RunScript(ctx, scriptUpdate, DefaultScriptTimeout, args...)
}

// Wifi forwards to the WiFi wrapper script. Site surveys run long, so the
// deadline is wider than for other helpers.
func (a *Adapter) Wifi(ctx context.Context, args ...string) (Result, error) {
	return a.RunScript(ctx, scriptWifi, WifiSurveyTimeout, args...)
}

// detach launches a command with no supervision and no wait, for actions
// that outlive the daemon such as reboot.
func detach(prog string, args ...string) error {
	cmd := exec.Command(prog, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
