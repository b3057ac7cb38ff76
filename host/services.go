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
	"strings"
	"time"
)

const (
	StateActive   ServiceState = `active`
	StateInactive ServiceState = `inactive`
	StateFailed   ServiceState = `failed`
	StateUnknown  ServiceState = `unknown`

	// systemctl show prints timestamps in this form
	systemdTimeFormat = `Mon 2006-01-02 15:04:05 MST`
)

const (
	SvcCapture  = `capture`
	SvcSuricata = `suricata`
	SvcZeek     = `zeek`
	SvcWeb      = `web`
)

type ServiceState string

// ServiceStatus is sampled on demand, it is never stored.
type ServiceStatus struct {
	Name  string       `json:"name"`
	State ServiceState `json:"state"`
	Since time.Time    `json:"since,omitempty"`
}

func (ss ServiceStatus) Running() bool {
	return ss.State == StateActive
}

// units maps the logical service names the API speaks to systemd units.
var units = map[string]string{
	SvcCapture:  `networktap-capture.service`,
	SvcSuricata: `suricata.service`,
	SvcZeek:     `zeek.service`,
	SvcWeb:      `networktap.service`,
}

// KnownService reports whether name maps to a managed unit.
func KnownService(name string) bool {
	_, ok := units[name]
	return ok
}

// ServiceNames returns the logical names of every managed unit.
func ServiceNames() (r []string) {
	r = []string{SvcCapture, SvcSuricata, SvcZeek, SvcWeb}
	return
}

// ServiceStatus samples the current unit state.
func (a *Adapter) ServiceStatus(ctx context.Context, name string) (ss ServiceStatus, err error) {
	unit, ok := units[name]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownService, name)
		return
	}
	ss = ServiceStatus{Name: name, State: StateUnknown}
	var res Result
	if res, err = a.run(ctx, DefaultStatusTimeout, systemctlBin, `show`, unit,
		`--property=ActiveState,ActiveEnterTimestamp`); err != nil {
		return
	}
	for _, ln := range strings.Split(res.Stdout, "\n") {
		k, v, found := strings.Cut(strings.TrimSpace(ln), `=`)
		if !found {
			continue
		}
		switch k {
		case `ActiveState`:
			switch v {
			case `active`, `activating`:
				ss.State = StateActive
			case `inactive`, `deactivating`:
				ss.State = StateInactive
			case `failed`:
				ss.State = StateFailed
			}
		case `ActiveEnterTimestamp`:
			if ts, terr := time.Parse(systemdTimeFormat, v); terr == nil {
				ss.Since = ts
			}
		}
	}
	return
}

// ServiceAction issues start/stop/restart/reload against a managed unit.
func (a *Adapter) ServiceAction(ctx context.Context, name, action string) (r Result, err error) {
	unit, ok := units[name]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownService, name)
		return
	}
	switch action {
	case `start`, `stop`, `restart`, `reload`:
	default:
		err = fmt.Errorf("invalid service action %q", action)
		return
	}
	return a.run(ctx, DefaultActionTimeout, systemctlBin, action, unit)
}

// ForceStop issues a kill against a unit that did not stop in time.
func (a *Adapter) ForceStop(ctx context.Context, name string) (r Result, err error) {
	unit, ok := units[name]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownService, name)
		return
	}
	return a.run(ctx, DefaultStatusTimeout, systemctlBin, `kill`, `-s`, `SIGKILL`, unit)
}

// Reboot detaches a delayed reboot so the HTTP response can flush first.
func (a *Adapter) Reboot() error {
	return detach(`sh`, `-c`, `sleep 2 && systemctl reboot`)
}

// RestartSelf schedules a detached restart of our own unit, delayed so
// the in-flight HTTP response can flush.
func (a *Adapter) RestartSelf() error {
	return detach(`sh`, `-c`, fmt.Sprintf(`sleep 2 && systemctl restart %s`, units[SvcWeb]))
}
