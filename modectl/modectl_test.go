/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package modectl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JWalen/NetworkTap-sub002/config"
	"github.com/JWalen/NetworkTap-sub002/host"
)

func mkController(t *testing.T) *Controller {
	t.Helper()
	body := `MODE=span
NIC1=eth0
NIC2=eth1
WEB_PORT=8443
`
	p := filepath.Join(t.TempDir(), `networktap.conf`)
	if err := os.WriteFile(p, []byte(body), 0640); err != nil {
		t.Fatal(err)
	}
	store, err := config.NewStore(p)
	if err != nil {
		t.Fatal(err)
	}
	return NewController(store, host.NewAdapter(t.TempDir(), nil), nil)
}

func TestInitialState(t *testing.T) {
	c := mkController(t)
	if c.State() != StateStableSpan {
		t.Fatalf("bad initial state %s", c.State())
	}
	if c.Degraded() {
		t.Fatal("fresh controller degraded")
	}
}

func TestSwitchNoop(t *testing.T) {
	c := mkController(t)
	res, err := c.Switch(context.Background(), `span`)
	if err != nil {
		t.Fatal(err)
	}
	if res.From != `span` || res.To != `span` {
		t.Fatalf("bad result %+v", res)
	}
	if len(res.StagesCompleted) != 1 || res.StagesCompleted[0] != `noop` {
		t.Fatalf("noop switch ran stages: %+v", res.StagesCompleted)
	}
	if c.State() != StateStableSpan {
		t.Fatalf("state moved on noop: %s", c.State())
	}
}

func TestSwitchBadMode(t *testing.T) {
	c := mkController(t)
	if _, err := c.Switch(context.Background(), `promiscuous`); !errors.Is(err, ErrBadMode) {
		t.Fatalf("bad mode accepted: %v", err)
	}
}

func TestBusyRejected(t *testing.T) {
	c := mkController(t)
	if err := c.acquire(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Switch(context.Background(), `bridge`); !errors.Is(err, ErrModeBusy) {
		t.Fatalf("concurrent switch not rejected: %v", err)
	}
	c.release()
}

func TestDegradedLatch(t *testing.T) {
	c := mkController(t)
	c.mtx.Lock()
	c.degraded = true
	c.mtx.Unlock()
	if _, err := c.Switch(context.Background(), `bridge`); !errors.Is(err, ErrDegraded) {
		t.Fatalf("degraded controller accepted a switch: %v", err)
	}
}
