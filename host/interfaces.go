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

	"github.com/goccy/go-json"
)

// Interface is the API view of one network interface, parsed from the
// kernel-provided JSON that iproute2 emits.
type Interface struct {
	Name    string   `json:"name"`
	State   string   `json:"state"`
	MAC     string   `json:"mac,omitempty"`
	IPv4    []string `json:"ipv4,omitempty"`
	RxBytes uint64   `json:"rx_bytes"`
	TxBytes uint64   `json:"tx_bytes"`
	MTU     int      `json:"mtu"`
	Master  string   `json:"master,omitempty"`
}

// ipLink mirrors the subset of `ip -s -j addr show` output we surface.
type ipLink struct {
	IfName    string `json:"ifname"`
	OperState string `json:"operstate"`
	Address   string `json:"address"`
	MTU       int    `json:"mtu"`
	Master    string `json:"master"`
	AddrInfo  []struct {
		Family    string `json:"family"`
		Local     string `json:"local"`
		PrefixLen int    `json:"prefixlen"`
	} `json:"addr_info"`
	Stats64 struct {
		RX struct {
			Bytes uint64 `json:"bytes"`
		} `json:"rx"`
		TX struct {
			Bytes uint64 `json:"bytes"`
		} `json:"tx"`
	} `json:"stats64"`
}

// ListInterfaces returns the state of every host interface.
func (a *Adapter) ListInterfaces(ctx context.Context) (ifaces []Interface, err error) {
	var res Result
	if res, err = a.run(ctx, DefaultStatusTimeout, ipBin, `-s`, `-j`, `addr`, `show`); err != nil {
		return
	}
	if !res.Ok() {
		err = fmt.Errorf("%w: ip exited %d: %s", ErrCommandFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
		return
	}
	var links []ipLink
	if err = json.Unmarshal([]byte(res.Stdout), &links); err != nil {
		err = fmt.Errorf("failed to parse interface JSON: %w", err)
		return
	}
	ifaces = make([]Interface, 0, len(links))
	for _, l := range links {
		iface := Interface{
			Name:    l.IfName,
			State:   strings.ToLower(l.OperState),
			MAC:     l.Address,
			MTU:     l.MTU,
			Master:  l.Master,
			RxBytes: l.Stats64.RX.Bytes,
			TxBytes: l.Stats64.TX.Bytes,
		}
		for _, ai := range l.AddrInfo {
			if ai.Family == `inet` {
				iface.IPv4 = append(iface.IPv4, fmt.Sprintf("%s/%d", ai.Local, ai.PrefixLen))
			}
		}
		ifaces = append(ifaces, iface)
	}
	return
}
