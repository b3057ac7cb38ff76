/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: `defaults`, mutate: func(c *Config) {}, ok: true},
		{name: `bad mode`, mutate: func(c *Config) { c.Mode = `tap` }, ok: false},
		{name: `bridge needs name`, mutate: func(c *Config) { c.Mode = ModeBridge; c.BridgeName = `` }, ok: false},
		{name: `bridge ok`, mutate: func(c *Config) { c.Mode = ModeBridge }, ok: true},
		{name: `zero port`, mutate: func(c *Config) { c.WebPort = 0 }, ok: false},
		{name: `relative capture dir`, mutate: func(c *Config) { c.CaptureDir = `captures` }, ok: false},
		{name: `relative eve log`, mutate: func(c *Config) { c.SuricataEnabled = true; c.SuricataEveLog = `eve.json` }, ok: false},
		{name: `eve log ignored when disabled`, mutate: func(c *Config) { c.SuricataEveLog = `eve.json` }, ok: true},
		{name: `zero rotate`, mutate: func(c *Config) { c.CaptureRotateSeconds = 0 }, ok: false},
		{name: `negative snaplen`, mutate: func(c *Config) { c.CaptureSnaplen = -1 }, ok: false},
		{name: `huge snaplen`, mutate: func(c *Config) { c.CaptureSnaplen = maxSnaplen + 1 }, ok: false},
		{name: `zero retention`, mutate: func(c *Config) { c.RetentionDays = 0 }, ok: false},
		{name: `free pct floor`, mutate: func(c *Config) { c.MinFreeDiskPct = 0 }, ok: false},
		{name: `free pct ceiling`, mutate: func(c *Config) { c.MinFreeDiskPct = 100 }, ok: false},
		{name: `mgmt dhcp`, mutate: func(c *Config) { c.MgmtIP = `dhcp` }, ok: true},
		{name: `mgmt cidr`, mutate: func(c *Config) { c.MgmtIP = `192.168.1.5/24` }, ok: true},
		{name: `mgmt bare ip`, mutate: func(c *Config) { c.MgmtIP = `192.168.1.5` }, ok: true},
		{name: `mgmt junk`, mutate: func(c *Config) { c.MgmtIP = `not-an-ip` }, ok: false},
		{name: `bad hash encoding`, mutate: func(c *Config) { c.WebPassHash = `zz` }, ok: false},
		{name: `tls needs paths`, mutate: func(c *Config) { c.TLSEnabled = true }, ok: false},
		{name: `tls with paths`, mutate: func(c *Config) {
			c.TLSEnabled = true
			c.TLSCert = `/etc/networktap/cert.pem`
			c.TLSKey = `/etc/networktap/key.pem`
		}, ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := defaultConfig()
			tc.mutate(c)
			err := c.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
