/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

const (
	ModeSpan   = `span`
	ModeBridge = `bridge`

	defaultBridgeName     = `br0`
	defaultWebPort        = 8443
	defaultRotateSeconds  = 300
	defaultFileLimit      = 1000
	defaultSnaplen        = 65535
	defaultRetentionDays  = 7
	defaultMinFreeDiskPct = 10
	defaultCaptureDir     = `/var/lib/networktap/captures`
	defaultEveLog         = `/var/log/suricata/eve.json`
	defaultZeekLogDir     = `/var/log/zeek/current`

	maxSnaplen = 262144
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is an immutable snapshot of the daemon configuration. Snapshots
// are replaced wholesale by the Store, readers must never mutate one.
type Config struct {
	Mode       string
	NIC1       string
	NIC2       string
	BridgeName string

	MgmtIP      string
	MgmtGateway string
	MgmtDNS     string

	WebPort     uint16
	WebUser     string
	WebPassHash string
	WebPassSalt string

	ViewerUser     string
	ViewerPassHash string
	ViewerPassSalt string

	CaptureDir           string
	CaptureRotateSeconds int
	CaptureFileLimit     int
	CaptureSnaplen       int
	CaptureCompress      bool
	CaptureFilter        string

	RetentionDays  int
	MinFreeDiskPct int

	SuricataEnabled bool
	SuricataEveLog  string
	SuricataIface   string

	ZeekEnabled bool
	ZeekLogDir  string
	ZeekIface   string

	AIAssistantEnabled bool

	TLSEnabled bool
	TLSCert    string
	TLSKey     string

	LogFile  string
	LogLevel string
}

func defaultConfig() *Config {
	return &Config{
		Mode:                 ModeSpan,
		BridgeName:           defaultBridgeName,
		WebPort:              defaultWebPort,
		CaptureDir:           defaultCaptureDir,
		CaptureRotateSeconds: defaultRotateSeconds,
		CaptureFileLimit:     defaultFileLimit,
		CaptureSnaplen:       defaultSnaplen,
		RetentionDays:        defaultRetentionDays,
		MinFreeDiskPct:       defaultMinFreeDiskPct,
		SuricataEveLog:       defaultEveLog,
		ZeekLogDir:           defaultZeekLogDir,
		MgmtIP:               `dhcp`,
	}
}

// parseLines builds a typed snapshot from raw config file lines.
// Unknown keys are skipped, they survive on disk but have no typed view.
func parseLines(lines []string) (c *Config, err error) {
	c = defaultConfig()
	for i := range lines {
		if emptyOrComment(lines[i]) {
			continue
		}
		var key, val string
		if key, val, err = splitParam(lines[i]); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidConfig, i+1, err)
			return
		}
		if err = c.apply(key, val); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidConfig, i+1, err)
			return
		}
	}
	err = c.Validate()
	return
}

func (c *Config) apply(key, val string) (err error) {
	switch key {
	case `MODE`:
		c.Mode = strings.ToLower(val)
	case `NIC1`:
		c.NIC1 = val
	case `NIC2`:
		c.NIC2 = val
	case `BRIDGE_NAME`:
		c.BridgeName = val
	case `MGMT_IP`:
		c.MgmtIP = val
	case `MGMT_GATEWAY`:
		c.MgmtGateway = val
	case `MGMT_DNS`:
		c.MgmtDNS = val
	case `WEB_PORT`:
		var v uint64
		if v, err = ParseUint64(val); err == nil {
			if v == 0 || v > 0xffff {
				err = fmt.Errorf("port %d out of range", v)
			} else {
				c.WebPort = uint16(v)
			}
		}
	case `WEB_USER`:
		c.WebUser = val
	case `WEB_PASS_HASH`:
		c.WebPassHash = val
	case `WEB_PASS_SALT`:
		c.WebPassSalt = val
	case `WEB_VIEWER_USER`:
		c.ViewerUser = val
	case `WEB_VIEWER_PASS_HASH`:
		c.ViewerPassHash = val
	case `WEB_VIEWER_PASS_SALT`:
		c.ViewerPassSalt = val
	case `CAPTURE_DIR`:
		c.CaptureDir = val
	case `CAPTURE_ROTATE_SECONDS`:
		var v int64
		if v, err = ParseInt64(val); err == nil {
			c.CaptureRotateSeconds = int(v)
		}
	case `CAPTURE_FILE_LIMIT`:
		var v int64
		if v, err = ParseInt64(val); err == nil {
			c.CaptureFileLimit = int(v)
		}
	case `CAPTURE_SNAPLEN`:
		var v int64
		if v, err = ParseInt64(val); err == nil {
			c.CaptureSnaplen = int(v)
		}
	case `CAPTURE_COMPRESS`:
		c.CaptureCompress, err = ParseBool(val)
	case `CAPTURE_FILTER`:
		c.CaptureFilter = val
	case `RETENTION_DAYS`:
		var v int64
		if v, err = ParseInt64(val); err == nil {
			c.RetentionDays = int(v)
		}
	case `MIN_FREE_DISK_PCT`:
		var v int64
		if v, err = ParseInt64(val); err == nil {
			c.MinFreeDiskPct = int(v)
		}
	case `SURICATA_ENABLED`:
		c.SuricataEnabled, err = ParseBool(val)
	case `SURICATA_EVE_LOG`:
		c.SuricataEveLog = val
	case `SURICATA_IFACE`:
		c.SuricataIface = val
	case `ZEEK_ENABLED`:
		c.ZeekEnabled, err = ParseBool(val)
	case `ZEEK_LOG_DIR`:
		c.ZeekLogDir = val
	case `ZEEK_IFACE`:
		c.ZeekIface = val
	case `AI_ASSISTANT_ENABLED`:
		c.AIAssistantEnabled, err = ParseBool(val)
	case `TLS_ENABLED`:
		c.TLSEnabled, err = ParseBool(val)
	case `TLS_CERT`:
		c.TLSCert = val
	case `TLS_KEY`:
		c.TLSKey = val
	case `LOG_FILE`:
		c.LogFile = val
	case `LOG_LEVEL`:
		c.LogLevel = val
	default:
		//unknown keys round-trip on disk but are ignored here
	}
	return
}

// Validate checks the snapshot for internal consistency. Every error is
// wrapped with ErrInvalidConfig so callers can classify it.
func (c *Config) Validate() error {
	var errs []string
	switch c.Mode {
	case ModeSpan:
		if c.NIC1 != `` && c.NIC1 == c.NIC2 {
			errs = append(errs, `capture and management interfaces cannot match in span mode`)
		}
	case ModeBridge:
		if c.BridgeName == `` {
			errs = append(errs, `bridge mode requires a bridge name`)
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if c.WebPort == 0 {
		errs = append(errs, `web port is required`)
	}
	if !filepath.IsAbs(c.CaptureDir) {
		errs = append(errs, fmt.Sprintf("capture dir %q is not absolute", c.CaptureDir))
	}
	if c.SuricataEnabled && !filepath.IsAbs(c.SuricataEveLog) {
		errs = append(errs, fmt.Sprintf("suricata EVE log %q is not absolute", c.SuricataEveLog))
	}
	if c.ZeekEnabled && !filepath.IsAbs(c.ZeekLogDir) {
		errs = append(errs, fmt.Sprintf("zeek log dir %q is not absolute", c.ZeekLogDir))
	}
	if c.CaptureRotateSeconds <= 0 {
		errs = append(errs, `capture rotate interval must be positive`)
	}
	if c.CaptureFileLimit <= 0 {
		errs = append(errs, `capture file limit must be positive`)
	}
	if c.CaptureSnaplen < 0 || c.CaptureSnaplen > maxSnaplen {
		errs = append(errs, fmt.Sprintf("snaplen %d out of range", c.CaptureSnaplen))
	}
	if c.RetentionDays <= 0 {
		errs = append(errs, `retention days must be positive`)
	}
	if c.MinFreeDiskPct < 1 || c.MinFreeDiskPct > 99 {
		errs = append(errs, fmt.Sprintf("min free disk %d%% out of range", c.MinFreeDiskPct))
	}
	if c.MgmtIP != `` && c.MgmtIP != `dhcp` {
		if ip, _, err := net.ParseCIDR(c.MgmtIP); err != nil || ip == nil {
			if net.ParseIP(c.MgmtIP) == nil {
				errs = append(errs, fmt.Sprintf("management IP %q is not an address, CIDR, or dhcp", c.MgmtIP))
			}
		}
	}
	if c.WebPassHash != `` {
		if _, err := hex.DecodeString(c.WebPassHash); err != nil {
			errs = append(errs, `password hash is not hex encoded`)
		}
	}
	if c.WebPassSalt != `` {
		if _, err := hex.DecodeString(c.WebPassSalt); err != nil {
			errs = append(errs, `password salt is not hex encoded`)
		}
	}
	if c.ViewerPassHash != `` {
		if _, err := hex.DecodeString(c.ViewerPassHash); err != nil {
			errs = append(errs, `viewer password hash is not hex encoded`)
		}
	}
	if c.ViewerPassSalt != `` {
		if _, err := hex.DecodeString(c.ViewerPassSalt); err != nil {
			errs = append(errs, `viewer password salt is not hex encoded`)
		}
	}
	if c.TLSEnabled {
		if !filepath.IsAbs(c.TLSCert) || !filepath.IsAbs(c.TLSKey) {
			errs = append(errs, `TLS requires absolute certificate and key paths`)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, `; `))
	}
	return nil
}

// CaptureInterface returns the interface packets are captured on. In span
// mode NIC2 is the promiscuous tap port, in bridge mode capture rides the
// bridge itself.
func (c *Config) CaptureInterface() string {
	if c.Mode == ModeBridge {
		return c.BridgeName
	}
	if c.SuricataIface != `` {
		return c.SuricataIface
	}
	return c.NIC2
}

// ManagementInterface returns the interface carrying the management IP.
func (c *Config) ManagementInterface() string {
	if c.Mode == ModeBridge {
		return c.BridgeName
	}
	return c.NIC1
}

// WebBind returns the listen address for the API server.
func (c *Config) WebBind() string {
	return fmt.Sprintf(":%d", c.WebPort)
}

// PassHash returns the decoded password hash, nil when unset.
func (c *Config) PassHash() []byte {
	if b, err := hex.DecodeString(c.WebPassHash); err == nil && len(b) > 0 {
		return b
	}
	return nil
}

// PassSalt returns the decoded password salt, nil when unset.
func (c *Config) PassSalt() []byte {
	if b, err := hex.DecodeString(c.WebPassSalt); err == nil && len(b) > 0 {
		return b
	}
	return nil
}

// ViewerHash returns the decoded viewer password hash, nil when unset.
func (c *Config) ViewerHash() []byte {
	if b, err := hex.DecodeString(c.ViewerPassHash); err == nil && len(b) > 0 {
		return b
	}
	return nil
}

// ViewerSalt returns the decoded viewer password salt, nil when unset.
func (c *Config) ViewerSalt() []byte {
	if b, err := hex.DecodeString(c.ViewerPassSalt); err == nil && len(b) > 0 {
		return b
	}
	return nil
}
