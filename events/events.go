/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package events

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	SourceSuricata = `suricata`
	SourceZeek     = `zeek`
	SourceAnomaly  = `anomaly`
)

// Alert is the normalized event bus payload. Raw preserves the full
// original JSON object so the UI can expand fields we do not type here.
type Alert struct {
	ID        uint64          `json:"id"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  int             `json:"severity"`
	Signature string          `json:"signature"`
	SrcIP     string          `json:"src_ip,omitempty"`
	DstIP     string          `json:"dst_ip,omitempty"`
	SrcPort   int             `json:"src_port,omitempty"`
	DstPort   int             `json:"dst_port,omitempty"`
	Proto     string          `json:"proto,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Parser turns one log line into an Alert. ok is false when the line is
// well formed but not an alert (stats records, flow records, etc).
type Parser func(line []byte) (a Alert, ok bool, err error)
