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

// suricata EVE timestamps look like 2023-09-14T10:22:31.415122+0000
const eveTimeFormat = `2006-01-02T15:04:05.999999-0700`

type eveRecord struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	SrcIP     string `json:"src_ip"`
	SrcPort   int    `json:"src_port"`
	DestIP    string `json:"dest_ip"`
	DestPort  int    `json:"dest_port"`
	Proto     string `json:"proto"`
	Alert     struct {
		Signature   string `json:"signature"`
		SignatureID int64  `json:"signature_id"`
		Category    string `json:"category"`
		Severity    int    `json:"severity"`
	} `json:"alert"`
}

// ParseEVE extracts an Alert from a Suricata EVE line. EVE streams carry
// many record types, anything that is not an alert is skipped without
// error.
func ParseEVE(line []byte) (a Alert, ok bool, err error) {
	var rec eveRecord
	if err = json.Unmarshal(line, &rec); err != nil {
		return
	}
	if rec.EventType != `alert` {
		return
	}
	ts, terr := time.Parse(eveTimeFormat, rec.Timestamp)
	if terr != nil {
		if ts, terr = time.Parse(time.RFC3339Nano, rec.Timestamp); terr != nil {
			ts = time.Now()
		}
	}
	a = Alert{
		Source:    SourceSuricata,
		Timestamp: ts.UTC(),
		Severity:  rec.Alert.Severity,
		Signature: rec.Alert.Signature,
		SrcIP:     rec.SrcIP,
		DstIP:     rec.DestIP,
		SrcPort:   rec.SrcPort,
		DstPort:   rec.DestPort,
		Proto:     rec.Proto,
		Raw:       append(json.RawMessage(nil), line...),
	}
	ok = true
	return
}
