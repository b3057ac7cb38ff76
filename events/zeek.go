/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package events

import (
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

type zeekNotice struct {
	TS    json.RawMessage `json:"ts"`
	Note  string          `json:"note"`
	Msg   string          `json:"msg"`
	OrigH string          `json:"id.orig_h"`
	OrigP int             `json:"id.orig_p"`
	RespH string          `json:"id.resp_h"`
	RespP int             `json:"id.resp_p"`
	Proto string          `json:"proto"`
}

// ParseZeekTime handles both Zeek JSON timestamp encodings: epoch seconds
// with a fractional part, and an ISO string when LogAscii::json_timestamps
// is reconfigured.
func ParseZeekTime(raw json.RawMessage) (ts time.Time, ok bool) {
	if len(raw) == 0 {
		return
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return
		}
		var err error
		if ts, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return
		}
		ok = true
		return
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return
	}
	sec, frac := math.Modf(f)
	ts = time.Unix(int64(sec), int64(frac*1e9))
	ok = true
	return
}

// ParseZeekNotice extracts an Alert from a Zeek notice.log line.
func ParseZeekNotice(line []byte) (a Alert, ok bool, err error) {
	var rec zeekNotice
	if err = json.Unmarshal(line, &rec); err != nil {
		return
	}
	if rec.Note == `` {
		return
	}
	ts, tok := ParseZeekTime(rec.TS)
	if !tok {
		ts = time.Now()
	}
	sig := rec.Note
	if rec.Msg != `` {
		sig = rec.Note + `: ` + rec.Msg
	}
	a = Alert{
		Source:    SourceZeek,
		Timestamp: ts.UTC(),
		Severity:  2, //zeek notices do not carry a numeric severity
		Signature: sig,
		SrcIP:     rec.OrigH,
		DstIP:     rec.RespH,
		SrcPort:   rec.OrigP,
		DstPort:   rec.RespP,
		Proto:     rec.Proto,
		Raw:       append(json.RawMessage(nil), line...),
	}
	ok = true
	return
}
