/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package events

import (
	"testing"
	"time"
)

const (
	eveAlert = `{"timestamp":"2025-06-01T10:22:31.415122+0000","event_type":"alert","src_ip":"10.0.0.5","src_port":44321,"dest_ip":"192.168.1.10","dest_port":80,"proto":"TCP","alert":{"signature":"ET SCAN Suspicious inbound","signature_id":2024364,"category":"Attempted Recon","severity":2}}`
	eveStats = `{"timestamp":"2025-06-01T10:22:31.415122+0000","event_type":"stats","stats":{"uptime":100}}`
)

func TestParseEVEAlert(t *testing.T) {
	a, ok, err := ParseEVE([]byte(eveAlert))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("alert record not recognized")
	}
	if a.Source != SourceSuricata {
		t.Fatalf("bad source %q", a.Source)
	}
	if a.Signature != `ET SCAN Suspicious inbound` || a.Severity != 2 {
		t.Fatalf("bad alert fields: %+v", a)
	}
	if a.SrcIP != `10.0.0.5` || a.DstIP != `192.168.1.10` || a.SrcPort != 44321 || a.DstPort != 80 {
		t.Fatalf("bad tuple: %+v", a)
	}
	if a.Timestamp.IsZero() || a.Timestamp.Location() != time.UTC {
		t.Fatalf("bad timestamp: %v", a.Timestamp)
	}
	if len(a.Raw) == 0 {
		t.Fatal("raw record not preserved")
	}
}

func TestParseEVENonAlert(t *testing.T) {
	_, ok, err := ParseEVE([]byte(eveStats))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("stats record misread as alert")
	}
}

func TestParseEVEMalformed(t *testing.T) {
	if _, _, err := ParseEVE([]byte(`{"truncated": `)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseZeekNoticeEpoch(t *testing.T) {
	line := `{"ts":1717236151.532,"note":"Scan::Port_Scan","msg":"10.0.0.9 scanned 50 ports","id.orig_h":"10.0.0.9","id.orig_p":55000,"id.resp_h":"192.168.1.4","id.resp_p":22,"proto":"tcp"}`
	a, ok, err := ParseZeekNotice([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("notice not recognized")
	}
	if a.Source != SourceZeek || a.SrcIP != `10.0.0.9` || a.DstPort != 22 {
		t.Fatalf("bad fields: %+v", a)
	}
	if a.Timestamp.Year() != 2024 {
		t.Fatalf("bad epoch decode: %v", a.Timestamp)
	}
}

func TestParseZeekNoticeISO(t *testing.T) {
	line := `{"ts":"2025-06-01T10:00:00.000000Z","note":"Weird::Activity","msg":"odd TCP flags"}`
	a, ok, err := ParseZeekNotice([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("notice not recognized")
	}
	if a.Timestamp.Year() != 2025 {
		t.Fatalf("bad ISO decode: %v", a.Timestamp)
	}
}

func TestParseZeekNoticeSkipsNonNotice(t *testing.T) {
	_, ok, err := ParseZeekNotice([]byte(`{"ts":1717236151.5,"uid":"C123","id.orig_h":"10.0.0.1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("conn record misread as notice")
	}
}
