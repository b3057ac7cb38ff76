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
)

func TestParseBool(t *testing.T) {
	trues := []string{`true`, `t`, `yes`, `y`, `1`, `TRUE`, ` Yes `}
	falses := []string{`false`, `f`, `no`, `n`, `0`, `False`}
	for _, v := range trues {
		r, err := ParseBool(v)
		if err != nil {
			t.Fatalf("ParseBool(%q): %v", v, err)
		}
		if !r {
			t.Fatalf("ParseBool(%q) returned false", v)
		}
	}
	for _, v := range falses {
		r, err := ParseBool(v)
		if err != nil {
			t.Fatalf("ParseBool(%q): %v", v, err)
		}
		if r {
			t.Fatalf("ParseBool(%q) returned true", v)
		}
	}
	if _, err := ParseBool(`maybe`); err == nil {
		t.Fatal("expected error on bad boolean")
	}
}

func TestSplitParam(t *testing.T) {
	tests := []struct {
		line string
		key  string
		val  string
	}{
		{`MODE=span`, `MODE`, `span`},
		{`  nic1 = eth0  `, `NIC1`, `eth0`},
		{`CAPTURE_FILTER="port 80 and not host 10.0.0.1"`, `CAPTURE_FILTER`, `port 80 and not host 10.0.0.1`},
		{`WEB_PASS_SALT='aa=bb=cc'`, `WEB_PASS_SALT`, `aa=bb=cc`},
		{`MGMT_IP=192.168.1.5/24 # management address`, `MGMT_IP`, `192.168.1.5/24`},
		{`CAPTURE_FILTER="quoted # not a comment"`, `CAPTURE_FILTER`, `quoted # not a comment`},
	}
	for _, tc := range tests {
		k, v, err := splitParam(tc.line)
		if err != nil {
			t.Fatalf("splitParam(%q): %v", tc.line, err)
		}
		if k != tc.key || v != tc.val {
			t.Fatalf("splitParam(%q) = (%q, %q), want (%q, %q)", tc.line, k, v, tc.key, tc.val)
		}
	}
	if _, _, err := splitParam(`no equals here`); err == nil {
		t.Fatal("expected error on missing equals")
	}
}

func TestUpdateLinePreservesComment(t *testing.T) {
	lines := []string{`# header`, `MODE=span # current mode`, ``}
	nl, err := updateLine(lines, `MODE`, `bridge`, 1)
	if err != nil {
		t.Fatal(err)
	}
	if nl[1] != `MODE=bridge # current mode` {
		t.Fatalf("unexpected line: %q", nl[1])
	}
	if _, err = updateLine(lines, `MODE`, `span`, 0); err == nil {
		t.Fatal("expected error updating a comment line")
	}
	if _, err = updateLine(lines, `MODE`, `span`, 9); err == nil {
		t.Fatal("expected error on bad location")
	}
}

func TestFindParameter(t *testing.T) {
	lines := []string{`# comment`, ``, `NIC1=eth0`, `nic2=eth1`}
	if loc := findParameter(lines, `NIC2`); loc != 3 {
		t.Fatalf("expected 3, got %d", loc)
	}
	if loc := findParameter(lines, `MISSING`); loc != -1 {
		t.Fatalf("expected -1, got %d", loc)
	}
}
