/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package zeek

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func mkLogs(t *testing.T) *Reader {
	t.Helper()
	dir := t.TempDir()

	var dns string
	for i := 0; i < 20; i++ {
		name := `example.com`
		qt := `A`
		if i%4 == 0 {
			name = `internal.lan`
			qt = `AAAA`
		}
		dns += fmt.Sprintf(`{"ts":%d.0,"query":"%s","qtype_name":"%s"}`+"\n", 1717236000+i, name, qt)
	}
	if err := os.WriteFile(filepath.Join(dir, `dns.log`), []byte(dns), 0640); err != nil {
		t.Fatal(err)
	}

	var conn string
	for i := 0; i < 30; i++ {
		proto := `tcp`
		svc := `http`
		if i%3 == 0 {
			proto = `udp`
			svc = `dns`
		}
		orig := fmt.Sprintf(`10.0.0.%d`, i%3+1)
		conn += fmt.Sprintf(`{"ts":%d.5,"id.orig_h":"%s","proto":"%s","service":"%s","orig_bytes":%d,"resp_bytes":%d}`+"\n",
			1717236000+i*60, orig, proto, svc, 100*(i+1), 50)
	}
	if err := os.WriteFile(filepath.Join(dir, `conn.log`), []byte(conn), 0640); err != nil {
		t.Fatal(err)
	}
	return NewReader(dir)
}

func TestDNSStats(t *testing.T) {
	r := mkLogs(t)
	st, cached, err := r.DNS(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Fatal("first derivation reported cached")
	}
	if st.Total != 20 {
		t.Fatalf("total %d", st.Total)
	}
	if len(st.TopQueries) != 2 || st.TopQueries[0].Key != `example.com` || st.TopQueries[0].Count != 15 {
		t.Fatalf("bad top queries: %+v", st.TopQueries)
	}
	if _, cached, err = r.DNS(context.Background()); err != nil {
		t.Fatal(err)
	} else if !cached {
		t.Fatal("second derivation not cached")
	}
}

func TestConnStats(t *testing.T) {
	r := mkLogs(t)
	st, _, err := r.Conn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 30 {
		t.Fatalf("total %d", st.Total)
	}
	var tcp, udp int64
	for _, p := range st.Protocols {
		switch p.Key {
		case `tcp`:
			tcp = p.Count
		case `udp`:
			udp = p.Count
		}
	}
	if tcp != 20 || udp != 10 {
		t.Fatalf("protocol distribution tcp=%d udp=%d", tcp, udp)
	}
	if len(st.TopTalkers) != 3 {
		t.Fatalf("talkers: %+v", st.TopTalkers)
	}
	for i := 1; i < len(st.TopTalkers); i++ {
		if st.TopTalkers[i].Bytes > st.TopTalkers[i-1].Bytes {
			t.Fatal("talkers not sorted by bytes")
		}
	}
	if len(st.Trend) == 0 {
		t.Fatal("no trend buckets")
	}
	for i := 1; i < len(st.Trend); i++ {
		if !st.Trend[i].Start.After(st.Trend[i-1].Start) {
			t.Fatal("trend not time ordered")
		}
	}
}

func TestStatsMissingDir(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), `missing`))
	st, _, err := r.DNS(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 0 {
		t.Fatal("stats from nothing")
	}
}

func TestLogsPaging(t *testing.T) {
	r := mkLogs(t)
	recs, total, err := r.Logs(context.Background(), `conn`, ``, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 30 || len(recs) != 10 {
		t.Fatalf("total %d page %d", total, len(recs))
	}
	recs, _, err = r.Logs(context.Background(), `conn`, ``, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 10 {
		t.Fatalf("last page %d", len(recs))
	}
	recs, _, err = r.Logs(context.Background(), `conn`, ``, 9, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatal("page past the end not empty")
	}
}

func TestLogsFilter(t *testing.T) {
	r := mkLogs(t)
	_, total, err := r.Logs(context.Background(), `conn`, `udp`, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 {
		t.Fatalf("filter total %d", total)
	}
}

func TestLogsBadAnalyzer(t *testing.T) {
	r := mkLogs(t)
	for _, bad := range []string{`../etc/passwd`, `conn.log`, `CONN`, ``} {
		if _, _, err := r.Logs(context.Background(), bad, ``, 0, 10); !errors.Is(err, ErrBadAnalyzer) {
			t.Fatalf("analyzer %q accepted: %v", bad, err)
		}
	}
}
