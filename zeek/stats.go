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
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/JWalen/NetworkTap-sub002/events"
	"github.com/JWalen/NetworkTap-sub002/filewatch"
)

const (
	topLimit = 10

	trendBucket = 5 * time.Minute
)

type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Talker struct {
	Addr  string `json:"addr"`
	Bytes int64  `json:"bytes"`
	Conns int64  `json:"conns"`
}

type TrendPoint struct {
	Start time.Time `json:"start"`
	Conns int64     `json:"conns"`
}

// DNSStats summarizes the tail of dns.log.
type DNSStats struct {
	TopQueries []Count `json:"top_queries"`
	QueryTypes []Count `json:"query_types"`
	Total      int64   `json:"total"`
}

// ConnStats summarizes the tail of conn.log.
type ConnStats struct {
	Protocols  []Count      `json:"protocols"`
	Services   []Count      `json:"services"`
	TopTalkers []Talker     `json:"top_talkers"`
	Trend      []TrendPoint `json:"trend"`
	Total      int64        `json:"total"`
}

type dnsRecord struct {
	Query     string `json:"query"`
	QTypeName string `json:"qtype_name"`
}

type connRecord struct {
	TS        json.RawMessage `json:"ts"`
	OrigH     string          `json:"id.orig_h"`
	Proto     string          `json:"proto"`
	Service   string          `json:"service"`
	OrigBytes int64           `json:"orig_bytes"`
	RespBytes int64           `json:"resp_bytes"`
}

func topCounts(mp map[string]int64, limit int) (out []Count) {
	out = make([]Count, 0, len(mp))
	for k, v := range mp {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Key < out[j].Key
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return
}

// DNS derives the DNS statistics, cached with single-flight semantics.
func (r *Reader) DNS(ctx context.Context) (st DNSStats, cached bool, err error) {
	v, cached, err := r.cache.get(ctx, `dns`, func() (interface{}, error) {
		return r.computeDNS(ctx)
	})
	if err == nil {
		st = v.(DNSStats)
	}
	return
}

func (r *Reader) computeDNS(ctx context.Context) (st DNSStats, err error) {
	p, perr := r.logPath(`dns`)
	if perr != nil {
		err = perr
		return
	}
	var lines [][]byte
	if lines, err = filewatch.TailLines(ctx, p, statsTailBytes); err != nil {
		return
	}
	queries := map[string]int64{}
	qtypes := map[string]int64{}
	for _, ln := range lines {
		var rec dnsRecord
		if json.Unmarshal(ln, &rec) != nil {
			continue
		}
		st.Total++
		if rec.Query != `` {
			queries[rec.Query]++
		}
		if rec.QTypeName != `` {
			qtypes[rec.QTypeName]++
		}
	}
	st.TopQueries = topCounts(queries, topLimit)
	st.QueryTypes = topCounts(qtypes, 0)
	return
}

// Conn derives protocol distribution, services, talkers, and the
// connection trend, cached with single-flight semantics.
func (r *Reader) Conn(ctx context.Context) (st ConnStats, cached bool, err error) {
	v, cached, err := r.cache.get(ctx, `conn`, func() (interface{}, error) {
		return r.computeConn(ctx)
	})
	if err == nil {
		st = v.(ConnStats)
	}
	return
}

func (r *Reader) computeConn(ctx context.Context) (st ConnStats, err error) {
	p, perr := r.logPath(`conn`)
	if perr != nil {
		err = perr
		return
	}
	var lines [][]byte
	if lines, err = filewatch.TailLines(ctx, p, statsTailBytes); err != nil {
		return
	}
	protos := map[string]int64{}
	services := map[string]int64{}
	talkers := map[string]*Talker{}
	buckets := map[int64]int64{}
	for _, ln := range lines {
		var rec connRecord
		if json.Unmarshal(ln, &rec) != nil {
			continue
		}
		st.Total++
		if rec.Proto != `` {
			protos[rec.Proto]++
		}
		if rec.Service != `` {
			services[rec.Service]++
		}
		if rec.OrigH != `` {
			t, ok := talkers[rec.OrigH]
			if !ok {
				t = &Talker{Addr: rec.OrigH}
				talkers[rec.OrigH] = t
			}
			t.Bytes += rec.OrigBytes + rec.RespBytes
			t.Conns++
		}
		if ts, ok := events.ParseZeekTime(rec.TS); ok {
			buckets[ts.Truncate(trendBucket).Unix()]++
		}
	}
	st.Protocols = topCounts(protos, 0)
	st.Services = topCounts(services, topLimit)

	tl := make([]Talker, 0, len(talkers))
	for _, t := range talkers {
		tl = append(tl, *t)
	}
	sort.Slice(tl, func(i, j int) bool {
		if tl[i].Bytes == tl[j].Bytes {
			return tl[i].Addr < tl[j].Addr
		}
		return tl[i].Bytes > tl[j].Bytes
	})
	if len(tl) > topLimit {
		tl = tl[:topLimit]
	}
	st.TopTalkers = tl

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		st.Trend = append(st.Trend, TrendPoint{
			Start: time.Unix(k, 0).UTC(),
			Conns: buckets[k],
		})
	}
	return
}
