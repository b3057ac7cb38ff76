/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package eventbus

import (
	"fmt"
	"testing"
	"time"

	"github.com/JWalen/NetworkTap-sub002/events"
)

func mkAlert(sev int) events.Alert {
	return events.Alert{
		Source:    events.SourceSuricata,
		Timestamp: time.Now(),
		Severity:  sev,
		Signature: fmt.Sprintf("sig-%d", sev),
	}
}

func TestPublishAssignsMonotonicIDs(t *testing.T) {
	b := New()
	for i := 0; i < 10; i++ {
		b.Publish(mkAlert(1))
	}
	rec := b.Recent(events.SourceSuricata, 10)
	if len(rec) != 10 {
		t.Fatalf("expected 10, got %d", len(rec))
	}
	for i, a := range rec {
		if a.ID != uint64(i+1) {
			t.Fatalf("id %d at position %d", a.ID, i)
		}
	}
}

func TestRecentRingWraps(t *testing.T) {
	b := New()
	for i := 0; i < RingDepth+50; i++ {
		b.Publish(mkAlert(1))
	}
	rec := b.Recent(events.SourceSuricata, 0)
	if len(rec) != RingDepth {
		t.Fatalf("expected %d, got %d", RingDepth, len(rec))
	}
	if rec[len(rec)-1].ID != uint64(RingDepth+50) {
		t.Fatalf("last id %d", rec[len(rec)-1].ID)
	}
	if rec[0].ID != uint64(51) {
		t.Fatalf("first id %d", rec[0].ID)
	}
}

func TestSubscriberReceivesInOrder(t *testing.T) {
	b := New()
	sub := b.Subscribe(Filter{})
	defer sub.Close()
	for i := 0; i < 100; i++ {
		b.Publish(mkAlert(i))
	}
	for i := 0; i < 100; i++ {
		select {
		case a := <-sub.C:
			if a.Severity != i {
				t.Fatalf("out of order: got %d want %d", a.Severity, i)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestDropOldestAccounting(t *testing.T) {
	b := New()
	slow := b.Subscribe(Filter{})
	defer slow.Close()

	const total = 10 * SubDepth
	for i := 0; i < total; i++ {
		b.Publish(mkAlert(i))
	}
	if att := slow.Attempted(); att != total {
		t.Fatalf("attempted %d, want %d", att, total)
	}
	//drain whatever is queued
	var received uint64
	var last int = -1
	for {
		select {
		case a := <-slow.C:
			received++
			if a.Severity <= last {
				t.Fatalf("suffix not in order: %d after %d", a.Severity, last)
			}
			last = a.Severity
		default:
			goto done
		}
	}
done:
	if received+slow.Dropped() != total {
		t.Fatalf("received %d + dropped %d != attempted %d", received, slow.Dropped(), total)
	}
	//the queue holds a suffix of the stream
	if last != total-1 {
		t.Fatalf("expected the final event last, got %d", last)
	}
	if !slow.Lagged() {
		t.Fatal("lag marker not set")
	}
}

func TestFastSubscriberSeesEverything(t *testing.T) {
	b := New()
	fast := b.Subscribe(Filter{})
	defer fast.Close()
	done := make(chan int)
	go func() {
		var n int
		for range fast.C {
			n++
		}
		done <- n
	}()
	const total = 100000
	for i := 0; i < total; i++ {
		b.Publish(mkAlert(1))
		//keep the producer from lapping the consumer's buffer, the
		//property under test is accounting, not raw throughput
		if i%(SubDepth/2) == 0 {
			for len(fast.ch) > SubDepth/4 {
				time.Sleep(time.Microsecond)
			}
		}
	}
	//wait for the consumer to drain before closing
	for len(fast.ch) > 0 {
		time.Sleep(time.Millisecond)
	}
	fast.Close()
	n := <-done
	if fast.Dropped() != 0 {
		t.Fatalf("fast subscriber dropped %d", fast.Dropped())
	}
	if uint64(n) != total {
		t.Fatalf("received %d of %d", n, total)
	}
}

func TestFilterPredicate(t *testing.T) {
	b := New()
	sub := b.Subscribe(Filter{Source: events.SourceZeek, MinSeverity: 2})
	defer sub.Close()
	b.Publish(events.Alert{Source: events.SourceSuricata, Severity: 5})
	b.Publish(events.Alert{Source: events.SourceZeek, Severity: 1})
	b.Publish(events.Alert{Source: events.SourceZeek, Severity: 3})
	select {
	case a := <-sub.C:
		if a.Source != events.SourceZeek || a.Severity != 3 {
			t.Fatalf("filter passed wrong event: %+v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("matching event never arrived")
	}
	select {
	case a := <-sub.C:
		t.Fatalf("unexpected extra event: %+v", a)
	default:
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe(Filter{})
	sub.Close()
	sub.Close()
	//publishing after close must not panic or block
	b.Publish(mkAlert(1))
}
