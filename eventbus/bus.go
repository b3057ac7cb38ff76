/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/JWalen/NetworkTap-sub002/events"
)

const (
	// RingDepth is the per-source replay depth handed to late subscribers.
	RingDepth = 256

	// SubDepth is the bounded per-subscriber channel capacity. A full
	// channel sheds its oldest entry rather than blocking the publisher.
	SubDepth = 256
)

// Filter narrows a subscription to a source and/or a minimum severity.
// The zero value matches everything.
type Filter struct {
	Source      string `json:"source,omitempty"`
	MinSeverity int    `json:"min_severity,omitempty"`
}

func (f Filter) Match(a events.Alert) bool {
	if f.Source != `` && f.Source != a.Source {
		return false
	}
	if f.MinSeverity > 0 && a.Severity < f.MinSeverity {
		return false
	}
	return true
}

// Subscription is one bounded consumer attached to the bus.
type Subscription struct {
	C <-chan events.Alert

	ch        chan events.Alert
	bus       *Bus
	filt      atomic.Value //Filter
	attempted uint64
	dropped   uint64
	lagged    uint32
	onLag     func(dropped uint64)
	closed    uint32
}

// SetFilter replaces the subscription predicate, it applies to the next
// published event.
func (s *Subscription) SetFilter(f Filter) {
	s.filt.Store(f)
}

// Dropped returns how many events were shed because the subscriber fell
// behind.
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Attempted returns how many events the bus tried to deliver here.
func (s *Subscription) Attempted() uint64 {
	return atomic.LoadUint64(&s.attempted)
}

// Lagged reports whether this subscriber has ever overflowed.
func (s *Subscription) Lagged() bool {
	return atomic.LoadUint32(&s.lagged) != 0
}

// OnLag installs a one-shot callback fired the first time the subscriber
// overflows. Must be set before events flow.
func (s *Subscription) OnLag(fn func(dropped uint64)) {
	s.onLag = fn
}

// Close detaches the subscription. It is idempotent, and the channel is
// closed once no publisher can touch it.
func (s *Subscription) Close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	s.bus.remove(s)
	close(s.ch)
}

type ring struct {
	buf  [RingDepth]events.Alert
	next uint64 //monotonic per-source id, buf index is (id-1) % RingDepth
}

// Bus is the in-process alert fan-out. Publish never blocks, slow
// subscribers shed their oldest queued events.
type Bus struct {
	mtx   sync.Mutex
	rings map[string]*ring
	subs  []*Subscription
}

func New() *Bus {
	return &Bus{
		rings: map[string]*ring{},
	}
}

// Publish stamps the event with its per-source id, records it in the
// replay ring, and fans out to every matching subscriber.
func (b *Bus) Publish(a events.Alert) {
	b.mtx.Lock()
	r, ok := b.rings[a.Source]
	if !ok {
		r = &ring{}
		b.rings[a.Source] = r
	}
	r.next++
	a.ID = r.next
	r.buf[(r.next-1)%RingDepth] = a

	for _, s := range b.subs {
		f, _ := s.filt.Load().(Filter)
		if !f.Match(a) {
			continue
		}
		atomic.AddUint64(&s.attempted, 1)
		select {
		case s.ch <- a:
		default:
			//full, shed the oldest queued event for this subscriber
			select {
			case <-s.ch:
			default:
			}
			dropped := atomic.AddUint64(&s.dropped, 1)
			if atomic.CompareAndSwapUint32(&s.lagged, 0, 1) && s.onLag != nil {
				s.onLag(dropped)
			}
			select {
			case s.ch <- a:
			default:
				atomic.AddUint64(&s.dropped, 1)
			}
		}
	}
	b.mtx.Unlock()
}

// Subscribe attaches a bounded consumer, optionally pre-filtered.
func (b *Bus) Subscribe(f Filter) *Subscription {
	s := &Subscription{
		ch:  make(chan events.Alert, SubDepth),
		bus: b,
	}
	s.C = s.ch
	s.filt.Store(f)
	b.mtx.Lock()
	b.subs = append(b.subs, s)
	b.mtx.Unlock()
	return s
}

func (b *Bus) remove(sub *Subscription) {
	b.mtx.Lock()
	for i := range b.subs {
		if b.subs[i] == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	b.mtx.Unlock()
}

// Recent returns up to limit events from the source's replay ring,
// most recent last.
func (b *Bus) Recent(source string, limit int) (out []events.Alert) {
	if limit <= 0 || limit > RingDepth {
		limit = RingDepth
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	r, ok := b.rings[source]
	if !ok || r.next == 0 {
		return
	}
	n := uint64(limit)
	if n > r.next {
		n = r.next
	}
	if n > RingDepth {
		n = RingDepth
	}
	out = make([]events.Alert, 0, n)
	for id := r.next - n + 1; id <= r.next; id++ {
		out = append(out, r.buf[(id-1)%RingDepth])
	}
	return
}

// RecentAll merges the replay rings of every source, most recent last in
// publish order within each source, sources concatenated.
func (b *Bus) RecentAll(limit int) (out []events.Alert) {
	b.mtx.Lock()
	srcs := make([]string, 0, len(b.rings))
	for k := range b.rings {
		srcs = append(srcs, k)
	}
	b.mtx.Unlock()
	for _, src := range srcs {
		out = append(out, b.Recent(src, limit)...)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return
}
