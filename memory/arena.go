package memory

import (
	"sort"

	"github.com/GarryCodespace/Jarvis/core"
)

// entry is one slot of the event arena. seq is assigned at append time and
// never reused, so it orders entries even when timestamps tie.
type entry struct {
	seq   uint64
	event core.Event
}

// arena is the versioned event store.
//
// Entries are never modified in place: maintenance builds a new slice and
// swaps it in with replaceAll. Readers receive copies of the entry slice, so
// a snapshot taken before a compaction stays valid after it.
type arena struct {
	entries []entry
	nextSeq uint64
	version uint64
}

func (a *arena) append(ev core.Event) {
	a.nextSeq++
	a.entries = append(a.entries, entry{seq: a.nextSeq, event: ev})
	a.version++
}

func (a *arena) size() int {
	return len(a.entries)
}

// all returns a snapshot of every entry in append order.
func (a *arena) all() []entry {
	out := make([]entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// tail returns a snapshot of the last n entries.
func (a *arena) tail(n int) []entry {
	if n <= 0 {
		return nil
	}
	if n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]entry, n)
	copy(out, a.entries[len(a.entries)-n:])
	return out
}

// events returns the events of a snapshot. Metadata maps are cloned so
// callers never hold a stored map.
func events(entries []entry) []core.Event {
	out := make([]core.Event, len(entries))
	for i, e := range entries {
		out[i] = e.event
		if e.event.Metadata != nil {
			out[i].Metadata = e.event.CloneMetadata()
		}
	}
	return out
}

// replaceAll swaps in a compacted entry list. The list is re-sorted by
// sequence number so append order survives consolidation.
func (a *arena) replaceAll(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	a.entries = entries
	a.version++
}

// reset drops every entry. Sequence numbers keep counting so ids handed out
// before the reset are never confused with new ones.
func (a *arena) reset() {
	a.entries = nil
	a.version++
}
