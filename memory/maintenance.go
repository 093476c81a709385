package memory

import (
	"time"
	"unicode/utf8"

	"github.com/GarryCodespace/Jarvis/core"
	"go.uber.org/zap"
)

const (
	// SystemEventTTL is the age after which system events may be evicted.
	SystemEventTTL = 24 * time.Hour

	// ConsolidationWindow is the maximum gap between consecutive members of a
	// consolidation group.
	ConsolidationWindow = 60 * time.Second

	// CompressionAge is the age after which long content may be truncated.
	CompressionAge = 2 * time.Hour

	// CompressedLength is the number of characters kept by compression.
	CompressedLength = 100

	// CompressionMarker is appended to truncated content.
	CompressionMarker = "... [compressed]"
)

// maintain runs after every append. Caller must hold m.mu.
func (m *Manager) maintain() {
	size := m.store.size()
	switch {
	case size > m.config.MaxMemorySize:
		m.hardMaintenance()
	case size > m.config.CompressionThreshold:
		m.softCompression()
	}
	EventsStored.Set(float64(m.store.size()))
}

// hardMaintenance evicts expired system events and consolidates bursts of
// similar events.
func (m *Manager) hardMaintenance() {
	MaintenanceRuns.WithLabelValues(maintenanceHard).Inc()
	before := m.store.size()

	kept, evicted := evictExpired(m.store.all(), m.now())
	merged, consolidated := consolidate(kept)
	if evicted > 0 || consolidated > 0 {
		m.store.replaceAll(merged)
	}

	EventsEvicted.Add(float64(evicted))
	EventsConsolidated.Add(float64(consolidated))
	m.logger.Info("hard maintenance",
		zap.Int("before", before),
		zap.Int("after", m.store.size()),
		zap.Int("evicted", evicted),
		zap.Int("consolidated", consolidated),
	)
	if m.store.size() > m.config.MaxMemorySize {
		m.logger.Debug("memory still above soft bound after maintenance",
			zap.Int("size", m.store.size()),
			zap.Int("max", m.config.MaxMemorySize),
		)
	}
}

// softCompression truncates the content of old events.
func (m *Manager) softCompression() {
	MaintenanceRuns.WithLabelValues(maintenanceSoft).Inc()

	out, compressed := compress(m.store.all(), m.now())
	if compressed == 0 {
		return
	}
	m.store.replaceAll(out)

	EventsCompressed.Add(float64(compressed))
	m.logger.Info("soft compression",
		zap.Int("size", m.store.size()),
		zap.Int("compressed", compressed),
	)
}

// evictExpired drops system-category events older than SystemEventTTL that
// are not the product of consolidation.
func evictExpired(entries []entry, now time.Time) ([]entry, int) {
	kept := make([]entry, 0, len(entries))
	for _, e := range entries {
		ev := e.event
		if ev.Category == core.CategorySystem &&
			now.Sub(ev.Timestamp) > SystemEventTTL &&
			!ev.IsConsolidated() {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(entries) - len(kept)
}

// consolidate merges runs of events sharing category and action whose
// consecutive timestamps are less than ConsolidationWindow apart. Runs are
// tracked per category/action, so unrelated events may interleave. It returns
// the new entry list in append order and the number of events merged away.
func consolidate(entries []entry) ([]entry, int) {
	type group struct {
		members []entry
	}

	open := make(map[string]*group)
	slots := make([]*group, 0, len(entries))

	for _, e := range entries {
		ev := e.event
		if ev.IsInitialization() {
			slots = append(slots, &group{members: []entry{e}})
			continue
		}

		key := string(ev.Category) + "|" + ev.Action
		if g, ok := open[key]; ok {
			last := g.members[len(g.members)-1].event
			if ev.Timestamp.Sub(last.Timestamp) < ConsolidationWindow {
				g.members = append(g.members, e)
				continue
			}
		}

		g := &group{members: []entry{e}}
		open[key] = g
		slots = append(slots, g)
	}

	out := make([]entry, 0, len(slots))
	merged := 0
	for _, g := range slots {
		if len(g.members) == 1 {
			out = append(out, g.members[0])
			continue
		}
		out = append(out, mergeGroup(g.members))
		merged += len(g.members) - 1
	}
	return out, merged
}

// mergeGroup collapses members into one event carrying the first member's
// identity and the last member's timestamp and sequence number.
func mergeGroup(members []entry) entry {
	first := members[0].event
	last := members[len(members)-1]

	count := 0
	for _, m := range members {
		count += m.event.ConsolidatedCount()
	}
	start := first.Timestamp.Add(-timeSpan(first))

	ev := first
	ev.Timestamp = last.event.Timestamp
	ev.Metadata = first.CloneMetadata()
	ev.Metadata[core.MetaConsolidatedCount] = count
	ev.Metadata[core.MetaTimeSpan] = last.event.Timestamp.Sub(start).Milliseconds()

	return entry{seq: last.seq, event: ev}
}

// timeSpan returns the duration already covered by a consolidated event.
func timeSpan(ev core.Event) time.Duration {
	switch v := ev.Metadata[core.MetaTimeSpan].(type) {
	case int64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	}
	return 0
}

// compress truncates long content on events older than CompressionAge.
func compress(entries []entry, now time.Time) ([]entry, int) {
	out := make([]entry, len(entries))
	n := 0
	for i, e := range entries {
		out[i] = e
		ev := e.event
		if ev.IsCompressed() || now.Sub(ev.Timestamp) <= CompressionAge {
			continue
		}

		content, contentCut := compressText(ev.Content)
		primary, primaryCut := "", false
		if s, ok := ev.Metadata[core.MetaPrimaryContent].(string); ok {
			primary, primaryCut = compressText(s)
		}
		if !contentCut && !primaryCut {
			continue
		}

		ev.Content = content
		ev.Metadata = ev.CloneMetadata()
		if primaryCut {
			ev.Metadata[core.MetaPrimaryContent] = primary
		}
		ev.Metadata[core.MetaCompressed] = true
		out[i].event = ev
		n++
	}
	return out, n
}

func compressText(s string) (string, bool) {
	if utf8.RuneCountInString(s) <= CompressedLength {
		return s, false
	}
	return string([]rune(s)[:CompressedLength]) + CompressionMarker, true
}
