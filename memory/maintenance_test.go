package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testEntry(seq uint64, action string, role core.Role, offset time.Duration, content string) entry {
	return entry{seq: seq, event: core.Event{
		ID:        newEventID(),
		Timestamp: t0.Add(offset),
		Role:      role,
		Content:   content,
		Action:    action,
		Category:  categorize(action),
		Metadata:  map[string]interface{}{},
	}}
}

func TestEvictExpired(t *testing.T) {
	now := t0.Add(30 * time.Hour)

	consolidated := testEntry(3, core.ActionSystemEvent, core.RoleSystem, 0, "merged")
	consolidated.event.Metadata[core.MetaConsolidatedCount] = 3

	entries := []entry{
		testEntry(1, core.ActionSystemEvent, core.RoleSystem, 0, "old"),
		testEntry(2, core.ActionSystemEvent, core.RoleSystem, 10*time.Hour, "recent"),
		consolidated,
		testEntry(4, core.ActionChatInput, core.RoleUser, 0, "old user"),
		testEntry(5, core.ActionOCRExtraction, core.RoleSystem, 0, "old capture"),
	}

	kept, evicted := evictExpired(entries, now)
	assert.Equal(t, 1, evicted)
	require.Len(t, kept, 4)
	for _, e := range kept {
		assert.NotEqual(t, "old", e.event.Content)
	}
}

func TestConsolidate_ChainsWithinWindow(t *testing.T) {
	entries := []entry{
		testEntry(1, core.ActionLLMResponse, core.RoleModel, 0, "a"),
		testEntry(2, core.ActionLLMResponse, core.RoleModel, 50*time.Second, "b"),
		testEntry(3, core.ActionLLMResponse, core.RoleModel, 100*time.Second, "c"),
		testEntry(4, core.ActionLLMResponse, core.RoleModel, 200*time.Second, "d"),
	}

	out, merged := consolidate(entries)
	assert.Equal(t, 2, merged)
	require.Len(t, out, 2)

	head := out[0].event
	assert.Equal(t, "a", head.Content)
	assert.Equal(t, entries[0].event.ID, head.ID)
	assert.Equal(t, t0.Add(100*time.Second), head.Timestamp)
	assert.Equal(t, 3, head.ConsolidatedCount())
	assert.Equal(t, int64(100000), head.Metadata[core.MetaTimeSpan])
	assert.Equal(t, uint64(3), out[0].seq)
	assert.Equal(t, "d", out[1].event.Content)

	// Source metadata is not modified
	assert.False(t, entries[0].event.IsConsolidated())
}

func TestConsolidate_ExactWindowIsNotMerged(t *testing.T) {
	entries := []entry{
		testEntry(1, core.ActionChatInput, core.RoleUser, 0, "a"),
		testEntry(2, core.ActionChatInput, core.RoleUser, ConsolidationWindow, "b"),
	}

	out, merged := consolidate(entries)
	assert.Equal(t, 0, merged)
	assert.Len(t, out, 2)
}

func TestConsolidate_InterleavedGroups(t *testing.T) {
	entries := []entry{
		testEntry(1, core.ActionChatInput, core.RoleUser, 0, "q1"),
		testEntry(2, core.ActionLLMResponse, core.RoleModel, 5*time.Second, "r1"),
		testEntry(3, core.ActionChatInput, core.RoleUser, 10*time.Second, "q2"),
		testEntry(4, core.ActionLLMResponse, core.RoleModel, 15*time.Second, "r2"),
	}

	out, merged := consolidate(entries)
	assert.Equal(t, 2, merged)
	require.Len(t, out, 2)

	a := arena{}
	a.replaceAll(out)
	evs := events(a.all())
	assert.Equal(t, "q1", evs[0].Content)
	assert.Equal(t, "r1", evs[1].Content)
	assert.True(t, evs[0].Timestamp.Before(evs[1].Timestamp))
}

func TestConsolidate_MergesAcrossRoles(t *testing.T) {
	entries := []entry{
		testEntry(1, "custom_marker", core.RoleUser, 0, "from user"),
		testEntry(2, "custom_marker", core.RoleModel, time.Second, "from model"),
	}

	out, merged := consolidate(entries)
	assert.Equal(t, 1, merged)
	require.Len(t, out, 1)
	assert.Equal(t, core.RoleUser, out[0].event.Role)
}

func TestConsolidate_SkipsInitialization(t *testing.T) {
	entries := []entry{
		testEntry(1, core.ActionSkillPromptInit, core.RoleSystem, 0, "general prompt"),
		testEntry(2, core.ActionSkillPromptInit, core.RoleSystem, 0, "dsa prompt"),
	}

	out, merged := consolidate(entries)
	assert.Equal(t, 0, merged)
	assert.Len(t, out, 2)
}

func TestConsolidate_RemergesConsolidatedEvent(t *testing.T) {
	head := testEntry(2, core.ActionLLMResponse, core.RoleModel, 30*time.Second, "a")
	head.event.Metadata[core.MetaConsolidatedCount] = 2
	head.event.Metadata[core.MetaTimeSpan] = int64(30000)

	out, merged := consolidate([]entry{
		head,
		testEntry(3, core.ActionLLMResponse, core.RoleModel, 60*time.Second, "b"),
	})
	assert.Equal(t, 1, merged)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].event.ConsolidatedCount())
	assert.Equal(t, int64(60000), out[0].event.Metadata[core.MetaTimeSpan])
}

func TestCompress(t *testing.T) {
	now := t0.Add(3 * time.Hour)
	long := strings.Repeat("é", 150)

	old := testEntry(1, core.ActionLLMResponse, core.RoleModel, 0, long)
	primary := testEntry(2, core.ActionOCRExtraction, core.RoleSystem, 0, "short")
	primary.event.Metadata[core.MetaPrimaryContent] = long
	already := testEntry(3, core.ActionLLMResponse, core.RoleModel, 0, long)
	already.event.Metadata[core.MetaCompressed] = true
	young := testEntry(4, core.ActionLLMResponse, core.RoleModel, 2*time.Hour, long)

	in := []entry{old, primary, already, young}
	out, n := compress(in, now)
	assert.Equal(t, 2, n)

	want := strings.Repeat("é", 100) + CompressionMarker
	assert.Equal(t, want, out[0].event.Content)
	assert.True(t, out[0].event.IsCompressed())

	assert.Equal(t, "short", out[1].event.Content)
	assert.Equal(t, want, out[1].event.Metadata[core.MetaPrimaryContent])
	assert.True(t, out[1].event.IsCompressed())

	assert.Equal(t, long, out[2].event.Content)
	assert.Equal(t, long, out[3].event.Content)
	assert.False(t, out[3].event.IsCompressed())

	// Inputs keep their original metadata maps
	assert.False(t, in[0].event.IsCompressed())
	assert.Equal(t, long, in[1].event.Metadata[core.MetaPrimaryContent])
}
