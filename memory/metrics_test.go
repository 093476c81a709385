package memory_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/GarryCodespace/Jarvis/memory"
)

func TestMetrics_AppendAndMaintenance(t *testing.T) {
	appended := testutil.ToFloat64(memory.EventsAppended.WithLabelValues("model"))
	hard := testutil.ToFloat64(memory.MaintenanceRuns.WithLabelValues("hard"))
	consolidated := testutil.ToFloat64(memory.EventsConsolidated)

	clock := newFakeClock()
	m := memory.NewManager(nil, &memory.Config{MaxMemorySize: 3, CompressionThreshold: 2},
		memory.WithClock(clock.Now))

	m.AddModelResponse("A", nil)
	clock.Advance(10 * time.Second)
	m.AddModelResponse("B", nil)
	clock.Advance(5 * time.Minute)
	m.AddUserInput("u", "chat")
	clock.Advance(15 * time.Minute)
	m.AddUserInput("v", "chat")

	require.Len(t, m.Snapshot(), 3)
	assert.Equal(t, appended+2, testutil.ToFloat64(memory.EventsAppended.WithLabelValues("model")))
	assert.Equal(t, hard+1, testutil.ToFloat64(memory.MaintenanceRuns.WithLabelValues("hard")))
	assert.Equal(t, consolidated+1, testutil.ToFloat64(memory.EventsConsolidated))
	assert.Equal(t, 3.0, testutil.ToFloat64(memory.EventsStored))
}

func TestMetrics_ValidationWarnings(t *testing.T) {
	role := testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("role"))
	content := testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("content"))
	action := testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("action"))

	m := memory.NewManager(nil, nil)
	m.AddConversationEvent(core.EventInput{Role: "robot"})

	assert.Equal(t, role+1, testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("role")))
	assert.Equal(t, content+1, testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("content")))
	assert.Equal(t, action+1, testutil.ToFloat64(memory.ValidationWarnings.WithLabelValues("action")))
}

func TestManager_EventCountOnlyDropsOnMaintenanceOrClear(t *testing.T) {
	clock := newFakeClock()
	m := memory.NewManager(nil, &memory.Config{MaxMemorySize: 3, CompressionThreshold: 2},
		memory.WithClock(clock.Now))
	t.Cleanup(m.Close)

	maintenanceRuns := func() float64 {
		return testutil.ToFloat64(memory.MaintenanceRuns.WithLabelValues("hard")) +
			testutil.ToFloat64(memory.MaintenanceRuns.WithLabelValues("soft"))
	}

	steps := []struct {
		name  string
		clear bool
		do    func()
	}{
		{name: "model A", do: func() { m.AddModelResponse("A", nil) }},
		{name: "model B", do: func() { clock.Advance(10 * time.Second); m.AddModelResponse("B", nil) }},
		{name: "user u", do: func() { clock.Advance(5 * time.Minute); m.AddUserInput("u", "chat") }},
		{name: "read context", do: func() { m.GetEnhancedConversationContext(10) }},
		{name: "user v", do: func() { clock.Advance(15 * time.Minute); m.AddUserInput("v", "chat") }},
		{name: "switch skill", do: func() { m.SetActiveSkill("dsa") }},
		{name: "read history", do: func() { m.GetOptimizedHistory() }},
		{name: "day later", do: func() { clock.Advance(25 * time.Hour); m.AddUserInput("w", "chat") }},
		{name: "switch back", do: func() { m.SetActiveSkill("general") }},
		{name: "model C", do: func() { clock.Advance(time.Minute); m.AddModelResponse("C", nil) }},
		{name: "clear", clear: true, do: m.Clear},
		{name: "user after clear", do: func() { m.AddUserInput("x", "chat") }},
	}

	count := m.GetMemoryUsage().EventCount
	dropped := false
	for _, step := range steps {
		runs := maintenanceRuns()
		step.do()
		next := m.GetMemoryUsage().EventCount
		if next < count && !step.clear {
			dropped = true
			assert.Greater(t, maintenanceRuns(), runs, "%s: event count fell from %d to %d without maintenance", step.name, count, next)
		}
		count = next
	}
	assert.True(t, dropped, "expected maintenance to shrink the log at least once")
}
