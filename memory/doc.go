// Package memory provides the in-process conversation memory engine.
//
// Every user utterance, model response and system/skill event is appended to a
// single ordered log. The log is kept within bounds by maintenance passes that
// run inline after each append, and read back through derived views that an
// LLM orchestrator feeds into its prompts.
//
// Architecture:
//   - Event store: versioned arena of events keyed by a monotonic sequence number
//   - Skill registry: one initializing prompt per skill, seeded from a PromptCatalog
//   - Maintenance: hard eviction + consolidation, or soft compression
//   - Thread analyzer: splits a window of events into topic threads
//   - Reference resolver: pulls earlier exchanges back when the user refers to them
//   - Manager: the public surface combining all of the above
//
// Thresholds:
//   - size > MaxMemorySize: drop system events older than 24h, merge near-duplicates
//   - size > CompressionThreshold: truncate content of events older than 2h
//
// MaxMemorySize is a soft bound. Writes are never rejected and a maintenance pass
// may leave the log above the threshold when there is nothing to merge.
//
// The Manager never returns errors from its public methods. Malformed input is
// replaced with defaults and logged, so a fault in memory never interrupts the
// surrounding conversation.
package memory
