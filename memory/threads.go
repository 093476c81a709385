package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/GarryCodespace/Jarvis/core"
)

// MaxThreadsReturned is the number of most recent threads kept in a ThreadInfo.
const MaxThreadsReturned = 3

// Thread is a topic-coherent run of conversation events.
// Threads are derived on every read and never stored.
type Thread struct {
	ID        string       `json:"id"`
	Topic     string       `json:"topic"`
	Skill     string       `json:"skill"`
	Events    []core.Event `json:"events"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
}

// ThreadInfo is the thread analysis of a window of events.
type ThreadInfo struct {
	// Threads holds at most the last MaxThreadsReturned threads, oldest first.
	Threads []Thread `json:"threads"`

	// Current is the open thread, nil when the window has no threaded events.
	Current *Thread `json:"currentThread,omitempty"`

	// ThreadCount is the total number of threads found in the window.
	ThreadCount int `json:"threadCount"`
}

type threadState struct {
	thread   Thread
	lastUser *core.Event
}

// analyzeThreads segments an ordered window of events into threads.
// Initialization and system events are skipped. A model event joins the
// open thread, or opens one when there is none.
func analyzeThreads(window []core.Event, m *matcher, rule ContinuationRule) ThreadInfo {
	var threads []*threadState
	var cur *threadState

	open := func(ev core.Event) *threadState {
		ts := &threadState{thread: Thread{
			ID:        fmt.Sprintf("thread_%d", len(threads)+1),
			Skill:     ev.Skill,
			StartTime: ev.Timestamp,
		}}
		threads = append(threads, ts)
		return ts
	}

	for _, ev := range window {
		if ev.IsInitialization() {
			continue
		}

		switch ev.Role {
		case core.RoleUser:
			if cur == nil || !continuesThread(cur, ev, m, rule) {
				cur = open(ev)
			}
			last := ev
			cur.lastUser = &last
		case core.RoleModel:
			if cur == nil {
				cur = open(ev)
			}
		default:
			continue
		}

		cur.thread.Events = append(cur.thread.Events, ev)
		cur.thread.EndTime = ev.Timestamp
	}

	info := ThreadInfo{ThreadCount: len(threads)}
	if len(threads) == 0 {
		info.Threads = []Thread{}
		return info
	}

	start := len(threads) - MaxThreadsReturned
	if start < 0 {
		start = 0
	}
	for _, ts := range threads[start:] {
		ts.thread.Topic = threadTopic(ts.thread.Events)
		info.Threads = append(info.Threads, ts.thread)
	}
	current := info.Threads[len(info.Threads)-1]
	info.Current = &current
	return info
}

// continuesThread applies the hard breaks (skill change, long pause, no prior
// user input) and then the continuation rule.
func continuesThread(ts *threadState, ev core.Event, m *matcher, rule ContinuationRule) bool {
	if ts.lastUser == nil || ev.Skill != ts.thread.Skill {
		return false
	}
	gap := ev.Timestamp.Sub(ts.lastUser.Timestamp)
	if gap >= ThreadGap {
		return false
	}
	return rule.Continues(m.continuation(ev.Content, ts.lastUser.Content, gap))
}

// threadTopic names a thread after the keywords of its first user input.
func threadTopic(evs []core.Event) string {
	if len(evs) == 0 {
		return ""
	}
	text := evs[0].Content
	for _, ev := range evs {
		if ev.Role == core.RoleUser {
			text = ev.Content
			break
		}
	}
	return strings.Join(topKeywords([]string{text}, 3), " ")
}
