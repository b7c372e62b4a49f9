// Package progress provides retention and fan-out for realtime updates
// emitted by the compute module outside request/response correlation. It
// maintains the bounded, deduplicated update history for the current session
// and delivers new updates to subscribed renderers.
package progress

import (
	"sync"
	"time"
)

// DefaultLimit bounds the retained update history.
const DefaultLimit = 100

// Level values carried by updates.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Update is one realtime progress notification.
type Update struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
}

// Feed retains the most recent updates, deduplicated by id. A duplicate id
// keeps its original arrival slot and takes the latest content. When the
// history exceeds the limit, the oldest entries are dropped.
type Feed struct {
	mu    sync.Mutex
	limit int
	// updates preserves arrival order; index maps update id to its slot
	updates []Update
	index   map[string]int
	subs    []chan Update
}

// NewFeed creates a feed retaining at most limit updates.
// A non-positive limit falls back to DefaultLimit.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Feed{
		limit:   limit,
		updates: []Update{},
		index:   make(map[string]int),
	}
}

// Append records an update and notifies subscribers. Subscribers with a full
// buffer miss the update rather than blocking the feed.
func (f *Feed) Append(u Update) {
	f.mu.Lock()
	if pos, ok := f.index[u.ID]; ok {
		f.updates[pos] = u
	} else {
		f.updates = append(f.updates, u)
		f.index[u.ID] = len(f.updates) - 1
		for len(f.updates) > f.limit {
			dropped := f.updates[0]
			f.updates = f.updates[1:]
			delete(f.index, dropped.ID)
			for id, p := range f.index {
				f.index[id] = p - 1
			}
		}
	}
	subs := make([]chan Update, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Snapshot returns the retained updates in arrival order.
func (f *Feed) Snapshot() []Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Update, len(f.updates))
	copy(out, f.updates)
	return out
}

// Len returns the number of retained updates.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// Clear drops the retained history. Subscriptions stay active.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = []Update{}
	f.index = make(map[string]int)
}

// Subscribe registers a renderer for new updates. The returned cancel
// function removes the subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Update, buffer)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		for i, s := range f.subs {
			if s == ch {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				close(ch)
				break
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}
