// Package liststate keeps an in-memory copy of the shopping list in step with
// the database, through full refreshes and incremental change events.
package liststate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"family-groceries/internal/model"
	"family-groceries/internal/realtime"
)

// FetchFunc loads the whole list ordered by creation time.
type FetchFunc func(ctx context.Context) ([]model.Item, error)

// Store holds the current list. The zero value is an empty, unloaded list
// ready for use.
type Store struct {
	mu sync.RWMutex

	items       []model.Item
	loaded      bool
	lastErr     error
	lastUpdated time.Time

	// Refresh bookkeeping. Events seen while any refresh is in flight are
	// kept in pending so they can be replayed over the fetched snapshot.
	latest   uint64
	inflight int
	pending  []realtime.Event

	// ahead holds rows written by this view whose echo has not come back
	// through the feed yet. The feed is in commit order, so any feed event
	// for such a row that arrives before the echo is older than the write.
	ahead map[string]localWrite
	now   func() time.Time
}

type localWrite struct {
	ev realtime.Event
	at time.Time
}

// EchoWindow bounds how long a local write waits for its echo. After that the
// feed is trusted again for the row, so a lost echo cannot hide it forever.
const EchoWindow = 10 * time.Second

// Refresh replaces the collection with the result of fetch. Events applied
// while fetch runs are replayed on top of the result. When a newer refresh
// was started in the meantime the result is discarded. On failure the
// previous contents are kept and the error is recorded and returned.
func (s *Store) Refresh(ctx context.Context, fetch FetchFunc) error {
	s.mu.Lock()
	s.latest++
	token := s.latest
	s.inflight++
	s.mu.Unlock()

	rows, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	defer func() {
		if s.inflight == 0 {
			s.pending = nil
		}
	}()

	if token != s.latest {
		return err
	}
	if err != nil {
		s.lastErr = fmt.Errorf("refresh list: %w", err)
		s.lastUpdated = time.Now()
		return s.lastErr
	}

	s.items = cloneItems(rows)
	for _, ev := range s.pending {
		s.apply(ev)
	}
	s.loaded = true
	s.lastErr = nil
	s.lastUpdated = time.Now()
	return nil
}

// Apply patches the collection with an event from the change feed. It
// reports true when the event asks for a full refresh instead.
func (s *Store) Apply(ev realtime.Event) bool {
	if ev.Kind == realtime.KindResync {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.ahead[ev.Row.ID]; ok {
		switch {
		case s.clock().Sub(w.at) > EchoWindow:
			delete(s.ahead, ev.Row.ID)
		case isEcho(w.ev, ev):
			delete(s.ahead, ev.Row.ID)
		default:
			return false
		}
	}
	s.record(ev)
	return false
}

// ApplyLocal patches the collection with the confirmed result of a write made
// by this view, before the feed delivers it.
func (s *Store) ApplyLocal(ev realtime.Event) {
	if ev.Kind == realtime.KindResync {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ahead == nil {
		s.ahead = make(map[string]localWrite)
	}
	s.ahead[ev.Row.ID] = localWrite{ev: ev, at: s.clock()}
	s.record(ev)
}

// PendingEchoes reports how many local writes still wait for their echo.
func (s *Store) PendingEchoes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ahead)
}

func (s *Store) record(ev realtime.Event) {
	if s.inflight > 0 {
		s.pending = append(s.pending, ev)
	}
	s.apply(ev)
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// isEcho reports whether feed event ev is the one produced by local write w.
// Timestamps are compared at microsecond precision, which is what Postgres
// keeps.
func isEcho(w, ev realtime.Event) bool {
	if w.Kind == realtime.KindDelete || ev.Kind == realtime.KindDelete {
		return w.Kind == ev.Kind
	}
	a, b := w.Row, ev.Row
	return a.Checked == b.Checked &&
		a.Name == b.Name &&
		a.Quantity == b.Quantity &&
		a.UpdatedAt.Truncate(time.Microsecond).Equal(b.UpdatedAt.Truncate(time.Microsecond))
}

func (s *Store) apply(ev realtime.Event) {
	i := s.index(ev.Row.ID)
	switch ev.Kind {
	case realtime.KindInsert:
		if i >= 0 {
			s.items[i] = ev.Row
			return
		}
		s.items = append(s.items, ev.Row)
	case realtime.KindUpdate:
		if i >= 0 {
			s.items[i] = ev.Row
		}
	case realtime.KindDelete:
		if i >= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
	}
}

func (s *Store) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Items returns the list in creation order.
func (s *Store) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Sorted returns the display order: unchecked items first, then checked.
func (s *Store) Sorted() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Partition(s.items)
}

// Checked returns the checked items in display order.
func (s *Store) Checked() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Item
	for _, item := range s.items {
		if item.Checked {
			out = append(out, item)
		}
	}
	return out
}

// Find looks an item up by id.
func (s *Store) Find(id string) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return model.Item{}, false
}

// Loaded reports whether a refresh has ever succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError returns the error of the most recent refresh, if it failed.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastUpdated returns when the last refresh completed.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Partition is a stable partition of items into unchecked then checked.
func Partition(items []model.Item) []model.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if !item.Checked {
			out = append(out, item)
		}
	}
	for _, item := range items {
		if item.Checked {
			out = append(out, item)
		}
	}
	return out
}

func cloneItems(items []model.Item) []model.Item {
	if len(items) == 0 {
		return nil
	}
	dup := make([]model.Item, len(items))
	copy(dup, items)
	return dup
}
