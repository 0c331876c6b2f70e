// Package undo holds the most recently removed items for a short window so
// the removal can be reversed.
package undo

import (
	"sync"
	"time"

	"family-groceries/internal/model"
)

// Snapshot is a removed item without its identity. Restoring it creates a
// new item.
type Snapshot struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Checked  bool   `json:"checked"`
}

// FromItems snapshots items. With keepChecked false every snapshot comes
// back unchecked.
func FromItems(items []model.Item, keepChecked bool) []Snapshot {
	out := make([]Snapshot, len(items))
	for i, item := range items {
		out[i] = Snapshot{Name: item.Name, Quantity: item.Quantity, Checked: item.Checked && keepChecked}
	}
	return out
}

// Item returns the creation request for the snapshot.
func (s Snapshot) Item() model.Item {
	return model.Item{Name: s.Name, Quantity: s.Quantity, Checked: s.Checked}
}

// Buffer holds a single batch. Arming a new batch replaces the old one and its
// timer; each batch carries a generation so late callers cannot clear a newer
// batch.
type Buffer struct {
	mu       sync.Mutex
	window   time.Duration
	onExpire func()

	batch    []Snapshot
	gen      uint64
	deadline time.Time
	timer    *time.Timer
}

// NewBuffer creates a buffer whose batches expire after window. onExpire, if
// not nil, is called from the timer goroutine after a batch expires.
func NewBuffer(window time.Duration, onExpire func()) *Buffer {
	return &Buffer{window: window, onExpire: onExpire}
}

// Arm stores batch and restarts the expiry timer. It returns the batch
// generation.
func (b *Buffer) Arm(batch []Snapshot) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopTimer()
	b.gen++
	gen := b.gen
	b.batch = append([]Snapshot(nil), batch...)
	b.deadline = time.Now().Add(b.window)
	b.timer = time.AfterFunc(b.window, func() { b.expire(gen) })
	return gen
}

func (b *Buffer) expire(gen uint64) {
	if !b.Clear(gen) {
		return
	}
	if b.onExpire != nil {
		b.onExpire()
	}
}

// Pending returns the armed batch and its generation.
func (b *Buffer) Pending() ([]Snapshot, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.batch == nil {
		return nil, 0, false
	}
	return append([]Snapshot(nil), b.batch...), b.gen, true
}

// Clear drops the batch if gen is still current and reports whether it did.
func (b *Buffer) Clear(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.batch == nil || gen != b.gen {
		return false
	}
	b.reset()
	return true
}

// Armed reports whether a batch can still be restored.
func (b *Buffer) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batch != nil
}

// Deadline returns when the current batch expires.
func (b *Buffer) Deadline() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deadline
}

// Stop drops any batch and cancels the timer.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *Buffer) reset() {
	b.stopTimer()
	b.batch = nil
	b.deadline = time.Time{}
}

func (b *Buffer) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
