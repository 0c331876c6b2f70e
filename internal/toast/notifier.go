// Package toast implements the single transient status message shown after
// each command.
package toast

import (
	"sync"
	"time"
)

// Toast is an active message. ID increases with every toast shown.
type Toast struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	Undoable  bool      `json:"undoable"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier holds at most one toast. Showing a toast replaces the active one
// and cancels its timer.
type Notifier struct {
	mu       sync.Mutex
	plain    time.Duration
	undoable time.Duration
	onChange func()

	current *Toast
	seq     uint64
	timer   *time.Timer
}

// NewNotifier creates a notifier. onChange, if not nil, is called after every
// transition, outside the notifier's lock.
func NewNotifier(plain, undoable time.Duration, onChange func()) *Notifier {
	return &Notifier{plain: plain, undoable: undoable, onChange: onChange}
}

// Show displays a plain message.
func (n *Notifier) Show(message string) Toast {
	return n.show(message, false)
}

// ShowUndoable displays a message that offers an undo control.
func (n *Notifier) ShowUndoable(message string) Toast {
	return n.show(message, true)
}

func (n *Notifier) show(message string, undoable bool) Toast {
	d := n.plain
	if undoable {
		d = n.undoable
	}

	n.mu.Lock()
	n.stopTimer()
	n.seq++
	id := n.seq
	t := Toast{ID: id, Message: message, Undoable: undoable, ExpiresAt: time.Now().Add(d)}
	n.current = &t
	n.timer = time.AfterFunc(d, func() { n.expire(id) })
	n.mu.Unlock()

	n.changed()
	return t
}

func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.changed()
}

// Dismiss hides the active toast, if any.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	n.stopTimer()
	n.current = nil
	n.mu.Unlock()

	n.changed()
}

// Current returns the active toast.
func (n *Notifier) Current() (Toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Toast{}, false
	}
	return *n.current, true
}

// Stop hides the toast without notifying.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopTimer()
	n.current = nil
}

func (n *Notifier) stopTimer() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) changed() {
	if n.onChange != nil {
		n.onChange()
	}
}
