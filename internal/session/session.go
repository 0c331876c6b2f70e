// Package session drives one active view of the shopping list: it owns the
// list state, toast, undo buffer and change subscription for that view and
// turns user commands into remote mutations.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"family-groceries/internal/liststate"
	"family-groceries/internal/model"
	"family-groceries/internal/parse"
	"family-groceries/internal/quickadd"
	"family-groceries/internal/realtime"
	"family-groceries/internal/toast"
	"family-groceries/internal/undo"
)

const announceTitle = "Family Groceries"

// ReviewKind distinguishes the two confirmation prompts.
type ReviewKind string

const (
	ReviewDelete   ReviewKind = "delete"
	ReviewPurchase ReviewKind = "purchase"
)

// Review is a removal awaiting confirmation.
type Review struct {
	Kind  ReviewKind   `json:"kind"`
	Items []model.Item `json:"items"`
}

// Session is a single view of the list. Commands are serialized; change
// events are applied concurrently from the subscription loop.
type Session struct {
	id   string
	deps Deps
	opts Options
	now  func() time.Time

	list  liststate.Store
	undo  *undo.Buffer
	toast *toast.Notifier

	// cmdMu serializes commands so that each one sees the result of the last.
	cmdMu sync.Mutex

	mu          sync.Mutex
	review      *Review
	loading     bool
	suggestions []model.NameUsage
	started     bool
	closed      bool
	cancel      context.CancelFunc

	changes   chan struct{}
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
}

// New creates a session. Call Start to subscribe and load the list.
func New(id string, deps Deps, opts Options) *Session {
	s := &Session{
		id:       id,
		deps:     deps.withDefaults(),
		opts:     opts,
		now:      time.Now,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	s.undo = undo.NewBuffer(opts.UndoToast, s.notify)
	s.toast = toast.NewNotifier(opts.Toast, opts.UndoToast, s.notify)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Changes is signalled after every state change. Signals coalesce.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Start subscribes to the change feed and performs the initial load. ctx
// bounds the lifetime of the session. A failed load leaves the session
// running in an error state; only a failed subscription is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.loading = true
	s.mu.Unlock()

	sub, err := s.deps.Feed.Subscribe(ctx)
	if err != nil {
		close(s.loopDone)
		s.setLoading(false)
		return fmt.Errorf("subscribe to changes: %w", err)
	}
	go s.loop(ctx, sub)

	s.initialLoad(ctx)
	return nil
}

func (s *Session) loop(ctx context.Context, sub *realtime.Subscription) {
	defer close(s.loopDone)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.deps.Metrics.RecordEvent(string(ev.Kind))
			if s.list.Apply(ev) {
				if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
					s.deps.Logger.Warn("resync failed", "session", s.id, "error", err)
				}
				continue
			}
			s.notify()
		}
	}
}

func (s *Session) initialLoad(ctx context.Context) {
	attempts := s.opts.LoadAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := s.opts.InitialBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.refresh(ctx); err == nil {
			break
		}
		s.deps.Logger.Warn("initial load failed", "session", s.id, "attempt", attempt, "error", err)
		if attempt == attempts || !sleep(ctx, backoff) {
			break
		}
		backoff *= 2
		if s.opts.MaxBackoff > 0 && backoff > s.opts.MaxBackoff {
			backoff = s.opts.MaxBackoff
		}
	}

	s.setLoading(false)
	if err != nil {
		s.toast.Show("Failed to load items")
	}
	s.loadSuggestions(ctx)
	s.notify()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Session) refresh(ctx context.Context) error {
	start := time.Now()
	err := s.list.Refresh(ctx, s.deps.Items.ListItems)
	s.deps.Metrics.RecordRefresh(time.Since(start), err)
	s.notify()
	return err
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) loadSuggestions(ctx context.Context) {
	if s.deps.Ranker == nil || s.opts.SuggestionLimit <= 0 {
		return
	}
	top := s.deps.Ranker.TopSuggestions(ctx, s.opts.SuggestionLimit)
	s.mu.Lock()
	s.suggestions = top
	s.mu.Unlock()
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.review = nil
		started, cancel := s.started, s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if started {
			<-s.loopDone
		}

		// Wait out a command in flight so it cannot arm timers after this.
		s.cmdMu.Lock()
		s.undo.Stop()
		s.toast.Stop()
		s.cmdMu.Unlock()

		close(s.done)
	})
}

func (s *Session) lock() error {
	s.cmdMu.Lock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.cmdMu.Unlock()
		return ErrClosed
	}
	return nil
}

// Add validates and creates an item. A nil error means the input was
// accepted and can be cleared.
func (s *Session) Add(ctx context.Context, name, quantity string) (err error) {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()
	defer func() { s.deps.Metrics.RecordCommand("add", err) }()

	entry, err := parse.ParseEntry(name, quantity)
	if err != nil {
		s.toast.Show(sentence(err.Error()))
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	rows, err := s.deps.Items.InsertItems(ctx, []model.Item{{Name: entry.Name, Quantity: entry.Quantity}})
	if err != nil {
		s.deps.Logger.Error("add item failed", "session", s.id, "name", entry.Name, "error", err)
		s.toast.Show("Failed to add item")
		return fmt.Errorf("add item: %w", err)
	}
	for _, row := range rows {
		s.list.ApplyLocal(realtime.Insert(row))
	}

	if s.deps.Ranker != nil {
		s.deps.Ranker.RecordUsage(ctx, entry.Name)
		s.loadSuggestions(ctx)
	}
	s.toast.Show("Added " + entry.Name)
	s.deps.Announcer.Announce(announceTitle, "Added "+entry.Name)
	s.notify()
	return nil
}

// QuickAdd adds name with the default quantity.
func (s *Session) QuickAdd(ctx context.Context, name string) error {
	return s.Add(ctx, name, parse.DefaultQuantity)
}

// SuggestionDisabled reports whether quick-adding name would duplicate an
// unchecked item.
func (s *Session) SuggestionDisabled(name string) bool {
	return quickadd.Disabled(name, s.list.Items())
}

// Toggle sets the checked flag of an item.
func (s *Session) Toggle(ctx context.Context, id string, checked bool) (err error) {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()
	defer func() { s.deps.Metrics.RecordCommand("toggle", err) }()

	if _, ok := s.list.Find(id); !ok {
		return ErrUnknownItem
	}
	item, err := s.deps.Items.SetChecked(ctx, id, checked, s.now())
	if err != nil {
		s.deps.Logger.Error("update item failed", "session", s.id, "id", id, "error", err)
		s.toast.Show("Failed to update item")
		return fmt.Errorf("toggle item: %w", err)
	}
	s.list.ApplyLocal(realtime.Update(item))
	s.notify()
	return nil
}

// RequestDelete opens a review for removing a single item.
func (s *Session) RequestDelete(id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()

	item, ok := s.list.Find(id)
	if !ok {
		return ErrUnknownItem
	}
	s.setReview(&Review{Kind: ReviewDelete, Items: []model.Item{item}})
	return nil
}

// RequestPurchase opens a review listing every checked item.
func (s *Session) RequestPurchase() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()

	checked := s.list.Checked()
	if len(checked) == 0 {
		return ErrNothingChecked
	}
	s.setReview(&Review{Kind: ReviewPurchase, Items: checked})
	return nil
}

func (s *Session) setReview(r *Review) {
	s.mu.Lock()
	s.review = r
	s.mu.Unlock()
	s.notify()
}

func (s *Session) takeReview() *Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.review
	s.review = nil
	return r
}

// CancelReview drops the pending review.
func (s *Session) CancelReview() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()

	if s.takeReview() == nil {
		return ErrNoReview
	}
	s.notify()
	return nil
}

// ConfirmReview performs the pending removal and arms undo. The review is
// closed whatever the outcome.
func (s *Session) ConfirmReview(ctx context.Context) (err error) {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()

	r := s.takeReview()
	if r == nil {
		return ErrNoReview
	}
	defer s.notify()

	if r.Kind == ReviewDelete {
		defer func() { s.deps.Metrics.RecordCommand("delete", err) }()
		return s.deleteOne(ctx, r.Items[0])
	}
	defer func() { s.deps.Metrics.RecordCommand("purchase", err) }()
	items := stillChecked(r.Items, s.list.Checked())
	if len(items) == 0 {
		return ErrNothingChecked
	}
	return s.purchase(ctx, items)
}

// stillChecked keeps the reviewed items that are checked right now, in their
// current form. Other members may have unchecked or removed some meanwhile.
func stillChecked(reviewed, checked []model.Item) []model.Item {
	current := make(map[string]model.Item, len(checked))
	for _, item := range checked {
		current[item.ID] = item
	}
	var out []model.Item
	for _, item := range reviewed {
		if now, ok := current[item.ID]; ok {
			out = append(out, now)
		}
	}
	return out
}

func (s *Session) deleteOne(ctx context.Context, item model.Item) error {
	if err := s.deps.Items.DeleteItem(ctx, item.ID); err != nil {
		s.deps.Logger.Error("delete item failed", "session", s.id, "id", item.ID, "error", err)
		s.toast.Show("Failed to delete item")
		return fmt.Errorf("delete item: %w", err)
	}
	s.list.ApplyLocal(realtime.Delete(item.ID))
	s.undo.Arm(undo.FromItems([]model.Item{item}, true))
	s.toast.ShowUndoable("Item removed")
	return nil
}

func (s *Session) purchase(ctx context.Context, items []model.Item) error {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := s.deps.Items.DeleteItems(ctx, ids); err != nil {
		s.deps.Logger.Error("remove items failed", "session", s.id, "count", len(ids), "error", err)
		s.toast.Show("Failed to remove items")
		return fmt.Errorf("purchase items: %w", err)
	}
	for _, id := range ids {
		s.list.ApplyLocal(realtime.Delete(id))
	}
	// Purchased items come back on the to-buy list.
	s.undo.Arm(undo.FromItems(items, false))
	msg := fmt.Sprintf("Purchased %d %s!", len(items), plural(len(items), "item"))
	s.toast.ShowUndoable(msg)
	s.deps.Announcer.Announce(announceTitle, msg)
	return nil
}

// Undo restores the most recent removal as new items.
func (s *Session) Undo(ctx context.Context) (err error) {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.cmdMu.Unlock()

	batch, gen, ok := s.undo.Pending()
	if !ok {
		return ErrNothingToUndo
	}
	defer func() { s.deps.Metrics.RecordCommand("undo", err) }()

	base := s.now()
	items := make([]model.Item, len(batch))
	for i, snap := range batch {
		items[i] = snap.Item()
		// Keep the restored batch in its original order.
		items[i].CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		items[i].UpdatedAt = items[i].CreatedAt
	}

	rows, err := s.deps.Items.InsertItems(ctx, items)
	if err != nil {
		s.deps.Logger.Error("restore items failed", "session", s.id, "count", len(items), "error", err)
		s.toast.Show("Failed to restore items")
		return fmt.Errorf("restore items: %w", err)
	}
	for _, row := range rows {
		s.list.ApplyLocal(realtime.Insert(row))
	}
	s.undo.Clear(gen)
	s.toast.Dismiss()
	if len(batch) == 1 {
		s.toast.Show("Restored " + batch[0].Name)
	} else {
		s.toast.Show(fmt.Sprintf("Restored %d items", len(batch)))
	}
	s.notify()
	return nil
}

// Refresh reloads the whole list.
func (s *Session) Refresh(ctx context.Context) (err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	defer func() { s.deps.Metrics.RecordCommand("refresh", err) }()

	if err := s.refresh(ctx); err != nil {
		s.toast.Show("Failed to load items")
		return err
	}
	s.loadSuggestions(ctx)
	s.notify()
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
