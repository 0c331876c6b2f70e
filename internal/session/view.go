package session

import (
	"family-groceries/internal/emoji"
	"family-groceries/internal/model"
	"family-groceries/internal/quickadd"
	"family-groceries/internal/toast"
)

// ViewItem is a list row as displayed.
type ViewItem struct {
	model.Item
	Emoji string `json:"emoji"`
}

// View is an immutable snapshot of everything a viewer renders.
type View struct {
	ID           string                `json:"id"`
	Items        []ViewItem            `json:"items"`
	CheckedCount int                   `json:"checked_count"`
	Loading      bool                  `json:"loading"`
	Loaded       bool                  `json:"loaded"`
	Error        string                `json:"error,omitempty"`
	Toast        *toast.Toast          `json:"toast,omitempty"`
	Review       *Review               `json:"review,omitempty"`
	Suggestions  []quickadd.Suggestion `json:"suggestions"`
	CanUndo      bool                  `json:"can_undo"`
}

// View returns the current state in display order.
func (s *Session) View() View {
	items := s.list.Items()
	sorted := s.list.Sorted()

	v := View{
		ID:      s.id,
		Items:   make([]ViewItem, len(sorted)),
		Loaded:  s.list.Loaded(),
		CanUndo: s.undo.Armed(),
	}
	for i, item := range sorted {
		v.Items[i] = ViewItem{Item: item, Emoji: emoji.Lookup(item.Name)}
		if item.Checked {
			v.CheckedCount++
		}
	}
	if s.list.LastError() != nil {
		v.Error = "Failed to load items"
	}
	if t, ok := s.toast.Current(); ok {
		v.Toast = &t
	}

	s.mu.Lock()
	v.Loading = s.loading
	if s.review != nil {
		r := Review{Kind: s.review.Kind, Items: append([]model.Item(nil), s.review.Items...)}
		v.Review = &r
	}
	top := s.suggestions
	s.mu.Unlock()

	v.Suggestions = quickadd.Annotate(top, items)
	if v.Suggestions == nil {
		v.Suggestions = []quickadd.Suggestion{}
	}
	return v
}
