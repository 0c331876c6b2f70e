package session

import "errors"

var (
	// ErrValidation wraps input that was rejected before any remote call.
	ErrValidation = errors.New("invalid item")
	// ErrNothingChecked is returned when a purchase is requested with no
	// checked items.
	ErrNothingChecked = errors.New("no items are checked")
	// ErrNoReview is returned when confirming or cancelling with no pending
	// review.
	ErrNoReview = errors.New("no removal awaiting confirmation")
	// ErrNothingToUndo is returned when the undo window has passed.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrUnknownItem is returned for ids not on the list.
	ErrUnknownItem = errors.New("unknown item")
	// ErrSuggestionDisabled is returned when a quick-add would duplicate an
	// unchecked item.
	ErrSuggestionDisabled = errors.New("item is already on the list")
	// ErrClosed is returned by commands on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrNotFound is returned by the manager for unknown session ids.
	ErrNotFound = errors.New("session not found")
)
