// Package realtime carries row-change notifications for the grocery_items table
// from the database to every active list view.
package realtime

import (
	"encoding/json"
	"fmt"

	"family-groceries/internal/model"
)

// Kind is the type of a change event.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
	// KindResync tells a subscriber that events may have been missed and a
	// full refresh is required.
	KindResync Kind = "RESYNC"
)

// Event is a single change to a list row. For deletes only Row.ID is reliable.
type Event struct {
	Kind Kind       `json:"kind"`
	Row  model.Item `json:"row"`
}

// Insert builds an insert event.
func Insert(item model.Item) Event { return Event{Kind: KindInsert, Row: item} }

// Update builds an update event.
func Update(item model.Item) Event { return Event{Kind: KindUpdate, Row: item} }

// Delete builds a delete event for the given id.
func Delete(id string) Event { return Event{Kind: KindDelete, Row: model.Item{ID: id}} }

// Resync builds a resync marker.
func Resync() Event { return Event{Kind: KindResync} }

// notifyPayload is the JSON document produced by the grocery_items trigger.
type notifyPayload struct {
	Type string      `json:"type"`
	New  *model.Item `json:"new"`
	Old  *model.Item `json:"old"`
}

// DecodeNotification parses a pg_notify payload into an Event.
func DecodeNotification(payload string) (Event, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Event{}, fmt.Errorf("decode notification: %w", err)
	}
	switch Kind(p.Type) {
	case KindInsert, KindUpdate:
		if p.New == nil || p.New.ID == "" {
			return Event{}, fmt.Errorf("%s notification without new row", p.Type)
		}
		return Event{Kind: Kind(p.Type), Row: *p.New}, nil
	case KindDelete:
		if p.Old == nil || p.Old.ID == "" {
			return Event{}, fmt.Errorf("DELETE notification without old row")
		}
		return Event{Kind: KindDelete, Row: *p.Old}, nil
	default:
		return Event{}, fmt.Errorf("unknown notification type %q", p.Type)
	}
}
