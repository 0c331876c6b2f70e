package store

import (
	"context"
	"time"

	"family-groceries/internal/model"
	"family-groceries/internal/realtime"
)

// eventStore publishes a change event after every successful item write.
// It stands in for the database trigger when the driver has no LISTEN/NOTIFY.
type eventStore struct {
	Store
	pub realtime.Publisher
}

// WithEvents decorates s so that item writes are announced on pub.
func WithEvents(s Store, pub realtime.Publisher) Store {
	return &eventStore{Store: s, pub: pub}
}

func (s *eventStore) InsertItems(ctx context.Context, items []model.Item) ([]model.Item, error) {
	rows, err := s.Store.InsertItems(ctx, items)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.pub.Publish(realtime.Insert(row))
	}
	return rows, nil
}

func (s *eventStore) SetChecked(ctx context.Context, id string, checked bool, at time.Time) (model.Item, error) {
	item, err := s.Store.SetChecked(ctx, id, checked, at)
	if err != nil {
		return model.Item{}, err
	}
	s.pub.Publish(realtime.Update(item))
	return item, nil
}

func (s *eventStore) DeleteItem(ctx context.Context, id string) error {
	if err := s.Store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.pub.Publish(realtime.Delete(id))
	return nil
}

func (s *eventStore) DeleteItems(ctx context.Context, ids []string) error {
	if err := s.Store.DeleteItems(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.pub.Publish(realtime.Delete(id))
	}
	return nil
}
