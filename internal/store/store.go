package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"family-groceries/internal/model"
	"family-groceries/internal/parse"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("store: not found")

// ItemStore is the remote grocery_items table.
type ItemStore interface {
	// ListItems returns every item ordered by creation time, oldest first.
	ListItems(ctx context.Context) ([]model.Item, error)
	// InsertItems creates the given items and returns them with ids and timestamps.
	InsertItems(ctx context.Context, items []model.Item) ([]model.Item, error)
	// SetChecked updates the checked flag and stamps updated_at.
	SetChecked(ctx context.Context, id string, checked bool, at time.Time) (model.Item, error)
	// DeleteItem removes an item by id. Deleting a missing id is not an error.
	DeleteItem(ctx context.Context, id string) error
	// DeleteItems removes all items in ids in one statement.
	DeleteItems(ctx context.Context, ids []string) error
}

// UsageStore is the remote name_usages table. Callers treat every failure as
// best-effort.
type UsageStore interface {
	// FindUsage returns the counter for name (case-insensitive), or nil.
	FindUsage(ctx context.Context, name string) (*model.NameUsage, error)
	// TopUsage returns up to n counters, most used first.
	TopUsage(ctx context.Context, n int) ([]model.NameUsage, error)
	InsertUsage(ctx context.Context, usage *model.NameUsage) error
	UpdateUsage(ctx context.Context, usage *model.NameUsage) error
}

// PushStore holds browser push subscriptions.
type PushStore interface {
	ListPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Store defines the interface for all database operations.
type Store interface {
	ItemStore
	UsageStore
	PushStore
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *gormStore) InsertItems(ctx context.Context, items []model.Item) ([]model.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	rows := make([]model.Item, len(items))
	copy(rows, items)
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to insert %d items: %w", len(rows), err)
	}
	return rows, nil
}

func (s *gormStore) SetChecked(ctx context.Context, id string, checked bool, at time.Time) (model.Item, error) {
	var item model.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Item{}).Where("id = ?", id).
			Updates(map[string]any{"checked": checked, "updated_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&item, "id = ?", id).Error
	})
	if err != nil {
		return model.Item{}, fmt.Errorf("failed to update item %s: %w", id, err)
	}
	return item, nil
}

func (s *gormStore) DeleteItem(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

func (s *gormStore) DeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Item{}).Error; err != nil {
		return fmt.Errorf("failed to delete %d items: %w", len(ids), err)
	}
	return nil
}

func (s *gormStore) FindUsage(ctx context.Context, name string) (*model.NameUsage, error) {
	var usage model.NameUsage
	err := s.db.WithContext(ctx).Where("name_key = ?", parse.Key(name)).Take(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find usage for %q: %w", name, err)
	}
	return &usage, nil
}

func (s *gormStore) TopUsage(ctx context.Context, n int) ([]model.NameUsage, error) {
	if n <= 0 {
		return nil, nil
	}
	var usages []model.NameUsage
	err := s.db.WithContext(ctx).
		Order("count DESC").Order("last_used DESC").Order("name ASC").
		Limit(n).Find(&usages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list top usage: %w", err)
	}
	return usages, nil
}

func (s *gormStore) InsertUsage(ctx context.Context, usage *model.NameUsage) error {
	usage.Key = parse.Key(usage.Name)
	if err := s.db.WithContext(ctx).Create(usage).Error; err != nil {
		return fmt.Errorf("failed to insert usage for %q: %w", usage.Name, err)
	}
	return nil
}

func (s *gormStore) UpdateUsage(ctx context.Context, usage *model.NameUsage) error {
	err := s.db.WithContext(ctx).Model(&model.NameUsage{}).Where("id = ?", usage.ID).
		Updates(map[string]any{"count": usage.Count, "last_used": usage.LastUsed}).Error
	if err != nil {
		return fmt.Errorf("failed to update usage %d: %w", usage.ID, err)
	}
	return nil
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}
