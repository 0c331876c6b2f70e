package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is a single entry on the shopping list.
type Item struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Quantity  string    `gorm:"size:32;not null" json:"quantity"`
	Checked   bool      `gorm:"not null" json:"checked"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName pins the table watched by the change-notification trigger.
func (Item) TableName() string { return "grocery_items" }

// BeforeCreate assigns an id when the database did not.
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
