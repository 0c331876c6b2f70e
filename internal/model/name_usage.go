package model

import "time"

// NameUsage counts how often an item name has been added.
// Key is the normalized name and is unique; Name keeps the first spelling seen.
type NameUsage struct {
	ID       int64     `gorm:"primaryKey" json:"-"`
	Name     string    `gorm:"not null" json:"name"`
	Key      string    `gorm:"column:name_key;uniqueIndex;not null" json:"-"`
	Count    int       `gorm:"not null" json:"count"`
	LastUsed time.Time `gorm:"not null;index" json:"last_used"`
}
