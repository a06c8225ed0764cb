// internal/domain/item/entity.go
package item

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ItemType classifies an item and determines which transformation roles it may play
type ItemType string

const (
	ItemTypeRaw          ItemType = "raw"
	ItemTypeFinished     ItemType = "finished"
	ItemTypeSemiFinished ItemType = "semi_finished"
)

// Item represents an inventory item tracked by the stock ledger
type Item struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Unit      string         `gorm:"not null;size:20" json:"unit"` // kg, pcs, rolls, ...
	Type      ItemType       `gorm:"not null;size:20;index" json:"type"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Location represents a stock location. The ledger keys on it; it carries no
// state of its own beyond identity.
type Location struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null;size:100" json:"name"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for Item
func (Item) TableName() string {
	return "items"
}

// TableName overrides the table name for Location
func (Location) TableName() string {
	return "locations"
}

// BeforeCreate hook to normalize the item code
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	i.Code = strings.ToUpper(strings.TrimSpace(i.Code))
	return nil
}

// IsFinished reports whether the item is a finished good. Only finished items
// are valid bundling/repacking sources and outputs.
func (i *Item) IsFinished() bool {
	return i.Type == ItemTypeFinished
}

// IsMaterial reports whether the item can be consumed as an auxiliary material
func (i *Item) IsMaterial() bool {
	return i.Type == ItemTypeRaw || i.Type == ItemTypeSemiFinished
}

// ValidType reports whether t is a known item type
func ValidType(t ItemType) bool {
	switch t {
	case ItemTypeRaw, ItemTypeFinished, ItemTypeSemiFinished:
		return true
	}
	return false
}
