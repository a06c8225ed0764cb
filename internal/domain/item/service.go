// internal/domain/item/service.go
package item

import (
	"fmt"

	"github.com/your-org/erp-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles item and location business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new item service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateItemRequest represents item creation data
type CreateItemRequest struct {
	Code string   `json:"code" binding:"required"`
	Name string   `json:"name" binding:"required"`
	Unit string   `json:"unit" binding:"required"`
	Type ItemType `json:"type" binding:"required"`
}

// UpdateItemRequest represents item update data. Code and type are immutable
// once the item is referenced by ledger entries, so they are not accepted here.
type UpdateItemRequest struct {
	Name     *string `json:"name,omitempty"`
	Unit     *string `json:"unit,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CreateLocationRequest represents location creation data
type CreateLocationRequest struct {
	Name string `json:"name" binding:"required"`
}

// ITEM MANAGEMENT

// CreateItem creates a new inventory item
func (s *Service) CreateItem(req *CreateItemRequest) (*Item, error) {
	if !ValidType(req.Type) {
		return nil, fmt.Errorf("invalid item type: %s", req.Type)
	}

	// Check if code already exists
	var existing Item
	if err := s.db.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("item with code '%s' already exists", req.Code)
	}

	item := &Item{
		Code:     req.Code,
		Name:     req.Name,
		Unit:     req.Unit,
		Type:     req.Type,
		IsActive: true,
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return item, nil
}

// GetItem retrieves an item by id
func (s *Service) GetItem(id uint) (*Item, error) {
	var item Item
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, fmt.Errorf("item not found")
	}
	return &item, nil
}

// GetItems retrieves all active items, optionally filtered by type
func (s *Service) GetItems(itemType ItemType) ([]Item, error) {
	query := s.db.Where("is_active = ?", true)
	if itemType != "" {
		query = query.Where("type = ?", itemType)
	}

	var items []Item
	if err := query.Order("code").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve items: %w", err)
	}
	return items, nil
}

// UpdateItem updates the mutable fields of an item
func (s *Service) UpdateItem(id uint, req *UpdateItemRequest) (*Item, error) {
	var item Item
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, fmt.Errorf("item not found")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&item).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
	}

	return &item, nil
}

// LOCATION MANAGEMENT

// CreateLocation creates a new stock location
func (s *Service) CreateLocation(req *CreateLocationRequest) (*Location, error) {
	var existing Location
	if err := s.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("location with name '%s' already exists", req.Name)
	}

	location := &Location{
		Name:     req.Name,
		IsActive: true,
	}

	if err := s.db.Create(location).Error; err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	return location, nil
}

// GetLocation retrieves a location by id
func (s *Service) GetLocation(id uint) (*Location, error) {
	var location Location
	if err := s.db.First(&location, id).Error; err != nil {
		return nil, fmt.Errorf("location not found")
	}
	return &location, nil
}

// GetLocations retrieves all active locations
func (s *Service) GetLocations() ([]Location, error) {
	var locations []Location
	if err := s.db.Where("is_active = ?", true).Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve locations: %w", err)
	}
	return locations, nil
}
