// internal/domain/item/service_test.go
package item

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/erp-backend/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Item{}, &Location{}))
	return NewService(db, &config.Config{})
}

func TestCreateItemNormalizesCode(t *testing.T) {
	service := setupTestService(t)

	created, err := service.CreateItem(&CreateItemRequest{
		Code: "  sp001 ", Name: "Soap Bar", Unit: "pcs", Type: ItemTypeFinished,
	})
	require.NoError(t, err)
	assert.Equal(t, "SP001", created.Code)
	assert.True(t, created.IsActive)
}

func TestCreateItemRejectsInvalidType(t *testing.T) {
	service := setupTestService(t)

	_, err := service.CreateItem(&CreateItemRequest{
		Code: "SP001", Name: "Soap Bar", Unit: "pcs", Type: "liquid",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid item type")
}

func TestCreateItemRejectsDuplicateCode(t *testing.T) {
	service := setupTestService(t)

	_, err := service.CreateItem(&CreateItemRequest{
		Code: "SP001", Name: "Soap Bar", Unit: "pcs", Type: ItemTypeFinished,
	})
	require.NoError(t, err)

	_, err = service.CreateItem(&CreateItemRequest{
		Code: "SP001", Name: "Another Soap", Unit: "pcs", Type: ItemTypeFinished,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGetItemsFiltersByType(t *testing.T) {
	service := setupTestService(t)

	_, err := service.CreateItem(&CreateItemRequest{Code: "SP001", Name: "Soap", Unit: "pcs", Type: ItemTypeFinished})
	require.NoError(t, err)
	_, err = service.CreateItem(&CreateItemRequest{Code: "OL001", Name: "Oil", Unit: "kg", Type: ItemTypeRaw})
	require.NoError(t, err)

	raw, err := service.GetItems(ItemTypeRaw)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "OL001", raw[0].Code)

	all, err := service.GetItems("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateItemMutableFieldsOnly(t *testing.T) {
	service := setupTestService(t)

	created, err := service.CreateItem(&CreateItemRequest{
		Code: "SP001", Name: "Soap Bar", Unit: "pcs", Type: ItemTypeFinished,
	})
	require.NoError(t, err)

	name := "Soap Bar 100g"
	inactive := false
	updated, err := service.UpdateItem(created.ID, &UpdateItemRequest{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Soap Bar 100g", updated.Name)
	assert.False(t, updated.IsActive)

	// Code and type survive untouched
	assert.Equal(t, "SP001", updated.Code)
	assert.Equal(t, ItemTypeFinished, updated.Type)
}

func TestItemRoles(t *testing.T) {
	finished := Item{Type: ItemTypeFinished}
	raw := Item{Type: ItemTypeRaw}
	semi := Item{Type: ItemTypeSemiFinished}

	assert.True(t, finished.IsFinished())
	assert.False(t, finished.IsMaterial())
	assert.True(t, raw.IsMaterial())
	assert.True(t, semi.IsMaterial())
	assert.False(t, raw.IsFinished())
}

func TestCreateLocationRejectsDuplicateName(t *testing.T) {
	service := setupTestService(t)

	_, err := service.CreateLocation(&CreateLocationRequest{Name: "Main Warehouse"})
	require.NoError(t, err)

	_, err = service.CreateLocation(&CreateLocationRequest{Name: "Main Warehouse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGetLocationsActiveOnly(t *testing.T) {
	service := setupTestService(t)

	first, err := service.CreateLocation(&CreateLocationRequest{Name: "Main Warehouse"})
	require.NoError(t, err)
	_, err = service.CreateLocation(&CreateLocationRequest{Name: "Production Floor"})
	require.NoError(t, err)

	require.NoError(t, service.db.Model(first).Update("is_active", false).Error)

	locations, err := service.GetLocations()
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Production Floor", locations[0].Name)
}
