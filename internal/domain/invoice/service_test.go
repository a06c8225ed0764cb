// internal/domain/invoice/service_test.go
package invoice

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db      *gorm.DB
	service *Service
	ledger  *ledger.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&item.Item{}, &item.Location{}, &ledger.StockLedgerEntry{},
		&Invoice{}, &InvoiceItem{},
	))

	cfg := &config.Config{}
	ledgerService := ledger.NewService(db, cfg, nil)
	return &testEnv{
		db:      db,
		service: NewService(db, cfg, ledgerService),
		ledger:  ledgerService,
	}
}

func (env *testEnv) seedItem(t *testing.T, code string) uint {
	t.Helper()
	it := item.Item{Code: code, Name: "Item " + code, Unit: "pcs", Type: item.ItemTypeFinished, IsActive: true}
	require.NoError(t, env.db.Create(&it).Error)
	return it.ID
}

func (env *testEnv) seedLocation(t *testing.T, name string) uint {
	t.Helper()
	loc := item.Location{Name: name, IsActive: true}
	require.NoError(t, env.db.Create(&loc).Error)
	return loc.ID
}

func (env *testEnv) seedStock(t *testing.T, itemID, locationID uint, qty string) {
	t.Helper()
	require.NoError(t, env.ledger.Append(env.db, &ledger.StockLedgerEntry{
		ItemID:          itemID,
		LocationID:      locationID,
		TransactionType: ledger.TxTypeManualStock,
		QuantityIn:      decimal.RequireFromString(qty),
	}))
}

func TestCreateInvoiceAllocatesAcrossLocations(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	main := env.seedLocation(t, "Main")
	store := env.seedLocation(t, "Store")
	env.seedStock(t, soap, main, "30")
	env.seedStock(t, soap, store, "50")

	inv, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme Traders",
		Items: []InvoiceLineRequest{
			{ItemID: soap, Quantity: decimal.RequireFromString("60"), UnitPrice: 250},
		},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "SI000001", inv.InvoiceNo)
	assert.Equal(t, int64(15000), inv.TotalAmount)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, int64(15000), inv.Items[0].TotalPrice)

	// 60 against {Main:30, Store:50} drains Store first, then Main
	var entries []ledger.StockLedgerEntry
	require.NoError(t, env.db.
		Where("reference_id = ? AND transaction_type = ?", inv.ID, ledger.TxTypeSales).
		Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, store, entries[0].LocationID)
	assert.True(t, entries[0].QuantityOut.Equal(decimal.RequireFromString("50")))
	assert.Equal(t, main, entries[1].LocationID)
	assert.True(t, entries[1].QuantityOut.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, "SI000001", entries[0].ReferenceNo)

	storeBalance, err := env.ledger.CurrentBalance(env.db, soap, store)
	require.NoError(t, err)
	assert.True(t, storeBalance.IsZero())
	mainBalance, err := env.ledger.CurrentBalance(env.db, soap, main)
	require.NoError(t, err)
	assert.True(t, mainBalance.Equal(decimal.RequireFromString("20")))
}

func TestCreateInvoiceShortfallRollsBackEverything(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	oil := env.seedItem(t, "OL001")
	main := env.seedLocation(t, "Main")
	env.seedStock(t, soap, main, "100")
	env.seedStock(t, oil, main, "5")

	_, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme Traders",
		Items: []InvoiceLineRequest{
			{ItemID: soap, Quantity: decimal.RequireFromString("10"), UnitPrice: 100},
			{ItemID: oil, Quantity: decimal.RequireFromString("20"), UnitPrice: 100},
		},
	}, 1)
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, oil, stockErr.ItemID)
	assert.True(t, stockErr.Available.Equal(decimal.RequireFromString("5")))
	assert.True(t, stockErr.Requested.Equal(decimal.RequireFromString("20")))

	// The first line must not survive the second line's failure
	var count int64
	env.db.Model(&Invoice{}).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&InvoiceItem{}).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&ledger.StockLedgerEntry{}).Where("transaction_type = ?", ledger.TxTypeSales).Count(&count)
	assert.Zero(t, count)
}

func TestCreateInvoiceAggregatesDuplicateItems(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	main := env.seedLocation(t, "Main")
	env.seedStock(t, soap, main, "15")

	// Two lines of 10 each need 20 in total; 15 on hand must fail up front
	_, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme Traders",
		Items: []InvoiceLineRequest{
			{ItemID: soap, Quantity: decimal.RequireFromString("10"), UnitPrice: 100},
			{ItemID: soap, Quantity: decimal.RequireFromString("10"), UnitPrice: 100},
		},
	}, 1)
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Requested.Equal(decimal.RequireFromString("20")))

	var count int64
	env.db.Model(&Invoice{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateInvoiceRejectsBadInput(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")

	_, err := env.service.CreateInvoice(&CreateInvoiceRequest{CustomerName: "Acme"}, 1)
	assert.Error(t, err, "empty invoice")

	_, err = env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme",
		Items:        []InvoiceLineRequest{{ItemID: soap, Quantity: decimal.RequireFromString("-1"), UnitPrice: 100}},
	}, 1)
	assert.Error(t, err, "negative quantity")
}

func TestInvoiceNumberSequence(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	main := env.seedLocation(t, "Main")
	env.seedStock(t, soap, main, "100")

	first, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme Traders",
		Items:        []InvoiceLineRequest{{ItemID: soap, Quantity: decimal.RequireFromString("10"), UnitPrice: 100}},
	}, 1)
	require.NoError(t, err)
	second, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Beta Supplies",
		Items:        []InvoiceLineRequest{{ItemID: soap, Quantity: decimal.RequireFromString("10"), UnitPrice: 100}},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "SI000001", first.InvoiceNo)
	assert.Equal(t, "SI000002", second.InvoiceNo)
}

func TestDeleteInvoiceReversesSales(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	main := env.seedLocation(t, "Main")
	env.seedStock(t, soap, main, "100")

	inv, err := env.service.CreateInvoice(&CreateInvoiceRequest{
		CustomerName: "Acme Traders",
		Items:        []InvoiceLineRequest{{ItemID: soap, Quantity: decimal.RequireFromString("40"), UnitPrice: 100}},
	}, 1)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteInvoice(inv.ID))

	var count int64
	env.db.Model(&ledger.StockLedgerEntry{}).Where("reference_id = ?", inv.ID).Count(&count)
	assert.Zero(t, count)
	env.db.Model(&InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&count)
	assert.Zero(t, count)

	_, err = env.service.GetInvoice(inv.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	// With the sales entry gone the seed entry is the latest row again
	balance, err := env.ledger.CurrentBalance(env.db, soap, main)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("100")))
}

func TestDeleteInvoiceNotFound(t *testing.T) {
	env := setupTestEnv(t)
	assert.ErrorIs(t, env.service.DeleteInvoice(999), ErrInvoiceNotFound)
}

func TestGetInvoicesNewestFirst(t *testing.T) {
	env := setupTestEnv(t)
	soap := env.seedItem(t, "SP001")
	main := env.seedLocation(t, "Main")
	env.seedStock(t, soap, main, "100")

	for i := 0; i < 3; i++ {
		_, err := env.service.CreateInvoice(&CreateInvoiceRequest{
			CustomerName: fmt.Sprintf("Customer %d", i),
			Items:        []InvoiceLineRequest{{ItemID: soap, Quantity: decimal.RequireFromString("5"), UnitPrice: 100}},
		}, 1)
		require.NoError(t, err)
	}

	invoices, err := env.service.GetInvoices(2)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "SI000003", invoices[0].InvoiceNo)
	assert.Equal(t, "SI000002", invoices[1].InvoiceNo)
}
