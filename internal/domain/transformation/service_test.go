// internal/domain/transformation/service_test.go
package transformation

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
		&Bundle{}, &BundleMaterial{},
		&Repack{}, &RepackMaterial{},
		&RollsBatch{}, &RollsMaterial{},
	))

	cfg := &config.Config{}
	ledgerService := ledger.NewService(db, cfg, nil)
	return &testEnv{
		db:      db,
		service: NewService(db, cfg, ledgerService),
		ledger:  ledgerService,
	}
}

func (env *testEnv) seedItem(t *testing.T, code string, itemType item.ItemType) uint {
	t.Helper()
	it := item.Item{Code: code, Name: "Item " + code, Unit: "pcs", Type: itemType, IsActive: true}
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

func (env *testEnv) balance(t *testing.T, itemID, locationID uint) decimal.Decimal {
	t.Helper()
	balance, err := env.ledger.CurrentBalance(env.db, itemID, locationID)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, env.db.Model(&ledger.StockLedgerEntry{}).Count(&count).Error)
	return count
}

func TestComputeOutputQuantity(t *testing.T) {
	tests := []struct {
		name      string
		sourceQty string
		param     string
		want      string
		wantErr   bool
	}{
		{name: "exact division", sourceQty: "100", param: "10", want: "10"},
		{name: "remainder floors", sourceQty: "105", param: "10", want: "10"},
		{name: "source too small", sourceQty: "5", param: "10", wantErr: true},
		{name: "zero parameter", sourceQty: "100", param: "0", wantErr: true},
		{name: "negative parameter", sourceQty: "100", param: "-3", wantErr: true},
		{name: "fractional parameter", sourceQty: "10", param: "2.5", want: "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := computeOutputQuantity(
				decimal.RequireFromString(tt.sourceQty),
				decimal.RequireFromString(tt.param),
			)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestCreateBundle(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")

	bundle, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "BN000001", bundle.Code)
	assert.True(t, bundle.OutputQuantity.Equal(decimal.RequireFromString("10")))

	// Source drained, output credited
	assert.True(t, env.balance(t, source, loc).IsZero())
	assert.True(t, env.balance(t, output, loc).Equal(decimal.RequireFromString("10")))

	// One out entry, one in entry, both tagged with the bundle
	var entries []ledger.StockLedgerEntry
	require.NoError(t, env.db.Where("reference_id = ?", bundle.ID).Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.TxTypeBundleOut, entries[0].TransactionType)
	assert.True(t, entries[0].QuantityOut.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, ledger.TxTypeBundleIn, entries[1].TransactionType)
	assert.True(t, entries[1].QuantityIn.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, bundle.Code, entries[0].ReferenceNo)
}

func TestCreateBundleWithMaterials(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	wrap := env.seedItem(t, "WR001", item.ItemTypeRaw)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")
	env.seedStock(t, wrap, loc, "20")

	bundle, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
		Materials:      []MaterialInput{{ItemID: wrap, Quantity: decimal.RequireFromString("10")}},
	}, 1)
	require.NoError(t, err)

	assert.True(t, env.balance(t, wrap, loc).Equal(decimal.RequireFromString("10")))

	var materials []BundleMaterial
	require.NoError(t, env.db.Where("bundle_id = ?", bundle.ID).Find(&materials).Error)
	require.Len(t, materials, 1)
	assert.Equal(t, wrap, materials[0].ItemID)
}

func TestCreateBundleSourceTooSmall(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")

	_, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("5"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")

	var count int64
	env.db.Model(&Bundle{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, int64(1), env.ledgerCount(t), "only the seed entry may exist")
}

func TestCreateBundleInsufficientSourceStock(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "50")

	_, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, source, stockErr.ItemID)

	var count int64
	env.db.Model(&Bundle{}).Count(&count)
	assert.Zero(t, count, "failed bundle must not persist")
	assert.Equal(t, int64(1), env.ledgerCount(t))
}

func TestCreateBundleMaterialShortfallNamesMaterial(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	wrap := env.seedItem(t, "WR001", item.ItemTypeRaw)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")
	env.seedStock(t, wrap, loc, "2")

	_, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
		Materials:      []MaterialInput{{ItemID: wrap, Quantity: decimal.RequireFromString("10")}},
	}, 1)
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Item WR001", stockErr.ItemName, "error must name the failing material")

	// Nothing written, source untouched
	assert.Equal(t, int64(2), env.ledgerCount(t))
	assert.True(t, env.balance(t, source, loc).Equal(decimal.RequireFromString("100")))
}

func TestCreateBundleRejectsNonFinishedRoles(t *testing.T) {
	env := setupTestEnv(t)
	raw := env.seedItem(t, "RW001", item.ItemTypeRaw)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")

	_, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   raw,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished")
}

func TestCreateBundleRejectsFinishedMaterial(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	finished := env.seedItem(t, "FN001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")

	_, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
		Materials:      []MaterialInput{{ItemID: finished, Quantity: decimal.RequireFromString("1")}},
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "material")
}

func TestBundleCodeSequence(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "1000")

	// Pre-existing record with a higher code; the next one continues from it
	require.NoError(t, env.db.Create(&Bundle{
		Code: "BN000042", SourceItemID: source, OutputItemID: output, LocationID: loc,
		SourceQuantity: decimal.RequireFromString("1"), OutputQuantity: decimal.RequireFromString("1"),
		PacksPerBundle: decimal.RequireFromString("1"),
	}).Error)

	bundle, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("10"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, "BN000043", bundle.Code)
}

func TestDeleteBundleReversesLedger(t *testing.T) {
	env := setupTestEnv(t)
	source := env.seedItem(t, "PK001", item.ItemTypeFinished)
	output := env.seedItem(t, "BD001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, source, loc, "100")

	bundle, err := env.service.CreateBundle(&CreateBundleRequest{
		SourceItemID:   source,
		SourceQuantity: decimal.RequireFromString("100"),
		OutputItemID:   output,
		PacksPerBundle: decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteBundle(bundle.ID))

	var count int64
	env.db.Model(&ledger.StockLedgerEntry{}).Where("reference_id = ?", bundle.ID).Count(&count)
	assert.Zero(t, count, "bundle entries must be gone")

	env.db.Model(&Bundle{}).Count(&count)
	assert.Zero(t, count)

	_, err = env.service.GetBundle(bundle.ID)
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

func TestDeleteBundleNotFound(t *testing.T) {
	env := setupTestEnv(t)
	assert.ErrorIs(t, env.service.DeleteBundle(999), ErrBundleNotFound)
}

func TestCreateRepack(t *testing.T) {
	env := setupTestEnv(t)
	bulk := env.seedItem(t, "BL001", item.ItemTypeFinished)
	pack := env.seedItem(t, "PK001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, bulk, loc, "55")

	repack, err := env.service.CreateRepack(&CreateRepackRequest{
		SourceItemID:   bulk,
		SourceQuantity: decimal.RequireFromString("55"),
		OutputItemID:   pack,
		UnitsPerPack:   decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "RP000001", repack.Code)
	assert.True(t, repack.OutputQuantity.Equal(decimal.RequireFromString("5")), "55/10 floors to 5")
	assert.True(t, env.balance(t, bulk, loc).IsZero())
	assert.True(t, env.balance(t, pack, loc).Equal(decimal.RequireFromString("5")))
}

func TestDeleteRepackReversesLedger(t *testing.T) {
	env := setupTestEnv(t)
	bulk := env.seedItem(t, "BL001", item.ItemTypeFinished)
	pack := env.seedItem(t, "PK001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Main")
	env.seedStock(t, bulk, loc, "50")

	repack, err := env.service.CreateRepack(&CreateRepackRequest{
		SourceItemID:   bulk,
		SourceQuantity: decimal.RequireFromString("50"),
		OutputItemID:   pack,
		UnitsPerPack:   decimal.RequireFromString("10"),
		LocationID:     loc,
	}, 1)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteRepack(repack.ID))

	var count int64
	env.db.Model(&ledger.StockLedgerEntry{}).Where("reference_id = ?", repack.ID).Count(&count)
	assert.Zero(t, count)
}

func TestRollsBatchLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	rolls := env.seedItem(t, "RL001", item.ItemTypeFinished)
	paper := env.seedItem(t, "PP001", item.ItemTypeRaw)
	core := env.seedItem(t, "CR001", item.ItemTypeSemiFinished)
	loc := env.seedLocation(t, "Production")
	env.seedStock(t, paper, loc, "200")
	env.seedStock(t, core, loc, "40")

	batch, err := env.service.CreateRollsBatch(&CreateRollsBatchRequest{
		OutputItemID: rolls,
		LocationID:   loc,
		Materials: []MaterialInput{
			{ItemID: paper, Quantity: decimal.RequireFromString("150")},
			{ItemID: core, Quantity: decimal.RequireFromString("30")},
		},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "RL000001", batch.Code)
	assert.Equal(t, RollsStatusPending, batch.Status)

	// Materials consumed at creation
	assert.True(t, env.balance(t, paper, loc).Equal(decimal.RequireFromString("50")))
	assert.True(t, env.balance(t, core, loc).Equal(decimal.RequireFromString("10")))

	entryCountBefore := env.ledgerCount(t)

	started, err := env.service.StartRollsBatch(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, RollsStatusStarted, started.Status)
	assert.NotNil(t, started.StartedAt)

	completed, err := env.service.CompleteRollsBatch(batch.ID, decimal.RequireFromString("95"))
	require.NoError(t, err)
	assert.Equal(t, RollsStatusCompleted, completed.Status)
	assert.True(t, completed.ProducedQuantity.Equal(decimal.RequireFromString("95")))
	assert.NotNil(t, completed.CompletedAt)

	// Start and complete touch no ledger rows
	assert.Equal(t, entryCountBefore, env.ledgerCount(t))
}

func TestRollsBatchInvalidTransitions(t *testing.T) {
	env := setupTestEnv(t)
	rolls := env.seedItem(t, "RL001", item.ItemTypeFinished)
	paper := env.seedItem(t, "PP001", item.ItemTypeRaw)
	loc := env.seedLocation(t, "Production")
	env.seedStock(t, paper, loc, "100")

	batch, err := env.service.CreateRollsBatch(&CreateRollsBatchRequest{
		OutputItemID: rolls,
		LocationID:   loc,
		Materials:    []MaterialInput{{ItemID: paper, Quantity: decimal.RequireFromString("50")}},
	}, 1)
	require.NoError(t, err)

	// Cannot complete a pending batch
	_, err = env.service.CompleteRollsBatch(batch.ID, decimal.RequireFromString("10"))
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "complete", stateErr.Action)

	_, err = env.service.StartRollsBatch(batch.ID)
	require.NoError(t, err)

	// Cannot start twice
	_, err = env.service.StartRollsBatch(batch.ID)
	require.ErrorAs(t, err, &stateErr)

	// Cannot delete once started
	err = env.service.DeleteRollsBatch(batch.ID)
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "delete", stateErr.Action)
}

func TestCompleteRollsBatchRejectsNonPositiveQuantity(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.service.CompleteRollsBatch(1, decimal.Zero)
	assert.Error(t, err)
}

func TestCreateRollsBatchRequiresMaterials(t *testing.T) {
	env := setupTestEnv(t)
	rolls := env.seedItem(t, "RL001", item.ItemTypeFinished)
	loc := env.seedLocation(t, "Production")

	_, err := env.service.CreateRollsBatch(&CreateRollsBatchRequest{
		OutputItemID: rolls,
		LocationID:   loc,
	}, 1)
	assert.Error(t, err)
}

func TestDeleteRollsBatchRestoresMaterials(t *testing.T) {
	env := setupTestEnv(t)
	rolls := env.seedItem(t, "RL001", item.ItemTypeFinished)
	paper := env.seedItem(t, "PP001", item.ItemTypeRaw)
	loc := env.seedLocation(t, "Production")
	env.seedStock(t, paper, loc, "100")

	batch, err := env.service.CreateRollsBatch(&CreateRollsBatchRequest{
		OutputItemID: rolls,
		LocationID:   loc,
		Materials:    []MaterialInput{{ItemID: paper, Quantity: decimal.RequireFromString("60")}},
	}, 1)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteRollsBatch(batch.ID))

	var count int64
	env.db.Model(&ledger.StockLedgerEntry{}).Where("reference_id = ?", batch.ID).Count(&count)
	assert.Zero(t, count, "material consumption must be reversed")

	env.db.Model(&RollsMaterial{}).Count(&count)
	assert.Zero(t, count)
}
