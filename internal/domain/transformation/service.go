// internal/domain/transformation/service.go
package transformation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/pkg/codes"
	"gorm.io/gorm"
)

// Service implements the shared stock-transformation protocol: validate
// stock for a source item and auxiliary materials, compute the derived
// output quantity, and atomically write the paired out/in ledger entries.
// Bundling, repacking and rolls production are thin variants over it,
// differing only in their record type, code prefix and transaction tags.
type Service struct {
	db     *gorm.DB
	config *config.Config
	ledger *ledger.Service
}

// NewService creates a new transformation service
func NewService(db *gorm.DB, cfg *config.Config, ledgerService *ledger.Service) *Service {
	return &Service{
		db:     db,
		config: cfg,
		ledger: ledgerService,
	}
}

// MaterialInput is one auxiliary material line of a transformation request
type MaterialInput struct {
	ItemID   uint            `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// CreateBundleRequest represents bundle creation data
type CreateBundleRequest struct {
	Date           time.Time       `json:"date"`
	SourceItemID   uint            `json:"source_item_id" binding:"required"`
	SourceQuantity decimal.Decimal `json:"source_quantity" binding:"required"`
	OutputItemID   uint            `json:"output_item_id" binding:"required"`
	PacksPerBundle decimal.Decimal `json:"packs_per_bundle" binding:"required"`
	LocationID     uint            `json:"location_id" binding:"required"`
	Notes          string          `json:"notes,omitempty"`
	Materials      []MaterialInput `json:"materials,omitempty"`
}

// CreateRepackRequest represents repack creation data
type CreateRepackRequest struct {
	Date           time.Time       `json:"date"`
	SourceItemID   uint            `json:"source_item_id" binding:"required"`
	SourceQuantity decimal.Decimal `json:"source_quantity" binding:"required"`
	OutputItemID   uint            `json:"output_item_id" binding:"required"`
	UnitsPerPack   decimal.Decimal `json:"units_per_pack" binding:"required"`
	LocationID     uint            `json:"location_id" binding:"required"`
	Notes          string          `json:"notes,omitempty"`
	Materials      []MaterialInput `json:"materials,omitempty"`
}

// CreateRollsBatchRequest represents rolls batch creation data. Materials are
// consumed up front; the produced quantity is recorded at completion.
type CreateRollsBatchRequest struct {
	Date         time.Time       `json:"date"`
	OutputItemID uint            `json:"output_item_id" binding:"required"`
	LocationID   uint            `json:"location_id" binding:"required"`
	Notes        string          `json:"notes,omitempty"`
	Materials    []MaterialInput `json:"materials" binding:"required"`
}

// stockEffect describes the ledger side of one transformation: which item is
// consumed, which is produced, which materials go out, and how the entries
// are tagged. A zero source/output item id means that leg is absent (rolls
// batches consume materials only).
type stockEffect struct {
	sourceItemID   uint
	sourceQuantity decimal.Decimal
	outputItemID   uint
	outputQuantity decimal.Decimal
	materials      []MaterialInput
	locationID     uint
	outType        ledger.TransactionType
	inType         ledger.TransactionType
	referenceID    uint
	referenceNo    string
	date           time.Time
	userID         uint
}

// CONVERSION

// computeOutputQuantity applies the conversion rule: the output is the floor
// of sourceQty / conversionParam. A non-positive parameter or a zero output
// is rejected before any write happens.
func computeOutputQuantity(sourceQty, conversionParam decimal.Decimal) (decimal.Decimal, error) {
	if !conversionParam.IsPositive() {
		return decimal.Zero, fmt.Errorf("conversion parameter must be positive, got %s", conversionParam.String())
	}

	output := sourceQty.Div(conversionParam).Floor()
	if !output.IsPositive() {
		return decimal.Zero, fmt.Errorf("source quantity %s is too small for conversion parameter %s",
			sourceQty.String(), conversionParam.String())
	}
	return output, nil
}

// STOCK EFFECT

// applyStockEffect runs the stock phase of the protocol on the caller's
// transaction: lock every involved item (ascending id, to keep concurrent
// transformations deadlock-free), verify availability at the pinned location
// for the source and each material, then append the out/in entries.
func (s *Service) applyStockEffect(tx *gorm.DB, eff *stockEffect) error {
	itemIDs := eff.itemIDs()
	for _, id := range itemIDs {
		if err := s.ledger.LockItem(tx, id); err != nil {
			return err
		}
	}

	names, err := s.itemNames(tx, itemIDs)
	if err != nil {
		return err
	}

	if eff.sourceItemID != 0 {
		if err := s.ledger.CheckAvailable(tx, eff.sourceItemID, eff.locationID, eff.sourceQuantity); err != nil {
			return nameStockError(err, names[eff.sourceItemID])
		}
	}
	for _, m := range eff.materials {
		if !m.Quantity.IsPositive() {
			return fmt.Errorf("material quantity must be positive, got %s", m.Quantity.String())
		}
		if err := s.ledger.CheckAvailable(tx, m.ItemID, eff.locationID, m.Quantity); err != nil {
			return nameStockError(err, names[m.ItemID])
		}
	}

	if eff.sourceItemID != 0 {
		err := s.ledger.Append(tx, &ledger.StockLedgerEntry{
			ItemID:          eff.sourceItemID,
			LocationID:      eff.locationID,
			TransactionType: eff.outType,
			ReferenceID:     eff.referenceID,
			ReferenceNo:     eff.referenceNo,
			TransactionDate: eff.date,
			QuantityOut:     eff.sourceQuantity,
			CreatedBy:       eff.userID,
		})
		if err != nil {
			return err
		}
	}

	if eff.outputItemID != 0 {
		err := s.ledger.Append(tx, &ledger.StockLedgerEntry{
			ItemID:          eff.outputItemID,
			LocationID:      eff.locationID,
			TransactionType: eff.inType,
			ReferenceID:     eff.referenceID,
			ReferenceNo:     eff.referenceNo,
			TransactionDate: eff.date,
			QuantityIn:      eff.outputQuantity,
			CreatedBy:       eff.userID,
		})
		if err != nil {
			return err
		}
	}

	for _, m := range eff.materials {
		err := s.ledger.Append(tx, &ledger.StockLedgerEntry{
			ItemID:          m.ItemID,
			LocationID:      eff.locationID,
			TransactionType: eff.outType,
			ReferenceID:     eff.referenceID,
			ReferenceNo:     eff.referenceNo,
			TransactionDate: eff.date,
			QuantityOut:     m.Quantity,
			CreatedBy:       eff.userID,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// itemIDs returns the unique item ids touched by the effect, ascending
func (eff *stockEffect) itemIDs() []uint {
	seen := map[uint]bool{}
	var ids []uint
	add := func(id uint) {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(eff.sourceItemID)
	add(eff.outputItemID)
	for _, m := range eff.materials {
		add(m.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) itemNames(tx *gorm.DB, ids []uint) (map[uint]string, error) {
	var items []item.Item
	if err := tx.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	names := make(map[uint]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}
	return names, nil
}

// nameStockError fills the item name into an insufficient-stock error so the
// failure names the specific item or material
func nameStockError(err error, name string) error {
	var ise *ledger.InsufficientStockError
	if errors.As(err, &ise) && name != "" {
		ise.ItemName = name
	}
	return err
}

// validateRoles checks that items are allowed to play their transformation
// roles: bundling/repacking source and output must be finished goods,
// materials must be raw or semi-finished.
func (s *Service) validateRoles(tx *gorm.DB, sourceID, outputID uint, materials []MaterialInput, finishedOnly bool) error {
	check := func(id uint, role string, pred func(*item.Item) bool, want string) error {
		var it item.Item
		if err := tx.First(&it, id).Error; err != nil {
			return fmt.Errorf("%s item %d not found", role, id)
		}
		if pred != nil && !pred(&it) {
			return fmt.Errorf("%s item '%s' must be a %s item, got type '%s'", role, it.Name, want, it.Type)
		}
		return nil
	}

	var finished func(*item.Item) bool
	if finishedOnly {
		finished = (*item.Item).IsFinished
	}
	if sourceID != 0 {
		if err := check(sourceID, "source", finished, "finished"); err != nil {
			return err
		}
	}
	if outputID != 0 {
		if err := check(outputID, "output", finished, "finished"); err != nil {
			return err
		}
	}
	for _, m := range materials {
		if err := check(m.ItemID, "material", (*item.Item).IsMaterial, "raw or semi-finished"); err != nil {
			return err
		}
	}
	return nil
}

// BUNDLING

// CreateBundle packs loose packs into bundles: consume source packs at the
// declared location, produce floor(sourceQty / packsPerBundle) bundles, all
// in one transaction.
func (s *Service) CreateBundle(req *CreateBundleRequest, userID uint) (*Bundle, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	code, err := codes.Next(tx, "bundles", "code", BundleCodePrefix)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	outputQty, err := computeOutputQuantity(req.SourceQuantity, req.PacksPerBundle)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.validateRoles(tx, req.SourceItemID, req.OutputItemID, req.Materials, true); err != nil {
		tx.Rollback()
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	bundle := &Bundle{
		Code:           code,
		Date:           date,
		SourceItemID:   req.SourceItemID,
		SourceQuantity: req.SourceQuantity,
		OutputItemID:   req.OutputItemID,
		OutputQuantity: outputQty,
		PacksPerBundle: req.PacksPerBundle,
		LocationID:     req.LocationID,
		Notes:          req.Notes,
		CreatedBy:      userID,
	}
	if err := tx.Create(bundle).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	for _, m := range req.Materials {
		material := BundleMaterial{BundleID: bundle.ID, ItemID: m.ItemID, Quantity: m.Quantity}
		if err := tx.Create(&material).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create bundle material: %w", err)
		}
	}

	eff := &stockEffect{
		sourceItemID:   req.SourceItemID,
		sourceQuantity: req.SourceQuantity,
		outputItemID:   req.OutputItemID,
		outputQuantity: outputQty,
		materials:      req.Materials,
		locationID:     req.LocationID,
		outType:        ledger.TxTypeBundleOut,
		inType:         ledger.TxTypeBundleIn,
		referenceID:    bundle.ID,
		referenceNo:    bundle.Code,
		date:           date,
		userID:         userID,
	}
	if err := s.applyStockEffect(tx, eff); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit bundle: %w", err)
	}

	s.ledger.InvalidateStockCache(eff.itemIDs()...)
	return bundle, nil
}

// GetBundle retrieves a bundle with its materials
func (s *Service) GetBundle(id uint) (*Bundle, error) {
	var bundle Bundle
	err := s.db.Preload("SourceItem").Preload("OutputItem").Preload("Location").
		Preload("Materials.Item").
		First(&bundle, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBundleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve bundle: %w", err)
	}
	return &bundle, nil
}

// GetBundles retrieves bundles, newest first
func (s *Service) GetBundles(limit int) ([]Bundle, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var bundles []Bundle
	err := s.db.Preload("SourceItem").Preload("OutputItem").Preload("Location").
		Order("id DESC").Limit(limit).Find(&bundles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve bundles: %w", err)
	}
	return bundles, nil
}

// DeleteBundle reverses the bundle's ledger effect and removes the record
// and its materials in one transaction
func (s *Service) DeleteBundle(id uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var bundle Bundle
	if err := tx.Preload("Materials").First(&bundle, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBundleNotFound
		}
		return fmt.Errorf("failed to load bundle: %w", err)
	}

	if err := s.ledger.ReverseByReference(tx, bundle.ID, ledger.TxTypeBundleIn, ledger.TxTypeBundleOut); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("bundle_id = ?", bundle.ID).Delete(&BundleMaterial{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete bundle materials: %w", err)
	}
	if err := tx.Delete(&bundle).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete bundle: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit bundle deletion: %w", err)
	}

	ids := []uint{bundle.SourceItemID, bundle.OutputItemID}
	for _, m := range bundle.Materials {
		ids = append(ids, m.ItemID)
	}
	s.ledger.InvalidateStockCache(ids...)
	return nil
}

// REPACKING

// CreateRepack breaks bulk stock into smaller packs: consume source units,
// produce floor(sourceQty / unitsPerPack) packs, all in one transaction.
func (s *Service) CreateRepack(req *CreateRepackRequest, userID uint) (*Repack, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	code, err := codes.Next(tx, "repacks", "code", RepackCodePrefix)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	outputQty, err := computeOutputQuantity(req.SourceQuantity, req.UnitsPerPack)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.validateRoles(tx, req.SourceItemID, req.OutputItemID, req.Materials, true); err != nil {
		tx.Rollback()
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	repack := &Repack{
		Code:           code,
		Date:           date,
		SourceItemID:   req.SourceItemID,
		SourceQuantity: req.SourceQuantity,
		OutputItemID:   req.OutputItemID,
		OutputQuantity: outputQty,
		UnitsPerPack:   req.UnitsPerPack,
		LocationID:     req.LocationID,
		Notes:          req.Notes,
		CreatedBy:      userID,
	}
	if err := tx.Create(repack).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create repack: %w", err)
	}

	for _, m := range req.Materials {
		material := RepackMaterial{RepackID: repack.ID, ItemID: m.ItemID, Quantity: m.Quantity}
		if err := tx.Create(&material).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create repack material: %w", err)
		}
	}

	eff := &stockEffect{
		sourceItemID:   req.SourceItemID,
		sourceQuantity: req.SourceQuantity,
		outputItemID:   req.OutputItemID,
		outputQuantity: outputQty,
		materials:      req.Materials,
		locationID:     req.LocationID,
		outType:        ledger.TxTypeRepackOut,
		inType:         ledger.TxTypeRepackIn,
		referenceID:    repack.ID,
		referenceNo:    repack.Code,
		date:           date,
		userID:         userID,
	}
	if err := s.applyStockEffect(tx, eff); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit repack: %w", err)
	}

	s.ledger.InvalidateStockCache(eff.itemIDs()...)
	return repack, nil
}

// GetRepack retrieves a repack with its materials
func (s *Service) GetRepack(id uint) (*Repack, error) {
	var repack Repack
	err := s.db.Preload("SourceItem").Preload("OutputItem").Preload("Location").
		Preload("Materials.Item").
		First(&repack, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRepackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve repack: %w", err)
	}
	return &repack, nil
}

// GetRepacks retrieves repacks, newest first
func (s *Service) GetRepacks(limit int) ([]Repack, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var repacks []Repack
	err := s.db.Preload("SourceItem").Preload("OutputItem").Preload("Location").
		Order("id DESC").Limit(limit).Find(&repacks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve repacks: %w", err)
	}
	return repacks, nil
}

// DeleteRepack reverses the repack's ledger effect and removes the record
// and its materials in one transaction
func (s *Service) DeleteRepack(id uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var repack Repack
	if err := tx.Preload("Materials").First(&repack, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRepackNotFound
		}
		return fmt.Errorf("failed to load repack: %w", err)
	}

	if err := s.ledger.ReverseByReference(tx, repack.ID, ledger.TxTypeRepackIn, ledger.TxTypeRepackOut); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("repack_id = ?", repack.ID).Delete(&RepackMaterial{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete repack materials: %w", err)
	}
	if err := tx.Delete(&repack).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete repack: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit repack deletion: %w", err)
	}

	ids := []uint{repack.SourceItemID, repack.OutputItemID}
	for _, m := range repack.Materials {
		ids = append(ids, m.ItemID)
	}
	s.ledger.InvalidateStockCache(ids...)
	return nil
}

// ROLLS PRODUCTION

// CreateRollsBatch opens a production batch: materials are validated and
// consumed immediately, the produced quantity is unknown until completion.
// The batch starts in status pending.
func (s *Service) CreateRollsBatch(req *CreateRollsBatchRequest, userID uint) (*RollsBatch, error) {
	if len(req.Materials) == 0 {
		return nil, fmt.Errorf("rolls batch requires at least one material")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	code, err := codes.Next(tx, "rolls_batches", "code", RollsCodePrefix)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.validateRoles(tx, 0, req.OutputItemID, req.Materials, false); err != nil {
		tx.Rollback()
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	batch := &RollsBatch{
		Code:         code,
		Date:         date,
		OutputItemID: req.OutputItemID,
		Status:       RollsStatusPending,
		LocationID:   req.LocationID,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}
	if err := tx.Create(batch).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create rolls batch: %w", err)
	}

	for _, m := range req.Materials {
		material := RollsMaterial{RollsBatchID: batch.ID, ItemID: m.ItemID, Quantity: m.Quantity}
		if err := tx.Create(&material).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create rolls material: %w", err)
		}
	}

	eff := &stockEffect{
		materials:   req.Materials,
		locationID:  req.LocationID,
		outType:     ledger.TxTypeRollsOut,
		referenceID: batch.ID,
		referenceNo: batch.Code,
		date:        date,
		userID:      userID,
	}
	if err := s.applyStockEffect(tx, eff); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit rolls batch: %w", err)
	}

	s.ledger.InvalidateStockCache(eff.itemIDs()...)
	return batch, nil
}

// StartRollsBatch marks production as underway. Only pending batches can be
// started; the ledger is untouched, materials were consumed at creation.
func (s *Service) StartRollsBatch(id uint) (*RollsBatch, error) {
	var batch RollsBatch
	if err := s.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to load rolls batch: %w", err)
	}

	if batch.Status != RollsStatusPending {
		return nil, &InvalidStateError{BatchID: batch.ID, Status: batch.Status, Action: "start"}
	}

	now := time.Now().UTC()
	batch.Status = RollsStatusStarted
	batch.StartedAt = &now
	if err := s.db.Model(&batch).Updates(map[string]interface{}{
		"status":     RollsStatusStarted,
		"started_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to start rolls batch: %w", err)
	}
	return &batch, nil
}

// CompleteRollsBatch records the produced quantity and closes the batch.
// Only started batches can be completed. No ledger entry is written: the
// produced rolls are not placed into a tracked balance.
func (s *Service) CompleteRollsBatch(id uint, producedQty decimal.Decimal) (*RollsBatch, error) {
	if !producedQty.IsPositive() {
		return nil, fmt.Errorf("produced quantity must be positive, got %s", producedQty.String())
	}

	var batch RollsBatch
	if err := s.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to load rolls batch: %w", err)
	}

	if batch.Status != RollsStatusStarted {
		return nil, &InvalidStateError{BatchID: batch.ID, Status: batch.Status, Action: "complete"}
	}

	now := time.Now().UTC()
	batch.Status = RollsStatusCompleted
	batch.ProducedQuantity = producedQty
	batch.CompletedAt = &now
	if err := s.db.Model(&batch).Updates(map[string]interface{}{
		"status":            RollsStatusCompleted,
		"produced_quantity": producedQty,
		"completed_at":      now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to complete rolls batch: %w", err)
	}
	return &batch, nil
}

// GetRollsBatch retrieves a rolls batch with its materials
func (s *Service) GetRollsBatch(id uint) (*RollsBatch, error) {
	var batch RollsBatch
	err := s.db.Preload("OutputItem").Preload("Location").Preload("Materials.Item").
		First(&batch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve rolls batch: %w", err)
	}
	return &batch, nil
}

// GetRollsBatches retrieves rolls batches, newest first, optionally filtered
// by status
func (s *Service) GetRollsBatches(status RollsStatus, limit int) ([]RollsBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.db.Preload("OutputItem").Preload("Location")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var batches []RollsBatch
	if err := query.Order("id DESC").Limit(limit).Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve rolls batches: %w", err)
	}
	return batches, nil
}

// DeleteRollsBatch deletes a pending batch, reversing its material
// consumption. Started and completed batches are not deletable.
func (s *Service) DeleteRollsBatch(id uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var batch RollsBatch
	if err := tx.Preload("Materials").First(&batch, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		return fmt.Errorf("failed to load rolls batch: %w", err)
	}

	if batch.Status != RollsStatusPending {
		tx.Rollback()
		return &InvalidStateError{BatchID: batch.ID, Status: batch.Status, Action: "delete"}
	}

	if err := s.ledger.ReverseByReference(tx, batch.ID, ledger.TxTypeRollsOut); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("rolls_batch_id = ?", batch.ID).Delete(&RollsMaterial{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete rolls materials: %w", err)
	}
	if err := tx.Delete(&batch).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete rolls batch: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit rolls batch deletion: %w", err)
	}

	ids := make([]uint, 0, len(batch.Materials))
	for _, m := range batch.Materials {
		ids = append(ids, m.ItemID)
	}
	s.ledger.InvalidateStockCache(ids...)
	return nil
}
