// internal/domain/ledger/service.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/item"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles the stock ledger: balance resolution, allocation across
// locations, appends and reversals. Every multi-step mutation runs inside a
// caller-provided gorm transaction so a failure anywhere rolls back the
// whole operation.
type Service struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client // optional, used for cached stock totals
}

// NewService creates a new ledger service. redisClient may be nil; cached
// total lookups then fall through to the database.
func NewService(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *Service {
	return &Service{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
}

// ManualStockRequest represents a manual stock entry
type ManualStockRequest struct {
	ItemID          uint            `json:"item_id" binding:"required"`
	LocationID      uint            `json:"location_id" binding:"required"`
	Direction       string          `json:"direction" binding:"required"` // "in" or "out"
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	ReferenceNo     string          `json:"reference_no,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// LOCKING

// LockItem takes a row lock on the item, serializing balance computation for
// it. The balance stored on each ledger entry is computed client-side from a
// prior read, so the lock must be held from the first balance read to the
// commit; callers lock before any CurrentBalance/Allocate call and Append
// re-locks defensively. Multi-item writers must lock items in ascending id
// order.
func (s *Service) LockItem(tx *gorm.DB, itemID uint) error {
	query := tx.Select("id").Where("id = ?", itemID)
	// sqlite has no SELECT ... FOR UPDATE; its single-writer lock serializes
	// writes at the database level instead
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var locked item.Item
	if err := query.First(&locked).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %d not found", itemID)
		}
		return fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}
	return nil
}

// BALANCE RESOLVER

// CurrentBalance returns the running balance for (item, location): the
// Balance of the highest-id ledger entry for the pair, or zero if none
// exists. Must be called on the same transaction that will write the next
// entry, with the item lock held.
func (s *Service) CurrentBalance(tx *gorm.DB, itemID, locationID uint) (decimal.Decimal, error) {
	var entry StockLedgerEntry
	err := tx.Where("item_id = ? AND location_id = ?", itemID, locationID).
		Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read current balance: %w", err)
	}
	return entry.Balance, nil
}

// LocationBalances returns the current balance of the item at every location
// that has ledger entries, ordered by balance descending then location id
// ascending. The secondary sort keeps allocation deterministic when balances
// tie.
func (s *Service) LocationBalances(tx *gorm.DB, itemID uint) ([]LocationBalance, error) {
	var balances []LocationBalance
	err := tx.Raw(`
		SELECT e.location_id, e.balance
		FROM stock_ledger e
		JOIN (
			SELECT location_id, MAX(id) AS max_id
			FROM stock_ledger
			WHERE item_id = ?
			GROUP BY location_id
		) latest ON e.id = latest.max_id`, itemID).
		Scan(&balances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read location balances: %w", err)
	}

	sort.Slice(balances, func(i, j int) bool {
		if !balances[i].Balance.Equal(balances[j].Balance) {
			return balances[i].Balance.GreaterThan(balances[j].Balance)
		}
		return balances[i].LocationID < balances[j].LocationID
	})

	return balances, nil
}

// TotalBalance returns the item's balance summed across all locations.
// Non-positive location balances are skipped so the total always matches
// what Allocate can actually draw; a stale negative balance at one location
// must not mask stock that is really available elsewhere.
func (s *Service) TotalBalance(tx *gorm.DB, itemID uint) (decimal.Decimal, error) {
	balances, err := s.LocationBalances(tx, itemID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, b := range balances {
		if b.Balance.IsPositive() {
			total = total.Add(b.Balance)
		}
	}
	return total, nil
}

// SumByType aggregates quantity_in - quantity_out over entries of the given
// transaction types. This is a reporting view over one movement category; it
// is NOT the authoritative current balance and must never be used as an
// inventory-control check.
func (s *Service) SumByType(itemID uint, types ...TransactionType) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.Model(&StockLedgerEntry{}).
		Where("item_id = ? AND transaction_type IN ?", itemID, types).
		Select("COALESCE(SUM(quantity_in - quantity_out), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	return sum, nil
}

// ALLOCATION ENGINE

// CheckAvailable verifies that the item's balance at the pinned location
// covers the requested quantity. Used by transformations, which operate on
// one declared location.
func (s *Service) CheckAvailable(tx *gorm.DB, itemID, locationID uint, quantity decimal.Decimal) error {
	available, err := s.CurrentBalance(tx, itemID, locationID)
	if err != nil {
		return err
	}
	if available.LessThan(quantity) {
		return &InsufficientStockError{
			ItemID:     itemID,
			LocationID: locationID,
			Available:  available,
			Requested:  quantity,
		}
	}
	return nil
}

// Allocate splits a required quantity across locations when no location is
// pinned. Locations are drained greedily in descending-balance order (ties
// by location id ascending) until the requirement is met. The item's total
// balance is checked up front so a shortfall fails once, with the totals,
// rather than location by location.
func (s *Service) Allocate(tx *gorm.DB, itemID uint, quantity decimal.Decimal) ([]Allocation, error) {
	balances, err := s.LocationBalances(tx, itemID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, b := range balances {
		if b.Balance.IsPositive() {
			total = total.Add(b.Balance)
		}
	}
	if total.LessThan(quantity) {
		return nil, &InsufficientStockError{
			ItemID:    itemID,
			Available: total,
			Requested: quantity,
		}
	}

	var allocations []Allocation
	remaining := quantity
	for _, b := range balances {
		if remaining.IsZero() {
			break
		}
		if !b.Balance.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, b.Balance)
		allocations = append(allocations, Allocation{
			LocationID: b.LocationID,
			Quantity:   take,
		})
		remaining = remaining.Sub(take)
	}

	return allocations, nil
}

// LEDGER WRITES

// Append computes the next running balance for the entry's (item, location)
// pair and inserts the entry. Exactly one of QuantityIn/QuantityOut must be
// non-zero; the running-balance invariant depends on it.
func (s *Service) Append(tx *gorm.DB, entry *StockLedgerEntry) error {
	inSet := !entry.QuantityIn.IsZero()
	outSet := !entry.QuantityOut.IsZero()
	if inSet == outSet {
		return fmt.Errorf("ledger entry must set exactly one of quantity_in or quantity_out")
	}
	if entry.QuantityIn.IsNegative() || entry.QuantityOut.IsNegative() {
		return fmt.Errorf("ledger quantities must be positive")
	}

	if err := s.LockItem(tx, entry.ItemID); err != nil {
		return err
	}

	previous, err := s.CurrentBalance(tx, entry.ItemID, entry.LocationID)
	if err != nil {
		return err
	}
	entry.Balance = previous.Add(entry.QuantityIn).Sub(entry.QuantityOut)

	if entry.TransactionDate.IsZero() {
		entry.TransactionDate = time.Now().UTC()
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// RecordManualStock writes a single manual in/out movement in its own
// transaction
func (s *Service) RecordManualStock(req *ManualStockRequest, userID uint) (*StockLedgerEntry, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", req.Quantity.String())
	}
	if req.Direction != "in" && req.Direction != "out" {
		return nil, fmt.Errorf("invalid direction: %s", req.Direction)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.LockItem(tx, req.ItemID); err != nil {
		tx.Rollback()
		return nil, err
	}

	entry := &StockLedgerEntry{
		ItemID:          req.ItemID,
		LocationID:      req.LocationID,
		TransactionType: TxTypeManualStock,
		ReferenceNo:     req.ReferenceNo,
		TransactionDate: req.TransactionDate,
		CreatedBy:       userID,
	}

	if req.Direction == "in" {
		entry.QuantityIn = req.Quantity
	} else {
		if err := s.CheckAvailable(tx, req.ItemID, req.LocationID, req.Quantity); err != nil {
			tx.Rollback()
			return nil, err
		}
		entry.QuantityOut = req.Quantity
	}

	if err := s.Append(tx, entry); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit manual stock entry: %w", err)
	}

	s.InvalidateStockCache(req.ItemID)
	return entry, nil
}

// REVERSAL ENGINE

// ReverseByReference deletes every ledger entry whose reference id matches
// and whose transaction type is in the given set, undoing the referenced
// operation's stock effect.
//
// Known limitation, kept deliberately: the Balance column of entries written
// AFTER the deleted ones for the same (item, location) is not recomputed and
// becomes stale relative to a replay of the remaining entries. Callers that
// need a strict balance must replay the log.
func (s *Service) ReverseByReference(tx *gorm.DB, referenceID uint, types ...TransactionType) error {
	if len(types) == 0 {
		return fmt.Errorf("reversal requires at least one transaction type")
	}

	err := tx.Where("reference_id = ? AND transaction_type IN ?", referenceID, types).
		Delete(&StockLedgerEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to reverse ledger entries: %w", err)
	}
	return nil
}

// QUERIES

// GetEntries returns ledger history for an item, newest first. locationID
// filters to one location when non-nil.
func (s *Service) GetEntries(itemID uint, locationID *uint, limit int) ([]StockLedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := s.db.Where("item_id = ?", itemID)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var entries []StockLedgerEntry
	if err := query.Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve ledger entries: %w", err)
	}
	return entries, nil
}

// STOCK CACHE

func (s *Service) stockCacheKey(itemID uint) string {
	return fmt.Sprintf("stock_total:%d", itemID)
}

// CachedTotalBalance reads the item-wide stock total through Redis. Cache
// misses and Redis failures fall back to the database; writers invalidate
// after commit.
func (s *Service) CachedTotalBalance(ctx context.Context, itemID uint) (decimal.Decimal, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, s.stockCacheKey(itemID)).Result(); err == nil {
			if total, derr := decimal.NewFromString(cached); derr == nil {
				return total, nil
			}
		}
	}

	total, err := s.TotalBalance(s.db, itemID)
	if err != nil {
		return decimal.Zero, err
	}

	if s.redis != nil {
		s.redis.Set(ctx, s.stockCacheKey(itemID), total.String(), 5*time.Minute)
	}
	return total, nil
}

// InvalidateStockCache drops the cached totals for the given items. Called by
// every writer after a successful commit.
func (s *Service) InvalidateStockCache(itemIDs ...uint) {
	if s.redis == nil || len(itemIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, s.stockCacheKey(id))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.redis.Del(ctx, keys...)
}

// DB exposes the underlying handle for callers that open their own
// transactions around ledger operations
func (s *Service) DB() *gorm.DB {
	return s.db
}
