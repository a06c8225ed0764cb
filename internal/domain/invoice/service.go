// internal/domain/invoice/service.go
package invoice

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/config"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/pkg/codes"
	"gorm.io/gorm"
)

// ErrInvoiceNotFound is returned for operations on a missing invoice
var ErrInvoiceNotFound = errors.New("invoice not found")

// Service handles sales invoices and their stock deduction. An invoice is
// not pinned to a location: each line draws from whichever locations hold
// stock, in descending-balance order, writing one 'sales' ledger entry per
// location actually drawn from.
type Service struct {
	db     *gorm.DB
	config *config.Config
	ledger *ledger.Service
}

// NewService creates a new invoice service
func NewService(db *gorm.DB, cfg *config.Config, ledgerService *ledger.Service) *Service {
	return &Service{
		db:     db,
		config: cfg,
		ledger: ledgerService,
	}
}

// InvoiceLineRequest is one line of an invoice creation request
type InvoiceLineRequest struct {
	ItemID    uint            `json:"item_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice int64           `json:"unit_price"` // In cents
}

// CreateInvoiceRequest represents invoice creation data
type CreateInvoiceRequest struct {
	Date         time.Time            `json:"date"`
	CustomerName string               `json:"customer_name" binding:"required"`
	Notes        string               `json:"notes,omitempty"`
	Items        []InvoiceLineRequest `json:"items" binding:"required"`
}

// CreateInvoice creates the invoice header, its lines and their ledger
// effect in one transaction. Total availability for every line is verified
// before any ledger write, so a shortfall anywhere rolls back the whole
// invoice, not just the offending line.
func (s *Service) CreateInvoice(req *CreateInvoiceRequest, userID uint) (*Invoice, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("invoice requires at least one line")
	}
	for _, line := range req.Items {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("line quantity must be positive, got %s", line.Quantity.String())
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	invoiceNo, err := codes.Next(tx, "invoices", "invoice_no", InvoiceCodePrefix)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Up-front availability check: aggregate the requirement per item (an
	// item may appear on several lines), lock items in ascending id order,
	// and compare against the item-wide total.
	required := map[uint]decimal.Decimal{}
	var itemIDs []uint
	for _, line := range req.Items {
		if _, ok := required[line.ItemID]; !ok {
			itemIDs = append(itemIDs, line.ItemID)
		}
		required[line.ItemID] = required[line.ItemID].Add(line.Quantity)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	for _, itemID := range itemIDs {
		if err := s.ledger.LockItem(tx, itemID); err != nil {
			tx.Rollback()
			return nil, err
		}
		total, err := s.ledger.TotalBalance(tx, itemID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if total.LessThan(required[itemID]) {
			tx.Rollback()
			return nil, &ledger.InsufficientStockError{
				ItemID:    itemID,
				Available: total,
				Requested: required[itemID],
			}
		}
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	inv := &Invoice{
		InvoiceNo:    invoiceNo,
		Date:         date,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}
	if err := tx.Create(inv).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	var totalAmount int64
	for _, line := range req.Items {
		invoiceItem := InvoiceItem{
			InvoiceID: inv.ID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		invoiceItem.TotalPrice = decimal.NewFromInt(line.UnitPrice).Mul(line.Quantity).Round(0).IntPart()
		totalAmount += invoiceItem.TotalPrice

		if err := tx.Create(&invoiceItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create invoice item: %w", err)
		}

		// Deduct stock: split the line across locations and write one
		// 'sales' out entry per location drawn from.
		allocations, err := s.ledger.Allocate(tx, line.ItemID, line.Quantity)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		for _, alloc := range allocations {
			entry := &ledger.StockLedgerEntry{
				ItemID:          line.ItemID,
				LocationID:      alloc.LocationID,
				TransactionType: ledger.TxTypeSales,
				ReferenceID:     inv.ID,
				ReferenceNo:     inv.InvoiceNo,
				TransactionDate: date,
				QuantityOut:     alloc.Quantity,
				CreatedBy:       userID,
			}
			if err := s.ledger.Append(tx, entry); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Model(inv).Update("total_amount", totalAmount).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update invoice total: %w", err)
	}
	inv.TotalAmount = totalAmount

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}

	s.ledger.InvalidateStockCache(itemIDs...)

	if err := s.db.Preload("Items").First(inv, inv.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load complete invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice retrieves an invoice with its lines
func (s *Service) GetInvoice(id uint) (*Invoice, error) {
	var inv Invoice
	err := s.db.Preload("Items.Item").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve invoice: %w", err)
	}
	return &inv, nil
}

// GetInvoices retrieves invoices, newest first
func (s *Service) GetInvoices(limit int) ([]Invoice, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var invoices []Invoice
	if err := s.db.Preload("Items").Order("id DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve invoices: %w", err)
	}
	return invoices, nil
}

// DeleteInvoice reverses the invoice's sales entries and removes the header
// and lines in one transaction
func (s *Service) DeleteInvoice(id uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var inv Invoice
	if err := tx.Preload("Items").First(&inv, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	if err := s.ledger.ReverseByReference(tx, inv.ID, ledger.TxTypeSales); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("invoice_id = ?", inv.ID).Delete(&InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	if err := tx.Delete(&inv).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit invoice deletion: %w", err)
	}

	ids := make([]uint, 0, len(inv.Items))
	for _, line := range inv.Items {
		ids = append(ids, line.ItemID)
	}
	s.ledger.InvalidateStockCache(ids...)
	return nil
}
