// internal/domain/ledger/entity.go
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry with the business operation that
// produced it
type TransactionType string

const (
	TxTypeSales       TransactionType = "sales"
	TxTypeBundleIn    TransactionType = "bundle_in"
	TxTypeBundleOut   TransactionType = "bundle_out"
	TxTypeRepackIn    TransactionType = "repack_in"
	TxTypeRepackOut   TransactionType = "repack_out"
	TxTypeRollsOut    TransactionType = "rolls_out"
	TxTypeManualStock TransactionType = "manual_stock"
)

// StockLedgerEntry is one immutable row of the append-only stock ledger.
//
// Exactly one of QuantityIn/QuantityOut is non-zero per entry; every writer
// must go through Service.Append which enforces it. Balance is the running
// balance for (item, location) after this entry is applied. Entry order is
// the auto-increment id: the current balance for a pair is the Balance of its
// highest-id entry.
//
// Entries are never updated. They are deleted only by ReverseByReference and
// only as the complete set sharing a reference id.
type StockLedgerEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ItemID          uint            `gorm:"not null;index:idx_ledger_item_location" json:"item_id"`
	LocationID      uint            `gorm:"not null;index:idx_ledger_item_location" json:"location_id"`
	TransactionType TransactionType `gorm:"not null;size:30;index" json:"transaction_type"`
	ReferenceID     uint            `gorm:"index" json:"reference_id"`
	ReferenceNo     string          `gorm:"size:50" json:"reference_no"`
	TransactionDate time.Time       `gorm:"not null" json:"transaction_date"`
	QuantityIn      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_in"`
	QuantityOut     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_out"`
	Balance         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreatedBy       uint            `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName overrides the table name for StockLedgerEntry
func (StockLedgerEntry) TableName() string {
	return "stock_ledger"
}

// Delta returns the signed quantity movement of the entry
func (e *StockLedgerEntry) Delta() decimal.Decimal {
	return e.QuantityIn.Sub(e.QuantityOut)
}

// LocationBalance is the current balance of one item at one location
type LocationBalance struct {
	LocationID uint            `json:"location_id"`
	Balance    decimal.Decimal `json:"balance"`
}

// Allocation is one (location, quantity) slice of a consumption request
type Allocation struct {
	LocationID uint            `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}
