// internal/domain/invoice/entity.go
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/domain/item"
)

// InvoiceCodePrefix is the prefix of the sequential invoice numbers
// (SI000001, SI000002, ...)
const InvoiceCodePrefix = "SI"

// Invoice represents a sales invoice. Its stock effect is one 'sales' ledger
// out entry per location drawn from, written when the invoice is created and
// reversed when it is deleted.
type Invoice struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	InvoiceNo    string    `gorm:"uniqueIndex;not null;size:20" json:"invoice_no"`
	Date         time.Time `gorm:"not null" json:"date"`
	CustomerName string    `gorm:"not null;size:255" json:"customer_name"`
	TotalAmount  int64     `gorm:"not null;default:0" json:"total_amount"` // In cents
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedBy    uint      `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// InvoiceItem is one line of an invoice
type InvoiceItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	InvoiceID  uint            `gorm:"not null;index" json:"invoice_id"`
	ItemID     uint            `gorm:"not null;index" json:"item_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice  int64           `gorm:"not null" json:"unit_price"`  // In cents
	TotalPrice int64           `gorm:"not null" json:"total_price"` // In cents

	Item item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName overrides the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// TableName overrides the table name for InvoiceItem
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
