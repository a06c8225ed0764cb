// internal/domain/ledger/errors.go
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientStockError is returned when a consumption request exceeds the
// available balance. It carries the amounts so callers can surface them.
type InsufficientStockError struct {
	ItemID     uint
	ItemName   string // optional, filled when the caller knows it
	LocationID uint   // 0 for item-wide (unpinned) checks
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.ItemName
	if name == "" {
		name = fmt.Sprintf("item %d", e.ItemID)
	}
	if e.LocationID != 0 {
		return fmt.Sprintf("insufficient stock for %s at location %d: available %s, requested %s",
			name, e.LocationID, e.Available.String(), e.Requested.String())
	}
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		name, e.Available.String(), e.Requested.String())
}
