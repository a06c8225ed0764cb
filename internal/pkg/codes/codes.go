// internal/pkg/codes/codes.go
package codes

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Next issues the next sequential, human-readable code for a table by
// incrementing the numeric suffix of the highest existing code in the given
// column: BN000041 -> BN000042, first ever -> <prefix>000001.
//
// Must run on the transaction that will insert the new record. On databases
// with row locking the read locks the latest code row so concurrent creators
// cannot issue the same code; sqlite serializes writers at the database
// level instead.
func Next(tx *gorm.DB, table, column, prefix string) (string, error) {
	query := tx.Table(table).
		Where(column+" LIKE ?", prefix+"%").
		Order(column + " DESC").
		Limit(1)
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var last []string
	if err := query.Pluck(column, &last).Error; err != nil {
		return "", fmt.Errorf("failed to read last %s code: %w", prefix, err)
	}

	next := 1
	if len(last) > 0 {
		suffix, err := strconv.Atoi(last[0][len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed code %q: %w", last[0], err)
		}
		next = suffix + 1
	}

	return fmt.Sprintf("%s%06d", prefix, next), nil
}
