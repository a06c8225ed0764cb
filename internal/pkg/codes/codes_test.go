// internal/pkg/codes/codes_test.go
package codes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type codedRecord struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;not null;size:20"`
}

func (codedRecord) TableName() string {
	return "coded_records"
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&codedRecord{}))
	return db
}

func TestNextEmptyTable(t *testing.T) {
	db := setupTestDB(t)

	code, err := Next(db, "coded_records", "code", "BN")
	require.NoError(t, err)
	assert.Equal(t, "BN000001", code)
}

func TestNextIncrementsHighestCode(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&codedRecord{Code: "BN000007"}).Error)
	require.NoError(t, db.Create(&codedRecord{Code: "BN000041"}).Error)

	code, err := Next(db, "coded_records", "code", "BN")
	require.NoError(t, err)
	assert.Equal(t, "BN000042", code)
}

func TestNextPrefixesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&codedRecord{Code: "BN000041"}).Error)

	code, err := Next(db, "coded_records", "code", "RP")
	require.NoError(t, err)
	assert.Equal(t, "RP000001", code)
}

func TestNextMalformedSuffix(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&codedRecord{Code: "BNXYZ"}).Error)

	_, err := Next(db, "coded_records", "code", "BN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
