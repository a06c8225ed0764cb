// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/erp-backend/internal/domain/invoice"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/ledger"
	"github.com/your-org/erp-backend/internal/domain/transformation"
	"github.com/your-org/erp-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},

		// Item catalog - Base tables
		&item.Item{},
		&item.Location{},

		// Stock ledger
		&ledger.StockLedgerEntry{},

		// Transformations - Dependent tables
		&transformation.Bundle{},
		&transformation.BundleMaterial{},
		&transformation.Repack{},
		&transformation.RepackMaterial{},
		&transformation.RollsBatch{},
		&transformation.RollsMaterial{},

		// Sales invoices - Dependent tables
		&invoice.Invoice{},
		&invoice.InvoiceItem{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Item indexes
		"CREATE INDEX IF NOT EXISTS idx_items_type_active ON items(type, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_items_code ON items(code)",

		// Stock ledger indexes - CRITICAL FOR BALANCE LOOKUPS
		"CREATE INDEX IF NOT EXISTS idx_ledger_item_location_id ON stock_ledger(item_id, location_id, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_reference ON stock_ledger(reference_id, transaction_type)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_type ON stock_ledger(transaction_type)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_created_at ON stock_ledger(created_at DESC)",

		// Transformation indexes
		"CREATE INDEX IF NOT EXISTS idx_bundles_code ON bundles(code)",
		"CREATE INDEX IF NOT EXISTS idx_bundles_created_at ON bundles(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_bundle_materials_bundle ON bundle_materials(bundle_id)",
		"CREATE INDEX IF NOT EXISTS idx_repacks_code ON repacks(code)",
		"CREATE INDEX IF NOT EXISTS idx_repacks_created_at ON repacks(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_repack_materials_repack ON repack_materials(repack_id)",
		"CREATE INDEX IF NOT EXISTS idx_rolls_batches_code ON rolls_batches(code)",
		"CREATE INDEX IF NOT EXISTS idx_rolls_batches_status ON rolls_batches(status)",
		"CREATE INDEX IF NOT EXISTS idx_rolls_materials_batch ON rolls_materials(rolls_batch_id)",

		// Invoice indexes
		"CREATE INDEX IF NOT EXISTS idx_invoices_invoice_no ON invoices(invoice_no)",
		"CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices(date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items(invoice_id)",
		"CREATE INDEX IF NOT EXISTS idx_invoice_items_item ON invoice_items(item_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	// Create default admin user
	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	// Create default warehouse locations
	if err := m.seedLocations(); err != nil {
		return fmt.Errorf("failed to seed locations: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			return fmt.Errorf("failed to hash password: %w", err)
		}

		adminUser := user.User{
			Email:     "admin@example.com",
			Password:  string(hashedPassword),
			FirstName: "Admin",
			LastName:  "User",
			IsActive:  true,
			IsAdmin:   true,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			log.Printf("❌ Failed to create admin user: %v", err)
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}

// seedLocations creates the default storage locations
func (m *Migration) seedLocations() error {
	log.Println("🏭 Seeding locations...")

	locations := []item.Location{
		{Name: "Main Warehouse", IsActive: true},
		{Name: "Production Floor", IsActive: true},
		{Name: "Finished Goods Store", IsActive: true},
	}

	for _, location := range locations {
		var existing item.Location
		result := m.db.Where("name = ?", location.Name).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&location).Error; err != nil {
				return err
			}
			log.Printf("✅ Created location: %s", location.Name)
		} else {
			log.Printf("⏭️ Location already exists: %s", location.Name)
		}
	}

	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
