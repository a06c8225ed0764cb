// internal/domain/transformation/entity.go
package transformation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/erp-backend/internal/domain/item"
)

// Code prefixes for the sequential, human-readable transformation codes
// (BN000001, RP000001, RL000001)
const (
	BundleCodePrefix = "BN"
	RepackCodePrefix = "RP"
	RollsCodePrefix  = "RL"
)

// RollsStatus is the lifecycle state of a rolls production batch
type RollsStatus string

const (
	RollsStatusPending   RollsStatus = "pending"
	RollsStatusStarted   RollsStatus = "started"
	RollsStatusCompleted RollsStatus = "completed"
)

// Bundle records packing loose packs into bundles: consume SourceQuantity
// packs of the source item, produce OutputQuantity bundles of the output
// item at PacksPerBundle packs each.
type Bundle struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Code           string          `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Date           time.Time       `gorm:"not null" json:"date"`
	SourceItemID   uint            `gorm:"not null;index" json:"source_item_id"`
	SourceQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"source_quantity"`
	OutputItemID   uint            `gorm:"not null;index" json:"output_item_id"`
	OutputQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"output_quantity"`
	PacksPerBundle decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"packs_per_bundle"`
	LocationID     uint            `gorm:"not null;index" json:"location_id"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedBy      uint            `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	SourceItem item.Item        `gorm:"foreignKey:SourceItemID" json:"source_item,omitempty"`
	OutputItem item.Item        `gorm:"foreignKey:OutputItemID" json:"output_item,omitempty"`
	Location   item.Location    `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Materials  []BundleMaterial `gorm:"foreignKey:BundleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"materials,omitempty"`
}

// BundleMaterial is one auxiliary material line consumed by a bundle
type BundleMaterial struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	BundleID uint            `gorm:"not null;index" json:"bundle_id"`
	ItemID   uint            `gorm:"not null" json:"item_id"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`

	Item item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// Repack records breaking bulk stock into smaller packs: consume
// SourceQuantity bulk units, produce OutputQuantity packs of UnitsPerPack
// each.
type Repack struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Code           string          `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Date           time.Time       `gorm:"not null" json:"date"`
	SourceItemID   uint            `gorm:"not null;index" json:"source_item_id"`
	SourceQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"source_quantity"`
	OutputItemID   uint            `gorm:"not null;index" json:"output_item_id"`
	OutputQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"output_quantity"`
	UnitsPerPack   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"units_per_pack"`
	LocationID     uint            `gorm:"not null;index" json:"location_id"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedBy      uint            `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	SourceItem item.Item        `gorm:"foreignKey:SourceItemID" json:"source_item,omitempty"`
	OutputItem item.Item        `gorm:"foreignKey:OutputItemID" json:"output_item,omitempty"`
	Location   item.Location    `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Materials  []RepackMaterial `gorm:"foreignKey:RepackID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"materials,omitempty"`
}

// RepackMaterial is one auxiliary material line consumed by a repack
type RepackMaterial struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	RepackID uint            `gorm:"not null;index" json:"repack_id"`
	ItemID   uint            `gorm:"not null" json:"item_id"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`

	Item item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// RollsBatch records rolls production. Materials are consumed when the batch
// is created; the produced quantity is only known, and recorded, at
// completion. The produced rolls are not placed into a tracked balance
// (a gap inherited from the process this models).
type RollsBatch struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Code             string          `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Date             time.Time       `gorm:"not null" json:"date"`
	OutputItemID     uint            `gorm:"not null;index" json:"output_item_id"`
	ProducedQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"produced_quantity"`
	Status           RollsStatus     `gorm:"not null;size:20;default:'pending';index" json:"status"`
	LocationID       uint            `gorm:"not null;index" json:"location_id"`
	Notes            string          `gorm:"type:text" json:"notes"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedBy        uint            `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Relationships
	OutputItem item.Item       `gorm:"foreignKey:OutputItemID" json:"output_item,omitempty"`
	Location   item.Location   `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Materials  []RollsMaterial `gorm:"foreignKey:RollsBatchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"materials,omitempty"`
}

// RollsMaterial is one material line consumed by a rolls batch
type RollsMaterial struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RollsBatchID uint            `gorm:"not null;index" json:"rolls_batch_id"`
	ItemID       uint            `gorm:"not null" json:"item_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`

	Item item.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName overrides the table name for Bundle
func (Bundle) TableName() string {
	return "bundles"
}

// TableName overrides the table name for BundleMaterial
func (BundleMaterial) TableName() string {
	return "bundle_materials"
}

// TableName overrides the table name for Repack
func (Repack) TableName() string {
	return "repacks"
}

// TableName overrides the table name for RepackMaterial
func (RepackMaterial) TableName() string {
	return "repack_materials"
}

// TableName overrides the table name for RollsBatch
func (RollsBatch) TableName() string {
	return "rolls_batches"
}

// TableName overrides the table name for RollsMaterial
func (RollsMaterial) TableName() string {
	return "rolls_materials"
}
