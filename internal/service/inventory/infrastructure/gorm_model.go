package infrastructure

import "time"

// InventoryModel 对应 inventory_items 表
type InventoryModel struct {
	ItemID           string `gorm:"primaryKey;size:64"`
	Name             string `gorm:"size:255"`
	LocationID       string `gorm:"size:64;index"`
	CategoryID       string `gorm:"size:64;index"`
	Kind             string `gorm:"size:32"`
	Means            string `gorm:"size:32"`
	InventoryManaged bool
	Total            int `gorm:"not null"`
	Committed        int `gorm:"not null;default:0"`
	UpdatedAt        time.Time
}

func (InventoryModel) TableName() string {
	return "inventory_items"
}

// ProcessedRequestModel 是幂等台账，主键即幂等键 (请求 ID)
type ProcessedRequestModel struct {
	RequestKey  string `gorm:"primaryKey;size:128"`
	ItemID      string `gorm:"size:64"`
	Delta       int
	Committed   bool
	Reason      string    `gorm:"size:32"`
	ProcessedAt time.Time `gorm:"index"`
}

func (ProcessedRequestModel) TableName() string {
	return "processed_requests"
}
