package infrastructure

import "time"

// ReservationModel 对应 reservations 表
type ReservationModel struct {
	RequestID        string `gorm:"primaryKey;size:64"`
	ItemID           string `gorm:"size:64;index"`
	LocationID       string `gorm:"size:64"`
	CategoryID       string `gorm:"size:64"`
	Kind             string `gorm:"size:32"`
	Means            string `gorm:"size:32"`
	InventoryManaged bool
	Quantity         int
	RequesterID      string `gorm:"size:64;index"`
	RequesterName    string `gorm:"size:128"`
	Phone            string `gorm:"size:32"`
	Email            string `gorm:"size:255"`
	Purpose          string `gorm:"type:text"`
	AttachmentCode   string `gorm:"size:64"`
	StartDate        *time.Time
	EndDate          *time.Time
	Status           string `gorm:"size:16;index"`
	CancelReason     string `gorm:"size:512"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ReservationModel) TableName() string {
	return "reservations"
}
