// internal/service/reservation/domain/reservation.go
package domain

import (
	"time"

	"govportal/internal/pkg/apperr"
)

// Reservation 是预约聚合的根实体，ID 即请求 ID，创建后不再变化。
type Reservation struct {
	ID               string
	ItemID           string
	LocationID       string
	CategoryID       string
	Kind             CategoryKind
	Means            Means
	InventoryManaged bool
	Quantity         int
	RequesterID      string
	RequesterName    string
	Phone            string
	Email            string
	Purpose          string
	AttachmentCode   string
	StartDate        *time.Time
	EndDate          *time.Time
	Status           Status
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Fields 是创建与修改时由调用方提供的可变字段
type Fields struct {
	Quantity       int
	StartDate      *time.Time
	EndDate        *time.Time
	Purpose        string
	Phone          string
	Email          string
	AttachmentCode string
}

// IsOwnedBy 判断是否为本人预约
func (r *Reservation) IsOwnedBy(userID string) bool {
	return userID != "" && r.RequesterID == userID
}

// ReleaseKey 是归还库存时使用的幂等键，与占用键互不覆盖
func ReleaseKey(requestID string) string {
	return requestID + ":release"
}

// HoldsInventory 为 true 表示该预约当前占用了库存，取消时需要释放。
func (r *Reservation) HoldsInventory() bool {
	return r.InventoryManaged && r.Status == StatusApproved
}

// CanBeModified 只有 REQUESTED 与 APPROVED 状态允许修改
func (r *Reservation) CanBeModified() bool {
	return r.Status == StatusRequested || r.Status == StatusApproved
}

// Apply 在校验通过后写入新字段。已经绑定库存的预约不允许修改数量。
func (r *Reservation) Apply(f Fields, now time.Time) error {
	if !r.CanBeModified() {
		return apperr.Conflict(apperr.CodeInvalidState, "reservation %s is %s", r.ID, r.Status)
	}
	if f.Quantity != r.Quantity && r.InventoryManaged && (r.Means == MeansRealtime || r.Status == StatusApproved) {
		return apperr.Validation(apperr.FieldError{Field: "quantity", Message: "cannot change the quantity of an inventory-bound reservation"})
	}
	if errs := ValidatorFor(r.Kind).Validate(f); len(errs) > 0 {
		return apperr.Validation(errs...)
	}
	r.Quantity = f.Quantity
	r.StartDate = f.StartDate
	r.EndDate = f.EndDate
	if f.Purpose != "" {
		r.Purpose = f.Purpose
	}
	if f.Phone != "" {
		r.Phone = f.Phone
	}
	if f.Email != "" {
		r.Email = f.Email
	}
	r.AttachmentCode = f.AttachmentCode
	r.UpdatedAt = now
	return nil
}

// Cancel 将预约标记为取消。重复取消是幂等的。
func (r *Reservation) Cancel(reason string, now time.Time) error {
	switch r.Status {
	case StatusCancelled:
		return nil
	case StatusRequested, StatusApproved:
		r.Status = StatusCancelled
		r.CancelReason = reason
		r.UpdatedAt = now
		return nil
	default:
		return apperr.Conflict(apperr.CodeInvalidState, "reservation %s is %s", r.ID, r.Status)
	}
}
