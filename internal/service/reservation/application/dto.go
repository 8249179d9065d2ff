package application

import (
	"time"

	"govportal/internal/service/reservation/domain"
)

// CreateRequest 是两个受理接口共用的请求体
type CreateRequest struct {
	ItemID         string     `json:"itemId"`
	Quantity       int        `json:"quantity"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Purpose        string     `json:"purpose"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	AttachmentCode string     `json:"attachmentCode,omitempty"`
}

func (r *CreateRequest) fields() domain.Fields {
	return domain.Fields{
		Quantity:       r.Quantity,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Purpose:        r.Purpose,
		Phone:          r.Phone,
		Email:          r.Email,
		AttachmentCode: r.AttachmentCode,
	}
}

type UpdateRequest struct {
	Quantity       int        `json:"quantity"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Purpose        string     `json:"purpose,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	AttachmentCode string     `json:"attachmentCode,omitempty"`
}

func (r *UpdateRequest) fields() domain.Fields {
	return domain.Fields{
		Quantity:       r.Quantity,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Purpose:        r.Purpose,
		Phone:          r.Phone,
		Email:          r.Email,
		AttachmentCode: r.AttachmentCode,
	}
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// ReservationView 是预约对外的投影。Committed 只在本次调用同步得出库存结果时出现。
type ReservationView struct {
	RequestID      string        `json:"requestId"`
	ItemID         string        `json:"itemId"`
	LocationID     string        `json:"locationId,omitempty"`
	CategoryID     string        `json:"categoryId,omitempty"`
	Quantity       int           `json:"quantity"`
	RequesterID    string        `json:"requesterId"`
	RequesterName  string        `json:"requesterName,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	Email          string        `json:"email,omitempty"`
	Purpose        string        `json:"purpose"`
	AttachmentCode string        `json:"attachmentCode,omitempty"`
	StartDate      *time.Time    `json:"startDate,omitempty"`
	EndDate        *time.Time    `json:"endDate,omitempty"`
	Status         domain.Status `json:"status"`
	CancelReason   string        `json:"cancelReason,omitempty"`
	Committed      *bool         `json:"committed,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func NewReservationView(r *domain.Reservation) *ReservationView {
	return &ReservationView{
		RequestID:      r.ID,
		ItemID:         r.ItemID,
		LocationID:     r.LocationID,
		CategoryID:     r.CategoryID,
		Quantity:       r.Quantity,
		RequesterID:    r.RequesterID,
		RequesterName:  r.RequesterName,
		Phone:          r.Phone,
		Email:          r.Email,
		Purpose:        r.Purpose,
		AttachmentCode: r.AttachmentCode,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Status:         r.Status,
		CancelReason:   r.CancelReason,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (v *ReservationView) withCommitted(committed bool, reason string) *ReservationView {
	v.Committed = &committed
	v.Reason = reason
	return v
}
