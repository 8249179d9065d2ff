package infrastructure

import "govportal/internal/service/reservation/domain"

// ToDomainReservation 将数据库模型转换为领域模型
func ToDomainReservation(m *ReservationModel) *domain.Reservation {
	if m == nil {
		return nil
	}
	return &domain.Reservation{
		ID:               m.RequestID,
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		CategoryID:       m.CategoryID,
		Kind:             domain.CategoryKind(m.Kind),
		Means:            domain.Means(m.Means),
		InventoryManaged: m.InventoryManaged,
		Quantity:         m.Quantity,
		RequesterID:      m.RequesterID,
		RequesterName:    m.RequesterName,
		Phone:            m.Phone,
		Email:            m.Email,
		Purpose:          m.Purpose,
		AttachmentCode:   m.AttachmentCode,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		Status:           domain.Status(m.Status),
		CancelReason:     m.CancelReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomainReservation 将领域模型转换为数据库模型
func FromDomainReservation(r *domain.Reservation) *ReservationModel {
	if r == nil {
		return nil
	}
	return &ReservationModel{
		RequestID:        r.ID,
		ItemID:           r.ItemID,
		LocationID:       r.LocationID,
		CategoryID:       r.CategoryID,
		Kind:             string(r.Kind),
		Means:            string(r.Means),
		InventoryManaged: r.InventoryManaged,
		Quantity:         r.Quantity,
		RequesterID:      r.RequesterID,
		RequesterName:    r.RequesterName,
		Phone:            r.Phone,
		Email:            r.Email,
		Purpose:          r.Purpose,
		AttachmentCode:   r.AttachmentCode,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Status:           string(r.Status),
		CancelReason:     r.CancelReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
