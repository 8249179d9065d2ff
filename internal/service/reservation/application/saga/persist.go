package saga

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"govportal/internal/pkg/logger"
	"govportal/internal/service/reservation/domain"
)

// PersistHandler 生成请求 ID 并以 REQUESTED 状态落库。
type PersistHandler struct {
	NextHandler
}

func (h *PersistHandler) Handle(c *IntakeContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "saga.Persist")
	defer span.End()

	r := &domain.Reservation{
		ID:               uuid.New().String(),
		ItemID:           c.Item.ID,
		LocationID:       c.Item.LocationID,
		CategoryID:       c.Item.CategoryID,
		Kind:             c.Item.Kind,
		Means:            c.Item.Means,
		InventoryManaged: c.Item.InventoryManaged,
		Quantity:         c.Fields.Quantity,
		RequesterID:      c.Actor.UserID,
		RequesterName:    c.Profile.DisplayName,
		Phone:            c.Fields.Phone,
		Email:            c.Fields.Email,
		Purpose:          c.Fields.Purpose,
		AttachmentCode:   c.Fields.AttachmentCode,
		StartDate:        c.Fields.StartDate,
		EndDate:          c.Fields.EndDate,
		Status:           domain.StatusRequested,
		CreatedAt:        c.Now,
		UpdatedAt:        c.Now,
	}
	if r.ItemID == "" {
		r.ItemID = c.ItemID
	}
	span.SetAttributes(attribute.String("reservation.id", r.ID))

	if err := c.Repo.Create(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist reservation")
		return err
	}
	c.Reservation = r

	c.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := c.Tracer.Start(compCtx, "saga.compensation.RemoveReservation")
		defer compSpan.End()
		if _, err := c.Repo.DeleteIfStatus(compCtx, r.ID, domain.StatusRequested); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).Str("requestId", r.ID).Msg("CRITICAL: failed to remove reservation during compensation")
		}
	})

	return h.executeNext(c)
}
