package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)

// DispatchHandler 是受理的最后一步：按受理方式与分派规则选择路径。
type DispatchHandler struct {
	NextHandler
}

func (h *DispatchHandler) Handle(c *IntakeContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "saga.Dispatch")
	defer span.End()

	r := c.Reservation
	var err error
	switch {
	case r.Means == domain.MeansEvaluate:
		c.Path = PathEvaluate
	case !r.InventoryManaged:
		c.Path = PathImmediate
		err = h.approveImmediately(ctx, c)
	default:
		var direct bool
		direct, err = c.Dispatch.UseDirectPath(ctx, port.DispatchInput{
			Role:     c.Actor.Role,
			Category: string(r.Kind),
			Means:    string(r.Means),
			Quantity: r.Quantity,
		})
		if err != nil {
			err = apperr.Internal(err, "dispatch rule failed")
			break
		}
		if direct {
			c.Path = PathDirect
			err = h.direct(ctx, c)
		} else {
			c.Path = PathEvent
			err = h.publish(ctx, c)
		}
	}
	span.SetAttributes(attribute.String("dispatch.path", c.Path))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return err
	}
	return h.executeNext(c)
}

func (h *DispatchHandler) approveImmediately(ctx context.Context, c *IntakeContext) error {
	if _, err := c.Repo.TransitionStatus(ctx, c.Reservation.ID, domain.StatusRequested, domain.StatusApproved); err != nil {
		return err
	}
	c.Reservation.Status = domain.StatusApproved
	return nil
}

// direct 走同步直连路径：调用库存服务的调整接口，以请求 ID 作为幂等键，与事件路径共用一条台账记录。
func (h *DispatchHandler) direct(ctx context.Context, c *IntakeContext) error {
	r := c.Reservation
	committed, err := c.Inventory.Adjust(ctx, r.ID, r.ItemID, r.Quantity)
	if err != nil {
		// 超时等错误无法判断库存服务是否已经扣减；熔断打开时请求没有发出
		if !apperr.IsCircuitOpen(err) {
			c.AddCompensation(reconcileDirectAdjust(c, r))
		}
		return err
	}
	c.Committed = &committed
	outcome := &events.ReservationOutcome{RequestID: r.ID, ItemID: r.ItemID, Committed: committed, DecidedAt: c.Now}

	if !committed {
		// 容量不足是业务结果：记录被移除，调用方得到 REJECTED 投影
		if _, err := c.Repo.DeleteIfStatus(ctx, r.ID, domain.StatusRequested); err != nil {
			return err
		}
		r.Status = domain.StatusRejected
		c.Reason = events.ReasonCapacityExhausted
		outcome.Reason = events.ReasonCapacityExhausted
		logger.Ctx(ctx).Warn().Str("requestId", r.ID).Str("itemId", r.ItemID).Msg("Direct reservation rejected, capacity exhausted")
	} else {
		c.AddCompensation(releaseDirectAdjust(c, r))
		if _, err := c.Repo.TransitionStatus(ctx, r.ID, domain.StatusRequested, domain.StatusApproved); err != nil {
			return err
		}
		r.Status = domain.StatusApproved
	}

	if err := c.Notifier.NotifyOutcome(ctx, outcome); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("requestId", r.ID).Msg("Failed to publish direct outcome to the result exchange")
	}
	return nil
}

// reconcileDirectAdjust 用同一个幂等键重放调整：台账已记录扣减时返回 committed=true，随后归还。
// 原请求仍在库存服务处理中时，重放会在台账主键上等待其提交。
func reconcileDirectAdjust(c *IntakeContext, r *domain.Reservation) func(ctx context.Context) {
	return func(compCtx context.Context) {
		compCtx, compSpan := c.Tracer.Start(compCtx, "saga.compensation.ReconcileDirectAdjust")
		defer compSpan.End()

		committed, err := c.Inventory.Adjust(compCtx, r.ID, r.ItemID, r.Quantity)
		if err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).Str("requestId", r.ID).Str("itemId", r.ItemID).Int("quantity", r.Quantity).
				Msg("CRITICAL: could not reconcile direct inventory adjustment, manual check required")
			return
		}
		if committed {
			releaseDirectAdjust(c, r)(compCtx)
		}
	}
}

func releaseDirectAdjust(c *IntakeContext, r *domain.Reservation) func(ctx context.Context) {
	return func(compCtx context.Context) {
		if _, err := c.Inventory.Adjust(compCtx, domain.ReleaseKey(r.ID), r.ItemID, -r.Quantity); err != nil {
			logger.Ctx(compCtx).Error().Err(err).Str("requestId", r.ID).Str("itemId", r.ItemID).Int("quantity", r.Quantity).
				Msg("CRITICAL: failed to release inventory during compensation")
			return
		}
		logger.Ctx(compCtx).Warn().Str("requestId", r.ID).Msg("Released inventory taken by a failed direct reservation")
	}
}

// publish 走事件路径：发布 reservation-requested 并安排超时检查。
func (h *DispatchHandler) publish(ctx context.Context, c *IntakeContext) error {
	r := c.Reservation
	ev := &events.ReservationRequested{
		EventID:     r.ID,
		TraceID:     trace.SpanFromContext(ctx).SpanContext().TraceID().String(),
		RequestID:   r.ID,
		ItemID:      r.ItemID,
		Quantity:    r.Quantity,
		RequestedAt: c.Now,
	}
	if err := c.Publisher.PublishRequested(ctx, ev); err != nil {
		return apperr.Transient(err, "failed to publish reservation request")
	}

	check := &domain.TimeoutCheckEvent{RequestID: r.ID}
	if err := c.Scheduler.ScheduleTimeoutCheck(ctx, check, c.Timeout); err != nil {
		// 预约已经进入流水线，超时检查缺失只影响孤儿回收
		logger.Ctx(ctx).Error().Err(err).Str("requestId", r.ID).Msg("Failed to schedule timeout check")
	}
	return nil
}
