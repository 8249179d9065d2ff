// internal/service/inventory/application/coordinator.go
package application

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
	"govportal/internal/service/inventory/domain"
)

// OutcomePublisher 是发布结果事件的出站端口
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome *events.ReservationOutcome) error
}

// Coordinator 是库存协调者：消费预约请求事件并对库存做原子的检查与调整。
type Coordinator struct {
	repo      domain.Repository
	publisher OutcomePublisher
	tracer    trace.Tracer
}

func NewCoordinator(repo domain.Repository, publisher OutcomePublisher) *Coordinator {
	return &Coordinator{
		repo:      repo,
		publisher: publisher,
		tracer:    otel.Tracer("inventory-coordinator"),
	}
}

// OnReservationRequested 对每个事件恰好发出一条结果事件，即使数量非法或物品不存在。
// 存储不可用时返回 transient 错误，调用方不得提交 offset。
func (c *Coordinator) OnReservationRequested(ctx context.Context, ev *events.ReservationRequested) error {
	ctx, span := c.tracer.Start(ctx, "inventory.OnReservationRequested", trace.WithAttributes(
		attribute.String("reservation.request_id", ev.RequestID),
		attribute.String("inventory.item_id", ev.ItemID),
		attribute.Int("reservation.quantity", ev.Quantity),
	))
	defer span.End()

	if ev.RequestID == "" {
		return apperr.Validation(apperr.FieldError{Field: "requestId", Message: "must not be empty"})
	}

	var decision domain.Decision
	if ev.Quantity <= 0 {
		decision = domain.Decision{Reason: events.ReasonInvalidQuantity}
	} else {
		var err error
		decision, err = c.repo.Adjust(ctx, ev.RequestID, ev.ItemID, ev.Quantity, domain.RecordAll)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inventory adjust failed")
			return err
		}
	}
	c.observe(ctx, ev.RequestID, decision)

	outcome := &events.ReservationOutcome{
		RequestID: ev.RequestID,
		ItemID:    ev.ItemID,
		Committed: decision.Committed,
		Reason:    decision.Reason,
		DecidedAt: time.Now().UTC(),
	}
	// 发布失败时整个事件会被重新投递，台账保证不会重复扣减
	if err := c.publisher.PublishOutcome(ctx, outcome); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish outcome failed")
		return apperr.Transient(err, "publish outcome for %s", ev.RequestID)
	}
	span.AddEvent("OutcomePublished", trace.WithAttributes(attribute.Bool("committed", decision.Committed)))
	return nil
}

// UpdateInventory 是同步路径：同样的原子语义，直接返回结果而不发布事件。
// 成功的调整按 key 去重，被拒绝的不记录，管理员在容量释放后可以用同一 key 重试。
func (c *Coordinator) UpdateInventory(ctx context.Context, key, itemID string, delta int) (domain.Decision, error) {
	ctx, span := c.tracer.Start(ctx, "inventory.UpdateInventory", trace.WithAttributes(
		attribute.String("inventory.item_id", itemID),
		attribute.Int("inventory.delta", delta),
	))
	defer span.End()

	if delta == 0 {
		return domain.Decision{}, apperr.Validation(apperr.FieldError{Field: "delta", Message: "must not be zero"})
	}
	decision, err := c.repo.Adjust(ctx, key, itemID, delta, domain.RecordCommitted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory adjust failed")
		return domain.Decision{}, err
	}
	if decision.Reason == events.ReasonItemNotFound {
		return domain.Decision{}, apperr.NotFound(apperr.CodeItemAbsent, "item %s not found", itemID)
	}
	c.observe(ctx, key, decision)
	return decision, nil
}

func (c *Coordinator) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return c.repo.FindItem(ctx, itemID)
}

func (c *Coordinator) observe(ctx context.Context, key string, d domain.Decision) {
	if d.Replayed {
		metrics.DuplicateDeliveries.Inc()
		logger.Ctx(ctx).Info().Str("requestId", key).Bool("committed", d.Committed).Msg("duplicate delivery, replaying recorded outcome")
		return
	}
	metrics.InventoryDecisions.WithLabelValues(strconv.FormatBool(d.Committed), d.Reason).Inc()
}
