package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/service/reservation/domain"
)

type OutcomeProcessor interface {
	OnOutcome(ctx context.Context, ev *events.ReservationOutcome) error
}

type TimeoutProcessor interface {
	ProcessTimeoutCheck(ctx context.Context, ev *domain.TimeoutCheckEvent) error
}

// OutcomeHandler 消费 reservation-outcome，驱动编排器回写状态。
type OutcomeHandler struct {
	processor OutcomeProcessor
}

func NewOutcomeHandler(processor OutcomeProcessor) *OutcomeHandler {
	return &OutcomeHandler{processor: processor}
}

func (h *OutcomeHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev events.ReservationOutcome
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "payload", Message: err.Error()})
	}
	if ev.RequestID == "" {
		return apperr.Validation(apperr.FieldError{Field: "requestId", Message: "is required"})
	}
	return h.processor.OnOutcome(ctx, &ev)
}

// TimeoutCheckHandler 消费延迟调度器转发回来的超时检查。
type TimeoutCheckHandler struct {
	processor TimeoutProcessor
}

func NewTimeoutCheckHandler(processor TimeoutProcessor) *TimeoutCheckHandler {
	return &TimeoutCheckHandler{processor: processor}
}

func (h *TimeoutCheckHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev domain.TimeoutCheckEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "payload", Message: err.Error()})
	}
	return h.processor.ProcessTimeoutCheck(ctx, &ev)
}
