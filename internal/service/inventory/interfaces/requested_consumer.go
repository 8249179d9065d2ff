package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
)

type RequestProcessor interface {
	OnReservationRequested(ctx context.Context, ev *events.ReservationRequested) error
}

// ReservationRequestedHandler 是 mq.Consumer 的消息处理函数，驱动库存协调者。
type ReservationRequestedHandler struct {
	coordinator RequestProcessor
}

func NewReservationRequestedHandler(coordinator RequestProcessor) *ReservationRequestedHandler {
	return &ReservationRequestedHandler{coordinator: coordinator}
}

// Handle 无法解析的消息直接进入死信队列。
func (h *ReservationRequestedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev events.ReservationRequested
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "payload", Message: err.Error()})
	}
	return h.coordinator.OnReservationRequested(ctx, &ev)
}
