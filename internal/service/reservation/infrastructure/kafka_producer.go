package infrastructure

import (
	"context"
	"encoding/json"

	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/mq"
)

// RequestProducerAdapter 实现了 port.RequestPublisher
type RequestProducerAdapter struct {
	writer mq.MessageWriter
}

func NewRequestProducerAdapter(writer mq.MessageWriter) *RequestProducerAdapter {
	return &RequestProducerAdapter{writer: writer}
}

// PublishRequested 以请求 ID 作为消息 key，同一请求的重投落在同一分区。
func (p *RequestProducerAdapter) PublishRequested(ctx context.Context, ev *events.ReservationRequested) error {
	body, err := json.Marshal(ev)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to marshal reservation requested event")
		return err
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(ev.RequestID), body); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("requestId", ev.RequestID).Msg("failed to produce reservation requested event")
		return err
	}
	return nil
}
