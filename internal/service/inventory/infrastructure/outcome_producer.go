package infrastructure

import (
	"context"
	"encoding/json"

	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/mq"
)

// OutcomeProducerAdapter 把库存决策发布到 reservation-outcome topic
type OutcomeProducerAdapter struct {
	writer mq.MessageWriter
}

func NewOutcomeProducerAdapter(writer mq.MessageWriter) *OutcomeProducerAdapter {
	return &OutcomeProducerAdapter{writer: writer}
}

func (p *OutcomeProducerAdapter) PublishOutcome(ctx context.Context, outcome *events.ReservationOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(outcome.RequestID), body); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("requestId", outcome.RequestID).Msg("failed to produce outcome")
		return err
	}
	return nil
}
