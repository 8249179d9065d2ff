package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"govportal/internal/pkg/events"
)

// Publisher 是 *amqp.Channel 的发布能力
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OutcomeAMQPAdapter 实现了 port.OutcomeNotifier：以请求 ID 为路由键发布到 direct 交换机，
// 结果代理为每个打开的结果流绑定一个同名队列。没有队列绑定时消息被交换机丢弃。
type OutcomeAMQPAdapter struct {
	mu       sync.Mutex
	ch       Publisher
	exchange string
}

func NewOutcomeAMQPAdapter(ch Publisher, exchange string) *OutcomeAMQPAdapter {
	return &OutcomeAMQPAdapter{ch: ch, exchange: exchange}
}

func (a *OutcomeAMQPAdapter) NotifyOutcome(ctx context.Context, outcome *events.ReservationOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("could not marshal outcome: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ch.PublishWithContext(ctx,
		a.exchange,
		outcome.RequestID, // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: outcome.RequestID,
			DeliveryMode:  amqp.Transient,
			Body:          body,
		},
	)
}
