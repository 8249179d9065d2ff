package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/service/broker/domain"
)

// AMQPProvisioner 为每个请求 ID 声明一个同名的独占队列并绑定到结果交换机。
// 每个结果流使用独立的 amqp channel，删除队列或关闭 channel 不影响其他流。
type AMQPProvisioner struct {
	conn     *amqp.Connection
	exchange string
}

func NewAMQPProvisioner(conn *amqp.Connection, exchange string) *AMQPProvisioner {
	return &AMQPProvisioner{conn: conn, exchange: exchange}
}

func (p *AMQPProvisioner) Provision(ctx context.Context, requestID string) (domain.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "could not open channel")
	}

	q, err := ch.QueueDeclare(
		requestID, // 队列名即请求 ID，发布方无需查找
		false,     // non-durable
		true,      // delete when unused
		true,      // exclusive
		false,     // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, errors.Wrapf(err, "could not declare queue %s", requestID)
	}
	if err := ch.QueueBind(q.Name, requestID, p.exchange, false, nil); err != nil {
		ch.Close()
		return nil, errors.Wrapf(err, "could not bind queue %s", requestID)
	}
	msgs, err := ch.ConsumeWithContext(ctx,
		q.Name,
		"",    // consumer tag
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, errors.Wrapf(err, "could not consume queue %s", requestID)
	}

	c := &amqpChannel{
		ch:    ch,
		queue: q.Name,
		out:   make(chan events.ReservationOutcome, 1),
		done:  make(chan struct{}),
	}
	go c.pump(msgs)
	return c, nil
}

type amqpChannel struct {
	ch    *amqp.Channel
	queue string
	out   chan events.ReservationOutcome
	done  chan struct{}
	once  sync.Once
}

func (c *amqpChannel) Deliveries() <-chan events.ReservationOutcome { return c.out }

func (c *amqpChannel) pump(msgs <-chan amqp.Delivery) {
	defer close(c.out)
	for d := range msgs {
		var outcome events.ReservationOutcome
		if err := json.Unmarshal(d.Body, &outcome); err != nil {
			logger.L().Warn().Err(err).Str("queue", c.queue).Msg("Dropping undecodable outcome message")
			continue
		}
		select {
		case c.out <- outcome:
		case <-c.done:
			return
		}
	}
}

// Dispose 删除队列并关闭 channel。队列已不存在 (404) 视为成功。
func (c *amqpChannel) Dispose(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if _, delErr := c.ch.QueueDelete(c.queue, false, false, false); delErr != nil && !isNotFound(delErr) {
			err = errors.Wrapf(delErr, "could not delete queue %s", c.queue)
		}
		if closeErr := c.ch.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) && err == nil {
			err = errors.Wrap(closeErr, "could not close channel")
		}
		logger.Ctx(ctx).Debug().Str("queue", c.queue).Msg("Result channel deleted")
	})
	return err
}

func isNotFound(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.NotFound
}
