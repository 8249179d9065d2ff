// internal/pkg/rabbitmq/connection.go
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"govportal/internal/pkg/logger"
)

// ExchangeKind direct: 路由键就是请求 ID，按请求精确投递
const ExchangeKind = amqp.ExchangeDirect

// SetupConn 建立连接 (容器启动期间重试若干次) 并声明结果交换机。
func SetupConn(ctx context.Context, url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.L().Warn().Err(err).Int("attempt", attempt).Msg("failed to connect to RabbitMQ")
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := DeclareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	logger.L().Info().Str("exchange", exchange).Msg("✅ Connected to RabbitMQ.")
	return conn, ch, nil
}

func DeclareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange,
		ExchangeKind,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("could not declare exchange %s: %w", exchange, err)
	}
	return nil
}
