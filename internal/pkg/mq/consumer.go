package mq

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
)

var tracer = otel.Tracer("mq-consumer")

// HandlerFunc 处理一条消息。返回 transient 错误时消息会原地重试且不提交 offset，
// 其他错误会进入死信队列后提交。
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// DeadLetterer 由 *FailureHandler 实现。
type DeadLetterer interface {
	Handle(ctx context.Context, msg kafka.Message, cause error) error
}

// ConsumerOption 调整重试节奏
type ConsumerOption func(*Consumer)

func WithBackoff(initial, max time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.backoff = initial
		c.maxBackoff = max
	}
}

// Consumer 是通用的 "拉取 -> 处理 -> 失败处理 -> 提交" 循环。
type Consumer struct {
	name       string
	reader     MessageFetcher
	handle     HandlerFunc
	failure    DeadLetterer
	backoff    time.Duration
	maxBackoff time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(name string, reader MessageFetcher, handle HandlerFunc, failure DeadLetterer, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		name:       name,
		reader:     reader,
		handle:     handle,
		failure:    failure,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 在后台 goroutine 中消费，直到 ctx 取消或 Stop 被调用。
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	topic := c.reader.Config().Topic

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Str("consumer", c.name).Str("topic", topic).Msg("✅ Kafka consumer started.")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.L().Info().Str("consumer", c.name).Msg("🛑 Kafka consumer shutting down.")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Str("consumer", c.name).Msg("could not fetch message, retrying")
				if !sleep(ctx, c.backoff) {
					return
				}
				continue
			}

			if !c.process(ctx, msg) {
				return
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("consumer", c.name).Msg("failed to commit message")
			}
		}
	}()
	return nil
}

// process 返回 false 表示在消息处理完成前 ctx 已取消，消息不能提交。
func (c *Consumer) process(parent context.Context, msg kafka.Message) bool {
	ctx := ExtractTraceContext(parent, msg.Headers)
	ctx, span := tracer.Start(ctx, c.name+".consume", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		))
	defer span.End()

	wait := c.backoff
	for {
		err := c.handle(ctx, msg)
		if err == nil {
			metrics.ConsumerMessages.WithLabelValues(msg.Topic, "ok").Inc()
			return true
		}
		span.RecordError(err)

		if apperr.IsTransient(err) {
			metrics.ConsumerMessages.WithLabelValues(msg.Topic, "retry").Inc()
			logger.Ctx(ctx).Warn().Err(err).Str("consumer", c.name).Dur("backoff", wait).Msg("transient failure, retrying message")
			if !sleep(parent, wait) {
				span.SetStatus(codes.Error, "cancelled during retry")
				return false
			}
			wait = nextBackoff(wait, c.maxBackoff)
			continue
		}

		span.SetStatus(codes.Error, err.Error())
		metrics.ConsumerMessages.WithLabelValues(msg.Topic, "dead").Inc()
		for {
			dltErr := c.failure.Handle(ctx, msg, err)
			if dltErr == nil {
				return true
			}
			logger.Ctx(ctx).Error().Err(dltErr).Str("consumer", c.name).Msg("failed to dead-letter message")
			if !sleep(parent, wait) {
				return false
			}
			wait = nextBackoff(wait, c.maxBackoff)
		}
	}
}

// Stop 停止消费并等待循环退出。
func (c *Consumer) Stop(ctx context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if err := c.reader.Close(); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("consumer", c.name).Msg("failed to close reader")
	}
	logger.Ctx(ctx).Info().Str("consumer", c.name).Msg("✅ Kafka consumer stopped.")
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
