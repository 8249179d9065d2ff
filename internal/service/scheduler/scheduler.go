// Package scheduler 实现基于 Kafka 延迟主题的延迟投递：每个延迟级别一个主题，
// 到期后把消息转发到 real-topic 头指定的真实主题。
package scheduler

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/mq"
)

var tracer = otel.Tracer("delay-scheduler")

// LevelScheduler 负责一个延迟级别。同一级别的延迟相同，队头到期前后续消息也不会到期，
// 所以只需等待队头。
type LevelScheduler struct {
	level  mq.DelayLevel
	reader mq.MessageFetcher
	writer mq.MessageWriter
	retry  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewLevelScheduler(level mq.DelayLevel, reader mq.MessageFetcher, writer mq.MessageWriter) *LevelScheduler {
	return &LevelScheduler{
		level:  level,
		reader: reader,
		writer: writer,
		retry:  time.Second,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run 阻塞直到 ctx 取消
func (s *LevelScheduler) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("level", s.level.Topic).Dur("delay", s.level.Delay).Msg("✅ Delay scheduler level started.")
	defer logger.L().Info().Str("level", s.level.Topic).Msg("🛑 Delay scheduler level stopped.")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("level", s.level.Topic).Msg("could not fetch delayed message")
			if !s.sleep(ctx, s.retry) {
				return nil
			}
			continue
		}
		if !s.forward(ctx, msg) {
			return nil
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("level", s.level.Topic).Msg("failed to commit delayed message")
		}
	}
}

// dueAt 优先使用生产者写入的 delay-timestamp，缺失时按消息时间加级别延迟计算。
func (s *LevelScheduler) dueAt(msg kafka.Message) time.Time {
	if raw := mq.Header(msg.Headers, mq.HeaderDelayTimestamp); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return msg.Time.Add(s.level.Delay)
}

// forward 等到消息到期后投递，返回 false 表示 ctx 已取消，消息不能提交。
func (s *LevelScheduler) forward(parent context.Context, msg kafka.Message) bool {
	ctx := mq.ExtractTraceContext(parent, msg.Headers)
	due := s.dueAt(msg)
	ctx, span := tracer.Start(ctx, "scheduler.Forward", trace.WithAttributes(
		attribute.String("delay.level", s.level.Topic),
		attribute.String("delay.due", due.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	if wait := due.Sub(s.now()); wait > 0 {
		if !s.sleep(parent, wait) {
			return false
		}
	}

	realTopic := mq.Header(msg.Headers, mq.HeaderRealTopic)
	if realTopic == "" {
		// 无法投递的消息也要提交，否则会一直阻塞本级别
		logger.Ctx(ctx).Error().Str("level", s.level.Topic).Int64("offset", msg.Offset).Msg("'real-topic' header missing, skipping message")
		span.SetStatus(codes.Error, "missing real-topic header")
		return true
	}

	out := kafka.Message{Topic: realTopic, Key: msg.Key, Value: msg.Value}
	mq.InjectTraceContext(ctx, &out.Headers)
	for {
		err := s.writer.WriteMessages(ctx, out)
		if err == nil {
			break
		}
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("realTopic", realTopic).Msg("failed to forward delayed message, retrying")
		if !s.sleep(parent, s.retry) {
			return false
		}
	}
	span.AddEvent("MessageForwarded", trace.WithAttributes(attribute.String("real.topic", realTopic)))
	logger.Ctx(ctx).Info().Str("level", s.level.Topic).Str("realTopic", realTopic).Msg("Delayed message forwarded")
	return true
}

// Scheduler 同时运行所有延迟级别
type Scheduler struct {
	levels []*LevelScheduler
}

func New(levels ...*LevelScheduler) *Scheduler {
	return &Scheduler{levels: levels}
}

func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.levels {
		g.Go(func() error { return l.Run(gctx) })
	}
	return g.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
