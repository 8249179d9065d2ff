package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/mq"
	"govportal/internal/service/reservation/domain"
)

// SchedulerKafkaAdapter 实现了 port.DelayScheduler：写入延迟主题，由 delay-scheduler 到期后转发到 realTopic。
type SchedulerKafkaAdapter struct {
	writer    mq.MessageWriter
	realTopic string
	now       func() time.Time
}

// NewSchedulerKafkaAdapter writer 不绑定 topic，按延迟级别逐条指定。
func NewSchedulerKafkaAdapter(writer mq.MessageWriter, realTopic string) *SchedulerKafkaAdapter {
	return &SchedulerKafkaAdapter{writer: writer, realTopic: realTopic, now: time.Now}
}

func (a *SchedulerKafkaAdapter) ScheduleTimeoutCheck(ctx context.Context, ev *domain.TimeoutCheckEvent, delay time.Duration) error {
	level := mq.PickDelayLevel(delay)
	now := a.now().UTC()
	ev.TraceID = trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	ev.ScheduledAt = now

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: level.Topic,
		Key:   []byte(ev.RequestID),
		Value: body,
		Headers: []kafka.Header{
			{Key: mq.HeaderRealTopic, Value: []byte(a.realTopic)},
			{Key: mq.HeaderDelayTimestamp, Value: []byte(now.Add(level.Delay).Format(time.RFC3339))},
		},
	}
	mq.InjectTraceContext(ctx, &msg.Headers)
	return a.writer.WriteMessages(ctx, msg)
}
