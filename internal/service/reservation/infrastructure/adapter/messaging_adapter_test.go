package adapter

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"

	"govportal/internal/pkg/events"
	"govportal/internal/pkg/mq"
	"govportal/internal/service/reservation/domain"
)

type capturePublisher struct {
	exchange, key string
	msg           amqp.Publishing
}

func (c *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func TestOutcomeAMQPAdapter_RoutesByRequestID(t *testing.T) {
	pub := &capturePublisher{}
	a := NewOutcomeAMQPAdapter(pub, "reservation.outcome")

	err := a.NotifyOutcome(context.Background(), &events.ReservationOutcome{RequestID: "r-42", Committed: true})
	if err != nil {
		t.Fatal(err)
	}
	if pub.exchange != "reservation.outcome" || pub.key != "r-42" {
		t.Errorf("unexpected routing %s/%s", pub.exchange, pub.key)
	}
	var got events.ReservationOutcome
	if err := json.Unmarshal(pub.msg.Body, &got); err != nil || !got.Committed {
		t.Errorf("unexpected body %s (%v)", pub.msg.Body, err)
	}
}

type captureWriter struct{ msgs []kafka.Message }

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}
func (w *captureWriter) Close() error { return nil }

func TestSchedulerKafkaAdapter_PicksDelayLevel(t *testing.T) {
	w := &captureWriter{}
	a := NewSchedulerKafkaAdapter(w, "reservation-timeout-check")
	fixed := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	err := a.ScheduleTimeoutCheck(context.Background(), &domain.TimeoutCheckEvent{RequestID: "r-1", Attempt: 0}, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "delay_topic_1m" {
		t.Errorf("30s delay should use the 1m level, got %s", m.Topic)
	}
	if got := mq.Header(m.Headers, mq.HeaderRealTopic); got != "reservation-timeout-check" {
		t.Errorf("unexpected real topic header %q", got)
	}
	if got := mq.Header(m.Headers, mq.HeaderDelayTimestamp); got != "2026-01-01T09:01:00Z" {
		t.Errorf("unexpected delay timestamp %q", got)
	}
}
