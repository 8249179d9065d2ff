package port

import (
	"context"
	"time"

	"govportal/internal/pkg/events"
	"govportal/internal/service/reservation/domain"
)

// RequestPublisher 发布 reservation-requested 事件
type RequestPublisher interface {
	PublishRequested(ctx context.Context, ev *events.ReservationRequested) error
}

// OutcomeNotifier 把结果投递到以请求 ID 命名的通道。没有订阅者时消息被丢弃，不算错误。
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, outcome *events.ReservationOutcome) error
}

// DelayScheduler 安排一次超时检查
type DelayScheduler interface {
	ScheduleTimeoutCheck(ctx context.Context, ev *domain.TimeoutCheckEvent, delay time.Duration) error
}
