// internal/service/broker/domain/channel.go
package domain

import (
	"context"
	"time"

	"govportal/internal/pkg/events"
)

// Channel 是以请求 ID 命名的一次性投递通道，随结果流的打开而创建、关闭而删除。
type Channel interface {
	// Deliveries 在通道被删除后关闭
	Deliveries() <-chan events.ReservationOutcome
	// Dispose 删除通道，重复调用不报错
	Dispose(ctx context.Context) error
}

// Provisioner 在消息中间件上创建通道并完成订阅
type Provisioner interface {
	Provision(ctx context.Context, requestID string) (Channel, error)
}

// Ownership 保证跨节点同一请求 ID 同时只有一个活动的结果流。
type Ownership interface {
	Claim(ctx context.Context, requestID string) (bool, error)
	Refresh(ctx context.Context, requestID string) error
	Release(ctx context.Context, requestID string) error
}

// StatusLookup 查询预约当前状态，found=false 表示记录不存在
type StatusLookup interface {
	Lookup(ctx context.Context, requestID string) (status string, found bool, err error)
}

// 帧类型
const (
	FrameKeepAlive = "keepalive"
	FrameOutcome   = "outcome"
)

// Frame 是推送给调用方的一帧，只有 keepalive 与 outcome 两种。
type Frame struct {
	Type      string     `json:"type"`
	RequestID string     `json:"requestId"`
	At        *time.Time `json:"at,omitempty"`
	Committed *bool      `json:"committed,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func KeepAliveFrame(requestID string, at time.Time) Frame {
	return Frame{Type: FrameKeepAlive, RequestID: requestID, At: &at}
}

func OutcomeFrame(o events.ReservationOutcome) Frame {
	committed := o.Committed
	return Frame{Type: FrameOutcome, RequestID: o.RequestID, Committed: &committed, Reason: o.Reason}
}
