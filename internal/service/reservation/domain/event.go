// internal/service/reservation/domain/event.go
package domain

import "time"

// TimeoutCheckEvent 通过延迟队列在 reservation.timeout 之后送回编排器。
type TimeoutCheckEvent struct {
	TraceID     string    `json:"traceId,omitempty"`
	RequestID   string    `json:"requestId"`
	Attempt     int       `json:"attempt"`
	ScheduledAt time.Time `json:"scheduledAt"`
}
