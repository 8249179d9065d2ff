// Package events 定义预约服务与库存服务之间交换的消息体。
package events

import "time"

// 结果原因
const (
	ReasonCapacityExhausted = "CAPACITY_EXHAUSTED"
	ReasonItemNotFound      = "ITEM_NOT_FOUND"
	ReasonInvalidQuantity   = "INVALID_QUANTITY"
)

// ReservationRequested 由编排器发布到 reservation-requested topic，key 为 RequestID。
type ReservationRequested struct {
	EventID     string    `json:"eventId"`
	TraceID     string    `json:"traceId,omitempty"`
	RequestID   string    `json:"requestId"`
	ItemID      string    `json:"itemId"`
	Quantity    int       `json:"requestedQty"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ReservationOutcome 每个被消费的 ReservationRequested 恰好产生一条。
type ReservationOutcome struct {
	RequestID string    `json:"requestId"`
	ItemID    string    `json:"itemId,omitempty"`
	Committed bool      `json:"committed"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
