// internal/service/reservation/domain/repository.go
package domain

import "context"

// Repository 定义了预约聚合的持久化接口。
// 找不到记录时返回 apperr 的 not-found 错误，存储不可用时返回 transient 错误。
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	FindByID(ctx context.Context, id string) (*Reservation, error)

	// Save 保存可变字段，不改状态。仅当存储中的状态仍为 r.Status 时生效，否则返回 conflict。
	Save(ctx context.Context, r *Reservation) error

	// TransitionStatus 是条件更新：仅当当前状态为 from 时改为 to，返回是否生效。
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// CancelIfStatus 仅当当前状态为 from 时改为 CANCELLED 并记录原因
	CancelIfStatus(ctx context.Context, id string, from Status, reason string) (bool, error)

	// DeleteIfStatus 仅当当前状态为 status 时删除记录
	DeleteIfStatus(ctx context.Context, id string, status Status) (bool, error)
}
