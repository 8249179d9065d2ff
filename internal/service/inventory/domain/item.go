// internal/service/inventory/domain/item.go
package domain

import (
	"context"
	"time"
)

// Item 是可预约物品及其库存记录。Committed 永远不超过 Total。
type Item struct {
	ID         string
	Name       string
	LocationID string
	CategoryID string
	// Kind 决定预约时的字段校验方式：SCHEDULED / ATTENDANCE / UNRESTRICTED
	Kind string
	// Means 决定受理方式：REALTIME / EVALUATE / EXTERNAL
	Means            string
	InventoryManaged bool
	Total            int
	Committed        int
}

func (i *Item) Remaining() int {
	return i.Total - i.Committed
}

// Decision 是一次库存检查并调整的结果。
type Decision struct {
	Committed bool
	Reason    string
	// Replayed 为 true 表示该幂等键之前已经处理过，这里返回的是记录下来的结果
	Replayed bool
}

// LedgerPolicy 决定被拒绝的调整是否写入幂等台账。
type LedgerPolicy int

const (
	// RecordAll 用于事件路径：拒绝同样记录，重投递时重放同一结果，
	// 避免预约已被移除后的重投递又扣减库存。
	RecordAll LedgerPolicy = iota
	// RecordCommitted 用于同步路径：只记录成功的调整，被拒绝后可以用同一 key 再次尝试。
	RecordCommitted
)

// Repository 由基础设施层实现。
type Repository interface {
	FindItem(ctx context.Context, itemID string) (*Item, error)

	// Adjust 原子地执行 committed += delta，仅当 0 <= committed+delta <= total 时生效。
	// key 非空时按 policy 与幂等台账在同一事务内记录，已记录的 key 重复调用返回记录的结果且不再改库存。
	Adjust(ctx context.Context, key, itemID string, delta int, policy LedgerPolicy) (Decision, error)

	// PurgeLedger 删除 before 之前处理过的幂等记录，返回删除条数。
	PurgeLedger(ctx context.Context, before time.Time) (int64, error)
}
