package port

import "context"

// InventoryService 是库存协调者同步接口的出站端口，由熔断器保护。
type InventoryService interface {
	// Adjust 原子地调整已占用数量，key 用于幂等。返回是否生效。
	Adjust(ctx context.Context, key, itemID string, delta int) (bool, error)
}
