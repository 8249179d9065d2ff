package adapter

import (
	"context"
	"net/url"

	"govportal/internal/pkg/breaker"
	"govportal/internal/pkg/httpclient"
)

const inventoryServiceName = "inventory-service"

type adjustRequest struct {
	Key   string `json:"key"`
	Delta int    `json:"delta"`
}

type adjustResponse struct {
	Committed bool   `json:"committed"`
	Reason    string `json:"reason,omitempty"`
}

// InventoryHTTPAdapter 实现了 port.InventoryService，同步调用库存服务，受熔断器保护。
type InventoryHTTPAdapter struct {
	client  *httpclient.Client
	breaker *breaker.Breaker[bool]
}

func NewInventoryHTTPAdapter(client *httpclient.Client, cfg breaker.Config) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{
		client:  client,
		breaker: breaker.New[bool](inventoryServiceName, cfg),
	}
}

func (a *InventoryHTTPAdapter) Adjust(ctx context.Context, key, itemID string, delta int) (bool, error) {
	return a.breaker.Execute(ctx, func(ctx context.Context) (bool, error) {
		var resp adjustResponse
		path := "/inventories/" + url.PathEscape(itemID) + "/adjust"
		if err := a.client.PostJSON(ctx, inventoryServiceName, path, adjustRequest{Key: key, Delta: delta}, &resp); err != nil {
			return false, err
		}
		return resp.Committed, nil
	})
}
