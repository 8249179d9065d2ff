package application

import "govportal/internal/service/inventory/domain"

// AdjustRequest 是同步库存调整的请求体。Key 为空时不做幂等记录。
type AdjustRequest struct {
	Key   string `json:"key"`
	Delta int    `json:"delta"`
}

type AdjustResponse struct {
	ItemID    string `json:"itemId"`
	Committed bool   `json:"committed"`
	Reason    string `json:"reason,omitempty"`
	Replayed  bool   `json:"replayed,omitempty"`
}

// ItemResponse 是目录查询的返回结构
type ItemResponse struct {
	ItemID           string `json:"itemId"`
	Name             string `json:"name"`
	LocationID       string `json:"locationId"`
	CategoryID       string `json:"categoryId"`
	Kind             string `json:"kind"`
	Means            string `json:"means"`
	InventoryManaged bool   `json:"inventoryManaged"`
	Total            int    `json:"total"`
	Committed        int    `json:"committed"`
	Remaining        int    `json:"remaining"`
}

func NewItemResponse(i *domain.Item) ItemResponse {
	return ItemResponse{
		ItemID:           i.ID,
		Name:             i.Name,
		LocationID:       i.LocationID,
		CategoryID:       i.CategoryID,
		Kind:             i.Kind,
		Means:            i.Means,
		InventoryManaged: i.InventoryManaged,
		Total:            i.Total,
		Committed:        i.Committed,
		Remaining:        i.Remaining(),
	}
}
