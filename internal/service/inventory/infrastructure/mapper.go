package infrastructure

import "govportal/internal/service/inventory/domain"

// ToDomainItem 将数据库模型转换为领域模型
func ToDomainItem(m *InventoryModel) *domain.Item {
	if m == nil {
		return nil
	}
	return &domain.Item{
		ID:               m.ItemID,
		Name:             m.Name,
		LocationID:       m.LocationID,
		CategoryID:       m.CategoryID,
		Kind:             m.Kind,
		Means:            m.Means,
		InventoryManaged: m.InventoryManaged,
		Total:            m.Total,
		Committed:        m.Committed,
	}
}

func FromDomainItem(i *domain.Item) *InventoryModel {
	if i == nil {
		return nil
	}
	return &InventoryModel{
		ItemID:           i.ID,
		Name:             i.Name,
		LocationID:       i.LocationID,
		CategoryID:       i.CategoryID,
		Kind:             i.Kind,
		Means:            i.Means,
		InventoryManaged: i.InventoryManaged,
		Total:            i.Total,
		Committed:        i.Committed,
	}
}
