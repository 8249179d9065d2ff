package port

import (
	"context"

	"govportal/internal/service/reservation/domain"
)

// Item 是目录服务返回的物品信息
type Item struct {
	ID               string
	Name             string
	LocationID       string
	CategoryID       string
	Kind             domain.CategoryKind
	Means            domain.Means
	InventoryManaged bool
	Total            int
	Remaining        int
}

type CatalogService interface {
	GetItem(ctx context.Context, itemID string) (*Item, error)
}

// Profile 是用户目录返回的申请人信息
type Profile struct {
	UserID      string
	DisplayName string
	Email       string
	Phone       string
}

type UserDirectory interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}
