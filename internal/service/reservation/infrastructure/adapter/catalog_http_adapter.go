package adapter

import (
	"context"
	"net/url"
	"strings"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/breaker"
	"govportal/internal/pkg/httpclient"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)

const (
	catalogServiceName = "catalog-service"
	userServiceName    = "user-service"
)

type itemResponse struct {
	ItemID           string `json:"itemId"`
	Name             string `json:"name"`
	LocationID       string `json:"locationId"`
	CategoryID       string `json:"categoryId"`
	Kind             string `json:"kind"`
	Means            string `json:"means"`
	InventoryManaged bool   `json:"inventoryManaged"`
	Total            int    `json:"total"`
	Remaining        int    `json:"remaining"`
}

// CatalogHTTPAdapter 实现了 port.CatalogService
type CatalogHTTPAdapter struct {
	client  *httpclient.Client
	breaker *breaker.Breaker[*port.Item]
}

func NewCatalogHTTPAdapter(client *httpclient.Client, cfg breaker.Config) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, breaker: breaker.New[*port.Item](catalogServiceName, cfg)}
}

func (a *CatalogHTTPAdapter) GetItem(ctx context.Context, itemID string) (*port.Item, error) {
	return a.breaker.Execute(ctx, func(ctx context.Context) (*port.Item, error) {
		var resp itemResponse
		if err := a.client.GetJSON(ctx, catalogServiceName, "/items/"+url.PathEscape(itemID), &resp); err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.NotFound(apperr.CodeItemAbsent, "item %s not found", itemID)
			}
			return nil, err
		}
		return &port.Item{
			ID:               resp.ItemID,
			Name:             resp.Name,
			LocationID:       resp.LocationID,
			CategoryID:       resp.CategoryID,
			Kind:             domain.CategoryKind(strings.ToUpper(resp.Kind)),
			Means:            domain.Means(strings.ToUpper(resp.Means)),
			InventoryManaged: resp.InventoryManaged,
			Total:            resp.Total,
			Remaining:        resp.Remaining,
		}, nil
	})
}

type profileResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// UserHTTPAdapter 实现了 port.UserDirectory
type UserHTTPAdapter struct {
	client  *httpclient.Client
	breaker *breaker.Breaker[*port.Profile]
}

func NewUserHTTPAdapter(client *httpclient.Client, cfg breaker.Config) *UserHTTPAdapter {
	return &UserHTTPAdapter{client: client, breaker: breaker.New[*port.Profile](userServiceName, cfg)}
}

func (a *UserHTTPAdapter) GetProfile(ctx context.Context, userID string) (*port.Profile, error) {
	return a.breaker.Execute(ctx, func(ctx context.Context) (*port.Profile, error) {
		var resp profileResponse
		if err := a.client.GetJSON(ctx, userServiceName, "/users/"+url.PathEscape(userID), &resp); err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.NotFound(apperr.CodeUserAbsent, "user %s not found", userID)
			}
			return nil, err
		}
		return &port.Profile{UserID: resp.UserID, DisplayName: resp.Name, Email: resp.Email, Phone: resp.Phone}, nil
	})
}
