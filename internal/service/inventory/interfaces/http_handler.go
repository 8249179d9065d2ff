package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/inventory/application"
	"govportal/internal/service/inventory/domain"
)

// InventoryService 是 HTTP 层依赖的应用服务能力
type InventoryService interface {
	UpdateInventory(ctx context.Context, key, itemID string, delta int) (domain.Decision, error)
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
}

// InventoryHandler 封装了库存服务的 HTTP 处理器
type InventoryHandler struct {
	service InventoryService
}

func NewInventoryHandler(service InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /inventories/{itemId}/adjust", h.handleAdjust)
	mux.HandleFunc("GET /items/{itemId}", h.handleGetItem)
}

func (h *InventoryHandler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	itemID := r.PathValue("itemId")

	var req application.AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteHTTP(w, r, apperr.Validation(apperr.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}

	decision, err := h.service.UpdateInventory(ctx, req.Key, itemID, req.Delta)
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.AdjustResponse{
		ItemID:    itemID,
		Committed: decision.Committed,
		Reason:    decision.Reason,
		Replayed:  decision.Replayed,
	})
}

func (h *InventoryHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	item, err := h.service.GetItem(ctx, r.PathValue("itemId"))
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.NewItemResponse(item))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
