package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/inventory/application"
	"govportal/internal/service/inventory/domain"
)

type stubService struct {
	gotKey   string
	gotDelta int
	decision domain.Decision
	err      error
}

func (s *stubService) UpdateInventory(_ context.Context, key, itemID string, delta int) (domain.Decision, error) {
	s.gotKey, s.gotDelta = key, delta
	return s.decision, s.err
}

func (s *stubService) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	if itemID != "A" {
		return nil, apperr.NotFound(apperr.CodeItemAbsent, "item %s not found", itemID)
	}
	return &domain.Item{ID: "A", Name: "Projector", Kind: "SCHEDULED", Means: "REALTIME", InventoryManaged: true, Total: 4, Committed: 1}, nil
}

func newServer(svc InventoryService) *http.ServeMux {
	mux := http.NewServeMux()
	NewInventoryHandler(svc).RegisterRoutes(mux)
	return mux
}

func TestHandleAdjust(t *testing.T) {
	svc := &stubService{decision: domain.Decision{Committed: false, Reason: "CAPACITY_EXHAUSTED"}}
	mux := newServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/inventories/A/adjust", strings.NewReader(`{"key":"r-1","delta":2}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotKey != "r-1" || svc.gotDelta != 2 {
		t.Errorf("request not forwarded: key=%q delta=%d", svc.gotKey, svc.gotDelta)
	}
	var resp application.AdjustResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Committed || resp.Reason != "CAPACITY_EXHAUSTED" || resp.ItemID != "A" {
		t.Errorf("capacity exhaustion is business data, got %+v", resp)
	}
}

func TestHandleAdjust_BadBody(t *testing.T) {
	mux := newServer(&stubService{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventories/A/adjust", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetItem(t *testing.T) {
	mux := newServer(&stubService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/A", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var item application.ItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.Remaining != 3 {
		t.Errorf("expected remaining 3, got %d", item.Remaining)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
