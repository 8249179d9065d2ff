package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"govportal/internal/pkg/apperr"
)

func TestClient_DoTranslatesResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/items/ok", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing accept header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"itemId": "ok", "total": 3})
	})
	mux.HandleFunc("/items/missing", func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteHTTP(w, r, apperr.NotFound(apperr.CodeItemAbsent, "item missing not found"))
	})
	mux.HandleFunc("/items/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(otel.Tracer("test"), StaticResolver{"catalog": srv.URL + "/"}, time.Second)

	var item struct {
		ItemID string `json:"itemId"`
		Total  int    `json:"total"`
	}
	if err := c.GetJSON(context.Background(), "catalog", "/items/ok", &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ItemID != "ok" || item.Total != 3 {
		t.Errorf("unexpected body %+v", item)
	}

	err := c.GetJSON(context.Background(), "catalog", "/items/missing", nil)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if apperr.From(err).Code != apperr.CodeItemAbsent {
		t.Errorf("downstream code should be preserved, got %s", apperr.From(err).Code)
	}

	if err := c.GetJSON(context.Background(), "catalog", "/items/down", nil); !apperr.IsTransient(err) {
		t.Errorf("5xx must be transient, got %v", err)
	}

	if err := c.GetJSON(context.Background(), "profile", "/users/1", nil); !apperr.IsTransient(err) {
		t.Errorf("unresolvable service must be transient, got %v", err)
	}
}
