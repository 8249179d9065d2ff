package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/breaker"
	"govportal/internal/pkg/httpclient"
	"govportal/internal/service/reservation/domain"
)

func TestInventoryHTTPAdapter_BreakerFailsFast(t *testing.T) {
	// F F S F S F，第 7 次调用不应到达下游
	script := []int{503, 503, 200, 503, 200, 503, 200}
	var hits int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		status := script[n-1]
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"itemId": "A", "committed": true})
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"), httpclient.StaticResolver{inventoryServiceName: srv.URL}, time.Second)
	a := NewInventoryHTTPAdapter(client, breaker.DefaultConfig())

	for i := 0; i < 6; i++ {
		_, _ = a.Adjust(context.Background(), "", "A", 1)
	}
	_, err := a.Adjust(context.Background(), "", "A", 1)
	if !apperr.IsTransient(err) {
		t.Fatalf("7th call must fail fast with a transient error, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 6 {
		t.Errorf("downstream must see exactly 6 calls, got %d", got)
	}
}

func TestInventoryHTTPAdapter_PostsKeyAndDelta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inventories/room%2F1/adjust" && r.URL.Path != "/inventories/room/1/adjust" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body adjustRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Key != "r-9" || body.Delta != -2 {
			t.Errorf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(adjustResponse{Committed: true})
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"), httpclient.StaticResolver{inventoryServiceName: srv.URL}, time.Second)
	ok, err := NewInventoryHTTPAdapter(client, breaker.DefaultConfig()).Adjust(context.Background(), "r-9", "room/1", -2)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
}

func TestCatalogHTTPAdapter_MapsItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/items/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(itemResponse{ItemID: "A", Kind: "scheduled", Means: "realtime", InventoryManaged: true, Total: 2, Remaining: 1})
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"), httpclient.StaticResolver{catalogServiceName: srv.URL}, time.Second)
	a := NewCatalogHTTPAdapter(client, breaker.DefaultConfig())

	item, err := a.GetItem(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if item.Kind != domain.KindScheduled || item.Means != domain.MeansRealtime || !item.InventoryManaged {
		t.Errorf("unexpected item %+v", item)
	}

	_, err = a.GetItem(context.Background(), "missing")
	if apperr.From(err).Code != apperr.CodeItemAbsent {
		t.Errorf("expected item-not-found code, got %v", err)
	}
}
