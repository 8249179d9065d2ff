package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/httpclient"
)

func TestReservationStatusAdapter_UsesInternalRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != "" {
			t.Errorf("internal lookup must not impersonate a user")
		}
		switch r.URL.Path {
		case "/internal/requests/r-1":
			_ = json.NewEncoder(w).Encode(map[string]string{"requestId": "r-1", "status": "APPROVED"})
		case "/internal/requests/gone":
			apperr.WriteHTTP(w, r, apperr.NotFound(apperr.CodeReservationAbsent, "reservation gone not found"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"), httpclient.StaticResolver{reservationServiceName: srv.URL}, time.Second)
	a := NewReservationStatusAdapter(client)

	status, found, err := a.Lookup(context.Background(), "r-1")
	if err != nil || !found || status != "APPROVED" {
		t.Errorf("got %q %v %v", status, found, err)
	}
	_, found, err = a.Lookup(context.Background(), "gone")
	if err != nil || found {
		t.Errorf("absent reservation should be reported as not found, got %v %v", found, err)
	}
}
