package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/service/reservation/application"
	"govportal/internal/service/reservation/domain"
)

type stubService struct {
	route    domain.Means
	actor    domain.Actor
	id       string
	reason   string
	lookedUp bool
	err      error
}

func (s *stubService) view(id string, status domain.Status) (*application.ReservationView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.ReservationView{RequestID: id, Status: status}, nil
}

func (s *stubService) Create(_ context.Context, req *application.CreateRequest, route domain.Means, actor domain.Actor) (*application.ReservationView, error) {
	s.route, s.actor = route, actor
	return s.view("r-new", domain.StatusRequested)
}

func (s *stubService) Get(_ context.Context, id string, actor domain.Actor) (*application.ReservationView, error) {
	s.id, s.actor = id, actor
	return s.view(id, domain.StatusApproved)
}

func (s *stubService) Lookup(_ context.Context, id string) (*application.ReservationView, error) {
	s.id, s.lookedUp = id, true
	return s.view(id, domain.StatusApproved)
}

func (s *stubService) Update(_ context.Context, id string, _ *application.UpdateRequest, actor domain.Actor) (*application.ReservationView, error) {
	s.id, s.actor = id, actor
	return s.view(id, domain.StatusRequested)
}

func (s *stubService) Approve(_ context.Context, id string, actor domain.Actor) (*application.ReservationView, error) {
	s.id, s.actor = id, actor
	return s.view(id, domain.StatusApproved)
}

func (s *stubService) Cancel(_ context.Context, id, reason string, actor domain.Actor) (*application.ReservationView, error) {
	s.id, s.reason, s.actor = id, reason, actor
	return s.view(id, domain.StatusCancelled)
}

func newMux(svc ReservationService) *http.ServeMux {
	mux := http.NewServeMux()
	NewReservationHandler(svc).RegisterRoutes(mux)
	return mux
}

func TestCreateRoutes(t *testing.T) {
	tests := []struct {
		path  string
		route domain.Means
	}{
		{"/requests", domain.MeansRealtime},
		{"/requests/evaluates", domain.MeansEvaluate},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			svc := &stubService{}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"itemId":"course-1","quantity":1,"purpose":"class"}`))
			req.Header.Set(HeaderUserID, "u-1")
			req.Header.Set(HeaderUserRole, "ROLE_USER")
			rec := httptest.NewRecorder()

			newMux(svc).ServeHTTP(rec, req)

			if rec.Code != http.StatusCreated {
				t.Fatalf("status %d: %s", rec.Code, rec.Body)
			}
			if svc.route != tt.route || svc.actor.UserID != "u-1" {
				t.Errorf("unexpected route %s actor %+v", svc.route, svc.actor)
			}
			var view application.ReservationView
			if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil || view.RequestID != "r-new" {
				t.Errorf("unexpected body %s", rec.Body)
			}
		})
	}
}

func TestCreate_ValidationPayload(t *testing.T) {
	svc := &stubService{err: apperr.Validation(apperr.FieldError{Field: "startDate", Message: "must not be after endDate"})}
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(`{"itemId":"room-1"}`))
	rec := httptest.NewRecorder()

	newMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload apperr.Payload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Code != apperr.CodeValidation || len(payload.Errors) != 1 || payload.Errors[0].Field != "startDate" {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestCreate_MalformedBody(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	svc := &stubService{}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodPut, "/requests/r-9/approve", nil)
	req.Header.Set(HeaderUserID, "a-1")
	req.Header.Set(HeaderUserRole, domain.RoleAdmin)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || svc.id != "r-9" || !svc.actor.IsAdmin() {
		t.Errorf("approve: status %d id %q actor %+v", rec.Code, svc.id, svc.actor)
	}

	req = httptest.NewRequest(http.MethodPut, "/requests/r-9/cancel", strings.NewReader(`{"reason":"closed for repairs"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || svc.reason != "closed for repairs" {
		t.Errorf("cancel: status %d reason %q", rec.Code, svc.reason)
	}

	// 空请求体也可以取消
	req = httptest.NewRequest(http.MethodPut, "/requests/r-9/cancel", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cancel without body: status %d", rec.Code)
	}
}

func TestGetRoutes(t *testing.T) {
	t.Run("public read carries gateway identity", func(t *testing.T) {
		svc := &stubService{}
		req := httptest.NewRequest(http.MethodGet, "/requests/r-2", nil)
		req.Header.Set(HeaderUserID, "u-1")
		rec := httptest.NewRecorder()

		newMux(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || svc.lookedUp || svc.actor.UserID != "u-1" {
			t.Errorf("status %d lookedUp %v actor %+v", rec.Code, svc.lookedUp, svc.actor)
		}
	})

	t.Run("public read without identity is not an internal lookup", func(t *testing.T) {
		svc := &stubService{}
		rec := httptest.NewRecorder()

		newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests/r-2", nil))

		if svc.lookedUp || svc.actor.UserID != "" {
			t.Errorf("missing identity must reach Get with an empty actor, lookedUp %v actor %+v", svc.lookedUp, svc.actor)
		}
	})

	t.Run("internal lookup", func(t *testing.T) {
		svc := &stubService{}
		rec := httptest.NewRecorder()

		newMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, InternalLookupPrefix+"r-2", nil))

		if rec.Code != http.StatusOK || !svc.lookedUp || svc.id != "r-2" {
			t.Errorf("status %d lookedUp %v id %q", rec.Code, svc.lookedUp, svc.id)
		}
	})
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NotFound(apperr.CodeReservationAbsent, "reservation r-1 not found"), http.StatusNotFound},
		{apperr.Forbidden("approve requires ROLE_ADMIN"), http.StatusForbidden},
		{apperr.Conflict(apperr.CodeInvalidState, "reservation r-1 is CANCELLED"), http.StatusConflict},
		{apperr.Transient(nil, "circuit breaker inventory-service is open"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		newMux(&stubService{err: tt.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests/r-1", nil))
		if rec.Code != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

type outcomeRecorder struct{ got *events.ReservationOutcome }

func (o *outcomeRecorder) OnOutcome(_ context.Context, ev *events.ReservationOutcome) error {
	o.got = ev
	return nil
}

func TestOutcomeHandler(t *testing.T) {
	rec := &outcomeRecorder{}
	h := NewOutcomeHandler(rec)

	err := h.Handle(context.Background(), kafka.Message{Value: []byte(`{"requestId":"r-1","committed":true}`)})
	if err != nil || rec.got == nil || !rec.got.Committed {
		t.Fatalf("unexpected result %v %+v", err, rec.got)
	}
	err = h.Handle(context.Background(), kafka.Message{Value: []byte(`not json`)})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("malformed payload should be a permanent failure, got %v", err)
	}
}
