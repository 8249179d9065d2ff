package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/reservation/application"
	"govportal/internal/service/reservation/domain"
)

// 网关注入的身份头
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// InternalLookupPrefix 是集群内部状态查询路由，对外网关不转发 /internal 前缀
const InternalLookupPrefix = "/internal/requests/"

// ReservationService 是 HTTP 层依赖的应用服务能力
type ReservationService interface {
	Create(ctx context.Context, req *application.CreateRequest, route domain.Means, actor domain.Actor) (*application.ReservationView, error)
	Get(ctx context.Context, id string, actor domain.Actor) (*application.ReservationView, error)
	Lookup(ctx context.Context, id string) (*application.ReservationView, error)
	Update(ctx context.Context, id string, req *application.UpdateRequest, actor domain.Actor) (*application.ReservationView, error)
	Approve(ctx context.Context, id string, actor domain.Actor) (*application.ReservationView, error)
	Cancel(ctx context.Context, id, reason string, actor domain.Actor) (*application.ReservationView, error)
}

// ReservationHandler 封装了预约服务的 HTTP 处理器
type ReservationHandler struct {
	service ReservationService
	tracer  trace.Tracer
}

func NewReservationHandler(service ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service, tracer: otel.Tracer("reservation-http")}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ReservationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /requests/evaluates", h.handleCreate(domain.MeansEvaluate))
	mux.HandleFunc("POST /requests", h.handleCreate(domain.MeansRealtime))
	mux.HandleFunc("GET /requests/{requestId}", h.handleGet)
	mux.HandleFunc("PUT /requests/{requestId}", h.handleUpdate)
	mux.HandleFunc("PUT /requests/{requestId}/approve", h.handleApprove)
	mux.HandleFunc("PUT /requests/{requestId}/cancel", h.handleCancel)
	mux.HandleFunc("GET "+InternalLookupPrefix+"{requestId}", h.handleLookup)
}

func (h *ReservationHandler) handleCreate(route domain.Means) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.start(r, "http.CreateReservation")
		defer span.End()
		span.SetAttributes(attribute.String("reservation.route", string(route)))

		var req application.CreateRequest
		if !decode(w, r, &req) {
			return
		}
		view, err := h.service.Create(ctx, &req, route, actorOf(r))
		if err != nil {
			span.RecordError(err)
			apperr.WriteHTTP(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func (h *ReservationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "http.GetReservation")
	defer span.End()

	view, err := h.service.Get(ctx, r.PathValue("requestId"), actorOf(r))
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReservationHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "http.LookupReservation")
	defer span.End()

	view, err := h.service.Lookup(ctx, r.PathValue("requestId"))
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReservationHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "http.UpdateReservation")
	defer span.End()

	var req application.UpdateRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.Update(ctx, r.PathValue("requestId"), &req, actorOf(r))
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReservationHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "http.ApproveReservation")
	defer span.End()

	view, err := h.service.Approve(ctx, r.PathValue("requestId"), actorOf(r))
	if err != nil {
		span.RecordError(err)
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCancel 请求体可以为空
func (h *ReservationHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "http.CancelReservation")
	defer span.End()

	var req application.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apperr.WriteHTTP(w, r, apperr.Validation(apperr.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}
	view, err := h.service.Cancel(ctx, r.PathValue("requestId"), req.Reason, actorOf(r))
	if err != nil {
		apperr.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ReservationHandler) start(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
	if id := r.PathValue("requestId"); id != "" {
		span.SetAttributes(attribute.String("reservation.id", id))
	}
	return ctx, span
}

func actorOf(r *http.Request) domain.Actor {
	return domain.Actor{UserID: r.Header.Get(HeaderUserID), Role: r.Header.Get(HeaderUserRole)}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apperr.WriteHTTP(w, r, apperr.Validation(apperr.FieldError{Field: "body", Message: "invalid JSON"}))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
