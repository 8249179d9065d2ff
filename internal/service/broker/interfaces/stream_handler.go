package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/logger"
	"govportal/internal/service/broker/application"
	"govportal/internal/service/broker/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由网关处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler 提供结果流的 SSE 与 websocket 两种形式
type StreamHandler struct {
	manager *application.ChannelManager
	tracer  trace.Tracer
}

func NewStreamHandler(manager *application.ChannelManager) *StreamHandler {
	return &StreamHandler{manager: manager, tracer: otel.Tracer("push-gateway")}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *StreamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /requests/direct/{requestId}", h.handleSSE)
	mux.HandleFunc("GET /requests/direct/{requestId}/ws", h.handleWebSocket)
}

func (h *StreamHandler) open(w http.ResponseWriter, r *http.Request, name string) (context.Context, trace.Span, *application.Stream, bool) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	requestID := r.PathValue("requestId")
	ctx, span := h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("reservation.id", requestID)))

	s, err := h.manager.Open(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.End()
		apperr.WriteHTTP(w, r, err)
		return nil, nil, nil, false
	}
	return ctx, span, s, true
}

// handleSSE 以 text/event-stream 推送，连接断开即取消。
func (h *StreamHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apperr.WriteHTTP(w, r, apperr.Internal(nil, "streaming unsupported"))
		return
	}
	ctx, span, s, ok := h.open(w, r, "push-gateway.SSE")
	if !ok {
		return
	}
	defer span.End()
	defer s.Close(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.Run(ctx, func(f domain.Frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Str("requestId", s.RequestID()).Msg("SSE stream ended with write error")
	}
}

// handleWebSocket 与 SSE 语义相同，每帧是一条 JSON 文本消息。
func (h *StreamHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, span, s, ok := h.open(w, r, "push-gateway.WebSocket")
	if !ok {
		return
	}
	defer span.End()
	defer s.Close(ctx)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("requestId", s.RequestID()).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// 升级后请求的 ctx 不再反映连接状态，靠读循环发现客户端断开
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = s.Run(ctx, func(f domain.Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	})
	if err != nil {
		logger.Ctx(ctx).Debug().Err(err).Str("requestId", s.RequestID()).Msg("websocket stream ended with write error")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
