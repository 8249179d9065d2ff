// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
)

// Resolver 把逻辑服务名解析为 base URL，例如 "http://10.0.0.3:8082"。
type Resolver interface {
	Resolve(service string) (string, error)
}

// StaticResolver 直接使用配置文件中的地址，Nacos 未配置时使用。
type StaticResolver map[string]string

func (r StaticResolver) Resolve(service string) (string, error) {
	base, ok := r[service]
	if !ok || base == "" {
		return "", fmt.Errorf("no address configured for service %q", service)
	}
	return strings.TrimRight(base, "/"), nil
}

// Client 是一个可追踪的、可注入的 HTTP 客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	resolver   Resolver
	timeout    time.Duration
}

// NewClient 创建一个新的客户端实例。每次调用的超时由 timeout 与传入 ctx 共同决定。
func NewClient(tracer trace.Tracer, resolver Resolver, timeout time.Duration) *Client {
	return &Client{
		Tracer: tracer,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		resolver: resolver,
		timeout:  timeout,
	}
}

func (c *Client) GetJSON(ctx context.Context, service, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, service, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, service, path string, in, out interface{}) error {
	return c.Do(ctx, http.MethodPost, service, path, in, out)
}

// Do 发起一次 JSON 请求，并把下游的错误响应翻译为 apperr 分类：
// 4xx 保留下游的错误码，5xx 与网络错误视为 transient。
func (c *Client) Do(ctx context.Context, method, service, path string, in, out interface{}) error {
	ctx, span := c.Tracer.Start(ctx, "call-"+service, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.resolver.Resolve(service)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return apperr.Transient(err, "cannot resolve %s", service)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return apperr.Internal(err, "encode request for %s", service)
		}
		body = bytes.NewReader(buf)
	}

	url := base + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		span.RecordError(err)
		return apperr.Internal(err, "build request for %s", service)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperr.Transient(err, "%s %s failed", method, service)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		err := remoteError(service, resp)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return apperr.Internal(err, "decode response from %s", service)
	}
	return nil
}

func remoteError(service string, resp *http.Response) error {
	var p apperr.Payload
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&p)
	detail := p.Detail
	if detail == "" {
		detail = fmt.Sprintf("%s returned %s", service, resp.Status)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		code := p.Code
		if code == "" {
			code = apperr.CodeInternal
		}
		return apperr.NotFound(code, "%s", detail)
	case resp.StatusCode == http.StatusConflict:
		return apperr.Conflict(p.Code, "%s", detail)
	case resp.StatusCode == http.StatusForbidden:
		return apperr.Forbidden("%s", detail)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e := apperr.Validation(p.Errors...)
		e.Message = detail
		return e
	default:
		return apperr.Transient(fmt.Errorf("status %d", resp.StatusCode), "%s", detail)
	}
}
