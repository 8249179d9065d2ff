// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"govportal/internal/pkg/httpclient"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
	"govportal/internal/pkg/nacos"
	"govportal/internal/pkg/tracing"
)

// AppCtx 是注册路由和组件时可以使用的公共依赖。
type AppCtx struct {
	// Ctx 在收到退出信号时取消，后台消费者应以它为根 context
	Ctx      context.Context
	Mux      *http.ServeMux
	Config   *Config
	Resolver httpclient.Resolver

	hooks *shutdownHooks
}

// OnShutdown 注册关停时执行的清理函数，按注册的逆序执行。
func (a AppCtx) OnShutdown(name string, fn func(ctx context.Context)) {
	a.hooks.add(name, fn)
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	RegisterHandlers func(appCtx AppCtx) error
}

type shutdownHooks struct {
	mu    sync.Mutex
	names []string
	fns   []func(ctx context.Context)
}

func (h *shutdownHooks) add(name string, fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names = append(h.names, name)
	h.fns = append(h.fns, fn)
}

func (h *shutdownHooks) run(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.fns) - 1; i >= 0; i-- {
		logger.L().Info().Str("hook", h.names[i]).Msg("running shutdown hook")
		h.fns[i](ctx)
	}
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 服务发现：配置了 Nacos 就注册并通过 Nacos 解析，否则使用静态地址表
	var (
		namingClient *nacos.Client
		resolver     httpclient.Resolver = httpclient.StaticResolver(cfg.Services)
		ip           string
	)
	if cfg.Infra.Nacos.Enabled() {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err = GetOutboundIP()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to register service with nacos")
		}
		resolver = namingClient
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	hooks := &shutdownHooks{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": info.ServiceName})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	if info.RegisterHandlers != nil {
		appCtx := AppCtx{Ctx: rootCtx, Mux: mux, Config: cfg, Resolver: resolver, hooks: hooks}
		if err := info.RegisterHandlers(appCtx); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to wire service")
		}
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.L().Info().Int("port", cfg.App.Port).Msgf("✅ %s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L().Info().Msgf("🛑 Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先从注册中心摘除，避免新流量进入
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			logger.L().Error().Err(err).Msg("error deregistering from nacos")
		}
		namingClient.Close()
	}

	// 长连接 (SSE/websocket) 依赖 rootCtx 结束，所以先取消再关 HTTP server
	cancelRoot()
	if err := server.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("error shutting down http server")
	} else {
		logger.L().Info().Msg("HTTP server shut down.")
	}

	hooks.run(ctx)
	tracing.Shutdown(ctx, tp)

	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// GetOutboundIP 返回本机访问外部网络时使用的地址。UDP 拨号不会真正发包。
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
