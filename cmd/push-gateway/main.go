// cmd/push-gateway/main.go
package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"govportal/internal/pkg/bootstrap"
	"govportal/internal/pkg/httpclient"
	"govportal/internal/pkg/rabbitmq"
	"govportal/internal/pkg/redis"
	"govportal/internal/service/broker/application"
	"govportal/internal/service/broker/infrastructure"
	"govportal/internal/service/broker/interfaces"
)

const serviceName = "push-gateway"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		RegisterHandlers: wire,
	})
}

func wire(appCtx bootstrap.AppCtx) error {
	cfg := appCtx.Config
	nodeID := cfg.Broker.NodeID
	if nodeID == "" {
		nodeID = serviceName + "-" + uuid.New().String()[:8]
	}

	redisClient, err := redis.NewClient(appCtx.Ctx, cfg.Infra.Redis)
	if err != nil {
		return err
	}
	appCtx.OnShutdown("redis", func(context.Context) { redisClient.Close() })
	ownership, err := infrastructure.NewRedisOwnership(redisClient, nodeID, cfg.Broker.OwnershipTTL)
	if err != nil {
		return err
	}

	amqpConn, amqpCh, err := rabbitmq.SetupConn(appCtx.Ctx, cfg.Infra.RabbitMQ.URL, cfg.Infra.RabbitMQ.OutcomeExchange)
	if err != nil {
		return err
	}
	// 交换机已声明，这个 channel 不再需要；结果流各自开 channel
	amqpCh.Close()
	appCtx.OnShutdown("rabbitmq", func(context.Context) { amqpConn.Close() })

	client := httpclient.NewClient(otel.Tracer(serviceName), appCtx.Resolver, 2*time.Second)
	manager := application.NewChannelManager(
		infrastructure.NewAMQPProvisioner(amqpConn, cfg.Infra.RabbitMQ.OutcomeExchange),
		ownership,
		infrastructure.NewReservationStatusAdapter(client),
		cfg.Broker.KeepAliveInterval,
	)
	interfaces.NewStreamHandler(manager).RegisterRoutes(appCtx.Mux)
	return nil
}
