// cmd/reservation-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"govportal/internal/pkg/bootstrap"
	"govportal/internal/pkg/database"
	"govportal/internal/pkg/httpclient"
	"govportal/internal/pkg/mq"
	"govportal/internal/pkg/rabbitmq"
	"govportal/internal/service/reservation/application"
	"govportal/internal/service/reservation/infrastructure"
	"govportal/internal/service/reservation/infrastructure/adapter"
	"govportal/internal/service/reservation/infrastructure/rule"
	"govportal/internal/service/reservation/interfaces"
)

const (
	serviceName   = "reservation-service"
	consumerGroup = "reservation-service-group"
	dltGroup      = "reservation-service-dlt-group"
)

// main 是组装根：创建所有适配器并注入应用服务。
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		RegisterHandlers: wire,
	})
}

func wire(appCtx bootstrap.AppCtx) error {
	cfg := appCtx.Config
	brokers := cfg.Infra.Kafka.Brokers
	topics := cfg.Infra.Kafka.Topics
	tracer := otel.Tracer(serviceName)

	// 1. 持久化
	db, err := database.Open(cfg.Infra.MySQL)
	if err != nil {
		return err
	}
	repo := infrastructure.NewGormReservationRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return err
	}

	// 2. 出站适配器
	client := httpclient.NewClient(tracer, appCtx.Resolver, 3*time.Second)
	inventory := adapter.NewInventoryHTTPAdapter(client, cfg.Breaker)
	catalog := adapter.NewCatalogHTTPAdapter(client, cfg.Breaker)
	users := adapter.NewUserHTTPAdapter(client, cfg.Breaker)

	requestWriter := mq.NewKafkaWriter(brokers, topics.ReservationRequested)
	delayWriter := mq.NewKafkaWriter(brokers, "")
	dltWriter := mq.NewKafkaWriter(brokers, "")
	appCtx.OnShutdown("kafka-writers", func(ctx context.Context) {
		requestWriter.Close()
		delayWriter.Close()
		dltWriter.Close()
	})

	amqpConn, amqpCh, err := rabbitmq.SetupConn(appCtx.Ctx, cfg.Infra.RabbitMQ.URL, cfg.Infra.RabbitMQ.OutcomeExchange)
	if err != nil {
		return err
	}
	appCtx.OnShutdown("rabbitmq", func(ctx context.Context) {
		amqpCh.Close()
		amqpConn.Close()
	})

	dispatch, err := rule.NewCELDispatchPolicy(cfg.Reservation.DispatchRule)
	if err != nil {
		return err
	}

	// 3. 应用服务
	svc := application.NewReservationApplicationService(
		repo, tracer,
		application.Settings{Timeout: cfg.Reservation.Timeout, MaxRedrives: cfg.Reservation.MaxRedrives},
		catalog, users, inventory,
		infrastructure.NewRequestProducerAdapter(requestWriter),
		adapter.NewOutcomeAMQPAdapter(amqpCh, cfg.Infra.RabbitMQ.OutcomeExchange),
		adapter.NewSchedulerKafkaAdapter(delayWriter, topics.ReservationTimeout),
		dispatch,
	)

	// 4. 入站适配器
	interfaces.NewReservationHandler(svc).RegisterRoutes(appCtx.Mux)

	failure := mq.NewFailureHandler(dltWriter)
	consumers := []*mq.Consumer{
		mq.NewConsumer("outcome",
			mq.NewKafkaReader(brokers, topics.ReservationOutcome, consumerGroup),
			interfaces.NewOutcomeHandler(svc).Handle, failure),
		mq.NewConsumer("timeout-check",
			mq.NewKafkaReader(brokers, topics.ReservationTimeout, consumerGroup),
			interfaces.NewTimeoutCheckHandler(svc).Handle, failure),
		mq.NewConsumer("dlt-outcome",
			mq.NewKafkaReader(brokers, topics.ReservationOutcome+mq.DLTSuffix, dltGroup),
			interfaces.LogDeadLetter, failure),
		mq.NewConsumer("dlt-timeout-check",
			mq.NewKafkaReader(brokers, topics.ReservationTimeout+mq.DLTSuffix, dltGroup),
			interfaces.LogDeadLetter, failure),
	}
	for _, c := range consumers {
		if err := c.Start(appCtx.Ctx); err != nil {
			return err
		}
		appCtx.OnShutdown("consumer", c.Stop)
	}
	return nil
}
