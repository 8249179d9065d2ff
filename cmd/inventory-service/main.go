// cmd/inventory-service/main.go
package main

import (
	"context"

	"govportal/internal/pkg/bootstrap"
	"govportal/internal/pkg/database"
	"govportal/internal/pkg/mq"
	"govportal/internal/pkg/zookeeper"
	"govportal/internal/service/inventory/application"
	"govportal/internal/service/inventory/infrastructure"
	"govportal/internal/service/inventory/interfaces"
)

const (
	serviceName   = "inventory-service"
	consumerGroup = "inventory-service-group"
	purgeLockPath = "inventory-ledger-purge"
)

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

	db, err := database.Open(cfg.Infra.MySQL)
	if err != nil {
		return err
	}
	repo := infrastructure.NewGormInventoryRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return err
	}

	outcomeWriter := mq.NewKafkaWriter(brokers, topics.ReservationOutcome)
	dltWriter := mq.NewKafkaWriter(brokers, "")
	appCtx.OnShutdown("kafka-writers", func(ctx context.Context) {
		outcomeWriter.Close()
		dltWriter.Close()
	})

	coordinator := application.NewCoordinator(repo, infrastructure.NewOutcomeProducerAdapter(outcomeWriter))
	interfaces.NewInventoryHandler(coordinator).RegisterRoutes(appCtx.Mux)

	consumer := mq.NewConsumer("reservation-requested",
		mq.NewKafkaReader(brokers, topics.ReservationRequested, consumerGroup),
		interfaces.NewReservationRequestedHandler(coordinator).Handle,
		mq.NewFailureHandler(dltWriter),
	)
	if err := consumer.Start(appCtx.Ctx); err != nil {
		return err
	}
	appCtx.OnShutdown("requested-consumer", consumer.Stop)

	// 台账清理只由持有 ZooKeeper 锁的实例执行
	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
	if err != nil {
		return err
	}
	appCtx.OnShutdown("zookeeper", func(context.Context) { zkConn.Close() })

	job := application.NewLedgerPurgeJob(repo, func() (application.Locker, error) {
		lock, err := zookeeper.NewDistributedLock(zkConn, purgeLockPath)
		if err != nil {
			return nil, err
		}
		return lock, nil
	}, cfg.Inventory.LedgerRetention, cfg.Inventory.PurgeInterval)
	go job.Run(appCtx.Ctx)
	return nil
}
