// cmd/delay-scheduler/main.go
package main

import (
	"context"

	"govportal/internal/pkg/bootstrap"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/mq"
	"govportal/internal/service/scheduler"
)

const serviceName = "delay-scheduler"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		RegisterHandlers: wire,
	})
}

func wire(appCtx bootstrap.AppCtx) error {
	brokers := appCtx.Config.Infra.Kafka.Brokers

	writer := mq.NewKafkaWriter(brokers, "")
	levels := make([]*scheduler.LevelScheduler, 0, len(mq.DelayLevels))
	readers := make([]mq.MessageFetcher, 0, len(mq.DelayLevels))
	for _, level := range mq.DelayLevels {
		reader := mq.NewKafkaReader(brokers, level.Topic, serviceName+"-group-"+level.Topic)
		readers = append(readers, reader)
		levels = append(levels, scheduler.NewLevelScheduler(level, reader, writer))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.New(levels...).Run(appCtx.Ctx); err != nil {
			logger.L().Error().Err(err).Msg("delay scheduler stopped with error")
		}
	}()

	appCtx.OnShutdown("scheduler", func(ctx context.Context) {
		select {
		case <-done:
		case <-ctx.Done():
		}
		for _, r := range readers {
			r.Close()
		}
		writer.Close()
	})
	return nil
}
