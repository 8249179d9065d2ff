package mq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"govportal/internal/pkg/logger"
)

// 死信消息携带的原始位置与异常信息
const (
	HeaderOriginalTopic     = "dlt-original-topic"
	HeaderOriginalPartition = "dlt-original-partition"
	HeaderOriginalOffset    = "dlt-original-offset"
	HeaderExceptionFqcn     = "dlt-exception-fqcn"
	HeaderExceptionMessage  = "dlt-exception-message"

	DLTSuffix = ".DLT"
)

// FailureHandler 把无法处理的消息转发到 <topic>.DLT。
type FailureHandler struct {
	writer MessageWriter
}

// NewFailureHandler writer 不能绑定固定 topic。
func NewFailureHandler(writer MessageWriter) *FailureHandler {
	return &FailureHandler{writer: writer}
}

func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", cause))},
		kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
	)
	dead := kafka.Message{
		Topic:   msg.Topic + DLTSuffix,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := h.writer.WriteMessages(ctx, dead); err != nil {
		return fmt.Errorf("publish to %s: %w", dead.Topic, err)
	}
	logger.Ctx(ctx).Warn().
		Str("topic", msg.Topic).
		Int64("offset", msg.Offset).
		Err(cause).
		Msg("message moved to dead letter topic")
	return nil
}
