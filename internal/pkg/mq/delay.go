package mq

import "time"

// 延迟消息的消息头
const (
	HeaderRealTopic      = "real-topic"
	HeaderDelayTimestamp = "delay-timestamp"
)

// DelayLevel 是一个延迟主题及其固定延迟
type DelayLevel struct {
	Topic string
	Delay time.Duration
}

// DelayLevels 按延迟升序排列
var DelayLevels = []DelayLevel{
	{Topic: "delay_topic_5s", Delay: 5 * time.Second},
	{Topic: "delay_topic_1m", Delay: time.Minute},
	{Topic: "delay_topic_10m", Delay: 10 * time.Minute},
}

// PickDelayLevel 选择不小于 d 的最小延迟级别，超出范围时使用最大级别。
func PickDelayLevel(d time.Duration) DelayLevel {
	for _, l := range DelayLevels {
		if l.Delay >= d {
			return l
		}
	}
	return DelayLevels[len(DelayLevels)-1]
}
