package infrastructure

import (
	"context"
	"time"

	"govportal/internal/pkg/redis"
)

const ownershipKeyPrefix = "broker:channel:"

const (
	scriptRefresh = "ownership_refresh"
	scriptRelease = "ownership_release"
)

// 只有持有者本人可以续期与释放
const refreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisOwnership 用 SET NX PX 记录每个请求 ID 的结果流所在节点。
type RedisOwnership struct {
	client *redis.Client
	nodeID string
	ttl    time.Duration
}

func NewRedisOwnership(client *redis.Client, nodeID string, ttl time.Duration) (*RedisOwnership, error) {
	if err := client.LoadScriptFromContent(scriptRefresh, refreshScript); err != nil {
		return nil, err
	}
	if err := client.LoadScriptFromContent(scriptRelease, releaseScript); err != nil {
		return nil, err
	}
	return &RedisOwnership{client: client, nodeID: nodeID, ttl: ttl}, nil
}

func ownershipKey(requestID string) string { return ownershipKeyPrefix + requestID }

func (o *RedisOwnership) Claim(ctx context.Context, requestID string) (bool, error) {
	return o.client.GetClient().SetNX(ctx, ownershipKey(requestID), o.nodeID, o.ttl).Result()
}

func (o *RedisOwnership) Refresh(ctx context.Context, requestID string) error {
	_, err := o.client.RunScript(ctx, scriptRefresh, []string{ownershipKey(requestID)}, o.nodeID, o.ttl.Milliseconds())
	return err
}

func (o *RedisOwnership) Release(ctx context.Context, requestID string) error {
	_, err := o.client.RunScript(ctx, scriptRelease, []string{ownershipKey(requestID)}, o.nodeID)
	return err
}
