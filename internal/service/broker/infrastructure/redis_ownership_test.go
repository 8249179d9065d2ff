package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"

	"govportal/internal/pkg/redis"
)

func TestRedisOwnership(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ownership, err := NewRedisOwnership(redis.Wrap(db), "node-a", 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := "broker:channel:r-1"

	mock.ExpectSetNX(key, "node-a", 30*time.Second).SetVal(true)
	mock.ExpectSetNX(key, "node-a", 30*time.Second).SetVal(false)
	mock.ExpectEvalSha(goredis.NewScript(refreshScript).Hash(), []string{key}, "node-a", int64(30000)).SetVal(int64(1))
	mock.ExpectEvalSha(goredis.NewScript(releaseScript).Hash(), []string{key}, "node-a").SetVal(int64(1))

	ok, err := ownership.Claim(ctx, "r-1")
	if err != nil || !ok {
		t.Fatalf("first claim: %v %v", ok, err)
	}
	ok, err = ownership.Claim(ctx, "r-1")
	if err != nil || ok {
		t.Fatalf("second claim must fail: %v %v", ok, err)
	}
	if err := ownership.Refresh(ctx, "r-1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := ownership.Release(ctx, "r-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
