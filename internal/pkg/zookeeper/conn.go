// internal/pkg/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"

	"govportal/internal/pkg/logger"
)

// Conn 包装 zk.Conn，会话事件记录到日志中。
type Conn struct {
	*zk.Conn
}

// Connect 建立 ZooKeeper 会话。
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, err
	}
	go func() {
		for ev := range events {
			if ev.Type == zk.EventSession {
				logger.L().Debug().Str("state", ev.State.String()).Msg("zookeeper session event")
			}
		}
	}()
	logger.L().Info().Strs("servers", servers).Msg("✅ Connected to ZooKeeper.")
	return &Conn{Conn: c}, nil
}
