// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const lockRoot = "/distributed_locks"

var ErrNotLocked = errors.New("lock is not held")

// DistributedLock 基于临时顺序节点的互斥锁，一个实例只能持有一次。
type DistributedLock struct {
	conn     *Conn
	path     string
	lockNode string
}

// NewDistributedLock 确保 /distributed_locks/<resourceID> 存在。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + resourceID
	for _, p := range []string{lockRoot, lockPath} {
		if err := ensureNode(conn, p); err != nil {
			return nil, err
		}
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

func ensureNode(conn *Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "check node %s", path)
	}
	if exists {
		return nil
	}
	_, err = conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return errors.Wrapf(err, "create node %s", path)
	}
	return nil
}

// Lock 阻塞直到获得锁或 ctx 结束。
func (l *DistributedLock) Lock(ctx context.Context) error {
	if err := l.enqueue(); err != nil {
		return err
	}
	for {
		first, prev, err := l.position()
		if err != nil {
			l.abandon()
			return err
		}
		if first {
			return nil
		}

		exists, _, events, err := l.conn.ExistsW(l.path + "/" + prev)
		if err != nil {
			l.abandon()
			return errors.Wrap(err, "watch previous node")
		}
		if !exists {
			continue
		}
		select {
		case <-events:
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// TryLock 不等待：排在队首则持有锁，否则撤回自己的节点并返回 false。
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := l.enqueue(); err != nil {
		return false, err
	}
	first, _, err := l.position()
	if err != nil || !first {
		l.abandon()
		return false, err
	}
	return true, nil
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return ErrNotLocked
	}
	err := l.conn.Delete(l.lockNode, -1)
	l.lockNode = ""
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	return nil
}

func (l *DistributedLock) enqueue() error {
	if l.lockNode != "" {
		return errors.New("lock already acquired by this instance")
	}
	node, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return errors.Wrap(err, "create sequential node")
	}
	l.lockNode = node
	return nil
}

// position 返回自己是否排在第一位，以及前一个节点名。
func (l *DistributedLock) position() (bool, string, error) {
	children, _, err := l.conn.Children(l.path)
	if err != nil {
		return false, "", errors.Wrap(err, "list lock children")
	}
	sortBySequence(children)

	mine := strings.TrimPrefix(l.lockNode, l.path+"/")
	for i, child := range children {
		if child != mine {
			continue
		}
		if i == 0 {
			return true, "", nil
		}
		return false, children[i-1], nil
	}
	return false, "", errors.Errorf("lock node %s disappeared", mine)
}

func (l *DistributedLock) abandon() {
	_ = l.Unlock()
}

// 受保护节点带有 _c_<guid>- 前缀，只能按末尾的 10 位序号排序。
func sortBySequence(children []string) {
	sort.Slice(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
}

func sequenceOf(node string) string {
	if len(node) < 10 {
		return node
	}
	return node[len(node)-10:]
}
