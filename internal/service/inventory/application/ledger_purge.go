package application

import (
	"context"
	"time"

	"govportal/internal/pkg/logger"
	"govportal/internal/service/inventory/domain"
)

// Locker 是一次性的分布式锁，由 zookeeper.DistributedLock 实现。
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock() error
}

// LedgerPurgeJob 定期清理过期的幂等记录，多实例部署时只有拿到锁的实例执行。
type LedgerPurgeJob struct {
	repo      domain.Repository
	newLock   func() (Locker, error)
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewLedgerPurgeJob(repo domain.Repository, newLock func() (Locker, error), retention, interval time.Duration) *LedgerPurgeJob {
	return &LedgerPurgeJob{
		repo:      repo,
		newLock:   newLock,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Run 阻塞直到 ctx 结束
func (j *LedgerPurgeJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	logger.L().Info().Dur("interval", j.interval).Dur("retention", j.retention).Msg("✅ Ledger purge job started.")
	for {
		select {
		case <-ctx.Done():
			logger.L().Info().Msg("🛑 Ledger purge job stopped.")
			return
		case <-ticker.C:
			if _, _, err := j.RunOnce(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("ledger purge failed")
			}
		}
	}
}

// RunOnce 返回删除条数以及本实例是否持有锁。
func (j *LedgerPurgeJob) RunOnce(ctx context.Context) (int64, bool, error) {
	lock, err := j.newLock()
	if err != nil {
		return 0, false, err
	}
	held, err := lock.TryLock(ctx)
	if err != nil || !held {
		return 0, false, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to release purge lock")
		}
	}()

	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.repo.PurgeLedger(ctx, cutoff)
	if err != nil {
		return 0, true, err
	}
	logger.Ctx(ctx).Info().Int64("rows", n).Time("cutoff", cutoff).Msg("idempotency ledger purged")
	return n, true, nil
}
