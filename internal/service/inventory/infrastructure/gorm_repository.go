package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/database"
	"govportal/internal/pkg/events"
	"govportal/internal/service/inventory/domain"
)

var (
	errAlreadyProcessed = errors.New("request key already processed")
	// errDeclinedUnrecorded 回滚事务，被拒绝的同步调整不占用幂等键
	errDeclinedUnrecorded = errors.New("declined adjustment not recorded")
)

// GormInventoryRepository 是 domain.Repository 的 GORM 实现
type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// AutoMigrate 创建库存表和幂等台账表
func (r *GormInventoryRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&InventoryModel{}, &ProcessedRequestModel{})
}

func (r *GormInventoryRepository) FindItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var model InventoryModel
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeItemAbsent, "item %s not found", itemID)
		}
		return nil, apperr.Transient(err, "inventory store unavailable")
	}
	return ToDomainItem(&model), nil
}

// SaveItem 供目录管理与测试使用
func (r *GormInventoryRepository) SaveItem(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Save(FromDomainItem(item)).Error
}

func (r *GormInventoryRepository) Adjust(ctx context.Context, key, itemID string, delta int, policy domain.LedgerPolicy) (domain.Decision, error) {
	var decision domain.Decision

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			var seen int64
			if err := tx.Model(&ProcessedRequestModel{}).Where("request_key = ?", key).Count(&seen).Error; err != nil {
				return err
			}
			if seen > 0 {
				return errAlreadyProcessed
			}
			// 先占住幂等键：并发的同 key 事务会在这里阻塞，随后因主键冲突失败
			entry := ProcessedRequestModel{RequestKey: key, ItemID: itemID, Delta: delta, ProcessedAt: time.Now().UTC()}
			if err := tx.Create(&entry).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return errAlreadyProcessed
				}
				return err
			}
		}

		var exists int64
		if err := tx.Model(&InventoryModel{}).Where("item_id = ?", itemID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			decision = domain.Decision{Reason: events.ReasonItemNotFound}
		} else {
			res := tx.Model(&InventoryModel{}).
				Where("item_id = ? AND committed + ? <= total AND committed + ? >= 0", itemID, delta, delta).
				UpdateColumn("committed", gorm.Expr("committed + ?", delta))
			if res.Error != nil {
				return res.Error
			}
			decision = domain.Decision{Committed: res.RowsAffected == 1}
			if !decision.Committed {
				decision.Reason = events.ReasonCapacityExhausted
			}
		}

		if key == "" {
			return nil
		}
		if !decision.Committed && policy == domain.RecordCommitted {
			return errDeclinedUnrecorded
		}
		return tx.Model(&ProcessedRequestModel{}).Where("request_key = ?", key).
			Updates(map[string]interface{}{"committed": decision.Committed, "reason": decision.Reason}).Error
	})

	switch {
	case err == nil, errors.Is(err, errDeclinedUnrecorded):
		return decision, nil
	case errors.Is(err, errAlreadyProcessed):
		return r.replay(ctx, key)
	default:
		return domain.Decision{}, apperr.Transient(err, "inventory store unavailable")
	}
}

func (r *GormInventoryRepository) replay(ctx context.Context, key string) (domain.Decision, error) {
	var entry ProcessedRequestModel
	if err := r.db.WithContext(ctx).Where("request_key = ?", key).Take(&entry).Error; err != nil {
		return domain.Decision{}, apperr.Transient(err, "inventory ledger unavailable")
	}
	return domain.Decision{Committed: entry.Committed, Reason: entry.Reason, Replayed: true}, nil
}

func (r *GormInventoryRepository) PurgeLedger(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("processed_at < ?", before).Delete(&ProcessedRequestModel{})
	if res.Error != nil {
		return 0, apperr.Transient(res.Error, "inventory ledger unavailable")
	}
	return res.RowsAffected, nil
}
