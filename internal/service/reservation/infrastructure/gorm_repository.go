package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/reservation/domain"
)

// GormReservationRepository 是 domain.Repository 的 GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

func (r *GormReservationRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&ReservationModel{})
}

func (r *GormReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	if err := r.db.WithContext(ctx).Create(FromDomainReservation(res)).Error; err != nil {
		return apperr.Transient(err, "reservation store unavailable")
	}
	return nil
}

func (r *GormReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var model ReservationModel
	err := r.db.WithContext(ctx).Where("request_id = ?", id).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeReservationAbsent, "reservation %s not found", id)
		}
		return nil, apperr.Transient(err, "reservation store unavailable")
	}
	return ToDomainReservation(&model), nil
}

// Save 只更新可变字段，状态不在其中。更新以读取时的状态为条件，
// 期间被取消、审批或删除时不会覆盖新状态。
func (r *GormReservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	updates := map[string]interface{}{
		"quantity":        res.Quantity,
		"start_date":      res.StartDate,
		"end_date":        res.EndDate,
		"purpose":         res.Purpose,
		"phone":           res.Phone,
		"email":           res.Email,
		"attachment_code": res.AttachmentCode,
		"updated_at":      time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("request_id = ? AND status = ?", res.ID, string(res.Status)).
		Updates(updates)
	if result.Error != nil {
		return apperr.Transient(result.Error, "reservation store unavailable")
	}
	if result.RowsAffected == 1 {
		return nil
	}
	current, err := r.FindByID(ctx, res.ID)
	if err != nil {
		return err
	}
	return apperr.Conflict(apperr.CodeInvalidState, "reservation %s changed to %s concurrently", res.ID, current.Status)
}

// CancelIfStatus 在一条条件更新中写入 CANCELLED 与取消原因
func (r *GormReservationRepository) CancelIfStatus(ctx context.Context, id string, from domain.Status, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("request_id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":        string(domain.StatusCancelled),
			"cancel_reason": reason,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, apperr.Transient(result.Error, "reservation store unavailable")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormReservationRepository) TransitionStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("request_id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{"status": string(to), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, apperr.Transient(result.Error, "reservation store unavailable")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormReservationRepository) DeleteIfStatus(ctx context.Context, id string, status domain.Status) (bool, error) {
	result := r.db.WithContext(ctx).Where("request_id = ? AND status = ?", id, string(status)).Delete(&ReservationModel{})
	if result.Error != nil {
		return false, apperr.Transient(result.Error, "reservation store unavailable")
	}
	return result.RowsAffected == 1, nil
}
