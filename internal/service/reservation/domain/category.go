// internal/service/reservation/domain/category.go
package domain

import (
	"strings"

	"govportal/internal/pkg/apperr"
)

// CategoryKind 决定预约字段的校验方式
type CategoryKind string

const (
	// KindScheduled 设备、场地等按时间段预约的类别，需要数量与起止日期
	KindScheduled CategoryKind = "SCHEDULED"
	// KindAttendance 课程等按人数预约的类别，只需要数量
	KindAttendance   CategoryKind = "ATTENDANCE"
	KindUnrestricted CategoryKind = "UNRESTRICTED"
)

// Validator 校验与类别相关的字段，返回所有失败的字段。
type Validator interface {
	Validate(f Fields) []apperr.FieldError
}

type scheduledValidator struct{}

func (scheduledValidator) Validate(f Fields) []apperr.FieldError {
	var errs []apperr.FieldError
	if f.Quantity <= 0 {
		errs = append(errs, apperr.FieldError{Field: "quantity", Message: "must be positive"})
	}
	if f.StartDate == nil {
		errs = append(errs, apperr.FieldError{Field: "startDate", Message: "is required"})
	}
	if f.EndDate == nil {
		errs = append(errs, apperr.FieldError{Field: "endDate", Message: "is required"})
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		errs = append(errs, apperr.FieldError{Field: "startDate", Message: "must not be after endDate"})
	}
	return errs
}

type attendanceValidator struct{}

func (attendanceValidator) Validate(f Fields) []apperr.FieldError {
	if f.Quantity <= 0 {
		return []apperr.FieldError{{Field: "quantity", Message: "must be positive"}}
	}
	return nil
}

type unrestrictedValidator struct{}

func (unrestrictedValidator) Validate(f Fields) []apperr.FieldError {
	if f.Quantity < 0 {
		return []apperr.FieldError{{Field: "quantity", Message: "must not be negative"}}
	}
	return nil
}

var validators = map[CategoryKind]Validator{
	KindScheduled:    scheduledValidator{},
	KindAttendance:   attendanceValidator{},
	KindUnrestricted: unrestrictedValidator{},
}

// ValidatorFor 未知类别按 unrestricted 处理
func ValidatorFor(kind CategoryKind) Validator {
	if v, ok := validators[CategoryKind(strings.ToUpper(string(kind)))]; ok {
		return v
	}
	return unrestrictedValidator{}
}

// ValidateRequired 检查所有类别共有的必填字段：目标物品、用途、联系方式。
func ValidateRequired(itemID string, f Fields) []apperr.FieldError {
	var errs []apperr.FieldError
	if strings.TrimSpace(itemID) == "" {
		errs = append(errs, apperr.FieldError{Field: "itemId", Message: "is required"})
	}
	if strings.TrimSpace(f.Purpose) == "" {
		errs = append(errs, apperr.FieldError{Field: "purpose", Message: "is required"})
	}
	if strings.TrimSpace(f.Phone) == "" && strings.TrimSpace(f.Email) == "" {
		errs = append(errs, apperr.FieldError{Field: "phone", Message: "phone or email is required"})
	}
	return errs
}
