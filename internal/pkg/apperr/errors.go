// internal/pkg/apperr/errors.go
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind 是错误分类，决定了 HTTP 状态码以及消费者是否重试。
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// 机器可读的错误码
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeReservationAbsent = "RESERVATION_NOT_FOUND"
	CodeItemAbsent        = "ITEM_NOT_FOUND"
	CodeUserAbsent        = "USER_NOT_FOUND"
	CodeInvalidState      = "INVALID_STATE"
	CodeChannelBusy       = "CHANNEL_BUSY"
	CodeStillReferenced   = "STILL_REFERENCED"
	CodeCapacityExhausted = "CAPACITY_EXHAUSTED"
	CodeForbidden         = "FORBIDDEN"
	CodeDependency        = "DEPENDENCY_UNAVAILABLE"
	CodeCircuitOpen       = "CIRCUIT_OPEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// FieldError 描述单个字段的校验失败。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 是对外暴露的结构化错误。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause 让 pkg/errors.Cause 能穿透到底层错误。
func (e *Error) Cause() error { return e.cause }

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "request validation failed", Fields: fields}
}

func NotFound(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// Transient 包装下游不可用类错误（熔断打开、存储连接失败等）。
func Transient(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTransient, Code: CodeDependency, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CircuitOpen 是熔断打开时的快速失败，属于 transient，请求没有到达下游。
func CircuitOpen(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTransient, Code: CodeCircuitOpen, Message: fmt.Sprintf(format, args...), cause: cause}
}

// IsCircuitOpen 报告 err 是否为熔断快速失败
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeCircuitOpen
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf 返回错误链中第一个 *Error 的分类，未分类的错误视为 internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsTransient(err error) bool { return Is(err, KindTransient) }

func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// From 把任意错误转换为 *Error，未分类的错误归为 internal。
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "unexpected error")
}
