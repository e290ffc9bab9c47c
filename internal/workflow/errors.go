package workflow

import (
	"errors"
	"fmt"
)

// Code 工作流错误码
type Code string

const (
	CodeNotFound            Code = "NotFound"
	CodeForbidden           Code = "Forbidden"
	CodeInvalidTransition   Code = "InvalidTransition"
	CodeValidation          Code = "ValidationError"
	CodeNoReviewerAvailable Code = "NoReviewerAvailable"
	CodeAmbiguousReviewer   Code = "AmbiguousReviewer"
	CodeConflict            Code = "Conflict"
)

// 哨兵错误,配合 errors.Is 按错误码匹配
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "submission not found"}
	ErrForbidden           = &Error{Code: CodeForbidden, Message: "actor is not allowed to perform this operation"}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition, Message: "operation is not legal from the current state"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNoReviewerAvailable = &Error{Code: CodeNoReviewerAvailable, Message: "no reviewer available"}
	ErrAmbiguousReviewer   = &Error{Code: CodeAmbiguousReviewer, Message: "more than one reviewer available"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "submission was modified concurrently"}
)

// Error 工作流错误
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 错误码相同即视为同一错误
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Errorf 构造带错误码的错误
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 构造包装底层原因的错误
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf 提取错误码,非工作流错误返回空
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Retryable 只有 Conflict 允许调用方重试
func Retryable(err error) bool {
	return CodeOf(err) == CodeConflict
}
