package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/review-gin/internal/logger"
	"github.com/mautops/review-gin/internal/workflow"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// StatusFor 工作流错误码到 HTTP 状态码的映射
func StatusFor(code workflow.Code) int {
	switch code {
	case workflow.CodeNotFound:
		return http.StatusNotFound
	case workflow.CodeForbidden:
		return http.StatusForbidden
	case workflow.CodeInvalidTransition, workflow.CodeConflict:
		return http.StatusConflict
	case workflow.CodeValidation:
		return http.StatusBadRequest
	case workflow.CodeNoReviewerAvailable, workflow.CodeAmbiguousReviewer:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError 统一处理服务层错误,返回 false 表示已写入错误响应
func handleServiceError(c *gin.Context, err error, operation string) bool {
	if err == nil {
		return true
	}

	code := workflow.CodeOf(err)
	status := StatusFor(code)
	if status == http.StatusInternalServerError {
		logger.GetLogger().WithError(err).WithField("request_id", c.GetString("request_id")).
			Error("failed to " + operation)
		abortWithError(c, status, ErrorResponse{
			Code:    status,
			Message: "failed to " + operation,
			Detail:  err.Error(),
		})
		return false
	}

	abortWithError(c, status, ErrorResponse{
		Code:      status,
		Message:   "failed to " + operation,
		Detail:    err.Error(),
		ErrorCode: string(code),
	})
	return false
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				handleServiceError(c, err.Err, "handle request")
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}
