package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// 错误代码常量
const (
	// 通用错误
	ErrCodeInternalServerError = http.StatusInternalServerError // 服务器内部错误
	ErrCodeBadRequest          = http.StatusBadRequest          // 请求参数错误
	ErrCodeNotFound            = http.StatusNotFound            // 资源不存在
	ErrCodeRequestTimeout      = http.StatusRequestTimeout      // 请求被取消

	// 规则相关错误
	ErrCodeRuleNotFound       = http.StatusNotFound   // 规则不存在
	ErrCodeRuleValidationFail = http.StatusBadRequest // 规则验证失败

	// 分析相关错误
	ErrCodeEmptyInput = http.StatusBadRequest // 输入为空
)

// debugMode 为true时错误响应带上原始错误
var debugMode bool

// APIError 自定义接口错误类型
type APIError struct {
	Code    int         // HTTP 状态码
	Message string      // 错误消息
	Err     error       // 原始错误
	Data    interface{} // 附加数据（可选）
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError 创建新的接口错误
func NewAPIError(code int, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewInvalidRequestError 创建请求格式无效错误
func NewInvalidRequestError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: "请求格式无效",
		Err:     err,
	}
}

// NewEmptyInputError 创建输入为空错误
func NewEmptyInputError() *APIError {
	return &APIError{
		Code:    ErrCodeEmptyInput,
		Message: "待分析文本不能为空",
	}
}

// NewRuleNotFoundError 创建规则不存在错误
func NewRuleNotFoundError(ruleID string) *APIError {
	return &APIError{
		Code:    ErrCodeRuleNotFound,
		Message: fmt.Sprintf("规则 %s 不存在", ruleID),
	}
}

// NewRuleValidationError 创建规则验证失败错误
func NewRuleValidationError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeRuleValidationFail,
		Message: "规则验证失败",
		Err:     err,
	}
}

// NewAnalysisCanceledError 创建分析被取消错误
func NewAnalysisCanceledError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeRequestTimeout,
		Message: "分析已取消",
		Err:     err,
	}
}

// NewInternalServerError 创建服务器内部错误
func NewInternalServerError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeInternalServerError,
		Message: "服务器内部错误",
		Err:     err,
	}
}

// HandleError 统一错误处理函数
func HandleError(c echo.Context, err error) error {
	// 记录错误日志
	logrus.WithFields(logrus.Fields{
		"error":      err.Error(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"path":       c.Request().URL.Path,
		"method":     c.Request().Method,
	}).Error("API 错误")

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		resp := Response{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Data:    apiErr.Data,
		}

		if apiErr.Err != nil && IsDebugMode() {
			resp.Data = map[string]string{
				"error_detail": apiErr.Err.Error(),
			}
		}

		return c.JSON(apiErr.Code, resp)
	}

	// 处理未知错误
	return c.JSON(http.StatusInternalServerError, Response{
		Code:    http.StatusInternalServerError,
		Message: "服务器内部错误",
	})
}

// IsDebugMode 判断是否为调试模式
func IsDebugMode() bool {
	return debugMode
}

// SetDebugMode 设置调试模式
func SetDebugMode(debug bool) {
	debugMode = debug
}
