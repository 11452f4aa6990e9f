// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"

	// 故事数据错误（仅在加载时出现）
	ErrorTypeMalformed ErrorType = "malformed"

	// 游戏状态错误：第6层之后仍尝试选择，属于调用方违约
	ErrorTypeAlreadyComplete ErrorType = "already_complete"

	// 数据缺口：可达路径或层级在数据集中没有条目
	ErrorTypeDatasetGap ErrorType = "dataset_gap"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewMalformedError 创建数据格式错误
func NewMalformedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformed, message, originalError)
}

// NewAlreadyCompleteError 创建"已完成"状态错误
func NewAlreadyCompleteError(level int) *AppError {
	return NewAppError(ErrorTypeAlreadyComplete, fmt.Sprintf("故事已完成，第 %d 层之后不能再选择", level), nil)
}

// NewDatasetGapError 创建数据缺口错误
func NewDatasetGapError(message string) *AppError {
	return NewAppError(ErrorTypeDatasetGap, message, nil)
}

func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsMalformedError 检查是否为数据格式错误
func IsMalformedError(err error) bool {
	return isType(err, ErrorTypeMalformed)
}

// IsAlreadyCompleteError 检查是否为"已完成"状态错误
func IsAlreadyCompleteError(err error) bool {
	return isType(err, ErrorTypeAlreadyComplete)
}

// IsDatasetGapError 检查是否为数据缺口
func IsDatasetGapError(err error) bool {
	return isType(err, ErrorTypeDatasetGap)
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeMalformed:
		return "STORY_MALFORMED"
	case ErrorTypeAlreadyComplete:
		return "STORY_ALREADY_COMPLETE"
	case ErrorTypeDatasetGap:
		return "CONTENT_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
