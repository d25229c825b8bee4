package apperr

import (
	"errors"
	"fmt"
)

// ==================== 错误类别 ====================

// Kind 业务错误类别
// 贯穿全链路：服务层生成，流水线记录，控制器映射为 HTTP 响应
type Kind string

const (
	KindValidation      Kind = "ValidationError"      // 入参违反约定，不可重试
	KindAuthFailed      Kind = "AuthFailed"           // 凭证被拒绝或缺失
	KindUnsupported     Kind = "UnsupportedOperation" // 当前适配器不支持该操作
	KindRateLimited     Kind = "RateLimited"          // 上游限流
	KindUpstream        Kind = "UpstreamUnavailable"  // 上游临时不可用
	KindRecognition     Kind = "RecognitionFailed"    // 图片识别失败
	KindCardGeneration  Kind = "CardGenerationFailed" // 文案生成失败
	KindInfographic     Kind = "InfographicFailed"    // 信息图生成失败
	KindUpload          Kind = "UploadFailed"         // 市场拒绝商品
	KindAccountBlocked  Kind = "AccountBlocked"       // 账户欠费被封禁
	KindDuplicateSKU    Kind = "DuplicateSKU"         // SKU 幂等冲突
	KindTimeout         Kind = "Timeout"              // 超时
	KindUnknownCategory Kind = "UnknownCategory"      // 费率表未收录该类目
)

// ==================== 错误结构 ====================

// Error 携带类别与细节的业务错误
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error // 底层错误
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is 按类别比较
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// ==================== 构造函数 ====================

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetail 附加细节字段，返回自身便于链式调用
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ==================== 查询函数 ====================

// KindOf 提取错误类别；非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailsOf 提取错误细节；无则返回 nil
func DetailsOf(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
