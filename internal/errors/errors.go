package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// Code 表示系统内的统一错误码。
type Code string

// Severity 描述错误的严重程度，用于日志与审计。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message   string
	Severity  Severity
	Retryable bool
	Fatal     bool
}

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeTimeout             Code = "TIMEOUT"
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeStoreUnavailable    Code = "STORE_UNAVAILABLE"
	CodeAgentInitialization Code = "AGENT_INITIALIZATION_FAILED"
	CodeTurnExecution       Code = "TURN_EXECUTION_FAILED"
	CodeToolFailure         Code = "TOOL_FAILURE"
)

var registry = map[Code]Attributes{
	CodeUnknown: {
		Message:  "unknown error",
		Severity: SeverityCritical,
	},
	CodeInvalidArgument: {
		Message:  "invalid argument",
		Severity: SeverityInfo,
	},
	CodeNotFound: {
		Message:  "resource not found",
		Severity: SeverityInfo,
	},
	CodeTimeout: {
		Message:   "operation timed out",
		Severity:  SeverityWarning,
		Retryable: true,
	},
	// 启动阶段的配置缺失，不可重试。
	CodeConfiguration: {
		Message:  "configuration error",
		Severity: SeverityCritical,
		Fatal:    true,
	},
	// 读取时可降级为空，写入时致命。
	CodeStoreUnavailable: {
		Message:   "wallet store unavailable",
		Severity:  SeverityCritical,
		Retryable: true,
	},
	CodeAgentInitialization: {
		Message:   "agent initialization failed",
		Severity:  SeverityCritical,
		Retryable: true,
	},
	CodeTurnExecution: {
		Message:   "turn execution failed",
		Severity:  SeverityWarning,
		Retryable: true,
	},
	CodeToolFailure: {
		Message:  "tool invocation failed",
		Severity: SeverityWarning,
	},
}

// attributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func attributesOf(code Code) Attributes {
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code      Code
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool
	severity  *Severity
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable 指定错误是否可重试。
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithSeverity 覆盖默认严重程度。
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = attributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回错误信息，不包含底层原因。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable 判断是否可重试。
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return attributesOf(e.code).Retryable
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return attributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误链中最外层统一错误的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// HasCode 判断错误链中是否存在指定错误码。
func HasCode(err error, code Code) bool {
	return stdErrors.Is(err, New(code, ""))
}

// RetryableError 判断任意 error 是否可重试。
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

// IsFatal 判断错误是否应当终止进程。
func IsFatal(err error) bool {
	if e, ok := From(err); ok {
		return attributesOf(e.Code()).Fatal
	}
	return false
}

// SeverityOf 返回错误严重程度。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return attributesOf(CodeUnknown).Severity
}

// PublicMessage 返回适合暴露给调用方的错误描述。
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Unknown error"
	}
	return msg
}
