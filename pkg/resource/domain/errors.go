package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConnectionFailed 单个凭据连接失败错误
type ErrConnectionFailed struct {
	Descriptor string
	Reason     string
	Err        error
}

func (e *ErrConnectionFailed) Error() string {
	return fmt.Sprintf("failed to connect with %s: %s", e.Descriptor, e.Reason)
}

func (e *ErrConnectionFailed) Unwrap() error {
	return e.Err
}

// ErrConnectionExhausted 所有凭据均不可用错误
type ErrConnectionExhausted struct {
	Attempts []error
}

func (e *ErrConnectionExhausted) Error() string {
	if len(e.Attempts) == 0 {
		return "connection exhausted: no credential candidates"
	}
	parts := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("connection exhausted after %d attempts: %s", len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ErrConnectionExhausted) Unwrap() []error {
	return e.Attempts
}

// ErrProbeDenied 资源探测失败错误，只会被降级为"资源不可用"
type ErrProbeDenied struct {
	Resource string
	Step     string
	Err      error
}

func (e *ErrProbeDenied) Error() string {
	return fmt.Sprintf("probe %s of %s denied: %v", e.Step, e.Resource, e.Err)
}

func (e *ErrProbeDenied) Unwrap() error {
	return e.Err
}

// ErrPlanExecution 查询计划执行失败错误
type ErrPlanExecution struct {
	PlanID string
	Err    error
}

func (e *ErrPlanExecution) Error() string {
	return fmt.Sprintf("plan %s failed: %v", e.PlanID, e.Err)
}

func (e *ErrPlanExecution) Unwrap() error {
	return e.Err
}

// Bridge failure reasons.
const (
	BridgeReasonDisabled  = "disabled"
	BridgeReasonTimeout   = "timeout"
	BridgeReasonExit      = "exit"
	BridgeReasonMalformed = "malformed"
	BridgeReasonRejected  = "rejected"
	BridgeReasonTransport = "transport"
)

// ErrBridgeFailure 外部计算进程失败错误
type ErrBridgeFailure struct {
	Reason string
	Err    error
}

func (e *ErrBridgeFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bridge failure: %s", e.Reason)
	}
	return fmt.Sprintf("bridge failure (%s): %v", e.Reason, e.Err)
}

func (e *ErrBridgeFailure) Unwrap() error {
	return e.Err
}

// ErrCallerInput 请求参数错误，唯一以 success=false 返回的错误
type ErrCallerInput struct {
	Field   string
	Message string
}

func (e *ErrCallerInput) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Message)
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Message)
}

// ErrUnknownDriver 不支持的驱动错误
type ErrUnknownDriver struct {
	Driver DriverType
}

func (e *ErrUnknownDriver) Error() string {
	return fmt.Sprintf("unknown driver %q", e.Driver)
}

// ErrInvalidConfig 配置无效错误
type ErrInvalidConfig struct {
	ConfigKey string
	Message   string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config for %s: %s", e.ConfigKey, e.Message)
}

// 辅助函数

// NewErrConnectionFailed 创建连接失败错误
func NewErrConnectionFailed(d ConnectionDescriptor, err error) *ErrConnectionFailed {
	return &ErrConnectionFailed{Descriptor: d.String(), Reason: err.Error(), Err: err}
}

// NewErrPlanExecution 创建计划执行错误
func NewErrPlanExecution(planID string, err error) *ErrPlanExecution {
	return &ErrPlanExecution{PlanID: planID, Err: err}
}

// NewErrBridgeFailure 创建桥接失败错误
func NewErrBridgeFailure(reason string, err error) *ErrBridgeFailure {
	return &ErrBridgeFailure{Reason: reason, Err: err}
}

// NewErrCallerInput 创建请求参数错误
func NewErrCallerInput(field, message string) *ErrCallerInput {
	return &ErrCallerInput{Field: field, Message: message}
}

// NewErrInvalidConfig 创建配置无效错误
func NewErrInvalidConfig(key, message string) *ErrInvalidConfig {
	return &ErrInvalidConfig{ConfigKey: key, Message: message}
}

// IsCallerInput reports whether err is a caller input error.
func IsCallerInput(err error) bool {
	var target *ErrCallerInput
	return errors.As(err, &target)
}

// BridgeReason returns the failure reason of a bridge error, or "".
func BridgeReason(err error) string {
	var target *ErrBridgeFailure
	if errors.As(err, &target) {
		return target.Reason
	}
	return ""
}
