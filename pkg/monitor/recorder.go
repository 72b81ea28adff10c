package monitor

import "time"

// Outcome labels shared by the recorders.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// Probe state labels.
const (
	ProbeUsable = "usable"
	ProbeEmpty  = "empty"
	ProbeAbsent = "absent"
)

// Recorder receives stage events from a resolution pipeline.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// CredentialAttempt 记录一次凭据尝试
	CredentialAttempt(outcome string)
	// ProbeResource 记录一次资源探测结果
	ProbeResource(state string)
	// PlanAttempt 记录一次计划执行
	PlanAttempt(plan, outcome string)
	// BridgeFailure 记录桥接失败原因
	BridgeFailure(reason string)
	// Request 记录一次完整请求
	Request(action, source string, duration time.Duration)
}

// Nop discards every event.
type Nop struct{}

func (Nop) CredentialAttempt(string)              {}
func (Nop) ProbeResource(string)                  {}
func (Nop) PlanAttempt(string, string)            {}
func (Nop) BridgeFailure(string)                  {}
func (Nop) Request(string, string, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
