package resolver

import (
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// State is a step of the resolution state machine.
type State string

const (
	StateStart            State = "start"
	StateTryBridge        State = "try_bridge"
	StateBridgeSucceeded  State = "bridge_succeeded"
	StateBridgeFailed     State = "bridge_failed"
	StateRotateCredential State = "rotate_credential"
	StateConnected        State = "connected"
	StateExhausted        State = "exhausted"
	StateProbe            State = "probe"
	StateSelectPlans      State = "select_plans"
	StateCascade          State = "cascade"
	StateNonEmpty         State = "non_empty"
	StateAllFailed        State = "all_failed"
	StateSummarize        State = "summarize"
	StateRespondBridge    State = "respond_bridge"
	StateRespondCascade   State = "respond_cascade"
	StateRespondFallback  State = "respond_fallback"
	StateRejected         State = "rejected"
)

// ConnectionInfo describes the active connection without its secret.
type ConnectionInfo struct {
	Name     string `json:"name"`
	Database string `json:"database"`
	Index    int    `json:"index"`
}

// Envelope is the complete outcome of one request.
type Envelope struct {
	Success      bool
	Count        int
	Records      domain.ResultSet
	Source       string
	Message      string
	Timestamp    time.Time
	RequestID    string
	Action       string
	Capabilities *domain.CapabilityReport
	Connection   *ConnectionInfo
	Summary      Summary
	Errors       []string
	States       []State
	Duration     time.Duration
}

func (e *Envelope) enter(s State) {
	e.States = append(e.States, s)
}

func (e *Envelope) addError(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err.Error())
	}
}

// Visited reports whether the machine passed through s.
func (e *Envelope) Visited(s State) bool {
	for _, v := range e.States {
		if v == s {
			return true
		}
	}
	return false
}

// Response is the outbound JSON document.
type Response struct {
	Success      bool                         `json:"success"`
	Data         []domain.Record              `json:"data"`
	Count        int                          `json:"count"`
	Source       string                       `json:"source"`
	Message      string                       `json:"message"`
	Timestamp    string                       `json:"timestamp"`
	RequestID    string                       `json:"request_id,omitempty"`
	Statistics   Summary                      `json:"statistics"`
	Capabilities map[string]domain.Capability `json:"capabilities,omitempty"`
	Connection   *ConnectionInfo              `json:"connection,omitempty"`
	Errors       []string                     `json:"errors,omitempty"`
}

// Response converts the envelope to its outbound form.
func (e *Envelope) Response() Response {
	data := e.Records.Records
	if data == nil {
		data = []domain.Record{}
	}

	resp := Response{
		Success:    e.Success,
		Data:       data,
		Count:      e.Count,
		Source:     e.Source,
		Message:    e.Message,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339),
		RequestID:  e.RequestID,
		Statistics: e.Summary,
		Connection: e.Connection,
		Errors:     e.Errors,
	}
	if e.Capabilities != nil && len(e.Capabilities.Entries) > 0 {
		resp.Capabilities = e.Capabilities.Entries
	}
	return resp
}

// RejectedResponse is the outbound form for input rejected before it reaches a pipeline.
func RejectedResponse(err error, at time.Time) Response {
	return Response{
		Success:   false,
		Data:      []domain.Record{},
		Source:    "",
		Message:   err.Error(),
		Timestamp: at.UTC().Format(time.RFC3339),
		Errors:    []string{err.Error()},
	}
}
