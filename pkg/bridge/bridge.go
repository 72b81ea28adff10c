// Package bridge delegates statistics to an external computation job, the
// preferred source of dashboard data.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultTimeout bounds one bridge call.
const DefaultTimeout = 10 * time.Second

// Payload is the request-scoped input sent to the external job.
type Payload struct {
	RequestID   string    `json:"request_id"`
	Action      string    `json:"action"`
	Search      string    `json:"search,omitempty"`
	Page        int       `json:"page"`
	PageSize    int       `json:"page_size"`
	RequestedAt time.Time `json:"requested_at"`
}

// Response is the only shape the external job may answer with.
type Response struct {
	Success    bool              `json:"success"`
	Statistics domain.Statistics `json:"statistics"`
	Message    string            `json:"message,omitempty"`
}

// Bridge computes statistics outside the process. Any deviation from the
// response contract is returned as *domain.ErrBridgeFailure.
type Bridge interface {
	Compute(ctx context.Context, p Payload) (domain.Statistics, error)
}

// Disabled is a bridge that is never available.
type Disabled struct{}

// Compute always fails with reason disabled.
func (Disabled) Compute(context.Context, Payload) (domain.Statistics, error) {
	return nil, domain.NewErrBridgeFailure(domain.BridgeReasonDisabled, nil)
}

var errTrailingData = errors.New("trailing data after response object")

// Decode parses exactly one JSON response object and checks the contract.
func Decode(data []byte) (domain.Statistics, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed, errors.New("response is not a JSON object"))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed, errTrailingData)
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "success=false"
		}
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonRejected, errors.New(msg))
	}
	if resp.Statistics == nil {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed, errors.New("missing statistics"))
	}
	return resp.Statistics, nil
}

func encodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed, fmt.Errorf("marshal payload: %w", err))
	}
	return data, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
