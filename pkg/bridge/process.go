package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

const maxStderr = 2048

// ProcessBridge runs an external command with the JSON payload on stdin and
// reads one JSON response object from stdout.
type ProcessBridge struct {
	Command string
	Args    []string
	Dir     string
	// Env is appended to the current environment.
	Env     []string
	Timeout time.Duration
	// MaxOutput caps stdout in bytes; 0 means maxResponseBody.
	MaxOutput int
}

// Compute implements Bridge.
func (b *ProcessBridge) Compute(ctx context.Context, p Payload) (domain.Statistics, error) {
	if strings.TrimSpace(b.Command) == "" {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonDisabled, errors.New("no command configured"))
	}

	input, err := encodePayload(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(b.Timeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, b.Command, b.Args...)
	cmd.Dir = b.Dir
	if len(b.Env) > 0 {
		cmd.Env = append(os.Environ(), b.Env...)
	}
	cmd.WaitDelay = time.Second

	stdout := &cappedBuffer{limit: b.outputLimit()}
	stderr := &cappedBuffer{limit: 64 << 10}
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonTimeout, ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, domain.NewErrBridgeFailure(domain.BridgeReasonExit,
				fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), tail(stderr.String())))
		}
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonExit, runErr)
	}

	if stdout.overflow {
		return nil, domain.NewErrBridgeFailure(domain.BridgeReasonMalformed,
			fmt.Errorf("response exceeds %d bytes", stdout.limit))
	}
	return Decode(stdout.buf.Bytes())
}

func (b *ProcessBridge) outputLimit() int {
	if b.MaxOutput > 0 {
		return b.MaxOutput
	}
	return maxResponseBody
}

// cappedBuffer keeps the first limit bytes and discards the rest, so the
// child never blocks on a full pipe.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *cappedBuffer) Write(p []byte) (int, error) {
	if room := w.limit - w.buf.Len(); len(p) > room {
		if room > 0 {
			w.buf.Write(p[:room])
		}
		w.overflow = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *cappedBuffer) String() string {
	return w.buf.String()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[len(s)-maxStderr:]
	}
	return s
}
