// Package credential negotiates the single live connection of a request from
// an ordered list of candidate descriptors.
package credential

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultAttemptTimeout bounds one attempt when the descriptor sets none.
const DefaultAttemptTimeout = 5 * time.Second

// Connector opens a live handle for one descriptor.
type Connector interface {
	Connect(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	return f(ctx, d)
}

// Active is the connection chosen for a request.
type Active struct {
	Handle     domain.Handle
	Index      int
	Descriptor domain.ConnectionDescriptor
}

// Close closes the underlying handle.
func (a *Active) Close() error {
	if a == nil || a.Handle == nil {
		return nil
	}
	return a.Handle.Close()
}

// Rotator tries descriptors in order and keeps the first that connects.
type Rotator struct {
	connector      Connector
	attemptTimeout time.Duration
	recorder       monitor.Recorder
	logger         *zap.Logger
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithAttemptTimeout sets the timeout used for descriptors without one.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Rotator) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec monitor.Recorder) Option {
	return func(r *Rotator) { r.recorder = monitor.OrNop(rec) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Rotator) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRotator creates a rotator over connector.
func NewRotator(connector Connector, opts ...Option) *Rotator {
	r := &Rotator{
		connector:      connector,
		attemptTimeout: DefaultAttemptTimeout,
		recorder:       monitor.Nop{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first descriptor that connects. Candidates after it are
// never attempted. Every failure, including timeouts and unknown drivers, moves
// on to the next candidate; when none is left the result is
// *domain.ErrConnectionExhausted.
func (r *Rotator) Resolve(ctx context.Context, descriptors []domain.ConnectionDescriptor) (*Active, error) {
	exhausted := &domain.ErrConnectionExhausted{}

	for i, d := range descriptors {
		if err := ctx.Err(); err != nil {
			exhausted.Attempts = append(exhausted.Attempts, err)
			break
		}

		h, err := r.attempt(ctx, d)
		if err == nil {
			r.recorder.CredentialAttempt(monitor.OutcomeSuccess)
			r.logger.Debug("credential connected",
				zap.String("descriptor", d.Name),
				zap.Int("index", i))
			return &Active{Handle: h, Index: i, Descriptor: d}, nil
		}

		r.recorder.CredentialAttempt(monitor.OutcomeFailure)
		r.logger.Info("credential attempt failed",
			zap.String("descriptor", d.String()),
			zap.Int("index", i),
			zap.Error(err))
		exhausted.Attempts = append(exhausted.Attempts, err)
	}

	return nil, exhausted
}

func (r *Rotator) attempt(ctx context.Context, d domain.ConnectionDescriptor) (domain.Handle, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = r.attemptTimeout
		d.Timeout = timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h, err := r.connector.Connect(attemptCtx, d)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, domain.NewErrConnectionFailed(d, errNilHandle)
	}
	return h, nil
}
