// Package cascade runs ranked query plans until one returns rows.
package cascade

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultPlanTimeout bounds one plan execution.
const DefaultPlanTimeout = 10 * time.Second

// Executor runs one plan against a querier.
type Executor interface {
	Execute(ctx context.Context, q domain.Querier, p domain.QueryPlan, filters domain.Filters) ([]domain.Record, error)
}

// SQLExecutor renders plan templates and runs them through the querier.
type SQLExecutor struct {
	// Tables maps resource names to table names.
	Tables map[string]string
}

// Execute implements Executor.
func (e SQLExecutor) Execute(ctx context.Context, q domain.Querier, p domain.QueryPlan, filters domain.Filters) ([]domain.Record, error) {
	query, args, err := plan.Renderer{Placeholder: q.Placeholder, Tables: e.Tables}.Render(p, filters)
	if err != nil {
		return nil, err
	}
	return q.QueryRecords(ctx, query, args...)
}

// Outcome is the result of one cascade run.
type Outcome struct {
	// Records holds the tagged rows of the winning plan, empty on exhaustion.
	Records domain.ResultSet
	// PlanID names the winning plan, empty on exhaustion.
	PlanID string
	// Attempts counts the plans executed.
	Attempts int
	// Errors holds one *domain.ErrPlanExecution per failed plan.
	Errors []error
}

// Succeeded reports whether a plan produced rows.
func (o Outcome) Succeeded() bool {
	return o.PlanID != "" && o.Records.Len() > 0
}

// Cascade executes candidate plans in order and stops at the first non-empty result.
type Cascade struct {
	executor    Executor
	planTimeout time.Duration
	recorder    monitor.Recorder
	logger      *zap.Logger
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithPlanTimeout sets the per-plan timeout.
func WithPlanTimeout(d time.Duration) Option {
	return func(c *Cascade) {
		if d > 0 {
			c.planTimeout = d
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r monitor.Recorder) Option {
	return func(c *Cascade) { c.recorder = monitor.OrNop(r) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cascade) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cascade. A nil executor uses SQLExecutor with default tables.
func New(executor Executor, opts ...Option) *Cascade {
	if executor == nil {
		executor = SQLExecutor{}
	}
	c := &Cascade{
		executor:    executor,
		planTimeout: DefaultPlanTimeout,
		recorder:    monitor.Nop{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes plans in the given order. An execution error is recorded and
// the next plan is tried; an empty result moves on silently. The first plan
// with rows wins and no later plan runs.
func (c *Cascade) Run(ctx context.Context, q domain.Querier, plans []domain.QueryPlan, filters domain.Filters) Outcome {
	var out Outcome

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			out.Errors = append(out.Errors, domain.NewErrPlanExecution(p.ID, err))
			break
		}

		out.Attempts++
		records, err := c.execute(ctx, q, p, filters)
		if err != nil {
			c.recorder.PlanAttempt(p.ID, monitor.OutcomeFailure)
			c.logger.Info("plan failed", zap.String("plan", p.ID), zap.Error(err))
			out.Errors = append(out.Errors, domain.NewErrPlanExecution(p.ID, err))
			continue
		}
		if len(records) == 0 {
			c.recorder.PlanAttempt(p.ID, monitor.OutcomeEmpty)
			c.logger.Debug("plan returned no rows", zap.String("plan", p.ID))
			continue
		}

		c.recorder.PlanAttempt(p.ID, monitor.OutcomeSuccess)
		out.PlanID = p.ID
		out.Records = domain.ResultSet{Records: records}.Tag(p.ID)
		return out
	}

	return out
}

func (c *Cascade) execute(ctx context.Context, q domain.Querier, p domain.QueryPlan, filters domain.Filters) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.planTimeout)
	defer cancel()
	return c.executor.Execute(ctx, q, p, filters)
}
