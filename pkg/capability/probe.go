// Package capability inspects which optional schema resources a live
// connection can actually serve.
package capability

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultResourceTimeout bounds the probe of one resource.
const DefaultResourceTimeout = 3 * time.Second

// Probe steps reported in ErrProbeDenied.
const (
	StepExists  = "exists"
	StepCount   = "count"
	StepColumns = "columns"
)

// Prober builds a capability report. It never fails: probe errors become
// absent capabilities.
type Prober interface {
	Probe(ctx context.Context, inspector domain.Inspector, resources []domain.Resource) domain.CapabilityReport
}

// SQLProber probes resources with metadata and count queries.
type SQLProber struct {
	// ResourceTimeout 单个资源的探测超时
	ResourceTimeout time.Duration
	// Parallel 是否并发探测
	Parallel bool
	// MaxConcurrency 并发上限，<=0 表示不限制
	MaxConcurrency int

	Recorder monitor.Recorder
	Logger   *zap.Logger
}

// NewSQLProber creates a sequential prober with the default timeout.
func NewSQLProber() *SQLProber {
	return &SQLProber{ResourceTimeout: DefaultResourceTimeout}
}

// Probe checks every resource. The report lists resources in input order
// whether or not probing runs in parallel.
func (p *SQLProber) Probe(ctx context.Context, inspector domain.Inspector, resources []domain.Resource) domain.CapabilityReport {
	results := make([]domain.Capability, len(resources))

	if p.Parallel && len(resources) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		if p.MaxConcurrency > 0 {
			g.SetLimit(p.MaxConcurrency)
		}
		for i, res := range resources {
			g.Go(func() error {
				results[i] = p.probeOne(gctx, inspector, res)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, res := range resources {
			results[i] = p.probeOne(ctx, inspector, res)
		}
	}

	report := domain.NewCapabilityReport()
	for i, res := range resources {
		report.Set(res.Name, results[i])
	}
	return report
}

func (p *SQLProber) probeOne(ctx context.Context, inspector domain.Inspector, res domain.Resource) domain.Capability {
	timeout := p.ResourceTimeout
	if timeout <= 0 {
		timeout = DefaultResourceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := inspect(ctx, inspector, res)
	if err != nil {
		p.logger().Debug("capability downgraded",
			zap.String("resource", res.Name),
			zap.String("table", res.Table),
			zap.Error(err))
		c = domain.Capability{Exists: false, RowCount: 0, Reason: err.Error()}
	}

	p.recorder().ProbeResource(state(c))
	return c
}

func inspect(ctx context.Context, inspector domain.Inspector, res domain.Resource) (domain.Capability, error) {
	exists, err := inspector.TableExists(ctx, res.Table)
	if err != nil {
		return domain.Capability{}, &domain.ErrProbeDenied{Resource: res.Name, Step: StepExists, Err: err}
	}
	if !exists {
		return domain.Capability{}, nil
	}

	n, err := inspector.CountRows(ctx, res.Table)
	if err != nil {
		return domain.Capability{}, &domain.ErrProbeDenied{Resource: res.Name, Step: StepCount, Err: err}
	}

	columns, err := inspector.Columns(ctx, res.Table)
	if err != nil {
		return domain.Capability{}, &domain.ErrProbeDenied{Resource: res.Name, Step: StepColumns, Err: err}
	}

	return domain.Capability{Exists: true, RowCount: n, Columns: columns}, nil
}

func state(c domain.Capability) string {
	switch {
	case c.Usable():
		return monitor.ProbeUsable
	case c.Exists:
		return monitor.ProbeEmpty
	default:
		return monitor.ProbeAbsent
	}
}

func (p *SQLProber) recorder() monitor.Recorder {
	return monitor.OrNop(p.Recorder)
}

func (p *SQLProber) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// StaticProber returns a canned report, restricted to the requested resources.
type StaticProber struct {
	Report domain.CapabilityReport
}

// Probe implements Prober.
func (s StaticProber) Probe(_ context.Context, _ domain.Inspector, resources []domain.Resource) domain.CapabilityReport {
	report := domain.NewCapabilityReport()
	for _, res := range resources {
		c := s.Report.Get(res.Name)
		if len(c.Columns) > 0 {
			c.Columns = append([]string(nil), c.Columns...)
		}
		report.Set(res.Name, c)
	}
	return report
}
