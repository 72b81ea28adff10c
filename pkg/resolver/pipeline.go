// Package resolver runs the per-request resolution state machine and builds
// the dashboard response envelope.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/bridge"
	"github.com/kasuganosora/statsgate/pkg/capability"
	"github.com/kasuganosora/statsgate/pkg/cascade"
	"github.com/kasuganosora/statsgate/pkg/credential"
	"github.com/kasuganosora/statsgate/pkg/fallback"
	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// DefaultRequestTimeout bounds a whole resolution.
const DefaultRequestTimeout = 30 * time.Second

// Settings is the read-only configuration shared by all requests.
type Settings struct {
	Descriptors []domain.ConnectionDescriptor
	Resources   []domain.Resource
	Catalogs    plan.Catalogs
	// BridgeActions restricts the bridge to these actions; empty means all.
	BridgeActions []string
	// SummaryAction names the catalog whose single-row plans feed the
	// dashboard summary of other actions. Defaults to plan.ActionStatistics.
	SummaryAction  string
	RequestTimeout time.Duration
	Limits         Limits
}

// Resolver answers dashboard requests.
type Resolver interface {
	Resolve(ctx context.Context, req Request) *Envelope
}

// Pipeline is the production Resolver.
type Pipeline struct {
	settings      Settings
	bridgeActions map[string]struct{}

	bridge      bridge.Bridge
	rotator     *credential.Rotator
	prober      capability.Prober
	cascade     *cascade.Cascade
	synthesizer *fallback.Synthesizer
	recorder    monitor.Recorder
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBridge sets the external computation bridge.
func WithBridge(b bridge.Bridge) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.bridge = b
		}
	}
}

// WithProber sets the capability prober.
func WithProber(pr capability.Prober) Option {
	return func(p *Pipeline) {
		if pr != nil {
			p.prober = pr
		}
	}
}

// WithCascade sets the execution cascade.
func WithCascade(c *cascade.Cascade) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.cascade = c
		}
	}
}

// WithSynthesizer sets the fallback synthesizer.
func WithSynthesizer(s *fallback.Synthesizer) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.synthesizer = s
		}
	}
}

// WithRotator replaces the credential rotator built from the connector.
func WithRotator(r *credential.Rotator) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.rotator = r
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r monitor.Recorder) Option {
	return func(p *Pipeline) { p.recorder = monitor.OrNop(r) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator sets the request id generator.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// New creates a pipeline. Connections are opened through connector.
func New(settings Settings, connector credential.Connector, opts ...Option) *Pipeline {
	if settings.Catalogs == nil {
		settings.Catalogs = plan.DefaultCatalogs()
	}
	if settings.Resources == nil {
		settings.Resources = plan.DefaultResources()
	}
	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = DefaultRequestTimeout
	}
	if settings.SummaryAction == "" {
		settings.SummaryAction = plan.ActionStatistics
	}
	settings.Limits = settings.Limits.withDefaults()

	p := &Pipeline{
		settings:    settings,
		bridge:      bridge.Disabled{},
		prober:      capability.NewSQLProber(),
		synthesizer: fallback.New(nil),
		recorder:    monitor.Nop{},
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rotator == nil {
		p.rotator = credential.NewRotator(connector, credential.WithRecorder(p.recorder), credential.WithLogger(p.logger))
	}
	if p.cascade == nil {
		p.cascade = cascade.New(cascade.SQLExecutor{Tables: tableMap(settings.Resources)},
			cascade.WithRecorder(p.recorder), cascade.WithLogger(p.logger))
	}
	if len(settings.BridgeActions) > 0 {
		p.bridgeActions = make(map[string]struct{}, len(settings.BridgeActions))
		for _, a := range settings.BridgeActions {
			p.bridgeActions[a] = struct{}{}
		}
	}
	return p
}

// Settings returns the pipeline settings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Resolve runs the state machine for one request. Only a caller input error
// produces Success=false; every other outcome carries data.
func (p *Pipeline) Resolve(ctx context.Context, req Request) *Envelope {
	start := p.now()
	env := &Envelope{RequestID: p.newID(), Timestamp: start, Action: req.Action}
	env.enter(StateStart)

	normalized, catalog, err := p.prepare(req)
	if err != nil {
		env.enter(StateRejected)
		env.Success = false
		env.Message = err.Error()
		env.addError(err)
		p.finish(env, start)
		return env
	}
	env.Action = normalized.Action

	ctx, cancel := context.WithTimeout(ctx, p.settings.RequestTimeout)
	defer cancel()

	logger := p.logger.With(zap.String("request_id", env.RequestID), zap.String("action", env.Action))

	if p.tryBridge(ctx, env, normalized, logger) {
		p.finish(env, start)
		return env
	}

	p.resolveRelational(ctx, env, normalized, catalog, logger)
	p.finish(env, start)
	return env
}

func (p *Pipeline) prepare(req Request) (Request, *plan.Catalog, error) {
	normalized, err := req.Normalize(p.settings.Limits)
	if err != nil {
		return Request{}, nil, err
	}
	catalog, ok := p.settings.Catalogs.Get(normalized.Action)
	if !ok {
		return Request{}, nil, domain.NewErrCallerInput("action", fmt.Sprintf("unknown action %q", normalized.Action))
	}
	return normalized, catalog, nil
}

func (p *Pipeline) tryBridge(ctx context.Context, env *Envelope, req Request, logger *zap.Logger) bool {
	env.enter(StateTryBridge)

	var (
		stats domain.Statistics
		err   error
	)
	if p.bridgeAllowed(req.Action) {
		stats, err = p.bridge.Compute(ctx, bridge.Payload{
			RequestID:   env.RequestID,
			Action:      req.Action,
			Search:      req.Search,
			Page:        req.Page,
			PageSize:    req.PageSize,
			RequestedAt: env.Timestamp,
		})
	} else {
		err = domain.NewErrBridgeFailure(domain.BridgeReasonDisabled, fmt.Errorf("bridge not enabled for %s", req.Action))
	}

	if err != nil {
		env.enter(StateBridgeFailed)
		reason := domain.BridgeReason(err)
		if reason == "" {
			reason = domain.BridgeReasonTransport
		}
		p.recorder.BridgeFailure(reason)
		if reason != domain.BridgeReasonDisabled {
			env.addError(err)
			logger.Warn("bridge failed", zap.String("reason", reason), zap.Error(err))
		}
		return false
	}

	env.enter(StateBridgeSucceeded)
	env.enter(StateRespondBridge)
	record := domain.Record(stats)
	env.Records = domain.ResultSet{Records: []domain.Record{record}}.Tag(domain.SourceBridge)
	env.Source = domain.SourceBridge
	env.Summary = SummaryFromStatistics(stats)
	env.Message = "statistics computed by external job"
	return true
}

func (p *Pipeline) bridgeAllowed(action string) bool {
	if p.bridgeActions == nil {
		return true
	}
	_, ok := p.bridgeActions[action]
	return ok
}

func (p *Pipeline) resolveRelational(ctx context.Context, env *Envelope, req Request, catalog *plan.Catalog, logger *zap.Logger) {
	env.enter(StateRotateCredential)
	active, err := p.rotator.Resolve(ctx, p.settings.Descriptors)
	if err != nil {
		env.enter(StateExhausted)
		env.addError(err)
		logger.Warn("no credential candidate connected", zap.Error(err))
		p.respondFallback(env)
		return
	}
	defer func() {
		if cerr := active.Close(); cerr != nil {
			logger.Debug("close connection", zap.Error(cerr))
		}
	}()

	env.enter(StateConnected)
	env.Connection = &ConnectionInfo{
		Name:     active.Descriptor.Name,
		Database: active.Descriptor.Database,
		Index:    active.Index,
	}

	env.enter(StateProbe)
	report := p.prober.Probe(ctx, active.Handle, p.settings.Resources)
	env.Capabilities = &report

	env.enter(StateSelectPlans)
	candidates := plan.Select(report, catalog)

	env.enter(StateCascade)
	out := p.cascade.Run(ctx, active.Handle, candidates, req.Filters())
	for _, e := range out.Errors {
		env.addError(e)
	}

	if !out.Succeeded() {
		env.enter(StateAllFailed)
		logger.Warn("every plan failed or returned no rows", zap.Int("attempts", out.Attempts))
		p.respondFallback(env)
		return
	}

	env.enter(StateNonEmpty)
	env.enter(StateRespondCascade)
	env.Records = out.Records
	env.Source = out.PlanID
	env.Summary = p.summarize(ctx, env, active.Handle, report, req, planByID(candidates, out.PlanID), out.Records, logger)
	env.Message = fmt.Sprintf("resolved by plan %s", out.PlanID)
}

// summarize returns totals over the whole data set. Rows of a paged or
// searched plan only cover a slice of it, so the summary catalog runs on the
// same connection and report; if it cannot answer, the summary stays zero.
func (p *Pipeline) summarize(ctx context.Context, env *Envelope, q domain.Querier, report domain.CapabilityReport,
	req Request, winner domain.QueryPlan, records domain.ResultSet, logger *zap.Logger) Summary {
	if records.Len() == 1 && isStatisticsShaped(records.Records[0]) {
		return SummaryFromRecords(records)
	}
	if !winner.Paged && req.Search == "" {
		return SummaryFromRecords(records)
	}

	env.enter(StateSummarize)
	catalog, ok := p.settings.Catalogs.Get(p.settings.SummaryAction)
	if !ok || req.Action == p.settings.SummaryAction {
		logger.Debug("no summary catalog", zap.String("summary_action", p.settings.SummaryAction))
		return Summary{}
	}

	out := p.cascade.Run(ctx, q, plan.Select(report, catalog), domain.Filters{})
	if !out.Succeeded() {
		for _, e := range out.Errors {
			env.addError(e)
		}
		logger.Warn("summary plans failed", zap.Int("attempts", out.Attempts))
		return Summary{}
	}
	return SummaryFromRecords(out.Records)
}

func (p *Pipeline) respondFallback(env *Envelope) {
	env.enter(StateRespondFallback)
	env.Records = p.synthesizer.Synthesize()
	env.Source = domain.SourceEmergencyFallback
	env.Summary = SummaryFromRecords(env.Records)
	env.Message = "live statistics unavailable, showing emergency fallback"
}

func (p *Pipeline) finish(env *Envelope, start time.Time) {
	if env.Source != "" {
		env.Success = true
		for i, r := range env.Records.Records {
			if r.Provenance() == "" {
				env.Records.Records[i] = r.WithProvenance(env.Source)
			}
		}
	}
	env.Count = env.Records.Len()
	env.Duration = p.now().Sub(start)

	action, source := env.Action, env.Source
	if !env.Success {
		action, source = "invalid", string(StateRejected)
	}
	p.recorder.Request(action, source, env.Duration)
	p.logger.Info("request resolved",
		zap.String("request_id", env.RequestID),
		zap.String("action", env.Action),
		zap.String("source", source),
		zap.Int("count", env.Count),
		zap.Duration("duration", env.Duration))
}

func planByID(plans []domain.QueryPlan, id string) domain.QueryPlan {
	for _, pl := range plans {
		if pl.ID == id {
			return pl
		}
	}
	return domain.QueryPlan{ID: id}
}

func tableMap(resources []domain.Resource) map[string]string {
	m := make(map[string]string, len(resources))
	for _, r := range resources {
		m[r.Name] = r.Table
	}
	return m
}
