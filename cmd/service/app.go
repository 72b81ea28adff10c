package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/bridge"
	"github.com/kasuganosora/statsgate/pkg/capability"
	"github.com/kasuganosora/statsgate/pkg/cascade"
	"github.com/kasuganosora/statsgate/pkg/config"
	"github.com/kasuganosora/statsgate/pkg/credential"
	"github.com/kasuganosora/statsgate/pkg/fallback"
	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/server/datasource"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *monitor.Metrics
	catalogs plan.Catalogs
	rotator  *credential.Rotator
	prober   *capability.SQLProber
	pipeline *resolver.Pipeline
}

// buildApp wires the resolution pipeline from configuration.
func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := monitor.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	catalogs, err := cfg.BuildCatalogs()
	if err != nil {
		return nil, err
	}

	b, err := buildBridge(cfg)
	if err != nil {
		return nil, err
	}

	resources := cfg.ResolvedResources()
	tables := make(map[string]string, len(resources))
	for _, r := range resources {
		tables[r.Name] = r.Table
	}

	connector := datasource.DefaultRegistry()
	rotator := credential.NewRotator(connector,
		credential.WithAttemptTimeout(cfg.GetConnectTimeout()),
		credential.WithRecorder(metrics),
		credential.WithLogger(logger))

	prober := &capability.SQLProber{
		ResourceTimeout: cfg.GetProbeTimeout(),
		Parallel:        cfg.Probe.Parallel,
		MaxConcurrency:  cfg.Probe.MaxConcurrency,
		Recorder:        metrics,
		Logger:          logger,
	}

	runner := cascade.New(cascade.SQLExecutor{Tables: tables},
		cascade.WithPlanTimeout(cfg.GetPlanTimeout()),
		cascade.WithRecorder(metrics),
		cascade.WithLogger(logger))

	settings := resolver.Settings{
		Descriptors:    cfg.Descriptors(),
		Resources:      resources,
		Catalogs:       catalogs,
		BridgeActions:  cfg.Bridge.Actions,
		RequestTimeout: cfg.GetRequestTimeout(),
		Limits: resolver.Limits{
			DefaultPageSize: cfg.Paging.DefaultPageSize,
			MaxPageSize:     cfg.Paging.MaxPageSize,
		},
	}

	pipeline := resolver.New(settings, connector,
		resolver.WithBridge(b),
		resolver.WithRotator(rotator),
		resolver.WithProber(prober),
		resolver.WithCascade(runner),
		resolver.WithSynthesizer(fallback.New(cfg.Fallback.Fields)),
		resolver.WithRecorder(metrics),
		resolver.WithLogger(logger))

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		catalogs: catalogs,
		rotator:  rotator,
		prober:   prober,
		pipeline: pipeline,
	}, nil
}

func buildBridge(cfg *config.Config) (bridge.Bridge, error) {
	bc := cfg.Bridge
	switch bc.Mode {
	case config.BridgeProcess:
		return &bridge.ProcessBridge{
			Command: bc.Command,
			Args:    bc.Args,
			Dir:     bc.Dir,
			Env:     bc.Env,
			Timeout: cfg.GetBridgeTimeout(),
		}, nil
	case config.BridgeHTTP:
		hc := bridge.HTTPConfig{
			URL:           bc.URL,
			APIKeyHeader:  bc.APIKeyHeader,
			Timeout:       cfg.GetBridgeTimeout(),
			RetryCount:    bc.RetryCount,
			RetryDelay:    cfg.GetBridgeRetryDelay(),
			TLSSkipVerify: bc.TLSSkipVerify,
			TLSCACert:     bc.TLSCACert,
			Headers:       bc.Headers,
		}
		if bc.AuthTokenEnv != "" {
			hc.AuthToken = os.Getenv(bc.AuthTokenEnv)
		}
		if bc.APIKeyEnv != "" {
			hc.APIKeyValue = os.Getenv(bc.APIKeyEnv)
		}
		hb, err := bridge.NewHTTPBridge(hc)
		if err != nil {
			return nil, err
		}
		return hb, nil
	default:
		return bridge.Disabled{}, nil
	}
}
