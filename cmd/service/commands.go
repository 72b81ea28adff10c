package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasuganosora/statsgate/pkg/export"
	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
	"github.com/kasuganosora/statsgate/server/httpapi"
	mcpserver "github.com/kasuganosora/statsgate/server/mcp"
)

var (
	resolveAction   string
	resolveSearch   string
	resolvePage     int
	resolvePageSize int
	resolveExport   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard HTTP API (and MCP when enabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, a)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one dashboard request and print the JSON response",
	Example: `  statsgate resolve --action inventory --search lamp --page 2
  statsgate resolve --action statistics --export dashboard.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		env := a.pipeline.Resolve(cmd.Context(), resolver.Request{
			Action:   resolveAction,
			Search:   resolveSearch,
			Page:     resolvePage,
			PageSize: resolvePageSize,
		})
		return writeResolved(cmd.OutOrStdout(), env, resolveExport)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Connect with the first reachable credential and print the capability report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		report, err := probe(cmd.Context(), a)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and query plan catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogs, err := cfg.BuildCatalogs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, action := range catalogs.Actions() {
			c, _ := catalogs.Get(action)
			fmt.Fprintf(out, "%s: %d plans, resources %v\n", action, len(c.Plans()), c.Resources())
		}
		fmt.Fprintf(out, "credentials: %d, bridge: %s\n", len(cfg.Credentials), bridgeMode(cfg.Bridge.Mode))
		fmt.Fprintln(out, "ok")
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveAction, "action", "a", "", "dashboard action (inventory, statistics, ...)")
	resolveCmd.Flags().StringVarP(&resolveSearch, "search", "s", "", "free-text search")
	resolveCmd.Flags().IntVar(&resolvePage, "page", 0, "page number, starting at 1")
	resolveCmd.Flags().IntVar(&resolvePageSize, "page-size", 0, "rows per page")
	resolveCmd.Flags().StringVar(&resolveExport, "export", "", "also write the response to this .xlsx file")
	_ = resolveCmd.MarkFlagRequired("action")
}

// errRejected makes the CLI exit non-zero for caller input errors.
var errRejected = errors.New("request rejected")

func writeResolved(w io.Writer, env *resolver.Envelope, exportPath string) error {
	resp := env.Response()
	if err := printJSON(w, resp); err != nil {
		return err
	}
	if env.Visited(resolver.StateRejected) {
		return fmt.Errorf("%w: %s", errRejected, env.Message)
	}
	if exportPath != "" {
		if err := export.SaveFile(exportPath, resp); err != nil {
			return err
		}
	}
	return nil
}

func probe(ctx context.Context, a *app) (probeResult, error) {
	active, err := a.rotator.Resolve(ctx, a.cfg.Descriptors())
	if err != nil {
		return probeResult{}, err
	}
	defer active.Close()

	report := a.prober.Probe(ctx, active.Handle, a.cfg.ResolvedResources())

	plans := make(map[string][]string, len(a.catalogs))
	for _, action := range a.catalogs.Actions() {
		c, _ := a.catalogs.Get(action)
		for _, p := range plan.Select(report, c) {
			plans[action] = append(plans[action], p.ID)
		}
	}

	return probeResult{
		Connection: resolver.ConnectionInfo{
			Name:     active.Descriptor.Name,
			Database: active.Descriptor.Database,
			Index:    active.Index,
		},
		Capabilities: report.Entries,
		Plans:        plans,
	}, nil
}

type probeResult struct {
	Connection   resolver.ConnectionInfo      `json:"connection"`
	Capabilities map[string]domain.Capability `json:"capabilities"`
	Plans        map[string][]string          `json:"plans"`
}

func serve(ctx context.Context, a *app) error {
	httpSrv := httpapi.NewServer(a.cfg.Server, a.pipeline,
		httpapi.WithMetrics(a.cfg.Metrics, a.registry, a.metrics),
		httpapi.WithLogger(a.logger))

	var mcpSrv *mcpserver.Server
	if a.cfg.MCP.Enabled {
		mcpSrv = mcpserver.NewServer(a.cfg.MCP, a.cfg.Server.APIClients, a.pipeline, a.catalogs.Actions(), a.logger)
		a.logger.Info("MCP enabled", zap.String("addr", a.cfg.GetMCPAddress()))
	}

	// 监听端口
	ln, err := net.Listen("tcp", a.cfg.GetListenAddress())
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	if mcpSrv != nil {
		g.Go(func() error {
			if err := mcpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a.logger.Info("shutting down")
		err := httpSrv.Shutdown(shutdownCtx)
		if mcpSrv != nil {
			err = errors.Join(err, mcpSrv.Shutdown(shutdownCtx))
		}
		if err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func bridgeMode(mode string) string {
	if mode == "" {
		return "disabled"
	}
	return mode
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
