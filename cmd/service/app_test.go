package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kasuganosora/statsgate/pkg/bridge"
	"github.com/kasuganosora/statsgate/pkg/config"
	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

const fixtureSchema = `
CREATE TABLE products (id INTEGER PRIMARY KEY, sku TEXT, name TEXT, country TEXT);
CREATE TABLE inventory (product_id INTEGER, quantity INTEGER);
CREATE TABLE ebay_listings (product_id INTEGER, item_id TEXT);
INSERT INTO products (sku, name, country) VALUES ('S1', 'Desk lamp', 'DE'), ('S2', 'Chair', 'US');
INSERT INTO inventory VALUES (1, 4), (2, 7);
INSERT INTO ebay_listings VALUES (2, 'E1');`

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := config.DefaultConfig()
	cfg.Credentials = []config.CredentialConfig{
		{Name: "unreachable", Driver: "mysql", Host: "127.0.0.1", Port: 1, Database: "shop", Timeout: "500ms"},
		{Name: "local", Driver: "sqlite", Database: path},
	}
	return cfg
}

func TestBuildApp_ResolveInventory(t *testing.T) {
	a, err := buildApp(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)

	env := a.pipeline.Resolve(context.Background(), resolver.Request{Action: "inventory", Search: "lamp"})
	assert.True(t, env.Success)
	assert.Equal(t, "products+inventory+ebay", env.Source)
	require.NotNil(t, env.Connection)
	assert.Equal(t, "local", env.Connection.Name)
	assert.Equal(t, 1, env.Connection.Index)
	assert.Equal(t, 1, env.Count)

	snap := a.metrics.GetSnapshot()
	assert.Equal(t, int64(1), snap.Requests)
}

func TestBuildApp_NoCredentialsFallsBack(t *testing.T) {
	a, err := buildApp(config.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	env := a.pipeline.Resolve(context.Background(), resolver.Request{Action: "statistics"})
	assert.True(t, env.Success)
	assert.Equal(t, domain.SourceEmergencyFallback, env.Source)
}

func TestBuildBridge(t *testing.T) {
	cfg := config.DefaultConfig()
	b, err := buildBridge(cfg)
	require.NoError(t, err)
	assert.IsType(t, bridge.Disabled{}, b)

	cfg.Bridge = config.BridgeConfig{Mode: config.BridgeProcess, Command: "/bin/true", Timeout: "2s"}
	b, err = buildBridge(cfg)
	require.NoError(t, err)
	pb, ok := b.(*bridge.ProcessBridge)
	require.True(t, ok)
	assert.Equal(t, "/bin/true", pb.Command)

	t.Setenv("STATS_TOKEN", "tok")
	cfg.Bridge = config.BridgeConfig{Mode: config.BridgeHTTP, URL: "http://127.0.0.1:1/stats", AuthTokenEnv: "STATS_TOKEN"}
	b, err = buildBridge(cfg)
	require.NoError(t, err)
	assert.IsType(t, &bridge.HTTPBridge{}, b)
}

func TestProbe(t *testing.T) {
	a, err := buildApp(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)

	result, err := probe(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "local", result.Connection.Name)
	assert.True(t, result.Capabilities["ebay"].Usable())
	assert.False(t, result.Capabilities["images"].Exists)
	assert.Equal(t, []string{"products+inventory+ebay", "products+inventory_basic"}, result.Plans["inventory"])
	assert.Equal(t, []string{"statistics_listings", "statistics_basic"}, result.Plans["statistics"])
}

func TestProbe_Exhausted(t *testing.T) {
	a, err := buildApp(config.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = probe(context.Background(), a)
	var exhausted *domain.ErrConnectionExhausted
	assert.True(t, errors.As(err, &exhausted))
}

func TestWriteResolved(t *testing.T) {
	env := &resolver.Envelope{Success: true, Source: domain.SourceEmergencyFallback, Count: 1,
		Records: domain.ResultSet{Records: []domain.Record{{"status": "unavailable", domain.ProvenanceKey: domain.SourceEmergencyFallback}}}}

	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeResolved(&out, env, path))
	assert.FileExists(t, path)

	var resp resolver.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, domain.SourceEmergencyFallback, resp.Source)

	rejected := &resolver.Envelope{Message: "action: is required", States: []resolver.State{resolver.StateStart, resolver.StateRejected}}
	out.Reset()
	err := writeResolved(&out, rejected, "")
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out.String(), `"success": false`)
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeYAML(path, "server:\n  port: 8181\n"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", "--config", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "inventory: 4 plans")
	assert.Contains(t, out.String(), "statistics: 3 plans")
	assert.Contains(t, out.String(), "bridge: disabled")
	assert.Contains(t, out.String(), "ok")
}

func writeYAML(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
