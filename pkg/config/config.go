package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// 环境变量
const (
	EnvConfigPath = "STATSGATE_CONFIG"
	EnvDBSecret   = "STATSGATE_DB_SECRET"
	EnvBridgeURL  = "STATSGATE_BRIDGE_URL"
	EnvLogLevel   = "STATSGATE_LOG_LEVEL"
)

// 桥接模式
const (
	BridgeDisabled = "disabled"
	BridgeProcess  = "process"
	BridgeHTTP     = "http"
)

// Config 应用程序配置
type Config struct {
	Server      ServerConfig                  `json:"server" yaml:"server"`
	MCP         MCPConfig                     `json:"mcp" yaml:"mcp"`
	Log         LogConfig                     `json:"log" yaml:"log"`
	Metrics     MetricsConfig                 `json:"metrics" yaml:"metrics"`
	Credentials []CredentialConfig            `json:"credentials" yaml:"credentials"`
	Resources   []domain.Resource             `json:"resources" yaml:"resources"`
	Catalogs    map[string][]domain.QueryPlan `json:"catalogs,omitempty" yaml:"catalogs,omitempty"`
	Bridge      BridgeConfig                  `json:"bridge" yaml:"bridge"`
	Probe       ProbeConfig                   `json:"probe" yaml:"probe"`
	Timeouts    TimeoutConfig                 `json:"timeouts" yaml:"timeouts"`
	Paging      PagingConfig                  `json:"paging" yaml:"paging"`
	Fallback    FallbackConfig                `json:"fallback" yaml:"fallback"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// 为空时不启用认证
	APIClients []APIClientConfig `json:"api_clients,omitempty" yaml:"api_clients,omitempty"`
}

// APIClientConfig API 客户端，密钥只从环境变量读取
type APIClientConfig struct {
	Name      string `json:"name" yaml:"name"`
	KeyEnv    string `json:"key_env" yaml:"key_env"`
	SecretEnv string `json:"secret_env,omitempty" yaml:"secret_env,omitempty"`

	Key    string `json:"-" yaml:"-"`
	Secret string `json:"-" yaml:"-"`
}

// MCPConfig MCP 服务配置
type MCPConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or console
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// CredentialConfig 候选连接凭据
type CredentialConfig struct {
	Name      string                 `json:"name" yaml:"name"`
	Driver    string                 `json:"driver" yaml:"driver"`
	Host      string                 `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int                    `json:"port,omitempty" yaml:"port,omitempty"`
	Database  string                 `json:"database" yaml:"database"`
	Principal string                 `json:"principal,omitempty" yaml:"principal,omitempty"`
	Secret    string                 `json:"secret,omitempty" yaml:"secret,omitempty"`
	SecretEnv string                 `json:"secret_env,omitempty" yaml:"secret_env,omitempty"`
	Timeout   string                 `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// BridgeConfig 外部计算桥接配置
type BridgeConfig struct {
	Mode    string   `json:"mode" yaml:"mode"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Timeout string   `json:"timeout" yaml:"timeout"`

	// process
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`

	// http
	URL           string            `json:"url,omitempty" yaml:"url,omitempty"`
	AuthTokenEnv  string            `json:"auth_token_env,omitempty" yaml:"auth_token_env,omitempty"`
	APIKeyHeader  string            `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`
	APIKeyEnv     string            `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	RetryCount    int               `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	RetryDelay    string            `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
	TLSSkipVerify bool              `json:"tls_skip_verify,omitempty" yaml:"tls_skip_verify,omitempty"`
	TLSCACert     string            `json:"tls_ca_cert,omitempty" yaml:"tls_ca_cert,omitempty"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ProbeConfig 能力探测配置
type ProbeConfig struct {
	Parallel       bool   `json:"parallel" yaml:"parallel"`
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency"`
	Timeout        string `json:"timeout" yaml:"timeout"`
}

// TimeoutConfig 超时配置
type TimeoutConfig struct {
	Connect string `json:"connect" yaml:"connect"`
	Plan    string `json:"plan" yaml:"plan"`
	Request string `json:"request" yaml:"request"`
}

// PagingConfig 分页配置
type PagingConfig struct {
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size"`
	MaxPageSize     int `json:"max_page_size" yaml:"max_page_size"`
}

// FallbackConfig 兜底记录配置
type FallbackConfig struct {
	Fields map[string]interface{} `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		MCP: MCPConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8090,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Bridge: BridgeConfig{
			Mode:    BridgeDisabled,
			Timeout: "10s",
		},
		Probe: ProbeConfig{
			Parallel:       true,
			MaxConcurrency: 4,
			Timeout:        "3s",
		},
		Timeouts: TimeoutConfig{
			Connect: "5s",
			Plan:    "10s",
			Request: "30s",
		},
		Paging: PagingConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
	}
}

// LoadConfig 从文件加载配置，.yaml/.yml 使用 YAML，其余使用 JSON
func LoadConfig(configPath string) (*Config, error) {
	// 如果没有指定配置文件，使用默认配置
	if configPath == "" {
		config := DefaultConfig()
		config.applyEnvOverrides()
		if err := validateConfig(config); err != nil {
			return nil, err
		}
		return config, nil
	}

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config.applyEnvOverrides()

	// 验证配置
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件
func LoadConfigOrDefault() *Config {
	// 尝试从环境变量获取配置文件路径
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	// 尝试的配置文件路径
	possiblePaths := []string{
		"config.json",
		"config.yaml",
		"./config/config.json",
		"./config/config.yaml",
		"/etc/statsgate/config.json",
		"/etc/statsgate/config.yaml",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	// 使用默认配置
	config := DefaultConfig()
	config.applyEnvOverrides()
	return config
}

// applyEnvOverrides 使用环境变量覆盖配置，密钥只从环境变量读取
func (c *Config) applyEnvOverrides() {
	shared := os.Getenv(EnvDBSecret)
	for i := range c.Credentials {
		cred := &c.Credentials[i]
		if cred.SecretEnv != "" {
			if v := os.Getenv(cred.SecretEnv); v != "" {
				cred.Secret = v
			}
			continue
		}
		if cred.Secret == "" && shared != "" {
			cred.Secret = shared
		}
	}

	for i := range c.Server.APIClients {
		client := &c.Server.APIClients[i]
		client.Key = os.Getenv(client.KeyEnv)
		if client.SecretEnv != "" {
			client.Secret = os.Getenv(client.SecretEnv)
		}
	}

	if url := os.Getenv(EnvBridgeURL); url != "" {
		c.Bridge.URL = url
		c.Bridge.Mode = BridgeHTTP
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("无效的端口号: %d", config.Server.Port)
	}
	if config.MCP.Enabled && (config.MCP.Port < 1 || config.MCP.Port > 65535) {
		return fmt.Errorf("无效的MCP端口号: %d", config.MCP.Port)
	}

	for i, client := range config.Server.APIClients {
		if client.Name == "" || client.KeyEnv == "" {
			return fmt.Errorf("第%d个API客户端必须设置 name 和 key_env", i+1)
		}
	}

	switch config.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("无效的日志级别: %s", config.Log.Level)
	}
	switch config.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("无效的日志格式: %s", config.Log.Format)
	}

	names := make(map[string]struct{}, len(config.Credentials))
	for i, cred := range config.Credentials {
		if cred.Name == "" {
			return fmt.Errorf("第%d个凭据缺少名称", i+1)
		}
		if _, dup := names[cred.Name]; dup {
			return fmt.Errorf("凭据名称重复: %s", cred.Name)
		}
		names[cred.Name] = struct{}{}
		switch domain.DriverType(cred.Driver) {
		case domain.DriverMySQL, domain.DriverPostgreSQL, domain.DriverSQLite:
		default:
			return fmt.Errorf("凭据 %s 使用了不支持的驱动: %s", cred.Name, cred.Driver)
		}
		if cred.Database == "" {
			return fmt.Errorf("凭据 %s 缺少数据库", cred.Name)
		}
		if err := checkDuration("credentials."+cred.Name+".timeout", cred.Timeout, true); err != nil {
			return err
		}
	}

	tables := make(map[string]struct{}, len(config.Resources))
	for _, res := range config.Resources {
		if res.Name == "" || res.Table == "" {
			return fmt.Errorf("资源必须同时设置 name 和 table")
		}
		if _, dup := tables[res.Name]; dup {
			return fmt.Errorf("资源名称重复: %s", res.Name)
		}
		tables[res.Name] = struct{}{}
	}

	switch config.Bridge.Mode {
	case "", BridgeDisabled:
	case BridgeProcess:
		if config.Bridge.Command == "" {
			return fmt.Errorf("process 桥接必须设置 command")
		}
	case BridgeHTTP:
		if config.Bridge.URL == "" {
			return fmt.Errorf("http 桥接必须设置 url")
		}
	default:
		return fmt.Errorf("无效的桥接模式: %s", config.Bridge.Mode)
	}

	for key, value := range map[string]string{
		"bridge.timeout":     config.Bridge.Timeout,
		"bridge.retry_delay": config.Bridge.RetryDelay,
		"probe.timeout":      config.Probe.Timeout,
		"timeouts.connect":   config.Timeouts.Connect,
		"timeouts.plan":      config.Timeouts.Plan,
		"timeouts.request":   config.Timeouts.Request,
	} {
		if err := checkDuration(key, value, true); err != nil {
			return err
		}
	}

	if config.Paging.DefaultPageSize < 1 {
		return fmt.Errorf("默认分页大小必须大于0")
	}
	if config.Paging.MaxPageSize < config.Paging.DefaultPageSize {
		return fmt.Errorf("最大分页大小不能小于默认分页大小")
	}

	if _, err := config.BuildCatalogs(); err != nil {
		return err
	}

	return nil
}

func checkDuration(key, value string, optional bool) error {
	if value == "" && optional {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s 不是有效的时长: %q", key, value)
	}
	if d <= 0 {
		return fmt.Errorf("%s 必须大于0", key)
	}
	return nil
}

// GetListenAddress 返回 HTTP 监听地址
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetMCPAddress 返回 MCP 监听地址
func (c *Config) GetMCPAddress() string {
	return fmt.Sprintf("%s:%d", c.MCP.Host, c.MCP.Port)
}
