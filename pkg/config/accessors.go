package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/statsgate/pkg/plan"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

func parseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetConnectTimeout 返回单个凭据连接超时
func (c *Config) GetConnectTimeout() time.Duration {
	return parseDurationOr(c.Timeouts.Connect, 5*time.Second)
}

// GetPlanTimeout 返回单个查询计划超时
func (c *Config) GetPlanTimeout() time.Duration {
	return parseDurationOr(c.Timeouts.Plan, 10*time.Second)
}

// GetRequestTimeout 返回整个请求超时
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDurationOr(c.Timeouts.Request, 30*time.Second)
}

// GetProbeTimeout 返回单个资源探测超时
func (c *Config) GetProbeTimeout() time.Duration {
	return parseDurationOr(c.Probe.Timeout, 3*time.Second)
}

// GetBridgeTimeout 返回桥接调用超时
func (c *Config) GetBridgeTimeout() time.Duration {
	return parseDurationOr(c.Bridge.Timeout, 10*time.Second)
}

// GetBridgeRetryDelay 返回 HTTP 桥接重试间隔
func (c *Config) GetBridgeRetryDelay() time.Duration {
	return parseDurationOr(c.Bridge.RetryDelay, 200*time.Millisecond)
}

// Descriptors 按配置顺序返回候选连接描述
func (c *Config) Descriptors() []domain.ConnectionDescriptor {
	out := make([]domain.ConnectionDescriptor, 0, len(c.Credentials))
	for _, cred := range c.Credentials {
		var options map[string]interface{}
		if len(cred.Options) > 0 {
			options = make(map[string]interface{}, len(cred.Options))
			for k, v := range cred.Options {
				options[k] = v
			}
		}
		out = append(out, domain.ConnectionDescriptor{
			Name:      cred.Name,
			Driver:    domain.DriverType(cred.Driver),
			Host:      cred.Host,
			Port:      cred.Port,
			Database:  cred.Database,
			Principal: cred.Principal,
			Secret:    cred.Secret,
			Timeout:   parseDurationOr(cred.Timeout, c.GetConnectTimeout()),
			Options:   options,
		})
	}
	return out
}

// ResolvedResources 返回资源映射，未配置时使用内置映射
func (c *Config) ResolvedResources() []domain.Resource {
	if len(c.Resources) == 0 {
		return plan.DefaultResources()
	}
	out := make([]domain.Resource, len(c.Resources))
	copy(out, c.Resources)
	return out
}

// BuildCatalogs 构建查询计划目录，未配置的动作使用内置计划
func (c *Config) BuildCatalogs() (plan.Catalogs, error) {
	if len(c.Catalogs) == 0 {
		return plan.DefaultCatalogs(), nil
	}

	validate := plan.ValidateCatalog
	if c.postgresOnly() {
		validate = plan.ValidateCatalogPortable
	}

	catalogs := make(plan.Catalogs, len(c.Catalogs))
	for action, plans := range c.Catalogs {
		catalog, err := plan.NewCatalog(strings.ToLower(strings.TrimSpace(action)), plans)
		if err != nil {
			return nil, fmt.Errorf("动作 %s 的计划目录无效: %w", action, err)
		}
		if err := validate(catalog); err != nil {
			return nil, fmt.Errorf("动作 %s 的计划目录无效: %w", action, err)
		}
		catalogs[catalog.Action()] = catalog
	}
	return catalogs, nil
}

// postgresOnly 所有凭据都使用 PostgreSQL 时，计划模板按可移植规则校验
func (c *Config) postgresOnly() bool {
	if len(c.Credentials) == 0 {
		return false
	}
	for _, cred := range c.Credentials {
		if domain.DriverType(cred.Driver) != domain.DriverPostgreSQL {
			return false
		}
	}
	return true
}
