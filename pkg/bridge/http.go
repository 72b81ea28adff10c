package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"os"
	"time"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

const maxResponseBody = 4 << 20

// HTTPConfig HTTP 桥接配置
type HTTPConfig struct {
	URL string `json:"url" yaml:"url"`

	// 认证
	AuthToken    string `json:"-" yaml:"-"`
	APIKeyHeader string `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`
	APIKeyValue  string `json:"-" yaml:"-"`

	// 超时与重试
	Timeout    time.Duration `json:"-" yaml:"-"`
	RetryCount int           `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`
	RetryDelay time.Duration `json:"-" yaml:"-"`

	// TLS
	TLSSkipVerify bool   `json:"tls_skip_verify,omitempty" yaml:"tls_skip_verify,omitempty"`
	TLSCACert     string `json:"tls_ca_cert,omitempty" yaml:"tls_ca_cert,omitempty"`

	// 自定义头（支持模板）
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// HTTPBridge posts the payload to an HTTP endpoint.
type HTTPBridge struct {
	client *gohttp.Client
	config HTTPConfig
}

// NewHTTPBridge 创建 HTTP 桥接
func NewHTTPBridge(cfg HTTPConfig) (*HTTPBridge, error) {
	if cfg.URL == "" {
		return nil, domain.NewErrInvalidConfig("bridge.url", "required for http bridge")
	}

	transport := gohttp.DefaultTransport.(*gohttp.Transport).Clone()

	// TLS 配置
	if cfg.TLSSkipVerify || cfg.TLSCACert != "" {
		tlsConfig := &tls.Config{}
		if cfg.TLSSkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}
		if cfg.TLSCACert != "" {
			caCert, err := os.ReadFile(cfg.TLSCACert)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA cert: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("failed to parse CA cert")
			}
			tlsConfig.RootCAs = pool
		}
		transport.TLSClientConfig = tlsConfig
	}

	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	cfg.Timeout = timeoutOrDefault(cfg.Timeout)

	return &HTTPBridge{
		client: &gohttp.Client{Transport: transport},
		config: cfg,
	}, nil
}

// Compute implements Bridge. 5xx responses and connection errors are retried
// up to RetryCount times within the overall timeout.
func (b *HTTPBridge) Compute(ctx context.Context, p Payload) (domain.Statistics, error) {
	body, err := encodePayload(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= b.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.config.RetryDelay):
			case <-ctx.Done():
				return nil, domain.NewErrBridgeFailure(domain.BridgeReasonTimeout, ctx.Err())
			}
		}

		var data []byte
		data, lastErr = b.doSingleRequest(ctx, p, body)
		if lastErr == nil {
			return Decode(data)
		}
		if ctx.Err() != nil {
			return nil, domain.NewErrBridgeFailure(domain.BridgeReasonTimeout, lastErr)
		}

		// 只在 5xx 或连接错误时重试
		var httpErr *HTTPError
		if errors.As(lastErr, &httpErr) && httpErr.StatusCode < 500 {
			break
		}
	}
	return nil, domain.NewErrBridgeFailure(domain.BridgeReasonTransport, lastErr)
}

func (b *HTTPBridge) doSingleRequest(ctx context.Context, p Payload, body []byte) ([]byte, error) {
	req, err := gohttp.NewRequestWithContext(ctx, gohttp.MethodPost, b.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if b.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.config.AuthToken)
	}
	if b.config.APIKeyValue != "" {
		req.Header.Set(b.config.APIKeyHeader, b.config.APIKeyValue)
	}

	tc := &TemplateContext{RequestID: p.RequestID, Body: string(body), AuthToken: b.config.AuthToken}
	for key, tmpl := range b.config.Headers {
		req.Header.Set(key, RenderTemplate(tmpl, tc))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: tail(string(data))}
	}
	return data, nil
}

// HTTPError HTTP 错误
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
