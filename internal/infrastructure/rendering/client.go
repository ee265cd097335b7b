// Package rendering calls the internal PDF endpoints over HTTP.
package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	// InternalKeyHeader carries the shared secret guarding the render endpoints
	InternalKeyHeader = "X-Internal-Key"

	maxPDFSize = 20 << 20
)

// Client renders documents through the internal PDF endpoints
type Client struct {
	cfg        config.InternalConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a render client
func NewClient(cfg config.InternalConfig, opts ...Option) *Client {
	timeout := cfg.RenderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EndpointPath is the route that renders kind
func EndpointPath(kind policy.DocumentKind) string {
	return "/api/internal/pdf/" + kind.Slug()
}

// Render posts data to the endpoint for kind and returns the PDF bytes
func (c *Client) Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) ([]byte, error) {
	if err := c.cfg.Require(); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("render: unknown document kind %q", kind)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("render: failed to marshal document data: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + EndpointPath(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("render: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set(InternalKeyHeader, c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind.Slug(), err)
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize+1))
	if err != nil {
		return nil, fmt.Errorf("render %s: read response: %w", kind.Slug(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render %s: HTTP %d: %s", kind.Slug(), resp.StatusCode, snippet(pdf))
	}
	if len(pdf) > maxPDFSize {
		return nil, fmt.Errorf("render %s: PDF exceeds %d bytes", kind.Slug(), maxPDFSize)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, fmt.Errorf("render %s: response is not a PDF", kind.Slug())
	}

	c.logger.Debug("Rendered document",
		zap.String("kind", string(kind)),
		zap.String("policy_number", data.PolicyNumber),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
