// Package now provides a network backend talking to the REST API of the NOW
// network orchestrator.
package now

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// ClientConfig contains configuration for the NOW client.
type ClientConfig struct {
	// Endpoint is the base URL of the NOW API (e.g., "http://now.example.com:8080")
	Endpoint string

	// Timeout bounds every request, including reading the response body
	Timeout time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// HTTPClient is a custom HTTP client (optional)
	HTTPClient *http.Client

	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint:            "http://localhost:8080",
		Timeout:             30 * time.Second,
		UserAgent:           "occi-now",
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Factory implements ports.BackendFactory for NOW. It owns the connection
// pool shared by all sessions.
type Factory struct {
	base      *url.URL
	userAgent string
	http      *http.Client
}

var _ ports.BackendFactory = (*Factory)(nil)

// NewFactory validates config and builds a Factory.
func NewFactory(config *ClientConfig) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}

	base, err := url.Parse(strings.TrimRight(config.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing NOW endpoint %q: %w", config.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("NOW endpoint %q: unsupported scheme %q", config.Endpoint, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("NOW endpoint %q: missing host", config.Endpoint)
	}

	return &Factory{
		base:      base,
		userAgent: config.UserAgent,
		http:      createHTTPClient(config),
	}, nil
}

// createHTTPClient creates an HTTP client with connection pooling.
func createHTTPClient(config *ClientConfig) *http.Client {
	if config.HTTPClient != nil {
		return config.HTTPClient
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// NewNetworkBackend opens a session acting on behalf of user.
func (f *Factory) NewNetworkBackend(_ context.Context, user domain.DelegatedUser) (ports.NetworkBackend, error) {
	return &NetworkBackend{factory: f, user: user.Identity}, nil
}

// Endpoint returns the base URL requests are sent to.
func (f *Factory) Endpoint() string {
	return f.base.String()
}
