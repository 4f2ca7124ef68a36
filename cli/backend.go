package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/core/adapters/now"
	"github.com/netresearch/occi-now/core/adapters/sqlite"
	"github.com/netresearch/occi-now/core/domain"
	"github.com/netresearch/occi-now/core/ports"
)

// Backend is an opened raw network backend and the resources behind it.
type Backend struct {
	Factory ports.BackendFactory
	// Description names the backend for log messages.
	Description string

	close func() error
}

// Close releases the resources held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Probe opens a session and lists networks; it backs the health checks.
func (b *Backend) Probe(ctx context.Context) error {
	session, err := b.Factory.NewNetworkBackend(ctx, domain.DelegatedUser{})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if _, err := session.List(ctx); err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	return nil
}

// OpenBackend builds the raw backend selected by cfg.
func OpenBackend(ctx context.Context, cfg BackendConfig, logger core.Logger) (*Backend, error) {
	switch strings.ToLower(cfg.Type) {
	case BackendNOW:
		if cfg.Endpoint == "" {
			return nil, ErrEndpointEmpty
		}
		clientCfg := now.DefaultConfig()
		clientCfg.Endpoint = cfg.Endpoint
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		if cfg.UserAgent != "" {
			clientCfg.UserAgent = cfg.UserAgent
		}
		factory, err := now.NewFactory(clientCfg)
		if err != nil {
			return nil, fmt.Errorf("create NOW client: %w", err)
		}
		logger.Debugf("Using NOW backend at %s", factory.Endpoint())
		return &Backend{Factory: factory, Description: "now " + factory.Endpoint()}, nil

	case BackendSQLite:
		if cfg.DataSource == "" {
			return nil, ErrDataSourceEmpty
		}
		store, err := sqlite.Open(ctx, cfg.DataSource)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debugf("Using sqlite backend %s", cfg.DataSource)
		return &Backend{Factory: store, Description: "sqlite " + cfg.DataSource, close: store.Close}, nil

	case BackendMemory:
		store, err := sqlite.Open(ctx, ":memory:")
		if err != nil {
			return nil, fmt.Errorf("open in-memory store: %w", err)
		}
		logger.Warningf("Using in-memory backend, networks are lost on exit")
		return &Backend{Factory: store, Description: "memory", close: store.Close}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
	}
}
