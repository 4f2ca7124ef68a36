package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"time"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/extensions/monitoring"
	"github.com/netresearch/occi-now/metrics"
	"github.com/netresearch/occi-now/registry"
	"github.com/netresearch/occi-now/web"
)

const shutdownTimeout = 30 * time.Second

// DaemonCommand serves the network backend over HTTP.
type DaemonCommand struct {
	ConfigFile  string `long:"config" env:"OCCI_NOW_CONFIG" description:"configuration file" default:"/etc/occi-now/config.ini"`
	LogLevel    string `long:"log-level" env:"OCCI_NOW_LOG_LEVEL" description:"Set log level (overrides config)"`
	Backend     string `long:"backend" env:"OCCI_NOW_BACKEND" description:"backend type: now, sqlite or memory"`
	Endpoint    string `long:"endpoint" env:"OCCI_NOW_ENDPOINT" description:"NOW API base URL"`
	DataSource  string `long:"data-source" env:"OCCI_NOW_DATA_SOURCE" description:"sqlite database file"`
	WebAddr     string `long:"web-address" env:"OCCI_NOW_WEB_ADDRESS" description:"listen address of the REST API"`
	EnablePprof bool   `long:"enable-pprof" env:"OCCI_NOW_ENABLE_PPROF"`
	PprofAddr   string `long:"pprof-address" env:"OCCI_NOW_PPROF_ADDRESS"`
	Logger      core.Logger
	Version     string

	config          *Config
	backend         *Backend
	webServer       *web.Server
	pprofServer     *http.Server
	healthChecker   *web.HealthChecker
	shutdownManager *core.ShutdownManager
}

// Execute runs the daemon
func (c *DaemonCommand) Execute(_ []string) error {
	ctx := context.Background()
	if err := c.boot(ctx); err != nil {
		if c.backend != nil {
			_ = c.backend.Close()
		}
		return err
	}
	if err := c.start(ctx); err != nil {
		_ = c.shutdownManager.Shutdown()
		return err
	}
	return c.shutdown()
}

func (c *DaemonCommand) boot(ctx context.Context) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		return err
	}

	config, err := BuildFromFile(c.ConfigFile, c.Logger)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.Logger.Warningf("Config file %q not found, using defaults", c.ConfigFile)
		config = NewConfig(c.Logger)
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	}
	c.applyOptions(config)
	if err := config.Validate(); err != nil {
		return err
	}
	if c.LogLevel == "" {
		if err := ApplyLogLevel(config.Global.LogLevel); err != nil {
			return err
		}
	}
	c.config = config

	c.backend, err = OpenBackend(ctx, config.Backend, c.Logger)
	if err != nil {
		return err
	}
	c.shutdownManager = core.NewShutdownManager(c.Logger, shutdownTimeout)
	c.shutdownManager.RegisterCloser("backend", 100, c.backend.Close)

	mc := metrics.NewMetricsCollector()
	mc.InitDefaultMetrics()

	reg := registry.New()
	if err := monitoring.Register(reg); err != nil {
		return fmt.Errorf("register monitoring mixins: %w", err)
	}

	adapter := core.NewNetworkAdapter(metrics.InstrumentBackends(c.backend.Factory, mc), c.Logger)
	c.healthChecker = web.NewHealthChecker(c.backend.Probe, c.Version)
	c.webServer = web.NewServer(web.Options{
		Addr:      config.Global.WebAddr,
		Networks:  adapter,
		Registry:  reg,
		Metrics:   mc,
		Health:    c.healthChecker,
		Logger:    c.Logger,
		RateLimit: config.Global.RateLimit,
	})
	c.shutdownManager.RegisterHook(core.ShutdownHook{
		Name:     "web server",
		Priority: 10,
		Hook:     c.webServer.Shutdown,
	})

	if config.Global.EnablePprof {
		c.pprofServer = &http.Server{
			Addr:              config.Global.PprofAddr,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		c.shutdownManager.RegisterServer("pprof server", 20, c.pprofServer)
	}

	c.Logger.Noticef("Backend: %s", c.backend.Description)
	return nil
}

func (c *DaemonCommand) start(ctx context.Context) error {
	healthCtx, stopHealth := context.WithCancel(ctx)
	c.shutdownManager.RegisterHook(core.ShutdownHook{
		Name: "health checker",
		Hook: func(context.Context) error {
			stopHealth()
			return nil
		},
	})
	go c.healthChecker.Run(healthCtx)

	c.shutdownManager.ListenForShutdown(ctx)

	if err := c.webServer.Start(); err != nil {
		return fmt.Errorf("start web server: %w", err)
	}

	if c.pprofServer != nil {
		c.Logger.Noticef("Starting pprof server on %s", c.pprofServer.Addr)
		go func() {
			if err := c.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.Logger.Errorf("Error starting pprof server: %v", err)
			}
		}()
	} else {
		c.Logger.Debugf("pprof server disabled")
	}

	return nil
}

func (c *DaemonCommand) shutdown() error {
	return c.shutdownManager.Wait()
}

// applyOptions lets command line flags override the configuration file.
func (c *DaemonCommand) applyOptions(config *Config) {
	if config == nil {
		return
	}
	if c.Backend != "" {
		config.Backend.Type = c.Backend
	}
	if c.Endpoint != "" {
		config.Backend.Endpoint = c.Endpoint
	}
	if c.DataSource != "" {
		config.Backend.DataSource = c.DataSource
	}
	if c.WebAddr != "" {
		config.Global.WebAddr = c.WebAddr
	}
	if c.EnablePprof {
		config.Global.EnablePprof = true
	}
	if c.PprofAddr != "" {
		config.Global.PprofAddr = c.PprofAddr
	}
	if c.LogLevel != "" {
		config.Global.LogLevel = c.LogLevel
	}
}

// Config returns the active configuration used by the daemon.
func (c *DaemonCommand) Config() *Config {
	return c.config
}
