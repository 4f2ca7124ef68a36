package cli

import (
	"fmt"
	"time"

	defaults "github.com/creasty/defaults"
	ini "gopkg.in/ini.v1"

	"github.com/netresearch/occi-now/core"
)

// Backend types accepted in the [backend] section.
const (
	BackendNOW    = "now"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// BackendTypes lists every supported backend type.
var BackendTypes = []string{BackendNOW, BackendSQLite, BackendMemory}

const (
	sectionGlobal  = "global"
	sectionBackend = "backend"
)

// GlobalConfig holds the [global] section.
type GlobalConfig struct {
	LogLevel    string `mapstructure:"log-level" json:"log-level,omitempty" validate:"omitempty,oneof=trace debug info warning warn error fatal panic"`
	WebAddr     string `mapstructure:"web-address" json:"web-address" default:":8081" validate:"required"`
	RateLimit   int    `mapstructure:"rate-limit" json:"rate-limit" default:"600" validate:"gte=0"`
	EnablePprof bool   `mapstructure:"enable-pprof" json:"enable-pprof"`
	PprofAddr   string `mapstructure:"pprof-address" json:"pprof-address" default:"127.0.0.1:6060"`
}

// BackendConfig holds the [backend] section.
type BackendConfig struct {
	Type       string        `mapstructure:"type" json:"type" default:"now" validate:"backendtype"`
	Endpoint   string        `mapstructure:"endpoint" json:"endpoint" default:"http://localhost:8080" validate:"required,url"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout" default:"30s" validate:"duration_gte=0s"`
	DataSource string        `mapstructure:"data-source" json:"data-source" default:"occi-now.db" validate:"required"`
	UserAgent  string        `mapstructure:"user-agent" json:"user-agent" default:"occi-now"`
}

// Config contains the configuration
type Config struct {
	Global  GlobalConfig  `json:"global"`
	Backend BackendConfig `json:"backend"`

	configPath string
	logger     core.Logger
}

// NewConfig returns a configuration holding only defaults.
func NewConfig(logger core.Logger) *Config {
	if logger == nil {
		logger = core.NopLogger()
	}
	c := &Config{logger: logger}
	_ = defaults.Set(c)
	return c
}

// BuildFromFile loads, decodes and validates the configuration in filename.
func BuildFromFile(filename string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, filename)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", filename, err)
	}
	if err := c.parseIni(cfg); err != nil {
		return nil, err
	}
	c.configPath = filename
	c.logger.Debugf("loaded config file %s", filename)
	return c, nil
}

// BuildFromString is BuildFromFile for in-memory INI content.
func BuildFromString(config string, logger core.Logger) (*Config, error) {
	c := NewConfig(logger)
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, []byte(config))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := c.parseIni(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration, e.g. after command line overrides.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) parseIni(cfg *ini.File) error {
	sections := []struct {
		name   string
		target any
	}{
		{sectionGlobal, &c.Global},
		{sectionBackend, &c.Backend},
	}
	for _, s := range sections {
		sec, err := cfg.GetSection(s.name)
		if err != nil {
			continue
		}
		result, err := decodeWithMetadata(sectionToMap(sec), s.target)
		if err != nil {
			return fmt.Errorf("section [%s]: %w", s.name, err)
		}
		for _, w := range GenerateUnknownKeyWarnings(s.name, result.UnusedKeys, knownKeys(s.target)) {
			c.logger.Warningf("%s", w.String())
		}
	}

	for _, section := range cfg.Sections() {
		switch section.Name() {
		case ini.DefaultSection, sectionGlobal, sectionBackend:
		default:
			c.logger.Warningf("Ignoring unknown config section [%s]", section.Name())
		}
	}

	return ValidateConfig(c)
}

func sectionToMap(section *ini.Section) map[string]any {
	m := make(map[string]any)
	for _, key := range section.Keys() {
		vals := key.ValueWithShadows()
		switch len(vals) {
		case 0:
			m[key.Name()] = ""
		case 1:
			m[key.Name()] = vals[0]
		default:
			m[key.Name()] = append([]string(nil), vals...)
		}
	}
	return m
}
