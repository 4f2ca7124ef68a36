package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
	"gopkg.in/ini.v1"

	"github.com/netresearch/occi-now/core"
)

// InitCommand runs an interactive wizard generating a configuration file
type InitCommand struct {
	Output   string `long:"output" short:"o" description:"Output file path" default:"./occi-now.ini"`
	LogLevel string `long:"log-level" env:"OCCI_NOW_LOG_LEVEL" description:"Set log level"`
	Logger   core.Logger
}

// Execute runs the interactive configuration wizard
func (c *InitCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	c.Logger.Noticef("Welcome to the occi-now configuration setup")

	if _, err := os.Stat(c.Output); err == nil {
		if !c.confirmOverwrite() {
			c.Logger.Noticef("Setup canceled")
			return nil
		}
	}

	config := NewConfig(c.Logger)
	if err := c.promptGlobalSettings(&config.Global); err != nil {
		return fmt.Errorf("failed to gather global settings: %w", err)
	}
	if err := c.promptBackend(&config.Backend); err != nil {
		return fmt.Errorf("failed to gather backend settings: %w", err)
	}

	if err := saveConfig(c.Output, config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	c.Logger.Noticef("Configuration saved to: %s", c.Output)

	if err := c.postCreationActions(); err != nil {
		c.Logger.Warningf("Post-creation action failed: %v", err)
	}

	c.printNextSteps()
	return nil
}

func (c *InitCommand) confirmOverwrite() bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("File %s already exists. Overwrite", c.Output),
		IsConfirm: true,
		Default:   "n",
	}
	_, err := prompt.Run()
	return err == nil
}

func (c *InitCommand) promptGlobalSettings(global *GlobalConfig) error {
	c.Logger.Noticef("=== Global Settings ===")

	var err error
	addrPrompt := promptui.Prompt{
		Label:   "REST API listen address",
		Default: global.WebAddr,
	}
	if global.WebAddr, err = addrPrompt.Run(); err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures
	}

	ratePrompt := promptui.Prompt{
		Label:    "Requests per minute per client (0 disables the limit)",
		Default:  strconv.Itoa(global.RateLimit),
		Validate: validateRateLimit,
	}
	rate, err := ratePrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures
	}
	global.RateLimit, _ = strconv.Atoi(rate)

	logLevelPrompt := promptui.Select{
		Label:     "Log level",
		Items:     []string{"panic", "fatal", "error", "warning", "info", "debug", "trace"},
		CursorPos: 4,
	}
	if _, global.LogLevel, err = logLevelPrompt.Run(); err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures
	}
	return nil
}

func (c *InitCommand) promptBackend(backend *BackendConfig) error {
	c.Logger.Noticef("=== Backend ===")

	typePrompt := promptui.Select{
		Label: "Backend",
		Items: []string{"now (NOW network orchestrator)", "sqlite (local database)", "memory (testing only)"},
	}
	idx, _, err := typePrompt.Run()
	if err != nil {
		return err //nolint:wrapcheck // promptui errors are user interaction failures
	}
	backend.Type = BackendTypes[idx]

	switch backend.Type {
	case BackendNOW:
		endpointPrompt := promptui.Prompt{
			Label:    "NOW API endpoint",
			Default:  backend.Endpoint,
			Validate: validateEndpoint,
		}
		if backend.Endpoint, err = endpointPrompt.Run(); err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures
		}
		timeoutPrompt := promptui.Prompt{
			Label:    "Request timeout",
			Default:  backend.Timeout.String(),
			Validate: validateTimeout,
		}
		timeout, err := timeoutPrompt.Run()
		if err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures
		}
		backend.Timeout, _ = time.ParseDuration(timeout)
	case BackendSQLite:
		dsPrompt := promptui.Prompt{
			Label:   "Database file",
			Default: backend.DataSource,
			Validate: func(input string) error {
				if input == "" {
					return ErrDataSourceEmpty
				}
				return nil
			},
		}
		if backend.DataSource, err = dsPrompt.Run(); err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures
		}
	}
	return nil
}

func validateEndpoint(input string) error {
	if input == "" {
		return ErrEndpointEmpty
	}
	u, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint must be an http(s) URL with a host, e.g. http://now.example.com:8080")
	}
	return nil
}

func validateTimeout(input string) error {
	d, err := time.ParseDuration(input)
	if err != nil {
		return fmt.Errorf("invalid duration: %w\n  Examples: 30s, 1m, 1m30s", err)
	}
	if d < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateRateLimit(input string) error {
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a whole number >= 0")
	}
	return nil
}

// saveConfig writes config as an INI file, skipping settings that only
// matter to other backend types.
func saveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	cfg := ini.Empty()

	global := cfg.Section(sectionGlobal)
	global.Key("web-address").SetValue(config.Global.WebAddr)
	global.Key("rate-limit").SetValue(strconv.Itoa(config.Global.RateLimit))
	if config.Global.LogLevel != "" {
		global.Key("log-level").SetValue(config.Global.LogLevel)
	}

	backend := cfg.Section(sectionBackend)
	backend.Key("type").SetValue(config.Backend.Type)
	switch config.Backend.Type {
	case BackendNOW:
		backend.Key("endpoint").SetValue(config.Backend.Endpoint)
		backend.Key("timeout").SetValue(config.Backend.Timeout.String())
	case BackendSQLite:
		backend.Key("data-source").SetValue(config.Backend.DataSource)
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (c *InitCommand) postCreationActions() error {
	validatePrompt := promptui.Prompt{
		Label:     "Validate configuration now",
		IsConfirm: true,
		Default:   "Y",
	}
	if _, err := validatePrompt.Run(); err != nil {
		return nil //nolint:nilerr // declining the prompt is normal flow
	}

	if _, err := BuildFromFile(c.Output, c.Logger); err != nil {
		c.Logger.Errorf("Configuration validation failed: %v", err)
		return err
	}
	c.Logger.Noticef("Configuration is valid")
	return nil
}

func (c *InitCommand) printNextSteps() {
	c.Logger.Noticef("Setup complete! Next steps:")
	c.Logger.Noticef("  -> Check the setup: occi-now doctor --config=%s", c.Output)
	c.Logger.Noticef("  -> Start the daemon: occi-now daemon --config=%s", c.Output)
}
