package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/netresearch/occi-now/core"
	"github.com/netresearch/occi-now/extensions/monitoring"
	"github.com/netresearch/occi-now/registry"
)

const (
	categoryConfiguration = "Configuration"
	categoryBackend       = "Backend"
	categoryExtensions    = "Extensions"
)

// DoctorCommand checks the configuration, the backend and the extensions
type DoctorCommand struct {
	ConfigFile   string        `long:"config" env:"OCCI_NOW_CONFIG" description:"Path to configuration file"`
	LogLevel     string        `long:"log-level" env:"OCCI_NOW_LOG_LEVEL" description:"Set log level"`
	JSON         bool          `long:"json" description:"Output results as JSON"`
	ProbeTimeout time.Duration `long:"probe-timeout" description:"Timeout of the backend probe" default:"10s"`
	Logger       core.Logger
	Out          io.Writer

	configAutoDetected bool
}

// commonConfigPaths lists config file locations to search (in order of priority)
var commonConfigPaths = []string{
	"./occi-now.ini",
	"./config.ini",
	"/etc/occi-now/config.ini",
}

func findConfigFile() string {
	for _, path := range commonConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Status constants for health check results.
const (
	statusPass = "pass"
	statusFail = "fail"
	statusSkip = "skip"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// DoctorReport contains all health check results
type DoctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []CheckResult `json:"checks"`
}

func (r *DoctorReport) add(check CheckResult) {
	if check.Status == statusFail {
		r.Healthy = false
	}
	r.Checks = append(r.Checks, check)
}

// Execute runs all health checks
func (c *DoctorCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		c.Logger.Warningf("Failed to apply log level (using default): %v", err)
	}

	if c.ConfigFile == "" {
		c.configAutoDetected = true
		if found := findConfigFile(); found != "" {
			c.ConfigFile = found
		} else {
			c.ConfigFile = "/etc/occi-now/config.ini"
		}
	}

	report := c.run(context.Background())
	if c.JSON {
		return c.outputJSON(report)
	}
	return c.outputHuman(report)
}

func (c *DoctorCommand) run(ctx context.Context) *DoctorReport {
	report := &DoctorReport{Healthy: true, Checks: []CheckResult{}}

	var progress *ProgressReporter
	if !c.JSON {
		progress = NewProgressReporter(c.Logger, 3)
		progress.Step(1, "Checking configuration...")
	}
	conf := c.checkConfiguration(report)

	if progress != nil {
		progress.Step(2, "Probing backend...")
	}
	if conf != nil {
		c.checkBackend(ctx, report, conf.Backend)
	} else {
		report.add(CheckResult{
			Category: categoryBackend,
			Name:     "Connectivity",
			Status:   statusSkip,
			Message:  "Skipped (valid configuration required)",
		})
	}

	if progress != nil {
		progress.Step(3, "Checking extensions...")
	}
	c.checkExtensions(report)

	if progress != nil {
		progress.Complete("Health check complete")
	}
	return report
}

func (c *DoctorCommand) checkConfiguration(report *DoctorReport) *Config {
	if _, err := os.Stat(c.ConfigFile); err != nil {
		if os.IsNotExist(err) {
			hints := []string{"Run 'occi-now init' to create a config file interactively"}
			if c.configAutoDetected {
				hints = append(hints, "Searched: "+strings.Join(commonConfigPaths, ", "))
			}
			hints = append(hints, "Or specify path with: --config=/path/to/config.ini")
			report.add(CheckResult{
				Category: categoryConfiguration,
				Name:     "File Exists",
				Status:   statusFail,
				Message:  fmt.Sprintf("Config file not found: %s", c.ConfigFile),
				Hints:    hints,
			})
			return nil
		}
		report.add(CheckResult{
			Category: categoryConfiguration,
			Name:     "File Readable",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot read config file: %v", err),
			Hints:    []string{fmt.Sprintf("Check permissions: ls -l %s", c.ConfigFile)},
		})
		return nil
	}
	report.add(CheckResult{
		Category: categoryConfiguration,
		Name:     "File Exists",
		Status:   statusPass,
		Message:  c.ConfigFile,
	})

	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		report.add(CheckResult{
			Category: categoryConfiguration,
			Name:     "Valid Configuration",
			Status:   statusFail,
			Message:  err.Error(),
			Hints: []string{
				"Check INI syntax (sections, keys, values)",
				fmt.Sprintf("Show the parsed result with: occi-now validate --config=%s", c.ConfigFile),
			},
		})
		return nil
	}
	report.add(CheckResult{
		Category: categoryConfiguration,
		Name:     "Valid Configuration",
		Status:   statusPass,
		Message:  fmt.Sprintf("backend %s, listening on %s", conf.Backend.Type, conf.Global.WebAddr),
	})
	return conf
}

func (c *DoctorCommand) checkBackend(ctx context.Context, report *DoctorReport, cfg BackendConfig) {
	backend, err := OpenBackend(ctx, cfg, c.Logger)
	if err != nil {
		report.add(CheckResult{
			Category: categoryBackend,
			Name:     "Connectivity",
			Status:   statusFail,
			Message:  fmt.Sprintf("Cannot open backend: %v", err),
		})
		return
	}
	defer func() { _ = backend.Close() }()

	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	networks, err := core.NewNetworkAdapter(backend.Factory, c.Logger).ListIDs(probeCtx, nil)
	if err != nil {
		hints := []string{"Check the [backend] section of the configuration"}
		if strings.EqualFold(cfg.Type, BackendNOW) {
			hints = append(hints, fmt.Sprintf("Check the NOW API: curl %s/network", strings.TrimRight(cfg.Endpoint, "/")))
		}
		report.add(CheckResult{
			Category: categoryBackend,
			Name:     "Connectivity",
			Status:   statusFail,
			Message:  fmt.Sprintf("Backend %s unreachable: %v", backend.Description, err),
			Hints:    hints,
		})
		return
	}
	report.add(CheckResult{
		Category: categoryBackend,
		Name:     "Connectivity",
		Status:   statusPass,
		Message:  fmt.Sprintf("%s responding, %d network(s) visible", backend.Description, len(networks)),
	})
}

func (c *DoctorCommand) checkExtensions(report *DoctorReport) {
	reg := registry.New()
	if err := monitoring.Register(reg); err != nil {
		report.add(CheckResult{
			Category: categoryExtensions,
			Name:     "Monitoring Mixins",
			Status:   statusFail,
			Message:  err.Error(),
		})
		return
	}
	names := make([]string, 0, len(reg.Mixins()))
	for _, m := range reg.Mixins() {
		names = append(names, fmt.Sprintf("%s at %s", m.Term, m.Location))
	}
	report.add(CheckResult{
		Category: categoryExtensions,
		Name:     "Monitoring Mixins",
		Status:   statusPass,
		Message:  strings.Join(names, ", "),
	})
}

func (c *DoctorCommand) outputJSON(report *DoctorReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	w := c.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, string(data))

	if !report.Healthy {
		return ErrHealthCheckFailed
	}
	return nil
}

func (c *DoctorCommand) outputHuman(report *DoctorReport) error {
	categories := make(map[string][]CheckResult)
	for _, check := range report.Checks {
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, category := range []string{categoryConfiguration, categoryBackend, categoryExtensions} {
		checks, ok := categories[category]
		if !ok {
			continue
		}
		c.Logger.Noticef("%s", category)
		for _, check := range checks {
			if check.Message != "" {
				c.Logger.Noticef("  %s %s: %s", getStatusIcon(check.Status), check.Name, check.Message)
			} else {
				c.Logger.Noticef("  %s %s", getStatusIcon(check.Status), check.Name)
			}
			for _, hint := range check.Hints {
				c.Logger.Noticef("    -> %s", hint)
			}
		}
	}

	failCount, skipCount := 0, 0
	for _, check := range report.Checks {
		switch check.Status {
		case statusFail:
			failCount++
		case statusSkip:
			skipCount++
		}
	}

	if report.Healthy {
		c.Logger.Noticef("Summary: All checks passed")
		if skipCount > 0 {
			c.Logger.Noticef("  (%d check(s) skipped)", skipCount)
		}
		return nil
	}
	c.Logger.Noticef("Summary: %d issue(s) found", failCount)
	return ErrHealthCheckFailed
}

func getStatusIcon(status string) string {
	switch status {
	case statusPass:
		return "[ok]"
	case statusFail:
		return "[fail]"
	case statusSkip:
		return "[skip]"
	default:
		return "[?]"
	}
}
