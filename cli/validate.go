package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/netresearch/occi-now/core"
)

// ValidateCommand validates the config file
type ValidateCommand struct {
	ConfigFile string `long:"config" env:"OCCI_NOW_CONFIG" description:"configuration file" default:"/etc/occi-now/config.ini"`
	LogLevel   string `long:"log-level" env:"OCCI_NOW_LOG_LEVEL" description:"Set log level (overrides config)"`
	Logger     core.Logger
	Out        io.Writer
}

// Execute runs the validation command
func (c *ValidateCommand) Execute(_ []string) error {
	if err := ApplyLogLevel(c.LogLevel); err != nil {
		return err
	}
	c.Logger.Debugf("Validating %q ... ", c.ConfigFile)
	conf, err := BuildFromFile(c.ConfigFile, c.Logger)
	if err != nil {
		c.Logger.Errorf("ERROR")
		return err
	}
	if c.LogLevel == "" {
		if err := ApplyLogLevel(conf.Global.LogLevel); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	w := c.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, string(out))

	c.Logger.Debugf("OK")
	return nil
}
