package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	ini "gopkg.in/ini.v1"

	"github.com/netresearch/occi-now/cli"
	"github.com/netresearch/occi-now/core"
)

var version string
var build string

func buildLogger(level string) core.Logger {
	logrus.SetOutput(os.Stdout)
	logrus.SetReportCaller(true)
	forceColors := false
	if term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("TERM") != "dumb" && os.Getenv("NO_COLOR") == "" {
		forceColors = true
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     forceColors,
		DisableQuote:    true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(frame *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		},
	})
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	return core.NewLogrusAdapter(logrus.StandardLogger(), "occi-now")
}

// preOptions are read before the real parse so the logger is configured
// while commands are built.
type preOptions struct {
	LogLevel   string `long:"log-level" env:"OCCI_NOW_LOG_LEVEL"`
	ConfigFile string `long:"config" env:"OCCI_NOW_CONFIG" default:"/etc/occi-now/config.ini"`
}

func preParse(args []string) preOptions {
	var pre preOptions
	_, _ = flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args)
	if pre.LogLevel == "" {
		cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true, InsensitiveKeys: true}, pre.ConfigFile)
		if err == nil {
			if sec, err := cfg.GetSection("global"); err == nil {
				pre.LogLevel = sec.Key("log-level").String()
			}
		}
	}
	return pre
}

func newParser(logger core.Logger, pre preOptions) *flags.Parser {
	parser := flags.NewNamedParser("occi-now", flags.Default)
	_, _ = parser.AddCommand(
		"daemon",
		"serve the OCCI network API",
		"Serves OCCI network resources backed by NOW, sqlite or memory.",
		&cli.DaemonCommand{Logger: logger, LogLevel: pre.LogLevel, ConfigFile: pre.ConfigFile, Version: version},
	)
	_, _ = parser.AddCommand(
		"validate",
		"validates the config file",
		"",
		&cli.ValidateCommand{Logger: logger, LogLevel: pre.LogLevel, ConfigFile: pre.ConfigFile},
	)
	_, _ = parser.AddCommand(
		"init",
		"create a config file interactively",
		"",
		&cli.InitCommand{Logger: logger, LogLevel: pre.LogLevel},
	)
	_, _ = parser.AddCommand(
		"doctor",
		"check configuration and backend connectivity",
		"",
		&cli.DoctorCommand{Logger: logger, LogLevel: pre.LogLevel},
	)
	_, _ = parser.AddCommand(
		"network",
		"inspect and manage networks directly on the backend",
		"",
		cli.NewNetworkCommand(logger),
	)
	return parser
}

func main() {
	args := os.Args[1:]
	pre := preParse(args)
	logger := buildLogger(pre.LogLevel)
	parser := newParser(logger, pre)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagErr, ok := errors.AsType[*flags.Error](err); ok {
			if flagErr.Type == flags.ErrHelp {
				return
			}
			parser.WriteHelp(os.Stdout)
			fmt.Printf("\nBuild information\n  commit: %s\n  date:%s\n", version, build)
		} else {
			logger.Errorf("%v", err)
		}
		os.Exit(1)
	}
}
