package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ApplyLogLevel sets the global logging level. An empty level is a no-op.
func ApplyLogLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("%w %q", ErrInvalidLogLevel, level)
	}
	logrus.SetLevel(lvl)
	return nil
}
