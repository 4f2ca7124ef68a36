package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/netresearch/occi-now/core"
)

// ProgressReporter reports multi-step progress: a bar on terminals and
// plain log lines otherwise.
type ProgressReporter struct {
	logger     core.Logger
	writer     io.Writer
	totalSteps int
	mu         sync.Mutex
	isTerminal bool
}

// NewProgressReporter creates a reporter writing to stdout.
func NewProgressReporter(logger core.Logger, totalSteps int) *ProgressReporter {
	return &ProgressReporter{
		logger:     logger,
		writer:     os.Stdout,
		totalSteps: totalSteps,
		isTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Step reports progress for a single step
func (pr *ProgressReporter) Step(stepNum int, message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.totalSteps == 0 {
		return
	}

	if !pr.isTerminal {
		pr.logger.Noticef("[%d/%d] %s", stepNum, pr.totalSteps, message)
		return
	}
	progress := float64(stepNum) / float64(pr.totalSteps) * 100
	fmt.Fprintf(pr.writer, "\r[%d/%d] %s %s", stepNum, pr.totalSteps, renderProgressBar(progress), message)
	if stepNum == pr.totalSteps {
		fmt.Fprintln(pr.writer)
	}
}

func renderProgressBar(percent float64) string {
	const barWidth = 20
	filled := min(int(percent/100.0*barWidth), barWidth)
	return fmt.Sprintf("%s%s %.0f%%", strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled), percent)
}

// Complete marks all steps as complete
func (pr *ProgressReporter) Complete(message string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.isTerminal {
		fmt.Fprintln(pr.writer)
	}
	pr.logger.Noticef("%s", message)
}
