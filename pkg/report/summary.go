package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// RunSummary is the per-run line of a Summary.
type RunSummary struct {
	Name        string      `json:"name"`
	Status      core.Status `json:"status"`
	Duration    int64       `json:"duration"`
	Steps       int         `json:"steps"`
	PassedSteps int         `json:"passedSteps"`
	FailedSteps int         `json:"failedSteps"`
	Screenshots int         `json:"screenshots"`
	Error       string      `json:"error,omitempty"`
}

// Summary aggregates a set of runs and the screenshots taken while they ran.
type Summary struct {
	Total           int          `json:"total"`
	Passed          int          `json:"passed"`
	Failed          int          `json:"failed"`
	Screenshots     int          `json:"screenshots"`
	ScreenshotBytes int64        `json:"screenshotBytes"`
	Duration        int64        `json:"duration"`
	Runs            []RunSummary `json:"runs"`
}

// AllPassed reports whether there was at least one run and none failed.
func (s Summary) AllPassed() bool {
	return s.Total > 0 && s.Passed == s.Total
}

// BuildSummary counts runs by status. It reads its inputs only, so calling it
// twice gives the same result.
func BuildSummary(runs []core.TestRun, screenshots []core.ScreenshotRecord) Summary {
	s := Summary{
		Total:       len(runs),
		Screenshots: len(screenshots),
		Runs:        make([]RunSummary, 0, len(runs)),
	}
	s.Passed, s.Failed = core.CountByStatus(runs)

	for _, shot := range screenshots {
		s.ScreenshotBytes += shot.Size
	}

	for _, r := range runs {
		passed, failed := r.StepCounts()
		s.Duration += r.Duration
		s.Runs = append(s.Runs, RunSummary{
			Name:        r.Name,
			Status:      r.Status,
			Duration:    r.Duration,
			Steps:       len(r.Steps),
			PassedSteps: passed,
			FailedSteps: failed,
			Screenshots: len(r.Attachments),
			Error:       r.ErrorMessage,
		})
	}
	return s
}

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

// colorsEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// PrintSummary writes the end-of-suite table to w: one row per run, the
// error of each failed run, totals and where the artifacts went.
func PrintSummary(w io.Writer, s Summary, reportDir, screenshotDir string) {
	useColor := colorsEnabled(w)
	color := func(c string) string {
		if useColor {
			return c
		}
		return ""
	}

	const tableWidth = 78
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-32s %6s %6s %6s %6s %12s\n", "Test", "Status", "Steps", "Fail", "Shots", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	for _, r := range s.Runs {
		status, statusColor := "✓ PASS", color(colorGreen)
		if r.Status != core.StatusPassed {
			status, statusColor = "✗ FAIL", color(colorRed)
		}

		name := truncate(r.Name, 32)

		fmt.Fprintf(w, "  %-32s %s%6s%s %6d %6d %6d %12s\n",
			name, statusColor, status, color(colorReset),
			r.Steps, r.FailedSteps, r.Screenshots, formatDuration(r.Duration))
		if r.Error != "" {
			fmt.Fprintf(w, "    %s╰─%s %s\n", color(colorGray), color(colorReset), r.Error)
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	totalColor := color(colorGreen)
	if s.Failed > 0 {
		totalColor = color(colorRed)
	}
	fmt.Fprintf(w, "  %s%-32s%s %s%6s%s %33s\n",
		color(colorBold), "TOTAL", color(colorReset),
		totalColor, fmt.Sprintf("%d/%d", s.Passed, s.Total), color(colorReset),
		formatDuration(s.Duration))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))

	fmt.Fprintf(w, "\n  Total Tests: %d\n", s.Total)
	fmt.Fprintf(w, "  Passed: %s%d%s\n", color(colorGreen), s.Passed, color(colorReset))
	fmt.Fprintf(w, "  Failed: %s%d%s\n", color(colorRed), s.Failed, color(colorReset))
	fmt.Fprintf(w, "  Screenshots: %d (%s)\n", s.Screenshots, humanize.Bytes(uint64(s.ScreenshotBytes)))
	if reportDir != "" {
		fmt.Fprintf(w, "  Report Directory: %s%s%s\n", color(colorCyan), reportDir, color(colorReset))
	}
	if screenshotDir != "" {
		fmt.Fprintf(w, "  Screenshot Directory: %s%s%s\n", color(colorCyan), screenshotDir, color(colorReset))
	}
}

// truncate shortens s to limit runes, ending in "..." when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
