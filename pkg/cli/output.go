package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/flutter-login-runner/pkg/config"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
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

func printBanner(w io.Writer, cfg *config.Config, mode string, dryRun bool) {
	color := func(c string) string {
		if colorsEnabled(w) {
			return c
		}
		return ""
	}

	// Box width is 64 characters between the ║ symbols
	title := fmt.Sprintf("  flutter-login-runner %s", Version)
	const width = 64

	target := cfg.ServerURL
	if dryRun {
		target = "simulated login screen (dry run)"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "╔%s╗\n", strings.Repeat("═", width))
	fmt.Fprintf(w, "║%s%s%s%s║\n", color(colorBold), title, color(colorReset), pad(title, width))
	fmt.Fprintf(w, "╚%s╝\n", strings.Repeat("═", width))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %sPlatform:%s %s\n", color(colorCyan), color(colorReset), cfg.Platform)
	fmt.Fprintf(w, "  %sMode:%s     %s\n", color(colorCyan), color(colorReset), mode)
	fmt.Fprintf(w, "  %sTarget:%s   %s\n", color(colorCyan), color(colorReset), target)
	fmt.Fprintf(w, "  %sOutput:%s   %s %s(screenshots: %s)%s\n",
		color(colorCyan), color(colorReset), cfg.ReportDir, color(colorGray), cfg.ScreenshotDir, color(colorReset))
}

// pad returns the spaces that fill s up to width visible characters.
func pad(s string, width int) string {
	n := width - len([]rune(s))
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
