package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/flutter-login-runner/pkg/config"
	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/logger"
	"github.com/devicelab-dev/flutter-login-runner/pkg/recorder"
	"github.com/devicelab-dev/flutter-login-runner/pkg/report"
	"github.com/devicelab-dev/flutter-login-runner/pkg/scenario"
	"github.com/devicelab-dev/flutter-login-runner/pkg/screenshot"
)

// HTMLReportFile is the HTML report name inside the report directory.
const HTMLReportFile = "test-report.html"

const (
	modeSingle = "single"
	modeSuite  = "suite"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run the login scenario once or as a suite",
	ArgsUsage: "[single|suite] [username] [password]",
	Description: `Runs the login flow and writes Allure results, test-report.html and
report.json to the report directory.

single (default) logs in once with the given credentials, falling back to
the username and password from the config. suite runs every case listed
under "suite" in the config, reusing one Appium session.

Examples:
  flutter-login-runner run
  flutter-login-runner run single alice s3cret
  flutter-login-runner run suite`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "switch-to-native",
			Usage: "Switch to the NATIVE_APP context before navigating",
		},
		&cli.BoolFlag{
			Name:  "skip-navigation",
			Usage: "Start directly on the login screen",
		},
		&cli.BoolFlag{
			Name:  "embed-screenshots",
			Usage: "Inline screenshots in the HTML report",
		},
	},
	Action: runLogin,
}

func runLogin(c *cli.Context) error {
	mode := strings.ToLower(c.Args().Get(0))
	if mode == "" {
		mode = modeSingle
	}
	if mode != modeSingle && mode != modeSuite {
		return fmt.Errorf("unknown mode %q (want single or suite)", mode)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("switch-to-native") {
		cfg.SwitchToNative = true
	}
	if c.Bool("skip-navigation") {
		cfg.SkipNavigation = true
	}
	if c.Bool("embed-screenshots") {
		cfg.EmbedScreenshots = true
	}
	if mode == modeSuite && len(cfg.Suite) == 0 {
		return fmt.Errorf("suite mode needs at least one case under \"suite\" in the config")
	}

	logPath, err := setupLogging(cfg, c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Close()

	dryRun := c.Bool("dry-run")
	out := c.App.Writer
	printBanner(out, cfg, mode, dryRun)
	logger.Info("Log file: %s", logPath)

	rec := recorder.New(logger.Component("recorder"))
	capturer := screenshot.NewCapturer(cfg.ScreenshotDir, nil, rec, logger.Component("screenshot"))
	if err := capturer.EnsureDir(); err != nil {
		return err
	}

	var opts []scenario.Option
	if dryRun {
		opts = append(opts, scenario.WithSleep(func(time.Duration) {}))
	}
	runner := scenario.NewRunner(cfg.ScenarioConfig(), newConnector(cfg, dryRun), rec, capturer,
		logger.Component("scenario"), opts...)
	defer runner.Close()

	// Handle SIGINT/SIGTERM so the Appium session is released on Ctrl+C or kill
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.Info("Received signal %v, cleaning up...", sig)
		fmt.Fprintf(os.Stderr, "\nReceived %v, closing Appium session...\n", sig)
		if err := runner.Close(); err != nil {
			logger.Error("Failed to close session on signal: %v", err)
		}
		logger.Close()
		os.Exit(1)
	}()
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()

	var runErr error
	if mode == modeSuite {
		logger.Info("Running suite of %d test(s)", len(cfg.Suite))
		_, runErr = runner.RunSuite(cfg.Suite)
	} else {
		username, password := cfg.Username, cfg.Password
		if c.Args().Len() > 1 {
			username = c.Args().Get(1)
		}
		if c.Args().Len() > 2 {
			password = c.Args().Get(2)
		}
		_, runErr = runner.RunSingle(scenario.SingleCase(username, password))
	}
	if runErr != nil {
		logger.Error("Run aborted: %v", runErr)
	}

	// Close before reporting so the final_cleanup screenshot is in the gallery
	if err := runner.Close(); err != nil {
		logger.Warn("Session cleanup failed: %v", err)
	}

	summary, reports, err := writeReports(cfg, rec.Completed(), capturer.Records(), time.Now())
	if err != nil {
		logger.Error("Report generation failed: %v", err)
		return err
	}

	report.PrintSummary(out, summary, cfg.ReportDir, cfg.ScreenshotDir)
	printReports(out, reports)

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("run aborted: %v", runErr), 1)
	}
	if !summary.AllPassed() {
		return cli.Exit("", 1)
	}
	return nil
}

// reportPaths lists the generated artifacts.
type reportPaths struct {
	Allure string
	HTML   string
	JSON   string
}

// writeReports writes Allure results, the HTML report and report.json for
// the finished runs.
func writeReports(cfg *config.Config, runs []core.TestRun, shots []core.ScreenshotRecord, now time.Time) (report.Summary, reportPaths, error) {
	paths := reportPaths{
		Allure: cfg.ReportDir,
		HTML:   filepath.Join(cfg.ReportDir, HTMLReportFile),
	}

	env := cfg.EnvironmentAt(now)
	written, err := report.WriteAllure(cfg.ReportDir, runs, env)
	if err != nil {
		return report.Summary{}, paths, err
	}
	logger.Info("Wrote %d Allure file(s) to %s", len(written), cfg.ReportDir)

	if err := report.GenerateHTML(paths.HTML, runs, shots, report.HTMLConfig{
		GeneratedAt: now,
		EmbedAssets: cfg.EmbedScreenshots,
		Environment: env,
	}); err != nil {
		return report.Summary{}, paths, err
	}

	summary := report.BuildSummary(runs, shots)
	paths.JSON, err = report.WriteIndex(cfg.ReportDir, summary)
	if err != nil {
		return report.Summary{}, paths, err
	}
	return summary, paths, nil
}

func printReports(w io.Writer, p reportPaths) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Reports:")
	fmt.Fprintf(w, "    Allure: %s\n", p.Allure)
	fmt.Fprintf(w, "    HTML:   %s\n", p.HTML)
	fmt.Fprintf(w, "    JSON:   %s\n", p.JSON)
	fmt.Fprintf(w, "\n  View with: allure serve %s\n\n", p.Allure)
}
