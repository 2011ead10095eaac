// Package cli provides the command-line interface for flutter-login-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands. Flags that are set override
// the config file.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: flutter-runner.yaml in the current directory)",
		EnvVars: []string{"FLUTTER_RUNNER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to run on (android, ios)",
		EnvVars: []string{"FLUTTER_RUNNER_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:  "report-dir",
		Usage: "Directory for Allure results and the HTML report",
	},
	&cli.StringFlag{
		Name:  "screenshot-dir",
		Usage: "Directory for screenshots",
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Log file (default: <home>/logs/flutter-runner.log)",
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "Run against the built-in simulated login screen instead of Appium",
		EnvVars: []string{"FLUTTER_RUNNER_DRY_RUN"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"FLUTTER_RUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "flutter-login-runner",
		Usage:   "Appium login tests for Flutter apps with Allure and HTML reports",
		Version: Version,
		Description: `flutter-login-runner drives the login screen of a Flutter app through
an Appium server, records every step and screenshot, and writes Allure
results plus a self-contained HTML report.

Examples:
  flutter-login-runner run
  flutter-login-runner run single alice s3cret
  flutter-login-runner --platform ios run suite
  flutter-login-runner --dry-run run suite
  flutter-login-runner inspect --output screen.xml`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				return os.Setenv("NO_COLOR", "1")
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			inspectCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
