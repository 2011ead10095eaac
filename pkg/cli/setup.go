package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/flutter-login-runner/pkg/config"
	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	appiumdriver "github.com/devicelab-dev/flutter-login-runner/pkg/driver/appium"
	"github.com/devicelab-dev/flutter-login-runner/pkg/driver/mock"
	"github.com/devicelab-dev/flutter-login-runner/pkg/logger"
	"github.com/devicelab-dev/flutter-login-runner/pkg/scenario"
)

// loadConfig resolves the configuration: --config, else a config file in the
// working directory, else the defaults of --platform. Global flags that are
// set override the result, which is then validated.
func loadConfig(c *cli.Context) (*config.Config, error) {
	platform := strings.ToLower(c.String("platform"))

	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else if cfg, err = config.LoadFromDir(".", platform); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if platform != "" {
		// an unknown name is kept so Validate reports it
		cfg.Platform = platform
	}

	if c.IsSet("appium-url") {
		cfg.ServerURL = c.String("appium-url")
	}
	if c.IsSet("report-dir") {
		cfg.ReportDir = c.String("report-dir")
	}
	if c.IsSet("screenshot-dir") {
		cfg.ScreenshotDir = c.String("screenshot-dir")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging opens the log file and sets the level. The caller closes it
// with logger.Close.
func setupLogging(cfg *config.Config, verbose bool) (string, error) {
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogFile()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := logger.Init(logPath); err != nil {
		return "", err
	}
	logger.SetVerbose(verbose)
	return logPath, nil
}

// newConnector opens an Appium session, or the simulated login screen in
// dry-run mode.
func newConnector(cfg *config.Config, dryRun bool) scenario.Connector {
	if dryRun {
		return func() (core.Session, error) {
			logger.Info("Dry run: using simulated %s login screen", cfg.Platform)
			return mock.New(mock.LoginScreen(cfg.Platform)), nil
		}
	}
	return func() (core.Session, error) {
		logger.Info("Connecting to Appium at %s", cfg.ServerURL)
		d, err := appiumdriver.Connect(cfg.ServerURL, cfg.Capabilities, appiumdriver.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		logger.Info("Session %s created (%s)", d.SessionID(), d.Platform())
		return d, nil
	}
}
