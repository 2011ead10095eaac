package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/flutter-login-runner/pkg/inspect"
	"github.com/devicelab-dev/flutter-login-runner/pkg/logger"
)

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "Print the elements of the current screen and likely login fields",
	Description: `Opens a session, reads the page source and groups its elements into
text inputs, buttons, clickables, texts and images. Elements that look
like the username, password, submit and "forgot password" controls are
listed as login candidates.

Examples:
  flutter-login-runner inspect
  flutter-login-runner inspect --output screen.xml
  flutter-login-runner --platform ios inspect --json`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Save the raw page source XML to this file",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the categorised elements as JSON",
		},
	},
	Action: runInspect,
}

func runInspect(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg, c.Bool("verbose")); err != nil {
		return err
	}
	defer logger.Close()

	session, err := newConnector(cfg, c.Bool("dry-run"))()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close session: %v", err)
		}
	}()

	snap, source, err := inspect.Inspect(session, logger.Component("inspect"))
	if err != nil {
		return err
	}

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
			return fmt.Errorf("save page source: %w", err)
		}
		logger.Info("Page source saved to %s", path)
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	inspect.Print(out, snap)
	return nil
}
