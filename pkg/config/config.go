// Package config handles configuration for flutter-login-runner.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/report"
	"github.com/devicelab-dev/flutter-login-runner/pkg/scenario"
)

// FileNames are the config files LoadFromDir looks for, in order.
var FileNames = []string{"flutter-runner.yaml", "flutter-runner.yml"}

// Supported platforms
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Config represents the runner configuration (flutter-runner.yaml).
type Config struct {
	// Target
	Platform     string                 `yaml:"platform" validate:"required,oneof=android ios"`
	ServerURL    string                 `yaml:"serverUrl" validate:"required,url"`
	Timeout      time.Duration          `yaml:"timeout" validate:"gte=0"` // HTTP timeout per WebDriver call
	Capabilities map[string]interface{} `yaml:"capabilities" validate:"required,min=1"`

	// Output
	ReportDir        string     `yaml:"reportDir" validate:"required"`
	ScreenshotDir    string     `yaml:"screenshotDir" validate:"required"`
	LogFile          string     `yaml:"logFile"`
	EmbedScreenshots bool       `yaml:"embedScreenshots"` // inline screenshots in the HTML report
	Environment      Properties `yaml:"environment"`

	// Scenario
	Username       string               `yaml:"username"` // single mode default
	Password       string               `yaml:"password"`
	Suite          []scenario.LoginCase `yaml:"suite" validate:"dive"`
	Pauses         scenario.Pauses      `yaml:"pauses"`
	SwitchToNative bool                 `yaml:"switchToNative"`
	SkipNavigation bool                 `yaml:"skipNavigation"`
}

// Default returns the configuration for platform ("android" or "ios";
// anything else is treated as android).
func Default(platform string) *Config {
	cfg := &Config{
		Platform:      PlatformAndroid,
		ServerURL:     "http://localhost:4723",
		Timeout:       5 * time.Minute,
		ReportDir:     "./allure-results",
		ScreenshotDir: "./screenshots",
		Pauses:        scenario.DefaultPauses(),
	}

	if strings.EqualFold(platform, PlatformIOS) {
		cfg.Platform = PlatformIOS
		cfg.Capabilities = map[string]interface{}{
			"platformName":      "iOS",
			"platformVersion":   "17.0",
			"deviceName":        "iPhone 15",
			"automationName":    "Flutter",
			"bundleId":          "com.example.theAppFlutter",
			"newCommandTimeout": 300,
			"noReset":           true,
			"fullReset":         false,
		}
		cfg.Username, cfg.Password = "demouser", "demopass123"
		cfg.Suite = []scenario.LoginCase{
			{Name: "Login demouser", Description: "Test login on iOS", Username: "demouser", Password: "demopass123"},
			{Name: "Login testuser", Description: "Test login on iOS", Username: "testuser", Password: "testpass456"},
		}
		cfg.Environment = Properties(report.DefaultEnvironment("iOS", "Simulator", "Flutter Test App", time.Time{})[:5])
		return cfg
	}

	cfg.Capabilities = map[string]interface{}{
		"platformName":             "Android",
		"platformVersion":          "16",
		"deviceName":               "Medium_Phone_API_36",
		"automationName":           "Flutter",
		"appPackage":               "com.example.the_app_flutter",
		"appActivity":              "com.example.the_app_flutter.MainActivity",
		"newCommandTimeout":        300,
		"flutterSystemPort":        9999,
		"flutterEnableObservatory": true,
		"noReset":                  true,
		"fullReset":                false,
	}
	cfg.Username, cfg.Password = "testuser", "testpass"
	cfg.Suite = scenario.DefaultCases()
	cfg.Environment = Properties(report.DefaultEnvironment("Android", "Emulator", "Flutter Test App", time.Time{})[:5])
	return cfg
}

// Load loads configuration from a file on top of the defaults for the
// platform the file names. Maps merge with the defaults; lists replace them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var head struct {
		Platform string `yaml:"platform"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, invalid(fmt.Sprintf("parse %s", path), err)
	}

	cfg := Default(head.Platform)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, invalid(fmt.Sprintf("parse %s", path), err)
	}
	cfg.Platform = strings.ToLower(cfg.Platform)
	return cfg, nil
}

// Find returns the first of FileNames present in dir, or "".
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadFromDir loads flutter-runner.yaml or flutter-runner.yml from dir.
// Without one it returns the defaults for platform.
func LoadFromDir(dir, platform string) (*Config, error) {
	if path := Find(dir); path != "" {
		return Load(path)
	}
	return Default(platform), nil
}

var validate = validator.New()

// Validate checks the configuration. Errors are core.ErrInvalidConfig and
// name every offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid("validate config", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return core.ErrInvalidConfig.
		WithMessage("invalid config: " + strings.Join(msgs, "; ")).
		WithCause(err)
}

// EnvironmentAt returns the report environment with the run date set.
func (c *Config) EnvironmentAt(now time.Time) report.Environment {
	env := report.Environment(c.Environment)
	return env.Set("Date", now.UTC().Format(time.RFC3339))
}

// ScenarioConfig returns the runner settings.
func (c *Config) ScenarioConfig() scenario.Config {
	return scenario.Config{
		Pauses:         c.Pauses,
		SwitchToNative: c.SwitchToNative,
		SkipNavigation: c.SkipNavigation,
	}
}

func invalid(msg string, err error) error {
	return core.ErrInvalidConfig.WithMessage(msg).WithCause(err)
}

// Properties is an ordered string map. In YAML it is written as a mapping
// and keeps the order of the file.
type Properties report.Environment

// UnmarshalYAML decodes a mapping node in document order.
func (p *Properties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: environment must be a mapping", node.Line)
	}
	out := make(Properties, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: environment value for %q must be a scalar", value.Line, key.Value)
		}
		out = append(out, report.Property{Key: key.Value, Value: value.Value})
	}
	*p = out
	return nil
}

// MarshalYAML encodes the properties as a mapping node.
func (p Properties) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, prop := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: prop.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: prop.Value},
		)
	}
	return node, nil
}
