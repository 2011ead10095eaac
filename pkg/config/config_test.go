package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
	"github.com/devicelab-dev/flutter-login-runner/pkg/report"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_Android(t *testing.T) {
	cfg := Default("android")

	assert.Equal(t, PlatformAndroid, cfg.Platform)
	assert.Equal(t, "http://localhost:4723", cfg.ServerURL)
	assert.Equal(t, "./allure-results", cfg.ReportDir)
	assert.Equal(t, "./screenshots", cfg.ScreenshotDir)
	assert.Equal(t, "Android", cfg.Capabilities["platformName"])
	assert.Equal(t, "Medium_Phone_API_36", cfg.Capabilities["deviceName"])
	assert.Equal(t, "com.example.the_app_flutter.MainActivity", cfg.Capabilities["appActivity"])
	assert.Equal(t, 9999, cfg.Capabilities["flutterSystemPort"])
	assert.Equal(t, "testuser", cfg.Username)
	assert.Equal(t, "testpass", cfg.Password)
	require.Len(t, cfg.Suite, 3)
	assert.Equal(t, "Empty Credentials Test", cfg.Suite[2].Name)
	assert.Equal(t, 2*time.Second, cfg.Pauses.BetweenTests)

	_, hasDate := report.Environment(cfg.Environment).Get("Date")
	assert.False(t, hasDate, "date is set per run")
	require.NoError(t, cfg.Validate())
}

func TestDefault_IOS(t *testing.T) {
	cfg := Default("iOS")

	assert.Equal(t, PlatformIOS, cfg.Platform)
	assert.Equal(t, "iOS", cfg.Capabilities["platformName"])
	assert.Contains(t, cfg.Capabilities, "bundleId")
	assert.NotContains(t, cfg.Capabilities, "appPackage")
	assert.Equal(t, "demouser", cfg.Username)
	require.Len(t, cfg.Suite, 2)
	assert.Equal(t, "testpass456", cfg.Suite[1].Password)

	platform, _ := report.Environment(cfg.Environment).Get("Platform")
	assert.Equal(t, "iOS", platform)
	require.NoError(t, cfg.Validate())
}

func TestDefault_Independent(t *testing.T) {
	a := Default("android")
	a.Capabilities["deviceName"] = "changed"
	assert.Equal(t, "Medium_Phone_API_36", Default("android").Capabilities["deviceName"])
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flutter-runner.yaml", `
platform: iOS
serverUrl: http://10.0.0.5:4723
timeout: 30s
capabilities:
  deviceName: iPhone 15 Pro
  udid: 00008110-000A
environment:
  Platform: iOS
  Build: "42"
  Device: iPhone 15 Pro
suite:
  - name: Valid Login
    username: demouser
    password: demopass123
pauses:
  afterSubmit: 3s
switchToNative: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PlatformIOS, cfg.Platform)
	assert.Equal(t, "http://10.0.0.5:4723", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	// maps merge
	assert.Equal(t, "iPhone 15 Pro", cfg.Capabilities["deviceName"])
	assert.Equal(t, "00008110-000A", cfg.Capabilities["udid"])
	assert.Equal(t, "Flutter", cfg.Capabilities["automationName"])

	// lists replace, in file order
	assert.Equal(t, Properties{
		{Key: "Platform", Value: "iOS"},
		{Key: "Build", Value: "42"},
		{Key: "Device", Value: "iPhone 15 Pro"},
	}, cfg.Environment)
	require.Len(t, cfg.Suite, 1)
	assert.Equal(t, "Valid Login", cfg.Suite[0].Name)

	assert.Equal(t, 3*time.Second, cfg.Pauses.AfterSubmit)
	assert.Equal(t, 2*time.Second, cfg.Pauses.AfterNavigation, "unset pauses keep defaults")
	assert.True(t, cfg.SwitchToNative)
	assert.Equal(t, "./allure-results", cfg.ReportDir)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/flutter-runner.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flutter-runner.yaml", "platform: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestLoad_EnvironmentMustBeMapping(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flutter-runner.yaml", "environment:\n  - a\n  - b\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment must be a mapping")
}

func TestLoadFromDir(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "flutter-runner.yaml", "platform: ios\n")
		cfg, err := LoadFromDir(dir, "")
		require.NoError(t, err)
		assert.Equal(t, PlatformIOS, cfg.Platform)
	})

	t.Run("yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "flutter-runner.yml", "reportDir: out\n")
		cfg, err := LoadFromDir(dir, "")
		require.NoError(t, err)
		assert.Equal(t, "out", cfg.ReportDir)
	})

	t.Run("prefers yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "flutter-runner.yaml", "reportDir: from-yaml\n")
		writeConfig(t, dir, "flutter-runner.yml", "reportDir: from-yml\n")
		cfg, err := LoadFromDir(dir, "")
		require.NoError(t, err)
		assert.Equal(t, "from-yaml", cfg.ReportDir)
	})

	t.Run("none", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir(), "")
		require.NoError(t, err)
		assert.Equal(t, Default(PlatformAndroid), cfg)

		cfg, err = LoadFromDir(t.TempDir(), PlatformIOS)
		require.NoError(t, err)
		assert.Equal(t, Default(PlatformIOS), cfg)
	})

	t.Run("file wins over platform", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "flutter-runner.yaml", "platform: ios\n")
		cfg, err := LoadFromDir(dir, PlatformAndroid)
		require.NoError(t, err)
		assert.Equal(t, PlatformIOS, cfg.Platform)
	})
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	path := writeConfig(t, dir, "flutter-runner.yml", "platform: ios\n")
	assert.Equal(t, path, Find(dir))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad platform", func(c *Config) { c.Platform = "windows" }, "Config.Platform"},
		{"bad url", func(c *Config) { c.ServerURL = "not a url" }, "Config.ServerURL"},
		{"no report dir", func(c *Config) { c.ReportDir = "" }, "Config.ReportDir"},
		{"no screenshot dir", func(c *Config) { c.ScreenshotDir = "" }, "Config.ScreenshotDir"},
		{"no capabilities", func(c *Config) { c.Capabilities = nil }, "Config.Capabilities"},
		{"unnamed case", func(c *Config) { c.Suite[1].Name = "" }, "Config.Suite[1].Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("android")
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEnvironmentAt(t *testing.T) {
	cfg := Default("android")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	env := cfg.EnvironmentAt(now)
	date, ok := env.Get("Date")
	require.True(t, ok)
	assert.Equal(t, "2026-05-01T10:00:00Z", date)
	assert.Len(t, cfg.Environment, 5, "config is not modified")
}

func TestScenarioConfig(t *testing.T) {
	cfg := Default("android")
	cfg.SkipNavigation = true

	sc := cfg.ScenarioConfig()
	assert.True(t, sc.SkipNavigation)
	assert.False(t, sc.SwitchToNative)
	assert.Nil(t, sc.Targets)
	assert.Equal(t, cfg.Pauses, sc.Pauses)
}

func TestPropertiesMarshalYAML(t *testing.T) {
	in := Properties{{Key: "Platform", Value: "Android"}, {Key: "App", Value: "Demo"}}

	data, err := yaml.Marshal(struct {
		Environment Properties `yaml:"environment"`
	}{in})
	require.NoError(t, err)
	assert.Equal(t, "environment:\n    Platform: Android\n    App: Demo\n", string(data))

	var out struct {
		Environment Properties `yaml:"environment"`
	}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out.Environment)
}
