package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHome(t *testing.T) {
	t.Run("env", func(t *testing.T) {
		t.Setenv(HomeEnv, "/opt/runner")
		assert.Equal(t, "/opt/runner", resolveHome())
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		got := resolveHome()
		assert.NotEmpty(t, got)
		if _, ok := installRoot(); !ok {
			cwd, err := os.Getwd()
			if assert.NoError(t, err) {
				assert.Equal(t, cwd, got)
			}
		}
	})
}

func TestHome_Cached(t *testing.T) {
	first := Home()
	t.Setenv(HomeEnv, filepath.Join(t.TempDir(), "elsewhere"))
	assert.Equal(t, first, Home())
}

func TestDefaultLogFile(t *testing.T) {
	got := DefaultLogFile()
	assert.Equal(t, filepath.Join(Home(), "logs", "flutter-runner.log"), got)
}
