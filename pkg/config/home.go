package config

import (
	"os"
	"path/filepath"
	"sync"
)

// HomeEnv overrides where the runner keeps its logs.
const HomeEnv = "FLUTTER_RUNNER_HOME"

const logFileName = "flutter-runner.log"

var home = sync.OnceValue(resolveHome)

// Home returns the runner's home directory: $FLUTTER_RUNNER_HOME, else the
// install root when the binary sits in <root>/bin, else the working
// directory. The result is computed once per process.
func Home() string {
	return home()
}

// DefaultLogFile returns <home>/logs/flutter-runner.log.
func DefaultLogFile() string {
	return filepath.Join(Home(), "logs", logFileName)
}

func resolveHome() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	if root, ok := installRoot(); ok {
		return root
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// installRoot reports the parent of the executable's bin directory.
func installRoot() (string, bool) {
	exe, err := os.Executable()
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if filepath.Base(dir) != "bin" {
		return "", false
	}
	return filepath.Dir(dir), true
}
