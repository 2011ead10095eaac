// Package logger provides the process-wide zerolog logger.
//
// Init attaches a log file; console output on stderr is always on. Components
// receive a zerolog.Logger from Component instead of logging through package
// functions, so tests can pass zerolog.Nop().
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var state struct {
	sync.Mutex
	log  zerolog.Logger
	file *os.File
}

func init() {
	state.log = build(nil)
}

// build returns a logger writing human-readable lines to stderr and, when
// file is set, JSON lines to file.
func build(file io.Writer) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
	if file != nil {
		w = zerolog.MultiLevelWriter(w, file)
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// swap replaces the open log file, closing the previous one.
func swap(f *os.File) {
	state.Lock()
	defer state.Unlock()
	if state.file != nil {
		_ = state.file.Close()
	}
	state.file = f
	if f == nil {
		state.log = build(nil)
		return
	}
	state.log = build(f)
}

// Init appends JSON log lines to path from now on.
func Init(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	swap(f)
	return nil
}

// Close detaches and closes the log file. Console logging continues.
func Close() {
	swap(nil)
}

// SetVerbose switches the global level between info and debug.
func SetVerbose(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	state.Lock()
	defer state.Unlock()
	return state.log.With().Str("component", name).Logger()
}

func current() *zerolog.Logger {
	state.Lock()
	defer state.Unlock()
	l := state.log
	return &l
}

func Info(format string, v ...interface{})  { current().Info().Msgf(format, v...) }
func Warn(format string, v ...interface{})  { current().Warn().Msgf(format, v...) }
func Error(format string, v ...interface{}) { current().Error().Msgf(format, v...) }
