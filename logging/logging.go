// Package logging provides real-time console output for shutdown coordination.
// Lines are human-readable and tagged with a component path, e.g.
// "INFO  2026-02-05T04:00:00.000Z [shutdown][database] shutdown_complete".
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger writes leveled, component-tagged lines.
// Loggers derived with WithComponent or Named share the parent's sink, so
// SetLevel and SetOutput on any of them apply to the whole family.
type Logger struct {
	sink       *sink
	components []string
}

// sink is the writer and level shared by a logger and everything derived from it.
type sink struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		sink: &sink{
			output:   os.Stdout,
			minLevel: LevelInfo,
		},
	}
}

// WithComponent returns a new logger tagged with the given component only.
func (l *Logger) WithComponent(component string) *Logger {
	d := l.derive()
	d.components = []string{component}
	return d
}

// Named returns a new logger whose tag path is extended by name.
// [shutdown] becomes [shutdown][name].
func (l *Logger) Named(name string) *Logger {
	d := l.derive()
	d.components = append(append([]string(nil), l.components...), name)
	return d
}

func (l *Logger) derive() *Logger {
	return &Logger{
		sink:       l.sink,
		components: l.components,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs, sorted by key.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component][sub] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if levelPriority[level] < levelPriority[l.sink.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if len(l.components) > 0 {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, strings.Join(l.components, "]["), msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.sink.output.Write([]byte(line))
}

// --- Shutdown event methods ---
// Called by the coordinator and the participant decorator.

// SignalReceived logs the signal that started a shutdown episode.
func (l *Logger) SignalReceived(signal string, participants int) {
	l.Info("signal", map[string]interface{}{
		"signal":       signal,
		"participants": participants,
	})
}

// RepeatSignal logs a signal received while an episode is already running.
func (l *Logger) RepeatSignal(signal string, forced bool) {
	l.Warn("signal_repeat", map[string]interface{}{
		"signal": signal,
		"forced": forced,
	})
}

// ParticipantFailed logs a participant that acknowledged with an error.
func (l *Logger) ParticipantFailed(name string, err error) {
	l.Error("participant_failed", map[string]interface{}{
		"participant": name,
		"error":       err.Error(),
	})
}

// TimeoutExceeded logs the episode deadline firing before all participants acknowledged.
func (l *Logger) TimeoutExceeded(timeout time.Duration, abandoned []string) {
	l.Error("timeout", map[string]interface{}{
		"timeout":   timeout.String(),
		"abandoned": strings.Join(abandoned, ","),
	})
}

// Exit logs the final exit status.
func (l *Logger) Exit(status int, duration time.Duration) {
	fields := map[string]interface{}{
		"status":   status,
		"duration": duration.String(),
	}
	if status != 0 {
		l.Error("exit", fields)
		return
	}
	l.Info("exit", fields)
}

// ShutdownRequested logs that a participant has been asked to shut down.
func (l *Logger) ShutdownRequested(signal string) {
	l.Info("shutdown_requested", map[string]interface{}{
		"signal": signal,
	})
}

// ShutdownComplete logs a participant's successful acknowledgement.
func (l *Logger) ShutdownComplete(duration time.Duration) {
	l.Info("shutdown_complete", map[string]interface{}{
		"duration": duration.String(),
	})
}

// ShutdownFailed logs a participant's failed acknowledgement.
func (l *Logger) ShutdownFailed(duration time.Duration, err error) {
	l.Error("shutdown_failed", map[string]interface{}{
		"duration": duration.String(),
		"error":    err.Error(),
	})
}
