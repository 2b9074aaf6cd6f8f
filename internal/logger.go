package internal

import (
	"log"
	"os"
)

// LogLevel gates collector log output. Levels order from quietest to
// noisiest; a message emits when its level is at or below the active one.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var levelPrefixes = map[LogLevel]string{
	LogLevelError: "[ERROR] ",
	LogLevelWarn:  "[WARN] ",
	LogLevelInfo:  "[INFO] ",
	LogLevelDebug: "[DEBUG] ",
}

var (
	logLevel = LogLevelInfo
	logger   = log.New(os.Stderr, "", log.LstdFlags)
)

// SetLogLevel sets the active log level.
func SetLogLevel(level LogLevel) {
	logLevel = level
}

// SetVerbose toggles between the default info level and debug.
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

func logf(level LogLevel, format string, args ...any) {
	if level > logLevel {
		return
	}
	logger.Printf(levelPrefixes[level]+format, args...)
}

// LogError logs a failure that needs operator attention.
func LogError(format string, args ...any) { logf(LogLevelError, format, args...) }

// LogWarn logs a recoverable anomaly.
func LogWarn(format string, args ...any) { logf(LogLevelWarn, format, args...) }

// LogInfo logs normal cycle progress.
func LogInfo(format string, args ...any) { logf(LogLevelInfo, format, args...) }

// LogDebug logs per-row detail, enabled with --verbose.
func LogDebug(format string, args ...any) { logf(LogLevelDebug, format, args...) }
