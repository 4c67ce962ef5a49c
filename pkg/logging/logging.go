// Package logging configures the process-wide zerolog logger and hands out
// component loggers carrying the fields every sync log line shares.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names shared by every component.
const (
	FieldComponent = "component"
	FieldInstance  = "instance"
	FieldSession   = "session"
	FieldArena     = "arena"
	FieldRoot      = "root"
)

// LevelFor maps the -v count to a zerolog level
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger based on verbosity level
// It sets up dual output to both console and a log file
func SetupLogger(verbosity int) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))

	// Console output stays human readable; the file gets plain JSON lines
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    false,
	}

	logFile := getLogFilePath()
	logFileHandle, err := setupLogFile(logFile)
	var fileWriter io.Writer
	if err == nil {
		fileWriter = logFileHandle
	}

	log.Logger = newLogger(consoleWriter, fileWriter, verbosity)

	// If we couldn't create the log file, log the error now with the new logger
	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to create log file, logging to console only")
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("Logger initialized")
}

// newLogger builds the root logger over console and, when non-nil, file.
func newLogger(console, file io.Writer, verbosity int) zerolog.Logger {
	writers := []io.Writer{console}
	if file != nil {
		writers = append(writers, file)
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).With().Timestamp()

	// Add caller information for debug and trace levels
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str(FieldComponent, name).Logger()
}

// ForInstance scopes logger to one Minecraft instance.
func ForInstance(logger zerolog.Logger, instanceID string) zerolog.Logger {
	return logger.With().Str(FieldInstance, instanceID).Logger()
}

// ForSession scopes logger to one sync session of an instance.
func ForSession(logger zerolog.Logger, instanceID string, session uint64) zerolog.Logger {
	return logger.With().
		Str(FieldInstance, instanceID).
		Uint64(FieldSession, session).
		Logger()
}

// ForArena tags logger with the staging arena it writes into.
func ForArena(logger zerolog.Logger, arena string) zerolog.Logger {
	return logger.With().Str(FieldArena, arena).Logger()
}

// ForResolve tags logger with the root project and target platform of a
// dependency resolution.
func ForResolve(logger zerolog.Logger, rootID, gameVersion, loader string) zerolog.Logger {
	return logger.With().
		Str(FieldRoot, rootID).
		Str("game_version", gameVersion).
		Str("loader", loader).
		Logger()
}

// getLogFilePath returns the path to the log file
// It respects MODSYNC_STATE_DIR and XDG_STATE_HOME, otherwise uses ~/.local/state/modsync/
func getLogFilePath() string {
	if dir := os.Getenv("MODSYNC_STATE_DIR"); dir != "" {
		return filepath.Join(dir, "modsync.log")
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if we can't get home
			return "modsync.log"
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "modsync", "modsync.log")
}

// setupLogFile creates the log file and its parent directories
func setupLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Sessions of different instances append to the same file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
