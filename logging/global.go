// Package logging sets up the process logger: text on the console, JSON in
// weekly rotating files.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/desprescricao-api/config"
)

// Options configures InitLogger. An empty Dir logs to the console only.
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
}

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	mu                    sync.Mutex
)

// InitLogger initializes the global logger instance. When the log directory
// cannot be used it falls back to the console and returns the error.
func InitLogger(opts Options) error {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, false),
	})

	service := &LoggingService{Logger: slog.New(consoleHandler)}

	var err error
	if opts.Dir != "" {
		var rl *RotatingLogger
		rl, err = NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err == nil {
			fileHandler := slog.NewJSONHandler(rl, &slog.HandlerOptions{Level: GetFileLogLevel()})
			service = &LoggingService{
				Logger:   slog.New(newMultiHandler(consoleHandler, fileHandler)),
				rotating: rl,
			}
		}
	}

	mu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = service
	mu.Unlock()

	if previous != nil && previous.rotating != nil {
		_ = previous.rotating.Close()
	}

	slog.SetDefault(service.Logger)

	if err != nil {
		service.Logger.Error("Failed to initialize rotating logger, logging to console only", "error", err)
	}
	return err
}

// CleanupOldLogs removes expired log files. It is a no-op without a log directory.
func CleanupOldLogs() (int, error) {
	mu.Lock()
	service := DefaultLoggingService
	mu.Unlock()

	if service == nil || service.rotating == nil {
		return 0, nil
	}
	return service.rotating.CleanupOldLogs()
}

// Close flushes and closes the log file, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	err := DefaultLoggingService.rotating.Close()
	DefaultLoggingService.rotating = nil
	return err
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel returns the console level for env. An explicit level
// wins, except in tests where the console stays quiet unless verbose.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is always debug, files keep everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
