package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/desprescricao-api/calculator"
	"github.com/giygas/desprescricao-api/config"
	"github.com/giygas/desprescricao-api/handlers"
	"github.com/giygas/desprescricao-api/health"
	"github.com/giygas/desprescricao-api/logging"
	"github.com/giygas/desprescricao-api/scheduler"
	"github.com/giygas/desprescricao-api/server"
	"github.com/giygas/desprescricao-api/validation"
	"github.com/joho/godotenv"
)

// logCleanerFunc adapts the package level log cleanup to interfaces.LogCleaner
type logCleanerFunc func() (int, error)

func (f logCleanerFunc) CleanupOldLogs() (int, error) {
	return f()
}

// loadEnv reads .env from the working directory, then from the executable
// directory. A missing file is fine, the environment may already be set.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}

	exPath := filepath.Dir(ex)
	if err := godotenv.Load(filepath.Join(exPath, ".env")); err == nil {
		if err := os.Chdir(exPath); err != nil {
			slog.Warn("Failed to change directory", "dir", exPath, "error", err)
		}
	}
}

func run() error {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Falls back to the console and reports the error itself
	_ = logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	registry, err := calculator.NewRegistry(calculator.Options{
		DefaultProtocol:     cfg.TaperProtocol,
		SafetyCeiling:       cfg.SafetyCeilingDrops,
		ExponentialMaxWeeks: cfg.ExponentialMaxWeeks,
	})
	if err != nil {
		return fmt.Errorf("failed to build protocols: %w", err)
	}
	calc := calculator.New(registry)

	limiter := server.NewRateLimiter(server.DefaultRefillRate, server.DefaultCapacity)

	maintenance := scheduler.NewScheduler(logCleanerFunc(logging.CleanupOldLogs), limiter)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer maintenance.Stop()

	healthChecker := health.NewHealthChecker(calc, maintenance)
	handler := handlers.NewHTTPHandler(calc, validation.NewInputValidator(), healthChecker)
	srv := server.NewServer(cfg, handler, limiter)

	logging.Info("Protocols loaded",
		"default", registry.Default(),
		"protocols", registry.Names(),
		"env", cfg.Env,
	)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logging.Info("Signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application stopped", "error", err)
		os.Exit(1)
	}
}
