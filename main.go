package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"codevox/internal/agent"
	"codevox/internal/config"
	"codevox/internal/database"
	"codevox/internal/logging"
	"codevox/internal/services"
	"codevox/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(os.Getenv("CODEVOX_DEBUG") != "")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if len(cfg.AllowedUsers) == 0 {
		log.Warn("no allowed users configured, all users accepted")
	}

	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: logger.Warn,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc := services.NewServices(db, cfg, log)
	executor := agent.NewExecutor(cfg.AgentBin, cfg.Workspace, cfg.MaxTurns, cfg.Timeout, log)

	if removed := svc.Sessions.CleanupOlderThan(cfg.RetentionDays, ""); removed > 0 {
		log.Info("startup session cleanup", zap.Int("removed", removed))
	}

	// Single-user console transport; a networked chat transport plugs in
	// through the same Messenger interface.
	console := transport.NewConsole(consoleUserID(cfg), os.Stdout)
	app := NewApp(cfg, log, svc, executor, console)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("codevox ready",
		zap.String("agent_bin", cfg.AgentBin),
		zap.String("workspace", cfg.Workspace),
		zap.Int("allowed_users", len(cfg.AllowedUsers)),
		zap.Bool("transport_token", cfg.BotToken != ""))

	done := make(chan struct{})
	go func() {
		defer close(done)
		console.Listen(os.Stdin, func(in transport.Incoming) {
			app.HandleUpdate(ctx, in)
		})
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-done:
		log.Info("input closed, exiting")
	}
	return nil
}

// consoleUserID picks the local user identity: the first allow-listed id, or
// a fixed one when the list is open.
func consoleUserID(cfg *config.Config) int64 {
	if len(cfg.AllowedUsers) > 0 {
		return cfg.AllowedUsers[0]
	}
	return 1
}
