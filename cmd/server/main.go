package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/env"
	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/localdb"
	"github.com/nantokaworks/chzzk-games/internal/session"
	"github.com/nantokaworks/chzzk-games/internal/settings"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"github.com/nantokaworks/chzzk-games/internal/shared/paths"
	"github.com/nantokaworks/chzzk-games/internal/webserver"
	"go.uber.org/zap"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting chzzk-games server")

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	dbPath := env.Value.DBPath
	if dbPath == "" {
		dbPath = paths.GetDBPath()
	}
	if _, err := localdb.SetupDB(dbPath); err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}
	defer localdb.CloseDB()

	settingsManager := settings.NewSettingsManager(localdb.GetDB())
	if err := settingsManager.Initialize(); err != nil {
		logger.Warn("Failed to seed default settings", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := session.NewManager(
		func() game.Config { return settingsManager.GameConfig() },
		webserver.BroadcastSnapshot,
	)
	manager.StartJanitor(ctx, time.Minute, 30*time.Minute)

	go func() {
		if err := webserver.StartWebServer(env.Value.ServerPort, manager); err != nil {
			logger.Fatal("Failed to start web server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webserver.StopWebServer(shutdownCtx); err != nil {
		logger.Warn("Web server shutdown failed", zap.Error(err))
	}
	manager.Shutdown()
}
