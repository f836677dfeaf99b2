package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nantokaworks/gamerguard/internal/env"
	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/localdb"
	"github.com/nantokaworks/gamerguard/internal/mission"
	"github.com/nantokaworks/gamerguard/internal/roast"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/shared/paths"
	"github.com/nantokaworks/gamerguard/internal/version"
	"github.com/nantokaworks/gamerguard/internal/webserver"
	"go.uber.org/zap"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting gamerguard server", zap.String("version", version.String()))

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}
	defer localdb.Close()

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	store := localdb.NewStore(db)

	squad, err := ledger.New(store)
	if err != nil {
		logger.Fatal("Failed to load ledger", zap.Error(err))
	}

	provider := roast.NewGeminiProvider(
		env.Value.RoastAPIKey,
		env.Value.RoastModel,
		time.Duration(env.Value.RoastTimeoutSeconds)*time.Second,
	)
	engine := mission.NewEngine(squad, provider)

	ctrl, err := mission.NewController(squad, store, engine, webserver.BroadcastWSMessage)
	if err != nil {
		logger.Fatal("Failed to restore mission state", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	webserver.Configure(squad, ctrl)
	if err := webserver.StartWebServer(env.Value.ServerPort); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	if err := webserver.StopWebServer(); err != nil {
		logger.Warn("Web server shutdown error", zap.Error(err))
	}
}
