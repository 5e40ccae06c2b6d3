package main

import (
	"context"
	"errors"
	"flag"
	"hotelscore/internal/configuration"
	"hotelscore/internal/logging"
	"hotelscore/internal/score"
	"hotelscore/internal/server"
	"hotelscore/internal/store"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// loadSeed returns the seed file configured in config, or the built-in seed.
func loadSeed(config configuration.SeedConfig) (*score.Seed, error) {
	if config.File == "" {
		return score.DefaultSeed(), nil
	}
	return score.LoadSeed(config.File)
}

// При ошибках в конфигурации, параметрах хранилища или начальных данных
// приложение завершается с кодом 1. Недоступное хранилище и ошибка инициализации
// правил по умолчанию не фатальны: запросы получают 503, пока хранилище не вернётся.
func main() {
	configPath := flag.String("config", "/etc/hotelscore/config.yaml", "configuration file")
	mock := flag.Bool("mock", false, "use the mock database of the configured store")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Unable to load .env file", "error", err)
	}

	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}
	if *mock {
		config.Store.Mock = true
		if err := config.Store.Validate(); err != nil {
			slog.Error("Invalid mock store configuration", "error", err)
			os.Exit(1)
		}
	}

	logFile := logging.Setup(config.Logger)
	defer logFile.Close()

	appCtx, appCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer appCancel()

	seed, err := loadSeed(config.Seed)
	if err != nil {
		slog.Error("Unable to load seed", "file", config.Seed.File, "error", err)
		os.Exit(1)
	}

	backend, err := store.NewBackend(appCtx, config.Store)
	if err != nil {
		slog.Error("Unable to create store", "type", config.Store.Type, "error", err)
		os.Exit(1)
	}

	engine := score.NewEngine(backend.Rules, backend.Shortlist, seed, config.Engine.Concurrency)

	initCtx, initCancel := context.WithTimeout(appCtx, config.Store.Timeout)
	if _, err := engine.EnsureDefaults(initCtx); err != nil {
		slog.Error("Unable to initialise default rules", "error", err)
	}
	initCancel()

	srv := server.NewServer(config.Server, engine)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			appCancel()
		}
	}()
	slog.Info("Server listening " + config.Server.Address)
	<-appCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown", "error", err)
	}
	slog.Info("Server stopped")

	if err := backend.Close(shutdownCtx); err != nil {
		slog.Error("Store close", "error", err)
	}
}
