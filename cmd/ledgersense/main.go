package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/plugin/ai/embedding"
	apiv1 "github.com/ledgersense/ledgersense/server/router/api/v1"
	embeddingrunner "github.com/ledgersense/ledgersense/server/runner/embedding"
	"github.com/ledgersense/ledgersense/store"
	"github.com/ledgersense/ledgersense/store/db"
)

const version = "0.1.0"

func main() {
	prof := &profile.Profile{
		Mode:    "dev",
		Addr:    "",
		Port:    8081,
		Driver:  "sqlite",
		DSN:     "ledgersense.db",
		Version: version,
	}
	// Environment variables supply defaults; flags parsed afterwards take
	// precedence when passed explicitly.
	prof.FromEnv()

	flag.StringVar(&prof.Mode, "mode", prof.Mode, "server mode (dev or prod)")
	flag.StringVar(&prof.Addr, "addr", prof.Addr, "binding address")
	flag.IntVar(&prof.Port, "port", prof.Port, "binding port")
	flag.StringVar(&prof.Driver, "driver", prof.Driver, "database driver (postgres or sqlite)")
	flag.StringVar(&prof.DSN, "dsn", prof.DSN, "database connection string")
	flag.Parse()

	if err := prof.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if prof.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dbDriver, err := db.NewDBDriver(prof)
	if err != nil {
		logger.Error("failed to create db driver", "error", err)
		os.Exit(1)
	}

	st := store.New(dbDriver, prof)
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// One generator for every path that embeds: queries, in-request repair
	// and the backfill runner must share a single embedding space.
	generator := embedding.NewGeneratorFromProfile(prof, logger)

	service := apiv1.NewAPIV1Service(prof, st, generator, logger)
	service.RegisterRoutes(e)

	runnerCtx, stopRunners := context.WithCancel(ctx)
	defer stopRunners()
	if prof.Driver == "postgres" {
		runner := embeddingrunner.NewRunner(st, generator)
		go runner.Run(runnerCtx)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", prof.Addr, prof.Port)
		logger.Info("ledgersense started",
			"version", prof.Version,
			"mode", prof.Mode,
			"driver", prof.Driver,
			"addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("ledgersense stopped")
}
