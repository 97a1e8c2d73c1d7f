package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pstryklab/pstryk-go/cache"
	"github.com/pstryklab/pstryk-go/config"
	"github.com/pstryklab/pstryk-go/coordinator"
	"github.com/pstryklab/pstryk-go/database"
	"github.com/pstryklab/pstryk-go/hours"
	"github.com/pstryklab/pstryk-go/logging"
	"github.com/pstryklab/pstryk-go/meter"
	"github.com/pstryklab/pstryk-go/pstryk"
	"github.com/pstryklab/pstryk-go/task"
	"github.com/pstryklab/pstryk-go/www"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := hours.SetDisplayTimezone(cnfg.Display.GetTimezone()); err != nil {
		panic(fmt.Sprintf("failed to set display timezone: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("pstryk-go is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	client := pstryk.New(cnfg.Pstryk.GetBaseUrl(), cnfg.Pstryk.ApiToken, cnfg.Pstryk.GetTimeout())

	// A rejected token never recovers on its own, fail fast. A transport
	// error is transient, keep going and serve cached data meanwhile.
	if err := client.ValidateToken(ctx); err != nil {
		if errors.Is(err, pstryk.ErrAuth) {
			panic(fmt.Sprintf("api token rejected: %v", err))
		}
		logger.Warn("token validation skipped, upstream unreachable", slog.Any("error", err))
	}

	fileCache, err := cache.New(logger.With("module", "cache"), cnfg.Cache.Dir)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize cache: %v", err))
	}

	coord := coordinator.New(
		logger.With("module", "coordinator"),
		client,
		fileCache,
		hours.DisplayLocation(),
		cnfg.Pstryk.GetPriceDecimals())

	if cnfg.Meter.Enabled() {
		m := meter.New(
			cnfg.Meter.Host,
			cnfg.Meter.Port,
			cnfg.Meter.Username,
			cnfg.Meter.Password)

		meterInMem := meter.NewInMemData()
		m.OnState = meterInMem.SetState
		m.OnInactivity = func() {
			m.Disconnect()
			exitWithError(logger, fmt.Errorf("meter mqtt traffic is dead, terminating..."))
		}

		if isDevMode() {
			logger.Info("dev mode, skipping meter connection")
		} else {
			if err := m.Connect(); err != nil {
				panic(fmt.Sprintf("meter connection error: %v", err))
			}
			defer m.Disconnect()
		}

		coord.SetMeter(meterInMem)
	}

	tasks := task.NewTasks(db, coord, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("main context done")
				return
			case sig := <-sigCh:
				logger.Info("received signal", slog.Any("signal", sig))
				cancel()
			}
		}
	}()

	server := www.StartServer(db, coord, cnfg)
	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
