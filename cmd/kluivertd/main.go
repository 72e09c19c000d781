package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Kluivert-Agent/internal/api"
	"Kluivert-Agent/internal/app"
	"Kluivert-Agent/internal/config"
	"Kluivert-Agent/internal/driver"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/pkg/logger"
)

// main 是 Kluivert 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.L().Error("kluivertd 运行失败", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := app.LoadEnvFiles(); err != nil {
		return err
	}

	creds, warnings, err := config.ValidateEnvironment(os.LookupEnv)
	if err != nil {
		logger.L().Error("Environment validation failed", "error", err)
		app.ReportMissing(os.Stderr, err)
		if xerrors.IsFatal(err) {
			os.Exit(1)
		}
		return err
	}

	a, err := app.Bootstrap(ctx, creds, app.ConfigPath())
	if err != nil {
		return err
	}
	defer a.Close()
	for _, w := range warnings {
		logger.L().Warn(w)
	}
	cfg := a.Config
	turns := driver.NewTurnLock()

	if cfg.Agent.Autonomous {
		auto := driver.NewAutonomous(a.Factory,
			driver.WithPrompt(cfg.Agent.AutonomousPrompt),
			driver.WithInterval(cfg.Agent.AutonomousInterval()),
			driver.WithPublisher(a.Publisher),
			driver.WithAutonomousTurnLock(turns),
		)
		task := auto.Start(ctx)
		defer func() {
			task.Stop()
			if err := task.Wait(); err != nil {
				logger.L().Error("自主模式异常退出", "error", err)
			}
		}()
	}

	server := api.NewServer(cfg.Server.Address, a.Factory,
		api.WithPublisher(a.Publisher),
		api.WithAutonomousPrompt(cfg.Agent.AutonomousPrompt),
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		api.WithTurnLock(turns),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadHeaderTimeoutSeconds)*time.Second,
			time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second,
		),
	)
	logger.L().Info("HTTP 服务启动", "address", cfg.Server.Address)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
