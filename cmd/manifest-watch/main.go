package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/bakkerme/manifest-watch/internal/bot"
	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/observability/otelx"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat/discord"
	"github.com/bakkerme/manifest-watch/internal/runner/factory"
)

type options struct {
	configPath   string
	settingsPath string
	runOnce      bool
	logLevel     string
}

func main() {
	env := config.LoadEnv()
	if err := newRootCmd(env).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(env config.EnvConfig) *cobra.Command {
	opts := options{
		configPath:   env.ConfigPath,
		settingsPath: env.SettingsPath,
		runOnce:      env.RunOnce,
		logLevel:     env.LogLevel,
	}

	root := &cobra.Command{
		Use:           "manifest-watch",
		Short:         "Discord bot relaying game catalog, fixes and status changes",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env.ConfigPath = opts.configPath
			env.SettingsPath = opts.settingsPath
			env.RunOnce = opts.runOnce
			logger := newLogger(opts.logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, env)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to the channel and seen-state file")
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", opts.settingsPath, "path to the YAML settings document")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "debug, info, warn or error")
	root.Flags().BoolVar(&opts.runOnce, "run-once", opts.runOnce, "run every pipeline once and exit")

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the environment, settings and state files without connecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			env.ConfigPath = opts.configPath
			env.SettingsPath = opts.settingsPath
			return validate(newLogger(opts.logLevel), env)
		},
	})
	return root
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func validate(logger *slog.Logger, env config.EnvConfig) error {
	if err := env.Validate(); err != nil {
		return err
	}
	settings, err := config.LoadSettings(env.SettingsPath)
	if err != nil {
		return err
	}
	f := factory.NewFromEnvConfig(logger, env, settings, nil, nil)
	app, err := f.Build(nil, factory.Sources{})
	if err != nil {
		return err
	}
	app.Handlers.Close()
	logger.Info("configuration is valid", "config", env.ConfigPath, "settings", env.SettingsPath)
	return nil
}

func serve(ctx context.Context, logger *slog.Logger, env config.EnvConfig) error {
	if err := env.Validate(); err != nil {
		return err
	}
	settings, err := config.LoadSettings(env.SettingsPath)
	if err != nil {
		return err
	}

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if shutdownTracing != nil {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	health := metrics.NewHealth()

	session, err := bot.NewSession(env.DiscordToken)
	if err != nil {
		return err
	}
	f := factory.NewFromEnvConfig(logger, env, settings, m, health)
	app, err := f.Build(discord.NewSender(session), f.Sources())
	if err != nil {
		return err
	}
	defer app.Handlers.Close()

	if env.RunOnce {
		return app.Runner.RunOnce(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := bot.New(session, bot.Options{
		GuildID:   env.GuildID,
		Handlers:  app.Handlers,
		Paginator: f.Paginator(),
		Metrics:   m,
		Health:    health,
		Logger:    logger,
	})

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() {
		err := metrics.Serve(ctx, metrics.ServerOptions{
			Addr:     env.MetricsAddr,
			Health:   health,
			Gatherer: registry,
		}, logger)
		if err != nil {
			logger.Error("observability server stopped", "error", err)
		}
	})
	lifecycle.Go(func() {
		if err := app.Runner.Run(ctx, b.Ready()); err != nil {
			logger.Error("runner stopped", "error", err)
			cancel()
		}
	})

	logger.Info("manifest-watch starting", "guild_id", env.GuildID, "config", env.ConfigPath)
	runErr := b.Run(ctx)
	cancel()
	lifecycle.Wait()
	logger.Info("manifest-watch stopped")
	return runErr
}
