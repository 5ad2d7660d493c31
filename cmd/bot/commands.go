package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/X1ag/ReminderBot/internal/config"
	"github.com/X1ag/ReminderBot/internal/infrastructure/naturaldate"
	"github.com/X1ag/ReminderBot/internal/metrics"
	"github.com/X1ag/ReminderBot/internal/repository"
	"github.com/X1ag/ReminderBot/internal/usecase"
	"github.com/X1ag/ReminderBot/transport/httpserver"
	"github.com/X1ag/ReminderBot/transport/telegram"
	"github.com/X1ag/ReminderBot/transport/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "reminder-bot",
		Short:         "Telegram bot that delivers one-shot reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the delivery worker and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return repository.Migrate(cfg.Database)
		},
	})
	return root
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}

func runServe(parent context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram.token (BOT_TOKEN) is required")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(registry)

	resolver := usecase.NewResolver(naturaldate.NewInterpreter())
	reminderUC := usecase.NewReminderUsecase(store, resolver, m, log)

	tgBot, err := telegram.NewBot(cfg.Telegram.Token, reminderUC, telegram.Limits{
		SendPerSecond:     cfg.Telegram.SendRate,
		RequestsPerMinute: cfg.Telegram.RequestsPerMinute,
		Burst:             cfg.Telegram.RequestBurst,
	}, log)
	if err != nil {
		return err
	}
	w := worker.NewWorker(store, tgBot, worker.Options{
		Interval:    cfg.Worker.Interval,
		Concurrency: cfg.Worker.Concurrency,
		Metrics:     m,
		Logger:      log,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tgBot.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(w.Run(ctx))
	})
	if cfg.HTTP.Addr != "" {
		srv := httpserver.NewServer(cfg.HTTP.Addr, store,
			httpserver.StateFunc(func() fmt.Stringer { return w.State() }), registry, log)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
