package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"nomwatch/internal/channel"
	"nomwatch/internal/config"
	"nomwatch/internal/engine"
	"nomwatch/internal/follow"
	"nomwatch/internal/registry"
	"nomwatch/internal/schedule"
	"nomwatch/pkg/logx"
)

func main() {
	var (
		cfgPath string
		runOnce bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.BoolVar(&runOnce, "once", false, "run one notification cycle and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, runOnce); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, runOnce bool) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	mgr.SetLogger(log)

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return err
	}
	store, err := follow.OpenStore(follow.StoreConfig{Path: cfg.Storage.Path, BusyTimeout: busy}, log)
	if err != nil {
		return fmt.Errorf("open follow store: %w", err)
	}
	defer store.Close()

	if cfg.Registry.BaseURL == "" {
		return errors.New("registry.base_url is required")
	}
	client := newRegistryClient(cfg.Registry.BaseURL)

	lookback, err := config.ParseDurationOrDefault("registry.lookback", cfg.Registry.Lookback, 30*24*time.Hour)
	if err != nil {
		return err
	}
	source := registry.NewSource(client, registry.SourceConfig{
		Lookback:    lookback,
		ChunkDays:   cfg.Registry.ChunkDays,
		MaxInFlight: cfg.Registry.MaxInFlight,
	}, log)

	metaTTL, err := config.ParseDurationOrDefault("registry.meta_ttl", cfg.Registry.MetaTTL, 6*time.Hour)
	if err != nil {
		return err
	}
	meta := registry.NewMetaCache(client, metaTTL, log)

	channels, err := buildChannels(cfg.Channels, log)
	if err != nil {
		return err
	}
	if len(channels.Names()) == 0 {
		return errors.New("no channels configured")
	}
	log.Info("channels ready", logx.Any("names", channels.Names()))

	eng := engine.New(source, store, channels, engine.Strategies(meta), engine.Config{
		ChannelCaps: cfg.Engine.Caps,
		DefaultCap:  cfg.Engine.DefaultCap,
	}, log)

	if runOnce {
		return eng.Run(ctx)
	}

	sched := schedule.New(schedule.Config{
		Spec:     cfg.Schedule.Spec,
		Timezone: cfg.Schedule.Timezone,
	}, eng.Run, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// Hot-reload logging knobs; structural changes need a restart.
	mgr.SetOnChange(func(c *config.Config) {
		logSvc.Apply(logx.Config{
			Level:   c.Logging.Level,
			Console: c.Logging.Console || !c.Logging.File.Enabled,
			File: logx.FileConfig{
				Enabled: c.Logging.File.Enabled,
				Path:    c.Logging.File.Path,
			},
		})
	})
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		log.Debug("systemd notified ready")
	}

	log.Info("nomwatch started", logx.String("config", cfgPath))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func buildChannels(cfg config.ChannelsConfig, log logx.Logger) (*channel.Registry, error) {
	reg := channel.NewRegistry()

	if cfg.Telegram != nil {
		tg, err := channel.NewTelegram(channel.TelegramConfig{
			Token:          cfg.Telegram.Token,
			PartsPerSecond: cfg.Telegram.PartsPerSecond,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("telegram channel: %w", err)
		}
		reg.Add(tg)
	}

	if cfg.Webhook != nil {
		timeout, err := config.ParseDurationField("channels.webhook.timeout", cfg.Webhook.Timeout)
		if err != nil {
			return nil, err
		}
		wh, err := channel.NewWebhook(channel.WebhookConfig{
			Endpoint:     cfg.Webhook.Endpoint,
			MessageLimit: cfg.Webhook.MessageLimit,
			Timeout:      timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("webhook channel: %w", err)
		}
		reg.Add(wh)
	}

	if cfg.Shoutrrr != nil {
		timeout, err := config.ParseDurationField("channels.shoutrrr.timeout", cfg.Shoutrrr.Timeout)
		if err != nil {
			return nil, err
		}
		reg.Add(channel.NewShoutrrr(channel.ShoutrrrConfig{
			Title:        cfg.Shoutrrr.Title,
			Timeout:      timeout,
			MessageLimit: cfg.Shoutrrr.MessageLimit,
		}, log))
	}

	return reg, nil
}
