package cli

import (
	"cactus/backend/config"
	"cactus/backend/cycle"
	"cactus/backend/notify"
	"cactus/backend/scheduler"
	"cactus/backend/store"
	"cactus/backend/utils"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// services is everything a command needs, built from one Config.
type services struct {
	cfg         *config.Config
	logger      *log.Logger
	colored     bool
	store       store.Store
	clock       cycle.Clock
	coordinator *cycle.Coordinator
	notifier    *notify.Notifier
	scheduler   *scheduler.Scheduler
}

func openServices(ctx context.Context) (*services, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, nil, err
	}

	colored := cfg.LogFormat != "json" && utils.ColorEnabled(cfg.LogColor, os.Stdout)
	newLogger := func(component string) *log.Logger {
		return utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat, EnableColors: colored, Component: component})
	}
	logger := newLogger("")

	db, err := utils.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	closers := []func(){func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	s := store.NewGormStore(db)
	clock := cycle.SystemClock{}
	coord := cycle.NewCoordinator(s, clock, cycle.Options{
		Length: cfg.CycleLength,
		Tiers: cycle.Tiers{
			Mid:  cfg.Rules.Tiers.Mid,
			High: cfg.Rules.Tiers.High,
		},
		AllowTestReset: cfg.AllowTestReset,
		Logger:         newLogger("cycle"),
	})

	var sendLog notify.SendLog = notify.NewGormSendLog(db)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		sendLog = notify.NewRedisSendLog(client)
	}

	var channel notify.Channel = notify.LogChannel{Logger: newLogger("mail")}
	if cfg.SMTPHost != "" {
		channel = notify.NewSMTPChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	gate := notify.NewGate(sendLog, clock, notify.GateOptions{
		MinGap:     cfg.Rules.Notifications.MinGap,
		DailyLimit: cfg.Rules.Notifications.DailyLimit,
		Location:   cfg.Location(),
	})
	notifier := notify.NewNotifier(gate, channel, newLogger("notify"))

	sched, err := scheduler.New(coord, notifier, s, scheduler.Options{
		Interval:       cfg.SweepInterval,
		ReminderWindow: cfg.ReminderWindow,
		Logger:         newLogger("sweep"),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &services{
		cfg:         cfg,
		logger:      logger,
		colored:     colored,
		store:       s,
		clock:       clock,
		coordinator: coord,
		notifier:    notifier,
		scheduler:   sched,
	}, cleanup, nil
}
